package schema

import "fmt"

// State is a step in a build's coverage lifecycle.
type State string

// All lifecycle states.
const (
	RawReportsIngestedState State = "RAW_REPORTS_INGESTED"
	AggregatedState         State = "AGGREGATED"
	ReferenceResolvedState  State = "REFERENCE_RESOLVED"
	ReferenceAbsentState    State = "REFERENCE_ABSENT"
	DeltaComputedState      State = "DELTA_COMPUTED" // terminal
	DeltaSkippedState       State = "DELTA_SKIPPED"  // terminal
)

// transitions lists the allowed successors of each state.
var transitions = map[State][]State{
	RawReportsIngestedState: {AggregatedState},
	AggregatedState:         {ReferenceResolvedState, ReferenceAbsentState},
	ReferenceResolvedState:  {DeltaComputedState},
	ReferenceAbsentState:    {DeltaSkippedState},
	DeltaComputedState:      nil,
	DeltaSkippedState:       nil,
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == DeltaComputedState || s == DeltaSkippedState
}

// Next validates the transition from s to to and returns to.
func (s State) Next(to State) (State, error) {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}
