package schema

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Result is the finalized per-build coverage aggregate: the tree plus the deltas
// against the reference build, when one was resolved. A result exclusively owns
// its tree.
type Result struct {
	buildID   string
	root      *Node
	state     State
	reference *ReferenceBuild
	deltas    map[Element]int
	hasDelta  map[Element]bool
}

// NewResult wraps an aggregated tree for a build. The tree is recomputed and
// must not be shared with any other result.
func NewResult(buildID string, root *Node) *Result {
	root.Recompute()
	return &Result{
		buildID:  buildID,
		root:     root,
		state:    AggregatedState,
		deltas:   make(map[Element]int),
		hasDelta: make(map[Element]bool),
	}
}

// BuildID returns the build the result belongs to.
func (r *Result) BuildID() string { return r.buildID }

// Root returns the coverage tree.
func (r *Result) Root() *Node { return r.root }

// State returns the lifecycle state of the result.
func (r *Result) State() State { return r.state }

// Reference returns the attached reference build, or nil.
func (r *Result) Reference() *ReferenceBuild { return r.reference }

// Finalized reports whether the delta step has completed or been skipped.
func (r *Result) Finalized() bool { return r.state.IsTerminal() }

// AttachReference records the resolved reference. A nil reference moves the
// result to REFERENCE_ABSENT.
func (r *Result) AttachReference(ref *ReferenceBuild) error {
	to := ReferenceResolvedState
	if ref == nil {
		to = ReferenceAbsentState
	}
	next, err := r.state.Next(to)
	if err != nil {
		return err
	}
	r.state = next
	r.reference = ref
	return nil
}

// ApplyDeltas stores the computed deltas and finalizes the result.
func (r *Result) ApplyDeltas(deltas map[Element]int) error {
	next, err := r.state.Next(DeltaComputedState)
	if err != nil {
		return err
	}
	r.deltas = make(map[Element]int, len(deltas))
	r.hasDelta = make(map[Element]bool, len(deltas))
	for e, d := range deltas {
		r.deltas[e] = d
		r.hasDelta[e] = d != 0
	}
	r.state = next
	r.root.Freeze()
	return nil
}

// SkipDeltas finalizes a result that has no reference.
func (r *Result) SkipDeltas() error {
	next, err := r.state.Next(DeltaSkippedState)
	if err != nil {
		return err
	}
	r.state = next
	r.root.Freeze()
	return nil
}

// HasDelta reports whether a reference existed and coverage of e differs from it.
func (r *Result) HasDelta(e Element) bool {
	return r.hasDelta[e]
}

// Delta returns the signed percentage-point delta for e, if computed.
func (r *Result) Delta(e Element) (int, bool) {
	d, ok := r.deltas[e]
	return d, ok
}

// DeltaResults returns a copy of the per-element deltas. Elements without data
// on either side are absent.
func (r *Result) DeltaResults() map[Element]int {
	return maps.Clone(r.deltas)
}

// Coverage returns the aggregated ratio for e over the whole tree.
func (r *Result) Coverage(e Element) Ratio {
	return r.root.Count(e)
}

// CoveragePercent returns the coverage percentage for e; false means no data.
func (r *Result) CoveragePercent(e Element) (float64, bool) {
	return r.Coverage(e).Percent()
}

// Summary returns one row per element that has data.
func (r *Result) Summary() []ElementSummaryRecord {
	var rows []ElementSummaryRecord
	for _, e := range Elements() {
		ratio := r.Coverage(e)
		if ratio.IsZero() {
			continue
		}
		row := ElementSummaryRecord{
			BuildID:  r.buildID,
			Element:  e,
			Covered:  ratio.Covered,
			Total:    ratio.Total,
			HasDelta: r.hasDelta[e],
		}
		if d, ok := r.deltas[e]; ok {
			row.Delta = &d
		}
		rows = append(rows, row)
	}
	return rows
}

// resultJSON is the persisted shape of a result.
type resultJSON struct {
	BuildID   string           `json:"build_id"`
	State     State            `json:"state"`
	Reference *ReferenceBuild  `json:"reference,omitempty"`
	Deltas    map[Element]int  `json:"deltas"`
	HasDelta  map[Element]bool `json:"has_delta"`
	Root      *Node            `json:"root"`
}

// MarshalJSON encodes the result for persistence.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		BuildID:   r.buildID,
		State:     r.state,
		Reference: r.reference,
		Deltas:    r.deltas,
		HasDelta:  r.hasDelta,
		Root:      r.root,
	})
}

// UnmarshalJSON restores a persisted result. Finalized results come back frozen.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Root == nil {
		return fmt.Errorf("result for build %q has no tree", raw.BuildID)
	}
	if !raw.State.Valid() {
		return fmt.Errorf("result for build %q has unknown state %q", raw.BuildID, raw.State)
	}
	r.buildID = raw.BuildID
	r.state = raw.State
	r.reference = raw.Reference
	r.root = raw.Root
	r.deltas = raw.Deltas
	r.hasDelta = raw.HasDelta
	if r.deltas == nil {
		r.deltas = make(map[Element]int)
	}
	if r.hasDelta == nil {
		r.hasDelta = make(map[Element]bool)
	}
	if r.state.IsTerminal() {
		r.root.Freeze()
	}
	return nil
}
