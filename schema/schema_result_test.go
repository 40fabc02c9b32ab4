package schema

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateNext(t *testing.T) {
	tests := []struct {
		from, to State
		wantErr  bool
	}{
		{RawReportsIngestedState, AggregatedState, false},
		{AggregatedState, ReferenceResolvedState, false},
		{AggregatedState, ReferenceAbsentState, false},
		{ReferenceResolvedState, DeltaComputedState, false},
		{ReferenceAbsentState, DeltaSkippedState, false},
		{ReferenceAbsentState, DeltaComputedState, true},
		{ReferenceResolvedState, DeltaSkippedState, true},
		{AggregatedState, DeltaComputedState, true},
		{DeltaComputedState, AggregatedState, true},
		{DeltaSkippedState, ReferenceResolvedState, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, err := tt.from.Next(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestOutcomeIsTerminal(t *testing.T) {
	assert.False(t, RunningOutcome.IsTerminal())
	for _, o := range []Outcome{SuccessOutcome, UnstableOutcome, FailureOutcome, AbortedOutcome} {
		assert.True(t, o.IsTerminal(), o)
	}
}

func TestResultLifecycle_WithReference(t *testing.T) {
	res := NewResult("job#2", fileTree(t, "a.go", []int64{1, 1, 1, 1}, nil))
	assert.Equal(t, AggregatedState, res.State())
	assert.False(t, res.Finalized())

	ref := &ReferenceBuild{BuildID: "job#2", ReferenceID: "job#1", Strategy: PreviousSuccessfulStrategy, ResolvedAt: time.Now()}
	require.NoError(t, res.AttachReference(ref))
	assert.Equal(t, ReferenceResolvedState, res.State())

	require.NoError(t, res.ApplyDeltas(map[Element]int{LineElement: 50, FileElement: 0}))
	assert.Equal(t, DeltaComputedState, res.State())
	assert.True(t, res.Finalized())
	assert.True(t, res.Root().Frozen())

	d, ok := res.Delta(LineElement)
	assert.True(t, ok)
	assert.Equal(t, 50, d)
	assert.True(t, res.HasDelta(LineElement))
	assert.False(t, res.HasDelta(FileElement), "zero delta is not a change")
	_, ok = res.Delta(ConditionalElement)
	assert.False(t, ok)

	// Finalized results reject further transitions.
	assert.ErrorIs(t, res.SkipDeltas(), ErrInvalidTransition)
	assert.ErrorIs(t, res.ApplyDeltas(nil), ErrInvalidTransition)
}

func TestResultLifecycle_NoReference(t *testing.T) {
	res := NewResult("job#1", fileTree(t, "a.go", []int64{1, 0}, nil))
	require.NoError(t, res.AttachReference(nil))
	assert.Equal(t, ReferenceAbsentState, res.State())
	assert.Nil(t, res.Reference())

	assert.ErrorIs(t, res.ApplyDeltas(map[Element]int{LineElement: 1}), ErrInvalidTransition)
	require.NoError(t, res.SkipDeltas())
	assert.Equal(t, DeltaSkippedState, res.State())
	assert.Empty(t, res.DeltaResults())
	for _, e := range Elements() {
		assert.False(t, res.HasDelta(e))
	}
}

func TestResultSummary(t *testing.T) {
	res := NewResult("b1", fileTree(t, "a.go", []int64{1, 0, 0, 1}, map[int]Ratio{2: {1, 2}}))
	require.NoError(t, res.AttachReference(&ReferenceBuild{BuildID: "b1", ReferenceID: "b0"}))
	require.NoError(t, res.ApplyDeltas(map[Element]int{LineElement: -25}))

	rows := res.Summary()
	require.Len(t, rows, 3) // FILE, LINE, CONDITIONAL
	assert.Equal(t, FileElement, rows[0].Element)
	assert.Nil(t, rows[0].Delta)

	assert.Equal(t, LineElement, rows[1].Element)
	assert.Equal(t, 2, rows[1].Covered)
	assert.Equal(t, 4, rows[1].Total)
	require.NotNil(t, rows[1].Delta)
	assert.Equal(t, -25, *rows[1].Delta)
	assert.True(t, rows[1].HasDelta)

	pct, ok := res.CoveragePercent(ConditionalElement)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, pct, 1e-9)
}

func TestResultJSON(t *testing.T) {
	res := NewResult("b1", fileTree(t, "a.go", []int64{1, 0}, nil))
	require.NoError(t, res.AttachReference(&ReferenceBuild{BuildID: "b1", ReferenceID: "b0", Strategy: ExplicitStrategy}))
	require.NoError(t, res.ApplyDeltas(map[Element]int{LineElement: 10}))

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "b1", decoded.BuildID())
	assert.Equal(t, DeltaComputedState, decoded.State())
	assert.Equal(t, "b0", decoded.Reference().ReferenceID)
	assert.Equal(t, res.DeltaResults(), decoded.DeltaResults())
	assert.True(t, decoded.HasDelta(LineElement))
	assert.True(t, decoded.Root().Frozen())
	assert.True(t, res.Root().Equal(decoded.Root()))

	var empty Result
	assert.Error(t, json.Unmarshal([]byte(`{"build_id":"x"}`), &empty))

	corrupted := bytes.Replace(data, []byte(`"DELTA_COMPUTED"`), []byte(`"DELTA_DONE"`), 1)
	require.NotEqual(t, data, corrupted)
	var unknown Result
	assert.ErrorContains(t, json.Unmarshal(corrupted, &unknown), "unknown state")
}
