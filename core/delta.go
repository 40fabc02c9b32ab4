package core

import (
	"github.com/huangsam/covdelta/schema"
)

// ComputeDelta compares the whole-tree coverage of current against reference for every
// element of the taxonomy. An element with no data on either side gets no entry. A nil
// reference yields a report where no element has a delta.
func ComputeDelta(current, reference *schema.Result) schema.DeltaReport {
	report := schema.DeltaReport{
		Deltas:   make(map[schema.Element]int),
		HasDelta: make(map[schema.Element]bool),
	}
	if current == nil {
		return report
	}
	report.BuildID = current.BuildID()
	if reference != nil {
		report.ReferenceID = reference.BuildID()
	}

	for _, e := range schema.Elements() {
		after := current.Coverage(e)
		var before schema.Ratio
		if reference != nil {
			before = reference.Coverage(e)
		}
		if after.IsZero() && before.IsZero() {
			continue
		}

		row := schema.DeltaRow{
			Element:       e,
			Before:        before,
			After:         after,
			BeforePercent: percentPtr(before),
			AfterPercent:  percentPtr(after),
		}
		if reference != nil {
			if d, ok := schema.PercentagePointDelta(after, before); ok {
				report.Deltas[e] = d
				report.HasDelta[e] = d != 0
				row.Delta = &d
				row.HasDelta = d != 0
			}
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

// ApplyDelta stores the report's deltas in result and finalizes it.
func ApplyDelta(result *schema.Result, report schema.DeltaReport) error {
	return result.ApplyDeltas(report.Deltas)
}

// ReportFromResult rebuilds the display report of a finalized result. Stored deltas
// are used as-is; the reference result, when given, only fills in the before column.
func ReportFromResult(result, reference *schema.Result) schema.DeltaReport {
	report := ComputeDelta(result, reference)
	report.Deltas = result.DeltaResults()
	report.HasDelta = make(map[schema.Element]bool, len(report.Deltas))
	for i := range report.Rows {
		row := &report.Rows[i]
		row.Delta, row.HasDelta = nil, false
		if d, ok := result.Delta(row.Element); ok {
			row.Delta = &d
			row.HasDelta = result.HasDelta(row.Element)
		}
	}
	for e := range report.Deltas {
		report.HasDelta[e] = result.HasDelta(e)
	}
	if ref := result.Reference(); ref != nil {
		report.ReferenceID = ref.ReferenceID
	}
	return report
}

func percentPtr(r schema.Ratio) *float64 {
	p, ok := r.Percent()
	if !ok {
		return nil
	}
	return &p
}
