package schema

// DeltaRow is the before/after view of one element, used for display.
type DeltaRow struct {
	Element       Element  `json:"element"`
	Before        Ratio    `json:"before"`
	After         Ratio    `json:"after"`
	BeforePercent *float64 `json:"before_percent"` // nil means no data
	AfterPercent  *float64 `json:"after_percent"`  // nil means no data
	Delta         *int     `json:"delta"`          // nil when undefined for the element
	HasDelta      bool     `json:"has_delta"`
}

// DeltaReport is the outcome of comparing a build against its reference.
type DeltaReport struct {
	BuildID     string           `json:"build_id"`
	ReferenceID string           `json:"reference_id,omitempty"`
	Deltas      map[Element]int  `json:"deltas"`
	HasDelta    map[Element]bool `json:"has_delta"`
	Rows        []DeltaRow       `json:"rows"`
}

// Changed returns the rows whose coverage moved.
func (r DeltaReport) Changed() []DeltaRow {
	var out []DeltaRow
	for _, row := range r.Rows {
		if row.HasDelta {
			out = append(out, row)
		}
	}
	return out
}

// Regressions returns the rows whose coverage dropped.
func (r DeltaReport) Regressions() []DeltaRow {
	var out []DeltaRow
	for _, row := range r.Rows {
		if row.Delta != nil && *row.Delta < 0 {
			out = append(out, row)
		}
	}
	return out
}
