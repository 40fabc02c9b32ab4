package schema

import "time"

// BuildRecord is one entry of the append-only build history.
type BuildRecord struct {
	ID         string     `json:"id"`
	Job        string     `json:"job"`
	Number     int        `json:"number"`
	Outcome    Outcome    `json:"outcome"`
	State      State      `json:"state,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ReferenceBuild links a build to an earlier baseline build by id. It never owns
// the referenced build's data; lookups go through the history.
type ReferenceBuild struct {
	BuildID     string    `json:"build_id"`
	ReferenceID string    `json:"reference_id"`
	Strategy    Strategy  `json:"strategy"`
	Messages    []string  `json:"messages"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// ElementSummaryRecord is one per-element row of a stored result, used for export.
type ElementSummaryRecord struct {
	BuildID  string
	Element  Element
	Covered  int
	Total    int
	Delta    *int
	HasDelta bool
}

// ReportInput names one raw report file and the adapter that normalizes it.
type ReportInput struct {
	Adapter string `json:"adapter"`
	Path    string `json:"path"`
}

func (in ReportInput) String() string {
	return in.Adapter + ":" + in.Path
}
