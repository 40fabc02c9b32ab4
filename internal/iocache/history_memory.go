package iocache

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
)

// MemoryHistory is a process-local HistoryStore. Results are kept encoded so that
// readers always get their own copy, as with the SQL backends.
type MemoryHistory struct {
	mu         sync.RWMutex
	builds     map[string]schema.BuildRecord
	references map[string]schema.ReferenceBuild
	results    map[string][]byte
	summaries  map[string][]schema.ElementSummaryRecord
}

var _ contract.HistoryStore = &MemoryHistory{} // Compile-time check

// NewMemoryHistory returns an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		builds:     make(map[string]schema.BuildRecord),
		references: make(map[string]schema.ReferenceBuild),
		results:    make(map[string][]byte),
		summaries:  make(map[string][]schema.ElementSummaryRecord),
	}
}

// CreateBuild appends a build to the history.
func (m *MemoryHistory) CreateBuild(_ context.Context, b schema.BuildRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.builds[b.ID]; ok {
		return fmt.Errorf("build %s is already recorded", b.ID)
	}
	b.State = ""
	m.builds[b.ID] = b
	return nil
}

// FinishBuild marks a build with its terminal outcome.
func (m *MemoryHistory) FinishBuild(_ context.Context, id string, outcome schema.Outcome, finishedAt time.Time) error {
	if !outcome.IsTerminal() {
		return fmt.Errorf("outcome %q is not terminal", outcome)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.builds[id]
	if !ok {
		return fmt.Errorf("build %s: %w", id, schema.ErrBuildNotFound)
	}
	b.Outcome = outcome
	b.FinishedAt = &finishedAt
	m.builds[id] = b
	return nil
}

// withState fills in the lifecycle state of a build from its stored result.
func (m *MemoryHistory) withState(b schema.BuildRecord) schema.BuildRecord {
	if data, ok := m.results[b.ID]; ok {
		var head struct {
			State schema.State `json:"state"`
		}
		if json.Unmarshal(data, &head) == nil {
			b.State = head.State
		}
	}
	return b
}

// GetBuild returns a build by id.
func (m *MemoryHistory) GetBuild(_ context.Context, id string) (schema.BuildRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.builds[id]
	if !ok {
		return schema.BuildRecord{}, fmt.Errorf("build %s: %w", id, schema.ErrBuildNotFound)
	}
	return m.withState(b), nil
}

// ListBuilds returns the builds of a job, newest first. An empty job lists all builds.
func (m *MemoryHistory) ListBuilds(_ context.Context, job string) ([]schema.BuildRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var builds []schema.BuildRecord
	for _, b := range m.builds {
		if job == "" || b.Job == job {
			builds = append(builds, m.withState(b))
		}
	}
	slices.SortFunc(builds, func(a, b schema.BuildRecord) int {
		if job == "" {
			if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
				return c
			}
		}
		return cmp.Compare(b.Number, a.Number)
	})
	return builds, nil
}

// HasResult reports whether a result was stored for the build.
func (m *MemoryHistory) HasResult(_ context.Context, buildID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.results[buildID]
	return ok, nil
}

// GetReference returns the reference attached to a build, or nil.
func (m *MemoryHistory) GetReference(_ context.Context, buildID string) (*schema.ReferenceBuild, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.references[buildID]
	if !ok {
		return nil, nil
	}
	ref.Messages = slices.Clone(ref.Messages)
	return &ref, nil
}

// AttachReference stores the reference of a build once.
func (m *MemoryHistory) AttachReference(_ context.Context, ref schema.ReferenceBuild) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.references[ref.BuildID]; ok {
		return fmt.Errorf("build %s: %w", ref.BuildID, schema.ErrReferenceAttached)
	}
	ref.Messages = slices.Clone(ref.Messages)
	m.references[ref.BuildID] = ref
	return nil
}

// SaveResult stores a finalized result.
func (m *MemoryHistory) SaveResult(_ context.Context, result *schema.Result) error {
	if !result.Finalized() {
		return fmt.Errorf("result of %s is not finalized (state %s)", result.BuildID(), result.State())
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result of %s: %w", result.BuildID(), err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[result.BuildID()]; ok {
		return fmt.Errorf("build %s: %w", result.BuildID(), schema.ErrResultExists)
	}
	m.results[result.BuildID()] = data
	m.summaries[result.BuildID()] = result.Summary()
	return nil
}

// GetResult returns the stored result of a build.
func (m *MemoryHistory) GetResult(_ context.Context, buildID string) (*schema.Result, error) {
	m.mu.RLock()
	data, ok := m.results[buildID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("build %s: %w", buildID, schema.ErrResultNotFound)
	}
	var result schema.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", buildID, err)
	}
	return &result, nil
}

// ListSummaries returns the summary rows of every stored result.
func (m *MemoryHistory) ListSummaries(_ context.Context) ([]schema.ElementSummaryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []schema.ElementSummaryRecord
	for _, rows := range m.summaries {
		records = append(records, rows...)
	}
	sortSummaries(records)
	return records, nil
}

// GetStatus returns status information about the history.
func (m *MemoryHistory) GetStatus() (schema.HistoryStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := 0
	for _, rows := range m.summaries {
		summaries += len(rows)
	}
	status := schema.HistoryStatus{
		Backend:         string(schema.NoneBackend),
		Connected:       true,
		TotalBuilds:     len(m.builds),
		TotalResults:    len(m.results),
		TotalReferences: len(m.references),
		TableSizes: map[string]int64{
			buildsTable:     int64(len(m.builds)),
			referencesTable: int64(len(m.references)),
			resultsTable:    int64(len(m.results)),
			summariesTable:  int64(summaries),
		},
	}
	for _, b := range m.builds {
		if status.LastBuildID == "" || b.StartedAt.After(status.LastBuildTime) {
			status.LastBuildID, status.LastBuildTime = b.ID, b.StartedAt
		}
		if status.OldestBuildTime.IsZero() || b.StartedAt.Before(status.OldestBuildTime) {
			status.OldestBuildTime = b.StartedAt
		}
	}
	return status, nil
}

// Close implements contract.HistoryStore.
func (m *MemoryHistory) Close() error { return nil }
