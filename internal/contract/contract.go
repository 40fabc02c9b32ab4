// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/covdelta/schema"
)

// BuildHistory is the read side of the build history that the reference resolver needs.
// Implementations must only ever append builds, so concurrent readers see a monotonically
// growing history.
type BuildHistory interface {
	// GetBuild returns a build by id, or schema.ErrBuildNotFound.
	GetBuild(ctx context.Context, id string) (schema.BuildRecord, error)

	// ListBuilds returns the builds of a job ordered by number, newest first. An empty job
	// lists every build, most recently started first.
	ListBuilds(ctx context.Context, job string) ([]schema.BuildRecord, error)

	// HasResult reports whether a coverage result was stored for the build.
	HasResult(ctx context.Context, buildID string) (bool, error)

	// GetReference returns the reference attached to a build, or nil when none was attached.
	GetReference(ctx context.Context, buildID string) (*schema.ReferenceBuild, error)

	// AttachReference stores the reference for a build. A second attach for the same build
	// is rejected so that a reference stays stable once set.
	AttachReference(ctx context.Context, ref schema.ReferenceBuild) error
}

// HistoryStore persists builds, their references and their finalized coverage results.
type HistoryStore interface {
	BuildHistory

	// CreateBuild appends a build to the history.
	CreateBuild(ctx context.Context, build schema.BuildRecord) error

	// FinishBuild marks a build with its terminal outcome.
	FinishBuild(ctx context.Context, id string, outcome schema.Outcome, finishedAt time.Time) error

	// SaveResult stores a finalized coverage result and its per-element summary rows.
	SaveResult(ctx context.Context, result *schema.Result) error

	// GetResult returns the stored result of a build, or schema.ErrResultNotFound.
	GetResult(ctx context.Context, buildID string) (*schema.Result, error)

	// ListSummaries returns the per-element summary rows of every stored result.
	ListSummaries(ctx context.Context) ([]schema.ElementSummaryRecord, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
