// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteDelta prints a build's coverage and its deltas using the configured output format.
func (ow *OutWriter) WriteDelta(report schema.DeltaReport, cfg *contract.Config, duration time.Duration) error {
	return WriteDeltaResults(report, cfg, duration)
}

// WriteHistory prints build history rows using the configured output format.
func (ow *OutWriter) WriteHistory(builds []schema.BuildRecord, cfg *contract.Config) error {
	return WriteHistoryResults(builds, cfg)
}

// WriteReference prints the reference attached to a build using the configured output format.
func (ow *OutWriter) WriteReference(buildID string, ref *schema.ReferenceBuild, cfg *contract.Config) error {
	return WriteReferenceResults(buildID, ref, cfg)
}
