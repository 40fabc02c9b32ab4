// Package parquet provides data structures and functions for exporting build
// history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/covdelta/schema"
	"github.com/parquet-go/parquet-go"
)

// Build represents one build of the history with its coverage state.
// This struct maps to the covdelta_builds table joined with its result and reference.
type Build struct {
	// BuildID is the unique identifier of the build
	BuildID string `parquet:"build_id,snappy"`

	// Job is the job that ran the build
	Job string `parquet:"job,snappy"`

	// Number is the build number within the job
	Number int32 `parquet:"build_number,snappy"`

	// Outcome is the outcome reported by the host
	Outcome string `parquet:"outcome,snappy"`

	// State is the lifecycle state of the coverage result (nullable when no result is stored)
	State *string `parquet:"state,optional,snappy"`

	// ReferenceID is the reference build used for deltas (nullable)
	ReferenceID *string `parquet:"reference_id,optional,snappy"`

	// StartedAt is when the build started (stored as TIMESTAMP with nanosecond precision)
	StartedAt time.Time `parquet:"started_at,snappy"`

	// FinishedAt is when the build finished (nullable)
	FinishedAt *time.Time `parquet:"finished_at,optional,snappy"`
}

// ElementSummary is the coverage of one element kind in a stored result.
// This struct maps to the covdelta_element_summaries table.
type ElementSummary struct {
	BuildID  string `parquet:"build_id,snappy"`
	Element  string `parquet:"element,snappy,dict"`
	Covered  int32  `parquet:"covered,snappy"`
	Total    int32  `parquet:"total,snappy"`
	Delta    *int32 `parquet:"delta,optional,snappy"`
	HasDelta bool   `parquet:"has_delta,snappy"`
}

// WriteBuildsParquet writes builds to a Parquet file.
func WriteBuildsParquet(data []Build, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteElementSummariesParquet writes element summaries to a Parquet file.
func WriteElementSummariesParquet(data []ElementSummary, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows with a schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertBuildRecords converts builds and their references for Parquet export.
// references maps a build id to its reference build id.
func ConvertBuildRecords(records []schema.BuildRecord, references map[string]string) []Build {
	result := make([]Build, len(records))
	for i, record := range records {
		row := Build{
			BuildID:    record.ID,
			Job:        record.Job,
			Number:     int32(record.Number),
			Outcome:    string(record.Outcome),
			StartedAt:  record.StartedAt,
			FinishedAt: record.FinishedAt,
		}
		if record.State != "" {
			state := string(record.State)
			row.State = &state
		}
		if ref, ok := references[record.ID]; ok {
			row.ReferenceID = &ref
		}
		result[i] = row
	}
	return result
}

// ConvertElementSummaryRecords converts summary rows for Parquet export.
func ConvertElementSummaryRecords(records []schema.ElementSummaryRecord) []ElementSummary {
	result := make([]ElementSummary, len(records))
	for i, record := range records {
		row := ElementSummary{
			BuildID:  record.BuildID,
			Element:  record.Element.String(),
			Covered:  int32(record.Covered),
			Total:    int32(record.Total),
			HasDelta: record.HasDelta,
		}
		if record.Delta != nil {
			d := int32(*record.Delta)
			row.Delta = &d
		}
		result[i] = row
	}
	return result
}
