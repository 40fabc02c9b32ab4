package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/covdelta/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func sampleBuilds() []schema.BuildRecord {
	started := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	finished := started.Add(5 * time.Minute)
	return []schema.BuildRecord{
		{
			ID: "api#2", Job: "api", Number: 2, Outcome: schema.SuccessOutcome,
			State: schema.DeltaComputedState, StartedAt: started, FinishedAt: &finished,
		},
		{ID: "api#3", Job: "api", Number: 3, Outcome: schema.RunningOutcome, StartedAt: started.Add(time.Hour)},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		schema  *parquet.Schema
		columns []string
	}{
		{
			"builds", parquet.SchemaOf(new(Build)),
			[]string{"build_id", "job", "build_number", "outcome", "state", "reference_id", "started_at", "finished_at"},
		},
		{
			"summaries", parquet.SchemaOf(new(ElementSummary)),
			[]string{"build_id", "element", "covered", "total", "delta", "has_delta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, col := range tt.columns {
				_, ok := tt.schema.Lookup(col)
				assert.True(t, ok, "Column %s should exist in schema", col)
			}
		})
	}
}

func TestConvertBuildRecords(t *testing.T) {
	rows := ConvertBuildRecords(sampleBuilds(), map[string]string{"api#2": "api#1"})
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].State)
	assert.Equal(t, "DELTA_COMPUTED", *rows[0].State)
	require.NotNil(t, rows[0].ReferenceID)
	assert.Equal(t, "api#1", *rows[0].ReferenceID)

	assert.Nil(t, rows[1].State)
	assert.Nil(t, rows[1].ReferenceID)
	assert.Nil(t, rows[1].FinishedAt)
}

func TestWriteBuildsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "builds.parquet")
	data := ConvertBuildRecords(sampleBuilds(), map[string]string{"api#2": "api#1"})

	require.NoError(t, WriteBuildsParquet(data, outputPath))

	read := readAll[Build](t, outputPath)
	require.Len(t, read, len(data))
	for i := range data {
		assert.Equal(t, data[i].BuildID, read[i].BuildID)
		assert.Equal(t, data[i].Number, read[i].Number)
		assert.WithinDuration(t, data[i].StartedAt, read[i].StartedAt, time.Nanosecond)
		if data[i].FinishedAt == nil {
			assert.Nil(t, read[i].FinishedAt)
		} else {
			require.NotNil(t, read[i].FinishedAt)
			assert.WithinDuration(t, *data[i].FinishedAt, *read[i].FinishedAt, time.Nanosecond)
		}
	}
	assert.Nil(t, read[1].ReferenceID)
}

func TestWriteElementSummariesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "summaries.parquet")
	delta := 50
	records := []schema.ElementSummaryRecord{
		{BuildID: "api#2", Element: schema.LineElement, Covered: 4, Total: 4, Delta: &delta, HasDelta: true},
		{BuildID: "api#2", Element: schema.ConditionalElement, Covered: 0, Total: 0},
	}

	require.NoError(t, WriteElementSummariesParquet(ConvertElementSummaryRecords(records), outputPath))

	read := readAll[ElementSummary](t, outputPath)
	require.Len(t, read, 2)
	assert.Equal(t, "LINE", read[0].Element)
	require.NotNil(t, read[0].Delta)
	assert.Equal(t, int32(50), *read[0].Delta)
	assert.True(t, read[0].HasDelta)
	assert.Nil(t, read[1].Delta)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteBuildsParquet([]Build{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteElementSummariesParquet(nil, "/nonexistent/directory/output.parquet")
	assert.Error(t, err)
}
