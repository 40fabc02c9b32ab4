package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// historyFixedWidth is the space taken by every history column except the build id.
const historyFixedWidth = 70

// WriteHistoryResults outputs build history rows, dispatching based on the output format configured.
func WriteHistoryResults(builds []schema.BuildRecord, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryJSON(w, builds)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryCSV(w, builds)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errUnsupportedOutput(cfg.Output, "history listing (use 'history export')")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryTable(w, builds, cfg)
		}, "Wrote table")
	}
	return nil
}

// writeHistoryTable writes the human-readable build list.
func writeHistoryTable(w io.Writer, builds []schema.BuildRecord, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Build", "Job", "Number", "Outcome", "State", "Started"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	width := getMaxColumnWidth(cfg, historyFixedWidth)
	var data [][]string
	for _, b := range builds {
		outcome := string(b.Outcome)
		if cfg.UseColors {
			outcome = outcomeColor(b.Outcome).Sprint(outcome)
		}
		state := string(b.State)
		if state == "" {
			state = "-"
		}
		data = append(data, []string{
			contract.TruncatePath(b.ID, width),
			b.Job,
			strconv.Itoa(b.Number),
			outcome,
			state,
			b.StartedAt.Local().Format(contract.DateTimeFormat),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d builds. History backend: %s\n", len(builds), cfg.HistoryBackend)
	return err
}

// outcomeColor picks the color of a build outcome.
func outcomeColor(o schema.Outcome) *color.Color {
	switch o {
	case schema.SuccessOutcome:
		return contract.HighColor
	case schema.UnstableOutcome:
		return contract.LowColor
	case schema.FailureOutcome:
		return contract.CriticalColor
	default:
		return contract.ModerateColor
	}
}

// writeHistoryCSV writes one line per build.
func writeHistoryCSV(w io.Writer, builds []schema.BuildRecord) error {
	header := []string{"build_id", "job", "number", "outcome", "state", "started_at", "finished_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, b := range builds {
			finished := ""
			if b.FinishedAt != nil {
				finished = b.FinishedAt.Format(contract.DateTimeFormat)
			}
			rec := []string{
				b.ID,
				b.Job,
				strconv.Itoa(b.Number),
				string(b.Outcome),
				string(b.State),
				b.StartedAt.Format(contract.DateTimeFormat),
				finished,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeHistoryJSON writes the builds as a JSON array, never null.
func writeHistoryJSON(w io.Writer, builds []schema.BuildRecord) error {
	if builds == nil {
		builds = []schema.BuildRecord{}
	}
	return writeJSON(w, builds)
}
