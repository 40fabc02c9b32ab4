package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteDeltaResults outputs a delta report, dispatching based on the output format configured.
func WriteDeltaResults(report schema.DeltaReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDeltaCSV(w, report, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errUnsupportedOutput(cfg.Output, "coverage deltas")
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDeltaTable(w, report, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// writeDeltaTable writes one row per element with before, after and delta columns.
func writeDeltaTable(w io.Writer, report schema.DeltaReport, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	table.Header([]string{"Element", "Before", "After", "Delta", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var increase, decrease func(...any) string
	if cfg.UseColors {
		increase = contract.IncreaseColor.SprintFunc()
		decrease = contract.DecreaseColor.SprintFunc()
	} else {
		increase = fmt.Sprint
		decrease = fmt.Sprint
	}

	var data [][]string
	for _, row := range report.Rows {
		pct, ok := row.After.Percent()
		label := contract.GetPlainLabel(pct, ok)
		if cfg.UseColors {
			label = contract.GetColorLabel(pct, ok)
		}
		data = append(data, []string{
			row.Element.String(),
			formatRatio(row.Before, fmtFloat),
			formatRatio(row.After, fmtFloat),
			formatDelta(row.Delta, increase, decrease),
			label,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if report.ReferenceID == "" {
		if _, err := fmt.Fprintf(w, "Build %s has no reference build; deltas were skipped\n", report.BuildID); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "Build %s compared against reference %s\n", report.BuildID, report.ReferenceID); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Changed elements: %d, Regressions: %d\n", len(report.Changed()), len(report.Regressions())); err != nil {
			return err
		}
	}
	if duration > 0 {
		if _, err := fmt.Fprintf(w, "Completed in %v\n", duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

// formatDelta renders a signed percentage-point delta with a direction marker.
func formatDelta(d *int, increase, decrease func(...any) string) string {
	switch {
	case d == nil:
		return "-"
	case *d > 0:
		return increase(fmt.Sprintf("+%d ▲", *d))
	case *d < 0:
		return decrease(fmt.Sprintf("%d ▼", *d))
	default:
		return "0"
	}
}

// writeDeltaCSV writes the report rows with raw counts so they can be re-aggregated.
func writeDeltaCSV(w io.Writer, report schema.DeltaReport, fmtFloat func(float64) string) error {
	header := []string{
		"build_id",
		"reference_id",
		"element",
		"covered_before",
		"total_before",
		"percent_before",
		"covered_after",
		"total_after",
		"percent_after",
		"delta",
		"has_delta",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range report.Rows {
			rec := []string{
				report.BuildID,
				report.ReferenceID,
				row.Element.String(),
				strconv.Itoa(row.Before.Covered),
				strconv.Itoa(row.Before.Total),
				optionalPercent(row.BeforePercent, fmtFloat),
				strconv.Itoa(row.After.Covered),
				strconv.Itoa(row.After.Total),
				optionalPercent(row.AfterPercent, fmtFloat),
				optionalInt(row.Delta),
				strconv.FormatBool(row.HasDelta),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
