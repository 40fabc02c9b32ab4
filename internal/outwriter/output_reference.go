package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
)

// referenceJSON keeps the build id in the output when no reference was attached.
type referenceJSON struct {
	BuildID   string                 `json:"build_id"`
	Reference *schema.ReferenceBuild `json:"reference"`
}

// WriteReferenceResults outputs the reference of a build, dispatching based on the output format configured.
func WriteReferenceResults(buildID string, ref *schema.ReferenceBuild, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, referenceJSON{BuildID: buildID, Reference: ref})
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReferenceCSV(w, buildID, ref)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errUnsupportedOutput(cfg.Output, "reference builds")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReferenceText(w, buildID, ref, cfg)
		}, "Wrote text")
	}
	return nil
}

// writeReferenceText prints the reference and the messages explaining how it was chosen.
func writeReferenceText(w io.Writer, buildID string, ref *schema.ReferenceBuild, cfg *contract.Config) error {
	if ref == nil {
		_, err := fmt.Fprintf(w, "No reference build attached to %s\n", buildID)
		return err
	}

	width := getMaxColumnWidth(cfg, 6)
	lines := []string{
		fmt.Sprintf("Build:      %s", ref.BuildID),
		fmt.Sprintf("Reference:  %s", ref.ReferenceID),
		fmt.Sprintf("Strategy:   %s", ref.Strategy),
		fmt.Sprintf("Resolved:   %s", ref.ResolvedAt.Local().Format(contract.DateTimeFormat)),
	}
	if len(ref.Messages) > 0 {
		lines = append(lines, "Messages:")
		for _, m := range ref.Messages {
			lines = append(lines, "  - "+truncateText(m, width))
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// truncateText shortens free text to maxWidth runes with a trailing ellipsis.
func truncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// writeReferenceCSV writes a single row; an absent reference leaves the columns empty.
func writeReferenceCSV(w io.Writer, buildID string, ref *schema.ReferenceBuild) error {
	header := []string{"build_id", "reference_id", "strategy", "resolved_at", "messages"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		rec := []string{buildID, "", "", "", ""}
		if ref != nil {
			rec = []string{
				buildID,
				ref.ReferenceID,
				string(ref.Strategy),
				ref.ResolvedAt.Format(contract.DateTimeFormat),
				strings.Join(ref.Messages, "|"),
			}
		}
		return cw.Write(rec)
	})
}
