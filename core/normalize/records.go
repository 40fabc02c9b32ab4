package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/covdelta/schema"
)

// FileRecord is the flat per-file shape a host can hand over when it has already
// parsed a report. Either the summary counters or Lines may describe lines, not both.
type FileRecord struct {
	Path         string        `json:"path"`
	Package      string        `json:"package,omitempty"`
	Lines        *schema.Ratio `json:"lines,omitempty"`
	Conditionals *schema.Ratio `json:"conditionals,omitempty"`
	Methods      *schema.Ratio `json:"methods,omitempty"`
	LineHits     []LineRecord  `json:"line_hits,omitempty"`
}

// LineRecord is one line of a FileRecord.
type LineRecord struct {
	Number       int           `json:"number"`
	Hits         int64         `json:"hits"`
	Conditionals *schema.Ratio `json:"conditionals,omitempty"`
}

// Records normalizes a JSON array of FileRecord.
type Records struct{}

// Name implements Normalizer.
func (r *Records) Name() string { return "records" }

// Normalize implements Normalizer.
func (r *Records) Normalize(in io.Reader) (*schema.Node, error) {
	var records []FileRecord
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding coverage records: %w", err)
	}
	return BuildTree(records)
}

// BuildTree converts records into a coverage tree.
func BuildTree(records []FileRecord) (*schema.Node, error) {
	root := schema.NewNode(schema.ReportElement, "")
	for i, rec := range records {
		if rec.Path == "" {
			return nil, &schema.MalformedInputError{Path: "record " + strconv.Itoa(i), Reason: "empty path"}
		}
		parent := root
		if rec.Package != "" {
			pkg, err := childOrInsert(root, schema.PackageElement, rec.Package)
			if err != nil {
				return nil, err
			}
			parent = pkg
		}
		if parent.Child(rec.Path) != nil {
			return nil, &schema.DuplicateChildError{Parent: parent.Name(), Name: rec.Path}
		}
		file := schema.NewNode(schema.FileElement, rec.Path)

		if rec.Lines != nil && len(rec.LineHits) > 0 {
			return nil, &schema.MalformedInputError{Path: rec.Path, Reason: "both line summary and line hits given"}
		}
		for e, ratio := range map[schema.Element]*schema.Ratio{
			schema.LineElement:   rec.Lines,
			schema.MethodElement: rec.Methods,
		} {
			if ratio != nil {
				if err := file.SetValue(e, *ratio); err != nil {
					return nil, err
				}
			}
		}

		lineConditionals := false
		for _, lr := range rec.LineHits {
			if lr.Number <= 0 {
				return nil, &schema.MalformedInputError{Path: rec.Path, Reason: fmt.Sprintf("invalid line number %d", lr.Number)}
			}
			line := schema.NewLine(lr.Number, lr.Hits)
			if lr.Conditionals != nil {
				lineConditionals = true
				if err := line.SetValue(schema.ConditionalElement, *lr.Conditionals); err != nil {
					return nil, err
				}
			}
			if err := addLine(file, line); err != nil {
				return nil, err
			}
		}
		if rec.Conditionals != nil {
			if lineConditionals {
				return nil, &schema.MalformedInputError{Path: rec.Path, Reason: "both conditional summary and per-line conditionals given"}
			}
			if err := file.SetValue(schema.ConditionalElement, *rec.Conditionals); err != nil {
				return nil, err
			}
		}

		if err := parent.InsertChild(file); err != nil {
			return nil, err
		}
	}
	root.Recompute()
	return root, nil
}
