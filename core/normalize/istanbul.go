package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/covdelta/schema"
)

// istanbulMetric is one counter block of coverage-summary.json.
type istanbulMetric struct {
	Total   int `json:"total"`
	Covered int `json:"covered"`
}

type istanbulFile struct {
	Lines      *istanbulMetric `json:"lines"`
	Functions  *istanbulMetric `json:"functions"`
	Branches   *istanbulMetric `json:"branches"`
	Statements *istanbulMetric `json:"statements"`
}

// istanbulTotalKey is the repo-wide summary entry, which is derived and skipped.
const istanbulTotalKey = "total"

// Istanbul normalizes an Istanbul/nyc coverage-summary.json. Each file becomes a FILE
// node carrying its line, function (METHOD) and branch (CONDITIONAL) totals.
type Istanbul struct{}

// Name implements Normalizer.
func (i *Istanbul) Name() string { return "istanbul" }

// Normalize implements Normalizer.
func (i *Istanbul) Normalize(r io.Reader) (*schema.Node, error) {
	var summary map[string]istanbulFile
	if err := json.NewDecoder(r).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decoding istanbul summary: %w", err)
	}

	paths := make([]string, 0, len(summary))
	for path := range summary {
		if path != istanbulTotalKey {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)

	root := schema.NewNode(schema.ReportElement, "")
	for _, path := range paths {
		entry := summary[path]
		file := schema.NewNode(schema.FileElement, path)

		lines := entry.Lines
		if lines == nil {
			lines = entry.Statements
		}
		for e, m := range map[schema.Element]*istanbulMetric{
			schema.LineElement:        lines,
			schema.MethodElement:      entry.Functions,
			schema.ConditionalElement: entry.Branches,
		} {
			if m == nil {
				continue
			}
			if err := file.SetValue(e, schema.Ratio{Covered: m.Covered, Total: m.Total}); err != nil {
				return nil, err
			}
		}
		if err := root.InsertChild(file); err != nil {
			return nil, err
		}
	}
	root.Recompute()
	return root, nil
}
