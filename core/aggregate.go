package core

import (
	"fmt"
	"strings"

	"github.com/huangsam/covdelta/schema"
)

// Aggregate merges the normalized trees of one build into a single tree rooted at a
// REPORT node. Inputs are validated and cloned, so callers keep ownership of what they
// pass in. Nodes are matched level by level on (element, name); a path present in only
// one input is copied as-is. A nil input is treated as an empty tree.
func Aggregate(trees ...*schema.Node) (*schema.Node, error) {
	var root *schema.Node
	for i, tree := range trees {
		if tree == nil {
			continue
		}
		if err := tree.Validate(); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		report, err := asReport(tree.Clone())
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		report.Recompute()
		if root == nil {
			root = report
			continue
		}
		if err := mergeNode(root, report, nodeLabel(root)); err != nil {
			return nil, err
		}
		// Overlap checks of the next input read child counts.
		root.Recompute()
	}
	if root == nil {
		root = schema.NewNode(schema.ReportElement, "")
	}
	root.Recompute()
	return root, nil
}

// NewResult aggregates the trees and wraps them in a result for buildID.
func NewResult(buildID string, trees ...*schema.Node) (*schema.Result, error) {
	root, err := Aggregate(trees...)
	if err != nil {
		return nil, err
	}
	return schema.NewResult(buildID, root), nil
}

// asReport places a tree under a synthetic REPORT root unless it already is one.
func asReport(tree *schema.Node) (*schema.Node, error) {
	if tree.Element() == schema.ReportElement {
		return tree, nil
	}
	if !schema.CanContain(schema.ReportElement, tree.Element()) {
		return nil, &schema.MalformedInputError{
			Path:   tree.Name(),
			Reason: fmt.Sprintf("%s root cannot be placed under a report", tree.Element()),
		}
	}
	report := schema.NewNode(schema.ReportElement, "")
	if err := report.InsertChild(tree); err != nil {
		return nil, err
	}
	return report, nil
}

// mergeNode folds src into dst. Both subtrees have up-to-date counts, and dst is
// exclusively owned by the aggregate.
func mergeNode(dst, src *schema.Node, path string) error {
	if err := checkSummaryOverlap(dst, src, path); err != nil {
		return err
	}
	if err := checkSummaryOverlap(src, dst, path); err != nil {
		return err
	}

	dstValues := dst.Values()
	for e, right := range src.Values() {
		left, ok := dstValues[e]
		if !ok {
			if err := dst.SetValue(e, right); err != nil {
				return err
			}
			continue
		}
		merged, err := mergeRatio(path, e, left, right)
		if err != nil {
			return err
		}
		if err := dst.SetValue(e, merged); err != nil {
			return err
		}
	}

	for _, child := range src.Children() {
		childPath := path + "/" + nodeLabel(child)
		existing := dst.Child(child.Name())
		if existing == nil {
			if err := dst.InsertChild(child.Clone()); err != nil {
				return err
			}
			continue
		}
		if existing.Element() != child.Element() {
			return &schema.MergeConflictError{
				Path:    childPath,
				Element: child.Element(),
				Reason:  fmt.Sprintf("name is used by both a %s and a %s", existing.Element(), child.Element()),
			}
		}
		if err := mergeNode(existing, child, childPath); err != nil {
			return err
		}
	}
	return nil
}

// nodeLabel names a node in error paths the way Node.Walk does.
func nodeLabel(n *schema.Node) string {
	if n.Name() == "" {
		return strings.ToLower(n.Element().String())
	}
	return n.Name()
}

// mergeRatio reconciles two measurements of the same element at the same path.
// Equal totals describe the same artifact, so the better covered side wins. A side
// that is at least as large on both counts is a superset of the other. Anything else
// means the two inputs measured different things under one name.
func mergeRatio(path string, e schema.Element, left, right schema.Ratio) (schema.Ratio, error) {
	switch {
	case right.IsZero():
		return left, nil
	case left.IsZero():
		return right, nil
	case left.Total == right.Total:
		return schema.Ratio{Covered: max(left.Covered, right.Covered), Total: left.Total}, nil
	case left.Dominates(right):
		return left, nil
	case right.Dominates(left):
		return right, nil
	default:
		return schema.Ratio{}, &schema.MergeConflictError{Path: path, Element: e, Left: left, Right: right}
	}
}

// checkSummaryOverlap rejects a node whose directly measured counts for an element
// would be added on top of detailed child nodes for the same element from another input.
func checkSummaryOverlap(summary, detailed *schema.Node, path string) error {
	for e, r := range summary.Values() {
		var fromChildren schema.Ratio
		for _, c := range detailed.Children() {
			fromChildren = fromChildren.Add(c.Count(e))
		}
		if fromChildren.IsZero() {
			continue
		}
		return &schema.MergeConflictError{
			Path:    path,
			Element: e,
			Left:    r,
			Right:   fromChildren,
			Reason:  fmt.Sprintf("summary %s counts %s overlap detailed child counts %s", e, r, fromChildren),
		}
	}
	return nil
}
