package core

import (
	"testing"

	"github.com/huangsam/covdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// report builds REPORT > FILE > LINE trees from per-file line hits.
func report(t *testing.T, files map[string][]int64) *schema.Node {
	t.Helper()
	root := schema.NewNode(schema.ReportElement, "")
	for name, hits := range files {
		file := schema.NewNode(schema.FileElement, name)
		for i, h := range hits {
			require.NoError(t, file.InsertChild(schema.NewLine(i+1, h)))
		}
		require.NoError(t, root.InsertChild(file))
	}
	root.Recompute()
	return root
}

// summaryFile builds REPORT > FILE with directly measured line counts.
func summaryFile(t *testing.T, name string, lines schema.Ratio) *schema.Node {
	t.Helper()
	root := schema.NewNode(schema.ReportElement, "")
	file := schema.NewNode(schema.FileElement, name)
	require.NoError(t, file.SetValue(schema.LineElement, lines))
	require.NoError(t, root.InsertChild(file))
	root.Recompute()
	return root
}

func TestAggregate_DisjointTrees(t *testing.T) {
	a := report(t, map[string][]int64{"a.go": {1, 0}})
	b := report(t, map[string][]int64{"b.go": {1, 1, 1}})

	root, err := Aggregate(a, b)
	require.NoError(t, err)

	assert.Equal(t, schema.ReportElement, root.Element())
	assert.Len(t, root.Children(), 2)
	assert.Equal(t, schema.Ratio{Covered: 4, Total: 5}, root.Count(schema.LineElement))
	assert.Equal(t, schema.Ratio{Covered: 2, Total: 2}, root.Count(schema.FileElement))
}

func TestAggregate_SharedPaths(t *testing.T) {
	tests := []struct {
		name  string
		left  []int64
		right []int64
		want  schema.Ratio
	}{
		{"identical", []int64{1, 0}, []int64{1, 0}, schema.Ratio{Covered: 1, Total: 2}},
		{"other run hits more lines", []int64{1, 0, 0}, []int64{0, 0, 4}, schema.Ratio{Covered: 2, Total: 3}},
		{"superset file", []int64{1, 0}, []int64{1, 0, 1}, schema.Ratio{Covered: 2, Total: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := report(t, map[string][]int64{"a.go": tt.left})
			right := report(t, map[string][]int64{"a.go": tt.right})

			root, err := Aggregate(left, right)
			require.NoError(t, err)
			assert.Equal(t, tt.want, root.Count(schema.LineElement))
			assert.Len(t, root.Children(), 1)
		})
	}
}

func TestAggregate_SummaryRatios(t *testing.T) {
	tests := []struct {
		name        string
		left, right schema.Ratio
		want        schema.Ratio
		conflict    bool
	}{
		{"equal totals keep best", schema.Ratio{Covered: 3, Total: 10}, schema.Ratio{Covered: 7, Total: 10}, schema.Ratio{Covered: 7, Total: 10}, false},
		{"dominating side wins", schema.Ratio{Covered: 3, Total: 10}, schema.Ratio{Covered: 5, Total: 12}, schema.Ratio{Covered: 5, Total: 12}, false},
		{"empty side ignored", schema.Ratio{Covered: 3, Total: 10}, schema.Ratio{}, schema.Ratio{Covered: 3, Total: 10}, false},
		{"neither is a superset", schema.Ratio{Covered: 8, Total: 10}, schema.Ratio{Covered: 5, Total: 12}, schema.Ratio{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Aggregate(summaryFile(t, "a.js", tt.left), summaryFile(t, "a.js", tt.right))
			if tt.conflict {
				var conflict *schema.MergeConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, "report/a.js", conflict.Path)
				assert.Equal(t, schema.LineElement, conflict.Element)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, root.Count(schema.LineElement))
		})
	}
}

func TestAggregate_Conflicts(t *testing.T) {
	t.Run("same name different element", func(t *testing.T) {
		left := report(t, map[string][]int64{"core": {1}})
		right := schema.NewNode(schema.ReportElement, "")
		require.NoError(t, right.InsertChild(schema.NewNode(schema.PackageElement, "core")))

		_, err := Aggregate(left, right)
		var conflict *schema.MergeConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, conflict.Reason, "FILE")
		assert.Contains(t, conflict.Reason, "PACKAGE")
	})

	t.Run("summary over detail", func(t *testing.T) {
		detailed := report(t, map[string][]int64{"a.js": {1, 0}})
		summary := summaryFile(t, "a.js", schema.Ratio{Covered: 1, Total: 2})

		for _, order := range [][]*schema.Node{{detailed, summary}, {summary, detailed}} {
			_, err := Aggregate(order...)
			var conflict *schema.MergeConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Contains(t, conflict.Reason, "overlap")
		}
	})

	t.Run("summary over detail added by an earlier merge", func(t *testing.T) {
		classTree := func(lines ...*schema.Node) *schema.Node {
			root := schema.NewNode(schema.ReportElement, "")
			file := schema.NewNode(schema.FileElement, "a.go")
			class := schema.NewNode(schema.ClassElement, "C")
			for _, l := range lines {
				require.NoError(t, class.InsertChild(l))
			}
			require.NoError(t, file.InsertChild(class))
			require.NoError(t, root.InsertChild(file))
			root.Recompute()
			return root
		}
		empty := classTree()
		detailed := classTree(schema.NewLine(1, 1))
		summary := summaryFile(t, "a.go", schema.Ratio{Covered: 5, Total: 10})

		orders := [][]*schema.Node{
			{empty, detailed, summary},
			{summary, empty, detailed},
			{detailed, empty, summary},
		}
		for _, order := range orders {
			_, err := Aggregate(order...)
			var conflict *schema.MergeConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, schema.LineElement, conflict.Element)
		}
	})
}

func TestAggregate_Malformed(t *testing.T) {
	bad := schema.NewNode(schema.ReportElement, "")
	file := schema.NewNode(schema.FileElement, "a.go")
	require.NoError(t, file.SetValue(schema.LineElement, schema.Ratio{Covered: 3, Total: 2}))
	require.NoError(t, bad.InsertChild(file))

	_, err := Aggregate(report(t, map[string][]int64{"b.go": {1}}), bad)
	var malformed *schema.MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "input 1")

	_, err = Aggregate(schema.NewLine(1, 1))
	assert.ErrorAs(t, err, &malformed)
}

func TestAggregate_WrapsNonReportRoots(t *testing.T) {
	pkg := schema.NewNode(schema.PackageElement, "core")
	file := schema.NewNode(schema.FileElement, "core/a.go")
	require.NoError(t, file.InsertChild(schema.NewLine(1, 1)))
	require.NoError(t, pkg.InsertChild(file))

	root, err := Aggregate(pkg)
	require.NoError(t, err)
	assert.Equal(t, schema.ReportElement, root.Element())
	require.NotNil(t, root.Child("core"))
	assert.Equal(t, schema.Ratio{Covered: 1, Total: 1}, root.Count(schema.LineElement))
}

func TestAggregate_EmptyAndNil(t *testing.T) {
	root, err := Aggregate()
	require.NoError(t, err)
	assert.Equal(t, schema.ReportElement, root.Element())
	assert.Empty(t, root.Children())

	root, err = Aggregate(nil, nil)
	require.NoError(t, err)
	assert.True(t, root.Count(schema.LineElement).IsZero())
}

func TestAggregate_WithEmptyTreeIsIdentity(t *testing.T) {
	tree := report(t, map[string][]int64{"a.go": {1, 0, 2}, "b.go": {0}})

	alone, err := Aggregate(tree)
	require.NoError(t, err)
	withEmpty, err := Aggregate(tree, schema.NewNode(schema.ReportElement, ""))
	require.NoError(t, err)
	withNil, err := Aggregate(nil, tree)
	require.NoError(t, err)

	assert.True(t, alone.Equal(withEmpty))
	assert.True(t, alone.Equal(withNil))
	assert.True(t, alone.Equal(tree))
}

func TestAggregate_DoesNotMutateInputs(t *testing.T) {
	left := report(t, map[string][]int64{"a.go": {1, 0}})
	right := report(t, map[string][]int64{"a.go": {0, 1}, "b.go": {1}})
	before := left.Clone()

	root, err := Aggregate(left, right)
	require.NoError(t, err)
	assert.True(t, before.Equal(left))
	assert.Nil(t, left.Child("b.go"))

	root.Freeze()
	assert.False(t, left.Frozen())
}

func TestAggregate_Properties(t *testing.T) {
	trees := []*schema.Node{
		report(t, map[string][]int64{"a.go": {1, 0, 0}, "b.go": {2}}),
		report(t, map[string][]int64{"a.go": {0, 0, 1, 1}, "c.go": {0, 0}}),
	}
	root, err := Aggregate(trees...)
	require.NoError(t, err)

	// Totals never shrink at a shared path.
	for _, tree := range trees {
		for _, child := range tree.Children() {
			merged := root.Child(child.Name())
			require.NotNil(t, merged)
			assert.GreaterOrEqual(t, merged.Count(schema.LineElement).Total, child.Count(schema.LineElement).Total)
		}
	}

	// Every parent equals the sum over its children.
	err = root.Walk(func(path string, n *schema.Node) error {
		if len(n.Children()) == 0 {
			return nil
		}
		var sum schema.Ratio
		for _, c := range n.Children() {
			sum = sum.Add(c.Count(schema.LineElement))
		}
		assert.Equal(t, sum, n.Count(schema.LineElement), path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Ratio{Covered: 4, Total: 7}, root.Count(schema.LineElement))
}

func TestNewResult(t *testing.T) {
	res, err := NewResult("api#1", report(t, map[string][]int64{"a.go": {1}}))
	require.NoError(t, err)
	assert.Equal(t, "api#1", res.BuildID())
	assert.Equal(t, schema.AggregatedState, res.State())

	_, err = NewResult("api#1", summaryFile(t, "a", schema.Ratio{Covered: 1, Total: 3}), summaryFile(t, "a", schema.Ratio{Covered: 2, Total: 2}))
	assert.Error(t, err)
}
