package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Node is one element instance in a coverage tree. Values holds the counts a
// producer measured directly on this node (a LINE node carries its own LINE ratio,
// an Istanbul file carries summary totals). Counts holds the aggregate for the
// whole subtree and is only written by Recompute.
type Node struct {
	element  Element
	name     string
	values   map[Element]Ratio
	children []*Node
	index    map[string]int
	counts   map[Element]Ratio
	frozen   bool
}

// NewNode creates an empty node.
func NewNode(element Element, name string) *Node {
	return &Node{
		element: element,
		name:    name,
		values:  make(map[Element]Ratio),
		index:   make(map[string]int),
		counts:  make(map[Element]Ratio),
	}
}

// NewLine creates a LINE node for line number n. A hit line counts as covered.
func NewLine(n int, hits int64) *Node {
	line := NewNode(LineElement, fmt.Sprintf("%d", n))
	covered := 0
	if hits > 0 {
		covered = 1
	}
	line.values[LineElement] = Ratio{Covered: covered, Total: 1}
	return line
}

// Element returns the node type.
func (n *Node) Element() Element { return n.element }

// Name returns the node name, unique among its siblings.
func (n *Node) Name() string { return n.name }

// Frozen reports whether the node belongs to a finalized result.
func (n *Node) Frozen() bool { return n.frozen }

// Value returns the directly measured ratio for an element.
func (n *Node) Value(e Element) (Ratio, bool) {
	r, ok := n.values[e]
	return r, ok
}

// Values returns a copy of the directly measured ratios.
func (n *Node) Values() map[Element]Ratio {
	return maps.Clone(n.values)
}

// SetValue records a directly measured ratio on this node.
func (n *Node) SetValue(e Element, r Ratio) error {
	if n.frozen {
		return ErrFrozen
	}
	n.values[e] = r
	return nil
}

// InsertChild appends a child. Insertion order is preserved for deterministic output.
func (n *Node) InsertChild(child *Node) error {
	if n.frozen {
		return ErrFrozen
	}
	if _, exists := n.index[child.name]; exists {
		return &DuplicateChildError{Parent: n.name, Name: child.name}
	}
	n.index[child.name] = len(n.children)
	n.children = append(n.children, child)
	return nil
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	i, ok := n.index[name]
	if !ok {
		return nil
	}
	return n.children[i]
}

// Children returns the direct children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Count returns the aggregated ratio of element e over the subtree.
func (n *Node) Count(e Element) Ratio {
	return n.counts[e]
}

// Counts returns a copy of all aggregated ratios.
func (n *Node) Counts() map[Element]Ratio {
	return maps.Clone(n.counts)
}

// Recompute rebuilds the aggregated counts bottom-up. Every count equals the
// node's own measured values plus the sum over its direct children, plus one
// unit of the node's own type when it is structural.
func (n *Node) Recompute() {
	counts := make(map[Element]Ratio, len(n.values)+2)
	maps.Copy(counts, n.values)
	for _, c := range n.children {
		c.Recompute()
		for e, r := range c.counts {
			counts[e] = counts[e].Add(r)
		}
	}
	if n.element.IsStructural() {
		self := Ratio{Total: 1}
		if counts[LineElement].Covered > 0 {
			self.Covered = 1
		}
		counts[n.element] = counts[n.element].Add(self)
	}
	n.counts = counts
}

// Validate checks the hierarchy invariant and count sanity for the subtree.
func (n *Node) Validate() error {
	return n.validate(n.label())
}

func (n *Node) validate(path string) error {
	if !n.element.IsValid() {
		return &MalformedInputError{Path: path, Reason: fmt.Sprintf("unknown element %d", int(n.element))}
	}
	for e, r := range n.values {
		if !r.Valid() {
			return &MalformedInputError{Path: path, Reason: fmt.Sprintf("%s counts %s are invalid", e, r)}
		}
		if !valueAllowed(n.element, e) {
			return &MalformedInputError{Path: path, Reason: fmt.Sprintf("%s node cannot carry %s counts", n.element, e)}
		}
	}
	for _, c := range n.children {
		childPath := path + "/" + c.label()
		if c.name == "" {
			return &MalformedInputError{Path: childPath, Reason: "empty name"}
		}
		if !CanContain(n.element, c.element) {
			return &MalformedInputError{Path: childPath, Reason: fmt.Sprintf("%s cannot contain %s", n.element, c.element)}
		}
		if err := c.validate(childPath); err != nil {
			return err
		}
	}
	return nil
}

// valueAllowed reports whether a node of type owner may carry a measured ratio for e.
func valueAllowed(owner, e Element) bool {
	if e > owner {
		return true
	}
	return e == owner && !owner.IsStructural() && owner != ReportElement
}

func (n *Node) label() string {
	if n.name == "" {
		return strings.ToLower(n.element.String())
	}
	return n.name
}

// Walk visits the subtree depth-first, parents before children.
func (n *Node) Walk(fn func(path string, node *Node) error) error {
	return n.walk(n.label(), fn)
}

func (n *Node) walk(path string, fn func(string, *Node) error) error {
	if err := fn(path, n); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := c.walk(path+"/"+c.label(), fn); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfrozen deep copy.
func (n *Node) Clone() *Node {
	out := &Node{
		element:  n.element,
		name:     n.name,
		values:   maps.Clone(n.values),
		children: make([]*Node, 0, len(n.children)),
		index:    maps.Clone(n.index),
		counts:   maps.Clone(n.counts),
	}
	if out.values == nil {
		out.values = make(map[Element]Ratio)
	}
	if out.index == nil {
		out.index = make(map[string]int)
	}
	for _, c := range n.children {
		out.children = append(out.children, c.Clone())
	}
	return out
}

// Freeze marks the subtree immutable.
func (n *Node) Freeze() {
	n.frozen = true
	for _, c := range n.children {
		c.Freeze()
	}
}

// Equal reports whether two trees have the same structure, values and counts.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.element != o.element || n.name != o.name || len(n.children) != len(o.children) {
		return false
	}
	if !maps.Equal(n.values, o.values) || !maps.Equal(n.counts, o.counts) {
		return false
	}
	for i, c := range n.children {
		if !c.Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// nodeJSON is the wire shape of a node.
type nodeJSON struct {
	Element  Element           `json:"element"`
	Name     string            `json:"name"`
	Values   map[Element]Ratio `json:"values,omitempty"`
	Counts   map[Element]Ratio `json:"counts,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// MarshalJSON encodes the subtree including its aggregated counts.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		Element:  n.element,
		Name:     n.name,
		Values:   n.values,
		Counts:   n.counts,
		Children: n.children,
	})
}

// UnmarshalJSON decodes a subtree. Stored counts are ignored and recomputed.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := NewNode(raw.Element, raw.Name)
	maps.Copy(decoded.values, raw.Values)
	for _, c := range raw.Children {
		if c == nil {
			return fmt.Errorf("null child under %q", raw.Name)
		}
		if err := decoded.InsertChild(c); err != nil {
			return err
		}
	}
	decoded.Recompute()
	*n = *decoded
	return nil
}
