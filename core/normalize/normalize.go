// Package normalize converts tool-specific coverage reports into coverage trees.
package normalize

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/huangsam/covdelta/schema"
)

// Normalizer turns one raw report into a coverage tree. Each report format is a
// separate implementation; the aggregator only ever sees the resulting trees.
type Normalizer interface {
	// Name is the adapter name used on the command line, e.g. "cobertura".
	Name() string

	// Normalize parses r into a tree. Any error is reported against the adapter.
	Normalize(r io.Reader) (*schema.Node, error)
}

// Registry maps adapter names to normalizers. It is filled at construction and only
// read afterwards.
type Registry struct {
	normalizers map[string]Normalizer
}

// NewRegistry builds a registry from the given normalizers.
func NewRegistry(normalizers ...Normalizer) (*Registry, error) {
	r := &Registry{normalizers: make(map[string]Normalizer, len(normalizers))}
	for _, n := range normalizers {
		name := strings.ToLower(n.Name())
		if _, dup := r.normalizers[name]; dup {
			return nil, fmt.Errorf("normalizer %q registered twice", name)
		}
		r.normalizers[name] = n
	}
	return r, nil
}

// Default returns a registry with every built-in format.
func Default() *Registry {
	r, err := NewRegistry(&Cobertura{}, &Istanbul{}, &Records{})
	if err != nil {
		panic(err) // built-in names are unique
	}
	return r
}

// Get returns the normalizer registered under name.
func (r *Registry) Get(name string) (Normalizer, error) {
	n, ok := r.normalizers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return n, nil
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.normalizers))
	for name := range r.normalizers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// childOrInsert returns the child named name, creating it with element e when missing.
func childOrInsert(parent *schema.Node, e schema.Element, name string) (*schema.Node, error) {
	if c := parent.Child(name); c != nil {
		if c.Element() != e {
			return nil, &schema.MalformedInputError{
				Path:   parent.Name() + "/" + name,
				Reason: fmt.Sprintf("name is used by both a %s and a %s", c.Element(), e),
			}
		}
		return c, nil
	}
	c := schema.NewNode(e, name)
	if err := parent.InsertChild(c); err != nil {
		return nil, err
	}
	return c, nil
}

// addLine inserts a line, keeping the better covered copy when a report repeats it.
func addLine(parent *schema.Node, line *schema.Node) error {
	existing := parent.Child(line.Name())
	if existing == nil {
		return parent.InsertChild(line)
	}
	for e, r := range line.Values() {
		old, ok := existing.Value(e)
		if !ok || r.Dominates(old) {
			if err := existing.SetValue(e, r); err != nil {
				return err
			}
		}
	}
	return nil
}
