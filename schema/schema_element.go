package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Element is a granularity level of the code structure at which coverage is measured.
// Elements are totally ordered from the coarsest (REPORT) to the finest (CONDITIONAL).
type Element int

// All coverage elements, in taxonomy order.
const (
	ReportElement Element = iota
	PackageElement
	FileElement
	ClassElement
	MethodElement
	LineElement
	ConditionalElement
)

// elementNames holds the canonical upper-case names used in JSON, SQL and output.
var elementNames = [...]string{
	ReportElement:      "REPORT",
	PackageElement:     "PACKAGE",
	FileElement:        "FILE",
	ClassElement:       "CLASS",
	MethodElement:      "METHOD",
	LineElement:        "LINE",
	ConditionalElement: "CONDITIONAL",
}

// hierarchy maps a parent element to the element types it may directly contain.
// It is built at package initialization and only read afterwards.
var hierarchy = map[Element]map[Element]struct{}{
	ReportElement:      {PackageElement: {}, FileElement: {}},
	PackageElement:     {PackageElement: {}, FileElement: {}, ClassElement: {}},
	FileElement:        {ClassElement: {}, MethodElement: {}, LineElement: {}},
	ClassElement:       {ClassElement: {}, MethodElement: {}, LineElement: {}},
	MethodElement:      {LineElement: {}},
	LineElement:        {ConditionalElement: {}},
	ConditionalElement: {},
}

// allElements is the ordered taxonomy.
var allElements = []Element{
	ReportElement,
	PackageElement,
	FileElement,
	ClassElement,
	MethodElement,
	LineElement,
	ConditionalElement,
}

// Elements returns the taxonomy in order. The returned slice is a copy.
func Elements() []Element {
	out := make([]Element, len(allElements))
	copy(out, allElements)
	return out
}

// CanContain reports whether a node of type parent may hold a direct child of type child.
func CanContain(parent, child Element) bool {
	children, ok := hierarchy[parent]
	if !ok {
		return false
	}
	_, ok = children[child]
	return ok
}

// IsValid reports whether e is part of the taxonomy.
func (e Element) IsValid() bool {
	return e >= ReportElement && e <= ConditionalElement
}

// IsStructural reports whether nodes of this element count themselves as a unit
// (a package, file, class or method is covered when any line beneath it is).
func (e Element) IsStructural() bool {
	switch e {
	case PackageElement, FileElement, ClassElement, MethodElement:
		return true
	default:
		return false
	}
}

// String returns the canonical name of the element.
func (e Element) String() string {
	if !e.IsValid() {
		return fmt.Sprintf("Element(%d)", int(e))
	}
	return elementNames[e]
}

// ParseElement converts a name such as "line" or "CONDITIONAL" to an Element.
func ParseElement(s string) (Element, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range elementNames {
		if n == name {
			return Element(i), nil
		}
	}
	// Branch is the common alias used by most report formats.
	if name == "BRANCH" {
		return ConditionalElement, nil
	}
	return 0, fmt.Errorf("unknown coverage element %q", s)
}

// MarshalText implements encoding.TextMarshaler so elements can be map keys in JSON.
func (e Element) MarshalText() ([]byte, error) {
	if !e.IsValid() {
		return nil, fmt.Errorf("invalid coverage element %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Element) UnmarshalText(text []byte) error {
	parsed, err := ParseElement(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalJSON encodes the element by name.
func (e Element) MarshalJSON() ([]byte, error) {
	text, err := e.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON decodes the element from its name.
func (e *Element) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return e.UnmarshalText([]byte(s))
}
