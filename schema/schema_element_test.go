package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementsOrder(t *testing.T) {
	elems := Elements()
	require.Len(t, elems, 7)
	for i := 1; i < len(elems); i++ {
		assert.Less(t, elems[i-1], elems[i], "taxonomy must be strictly ordered")
	}

	// Mutating the returned slice must not leak into the taxonomy.
	elems[0] = ConditionalElement
	assert.Equal(t, ReportElement, Elements()[0])
}

func TestCanContain(t *testing.T) {
	tests := []struct {
		parent, child Element
		want          bool
	}{
		{ReportElement, PackageElement, true},
		{ReportElement, FileElement, true},
		{ReportElement, LineElement, false},     // lines live in files
		{PackageElement, PackageElement, true},  // nested packages
		{FileElement, ClassElement, true},       // classes in files
		{FileElement, PackageElement, false},    // coarser than parent
		{ClassElement, ClassElement, true},      // inner classes
		{MethodElement, LineElement, true},      // method body lines
		{MethodElement, MethodElement, false},   // methods do not nest
		{LineElement, ConditionalElement, true}, // branches on a line
		{ConditionalElement, LineElement, false},
	}

	for _, tt := range tests {
		t.Run(tt.parent.String()+">"+tt.child.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanContain(tt.parent, tt.child))
		})
	}
}

func TestParseElement(t *testing.T) {
	tests := []struct {
		in      string
		want    Element
		wantErr bool
	}{
		{"line", LineElement, false},
		{"CONDITIONAL", ConditionalElement, false},
		{" File ", FileElement, false},
		{"branch", ConditionalElement, false}, // alias
		{"statement", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseElement(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElementJSON(t *testing.T) {
	data, err := json.Marshal(map[Element]int{LineElement: 50, FileElement: 0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"LINE":50,"FILE":0}`, string(data))

	var decoded map[Element]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 50, decoded[LineElement])

	var e Element
	require.NoError(t, json.Unmarshal([]byte(`"METHOD"`), &e))
	assert.Equal(t, MethodElement, e)
	assert.Error(t, json.Unmarshal([]byte(`"NOPE"`), &e))
}

func TestElementString_Invalid(t *testing.T) {
	assert.Equal(t, "Element(42)", Element(42).String())
	assert.False(t, Element(-1).IsValid())
}
