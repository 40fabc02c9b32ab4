package normalize

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/huangsam/covdelta/schema"
)

// defaultPackage names classes that Cobertura reports without a package.
const defaultPackage = "<default>"

// coberturaCoverage mirrors the Cobertura XML report.
type coberturaCoverage struct {
	XMLName  xml.Name            `xml:"coverage"`
	Packages []*coberturaPackage `xml:"packages>package"`
}

type coberturaPackage struct {
	Name    string            `xml:"name,attr"`
	Classes []*coberturaClass `xml:"classes>class"`
}

type coberturaClass struct {
	Name     string             `xml:"name,attr"`
	Filename string             `xml:"filename,attr"`
	Methods  []*coberturaMethod `xml:"methods>method"`
	Lines    []*coberturaLine   `xml:"lines>line"`
}

type coberturaMethod struct {
	Name      string           `xml:"name,attr"`
	Signature string           `xml:"signature,attr"`
	Lines     []*coberturaLine `xml:"lines>line"`
}

type coberturaLine struct {
	Number            int    `xml:"number,attr"`
	Hits              int64  `xml:"hits,attr"`
	Branch            bool   `xml:"branch,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr"`
}

// conditionCoverageRe matches the "(covered/total)" part of "50% (1/2)".
var conditionCoverageRe = regexp.MustCompile(`\((\d+)/(\d+)\)`)

// Cobertura normalizes Cobertura XML reports into PACKAGE > FILE > CLASS > METHOD > LINE trees.
// Lines that belong to a method are placed under the first method listing them only.
type Cobertura struct{}

// Name implements Normalizer.
func (c *Cobertura) Name() string { return "cobertura" }

// Normalize implements Normalizer.
func (c *Cobertura) Normalize(r io.Reader) (*schema.Node, error) {
	var cov coberturaCoverage
	if err := xml.NewDecoder(r).Decode(&cov); err != nil {
		return nil, fmt.Errorf("decoding cobertura xml: %w", err)
	}

	root := schema.NewNode(schema.ReportElement, "")
	for _, p := range cov.Packages {
		name := p.Name
		if name == "" {
			name = defaultPackage
		}
		pkg, err := childOrInsert(root, schema.PackageElement, name)
		if err != nil {
			return nil, err
		}
		for _, cls := range p.Classes {
			if err := addCoberturaClass(pkg, cls); err != nil {
				return nil, err
			}
		}
	}
	root.Recompute()
	return root, nil
}

func addCoberturaClass(pkg *schema.Node, cls *coberturaClass) error {
	if cls.Filename == "" {
		return &schema.MalformedInputError{Path: pkg.Name() + "/" + cls.Name, Reason: "class without filename"}
	}
	if cls.Name == "" {
		return &schema.MalformedInputError{Path: pkg.Name() + "/" + cls.Filename, Reason: "class without name"}
	}
	file, err := childOrInsert(pkg, schema.FileElement, cls.Filename)
	if err != nil {
		return err
	}
	class, err := childOrInsert(file, schema.ClassElement, cls.Name)
	if err != nil {
		return err
	}

	classLines := make(map[int]*coberturaLine, len(cls.Lines))
	for _, l := range cls.Lines {
		classLines[l.Number] = l
	}

	inMethod := make(map[int]bool)
	for _, m := range cls.Methods {
		method, err := childOrInsert(class, schema.MethodElement, m.Name+m.Signature)
		if err != nil {
			return err
		}
		for _, l := range m.Lines {
			// Synthetic methods such as lambda$run$0 repeat lines of the enclosing method.
			if inMethod[l.Number] {
				continue
			}
			// The class-level entry usually carries the richer branch data.
			if cl, ok := classLines[l.Number]; ok {
				l = cl
			}
			line, err := coberturaLineNode(l)
			if err != nil {
				return err
			}
			if err := addLine(method, line); err != nil {
				return err
			}
			inMethod[l.Number] = true
		}
	}

	for _, l := range cls.Lines {
		if inMethod[l.Number] {
			continue
		}
		line, err := coberturaLineNode(l)
		if err != nil {
			return err
		}
		if err := addLine(class, line); err != nil {
			return err
		}
	}
	return nil
}

func coberturaLineNode(l *coberturaLine) (*schema.Node, error) {
	if l.Number <= 0 {
		return nil, &schema.MalformedInputError{Path: strconv.Itoa(l.Number), Reason: "line number must be positive"}
	}
	line := schema.NewLine(l.Number, l.Hits)
	if !l.Branch || l.ConditionCoverage == "" {
		return line, nil
	}
	ratio, err := parseConditionCoverage(l.ConditionCoverage)
	if err != nil {
		return nil, &schema.MalformedInputError{Path: line.Name(), Reason: err.Error()}
	}
	if err := line.SetValue(schema.ConditionalElement, ratio); err != nil {
		return nil, err
	}
	return line, nil
}

// parseConditionCoverage reads the covered and total conditions from "50% (1/2)".
func parseConditionCoverage(s string) (schema.Ratio, error) {
	m := conditionCoverageRe.FindStringSubmatch(s)
	if m == nil {
		return schema.Ratio{}, fmt.Errorf("unrecognized condition-coverage %q", s)
	}
	covered, err := strconv.Atoi(m[1])
	if err != nil {
		return schema.Ratio{}, err
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return schema.Ratio{}, err
	}
	r := schema.Ratio{Covered: covered, Total: total}
	if !r.Valid() {
		return schema.Ratio{}, fmt.Errorf("condition-coverage %q covers more than its total", s)
	}
	return r, nil
}
