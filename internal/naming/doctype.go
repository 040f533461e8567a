package naming

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is assigned to type codes the deployment does not know.
const DefaultCategory = "other"

var typeCodePattern = regexp.MustCompile(`^[A-Z]+$`)

// DocType is the display information for a document type code.
type DocType struct {
	Code     string `json:"code" yaml:"code"`
	Label    string `json:"label" yaml:"label"`
	Category string `json:"category" yaml:"category"`
}

var builtinTypes = []DocType{
	{Code: "INV", Label: "Invoice", Category: "financial"},
	{Code: "CTR", Label: "Contract", Category: "legal"},
	{Code: "PO", Label: "Purchase Order", Category: "procurement"},
	{Code: "QUO", Label: "Quotation", Category: "procurement"},
	{Code: "REC", Label: "Receipt", Category: "financial"},
	{Code: "RPT", Label: "Report", Category: "reporting"},
	{Code: "LTR", Label: "Letter", Category: "correspondence"},
	{Code: "MEM", Label: "Memo", Category: "correspondence"},
}

// Classifier maps type codes to labels and categories. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	types map[string]DocType
}

// NewClassifier returns the built-in table extended (or overridden) by extra.
func NewClassifier(extra ...DocType) *Classifier {
	c := &Classifier{types: make(map[string]DocType, len(builtinTypes)+len(extra))}
	for _, t := range builtinTypes {
		c.types[t.Code] = t
	}
	for _, t := range extra {
		if t.Category == "" {
			t.Category = DefaultCategory
		}
		if t.Label == "" {
			t.Label = t.Code
		}
		c.types[t.Code] = t
	}
	return c
}

type docTypesFile struct {
	Types []DocType `yaml:"types"`
}

// LoadClassifier builds a classifier from the built-in table plus the YAML file
// at path. An empty path yields the built-in table.
func LoadClassifier(path string) (*Classifier, error) {
	if path == "" {
		return NewClassifier(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read doc types file: %w", err)
	}
	var f docTypesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse doc types file: %w", err)
	}
	for _, t := range f.Types {
		if !typeCodePattern.MatchString(t.Code) {
			return nil, fmt.Errorf("doc types file: invalid type code %q", t.Code)
		}
	}
	return NewClassifier(f.Types...), nil
}

// Classify never fails: unknown codes get the raw code as label.
func (c *Classifier) Classify(code string) DocType {
	if t, ok := c.types[code]; ok {
		return t
	}
	return DocType{Code: code, Label: code, Category: DefaultCategory}
}

// Known lists every configured type ordered by code.
func (c *Classifier) Known() []DocType {
	out := make([]DocType, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
