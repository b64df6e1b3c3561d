package extract

import "strings"

// LabelTable holds the locale-specific attribute labels matched against
// definition-list-style label/value pairs on listing pages. The lists
// are best-effort heuristics with no authoritative source; override
// them per marketplace rather than assuming they are exhaustive.
type LabelTable struct {
	Brand     []string
	Size      []string
	Condition []string
}

// DefaultLabels covers the locales the marketplaces serve
func DefaultLabels() *LabelTable {
	return &LabelTable{
		Brand:     []string{"brand", "marca", "marke", "marque", "merk"},
		Size:      []string{"size", "talla", "größe", "taille", "maat"},
		Condition: []string{"condition", "estado", "condición", "zustand", "état", "staat"},
	}
}

// Match classifies a label string, returning which field it names
func (t *LabelTable) Match(label string) string {
	label = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")))
	for _, l := range t.Brand {
		if label == l {
			return "brand"
		}
	}
	for _, l := range t.Size {
		if label == l {
			return "size"
		}
	}
	for _, l := range t.Condition {
		if label == l {
			return "condition"
		}
	}
	return ""
}
