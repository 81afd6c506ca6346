package extraction

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// Category names of the fixed taxonomy.
const (
	CategoryFood          = "Food & Dining"
	CategoryTransport     = "Transportation"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryHealthcare    = "Healthcare"
	CategoryUtilities     = "Utilities"
	CategoryEducation     = "Education"
	CategoryBusiness      = "Business"
	CategoryTravel        = "Travel"
	CategoryOther         = "Other"
)

// Taxonomy lists every category in priority order, Other last.
var Taxonomy = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryUtilities,
	CategoryEducation,
	CategoryBusiness,
	CategoryTravel,
	CategoryOther,
}

//go:embed categories.yaml
var categoriesYAML []byte

var defaultClassifier = mustLoadClassifier(categoriesYAML)

// CategoryGroup is one keyword group of the classifier.
type CategoryGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Classifier maps free text onto the taxonomy by keyword priority.
type Classifier struct {
	groups []CategoryGroup
}

// NewClassifier loads keyword groups from YAML. Group order is priority order.
func NewClassifier(data []byte) (*Classifier, error) {
	var groups []CategoryGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("NewClassifier: decoding groups: %w", err)
	}

	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		if !IsCategory(g.Name) || g.Name == CategoryOther {
			return nil, fmt.Errorf("NewClassifier: group %d: unknown category %q", i, g.Name)
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("NewClassifier: group %d: duplicate category %q", i, g.Name)
		}
		if len(g.Keywords) == 0 {
			return nil, fmt.Errorf("NewClassifier: group %q has no keywords", g.Name)
		}
		seen[g.Name] = true
		for j, kw := range g.Keywords {
			groups[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}

	return &Classifier{groups: groups}, nil
}

func mustLoadClassifier(data []byte) *Classifier {
	c, err := NewClassifier(data)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultClassifier returns the classifier built from the embedded keyword groups.
func DefaultClassifier() *Classifier {
	return defaultClassifier
}

// Classify returns the first category whose keywords appear in text, or Other.
func (c *Classifier) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, g := range c.groups {
		for _, kw := range g.Keywords {
			if strings.Contains(lower, kw) {
				return g.Name
			}
		}
	}
	return CategoryOther
}

// IsCategory reports whether name belongs to the taxonomy.
func IsCategory(name string) bool {
	for _, c := range Taxonomy {
		if c == name {
			return true
		}
	}
	return false
}
