// Package assessment turns per-concern point totals into the category risk
// report shown at the end of the questionnaire.
package assessment

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/privacy-assess/internal/model"
)

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

// Concern describes one concern code.
type Concern struct {
	Code model.ConcernCode `yaml:"code" json:"code"`
	Name string            `yaml:"name" json:"name"`
}

// Category groups concern codes for scoring and for picking suggestions.
// The two lists may differ.
type Category struct {
	Name               string              `yaml:"name" json:"name"`
	ScoringConcerns    []model.ConcernCode `yaml:"scoring" json:"scoringConcerns"`
	SuggestionConcerns []model.ConcernCode `yaml:"suggestions" json:"suggestionConcerns"`
}

// Taxonomy is the validated, immutable set of concern codes and categories.
type Taxonomy struct {
	concerns   []Concern
	categories []Category
	known      map[model.ConcernCode]bool
}

type taxonomyFile struct {
	Concerns   []Concern  `yaml:"concerns"`
	Categories []Category `yaml:"categories"`
}

// NewTaxonomy copies and validates the given tables.
func NewTaxonomy(concerns []Concern, categories []Category) (*Taxonomy, error) {
	t := &Taxonomy{
		concerns:   append([]Concern(nil), concerns...),
		categories: make([]Category, len(categories)),
		known:      make(map[model.ConcernCode]bool, len(concerns)),
	}
	for i, c := range categories {
		t.categories[i] = Category{
			Name:               c.Name,
			ScoringConcerns:    append([]model.ConcernCode(nil), c.ScoringConcerns...),
			SuggestionConcerns: append([]model.ConcernCode(nil), c.SuggestionConcerns...),
		}
	}
	for _, c := range t.concerns {
		t.known[c.Code] = true
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseTaxonomy decodes a YAML taxonomy document.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "assessment: parse taxonomy")
	}
	return NewTaxonomy(f.Concerns, f.Categories)
}

// LoadTaxonomyFile reads a taxonomy from path, or returns the embedded
// default when path is empty.
func LoadTaxonomyFile(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "assessment: read taxonomy %s", path)
	}
	return ParseTaxonomy(data)
}

var defaultTaxonomy = sync.OnceValue(func() *Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomyYAML)
	if err != nil {
		panic(fmt.Sprintf("assessment: embedded taxonomy is invalid: %v", err))
	}
	return t
})

// DefaultTaxonomy returns the built-in 22-code, 7-category taxonomy.
func DefaultTaxonomy() *Taxonomy {
	return defaultTaxonomy()
}

func (t *Taxonomy) validate() error {
	var errs []string

	if len(t.concerns) == 0 {
		errs = append(errs, "no concern codes defined")
	}
	seenCode := make(map[model.ConcernCode]bool, len(t.concerns))
	for _, c := range t.concerns {
		if c.Code == "" {
			errs = append(errs, "concern with empty code")
			continue
		}
		if seenCode[c.Code] {
			errs = append(errs, fmt.Sprintf("duplicate concern code %s", c.Code))
		}
		seenCode[c.Code] = true
	}

	seenName := make(map[string]bool, len(t.categories))
	for _, cat := range t.categories {
		if strings.TrimSpace(cat.Name) == "" {
			errs = append(errs, "category with empty name")
			continue
		}
		if seenName[cat.Name] {
			errs = append(errs, fmt.Sprintf("duplicate category %q", cat.Name))
		}
		seenName[cat.Name] = true
		errs = append(errs, t.checkCodes(cat.Name, "scoring", cat.ScoringConcerns)...)
		errs = append(errs, t.checkCodes(cat.Name, "suggestions", cat.SuggestionConcerns)...)
	}

	if len(errs) > 0 {
		return eris.Errorf("assessment: invalid taxonomy: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (t *Taxonomy) checkCodes(category, list string, codes []model.ConcernCode) []string {
	var errs []string
	seen := make(map[model.ConcernCode]bool, len(codes))
	for _, code := range codes {
		if !t.known[code] {
			errs = append(errs, fmt.Sprintf("category %q %s references unknown code %s", category, list, code))
		}
		if seen[code] {
			errs = append(errs, fmt.Sprintf("category %q %s lists %s twice", category, list, code))
		}
		seen[code] = true
	}
	return errs
}

// Known reports whether code belongs to the concern set.
func (t *Taxonomy) Known(code model.ConcernCode) bool {
	return t.known[code]
}

// Concerns returns the concern codes in declared order.
func (t *Taxonomy) Concerns() []Concern {
	return append([]Concern(nil), t.concerns...)
}

// Categories returns the categories in declared (display) order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{
			Name:               c.Name,
			ScoringConcerns:    append([]model.ConcernCode(nil), c.ScoringConcerns...),
			SuggestionConcerns: append([]model.ConcernCode(nil), c.SuggestionConcerns...),
		}
	}
	return out
}

// Category looks up a category by display name.
func (t *Taxonomy) Category(name string) (Category, bool) {
	for _, c := range t.Categories() {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
