package assessment

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
)

// CategoryReport is the computed result for one category.
type CategoryReport struct {
	Category        string           `json:"-"`
	ScorePercentage int              `json:"scorePercentage"`
	Suggestions     []SuggestionItem `json:"suggestions"`
}

// Report holds category results in display order. It encodes as a JSON
// object keyed by category name with keys in that same order.
type Report struct {
	Categories []CategoryReport
}

// Get returns the result for the named category.
func (r Report) Get(name string) (CategoryReport, bool) {
	for _, c := range r.Categories {
		if c.Category == name {
			return c, true
		}
	}
	return CategoryReport{}, false
}

// MarshalJSON writes the categories as an ordered object.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Category)
		if err != nil {
			return nil, eris.Wrap(err, "assessment: marshal category name")
		}
		val, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrapf(err, "assessment: marshal category %s", c.Category)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// BuildReport runs the aggregator and classifier over categories in order.
// Inputs must already have passed ValidateInput.
func BuildReport(scores, maxScores Scores, categories []Category, catalog model.Catalog) Report {
	report := Report{Categories: make([]CategoryReport, 0, len(categories))}
	for _, cat := range categories {
		report.Categories = append(report.Categories, CategoryReport{
			Category:        cat.Name,
			ScorePercentage: Aggregate(scores, maxScores, cat),
			Suggestions:     Classify(scores, maxScores, cat, catalog),
		})
	}
	return report
}

// CatalogLoader fetches the current suggestion catalog.
type CatalogLoader interface {
	Load(ctx context.Context) (model.Catalog, error)
}

// Builder validates report requests and assembles reports against a
// taxonomy and a catalog source.
type Builder struct {
	taxonomy *Taxonomy
	catalog  CatalogLoader
}

// NewBuilder creates a Builder. A nil taxonomy selects DefaultTaxonomy.
func NewBuilder(taxonomy *Taxonomy, catalog CatalogLoader) *Builder {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Builder{taxonomy: taxonomy, catalog: catalog}
}

// Taxonomy returns the taxonomy reports are built against.
func (b *Builder) Taxonomy() *Taxonomy {
	return b.taxonomy
}

// Build validates the request, loads the catalog once and computes the
// report. Every failure is an *Error; no partial report is returned.
func (b *Builder) Build(ctx context.Context, scores, maxScores Scores) (Report, error) {
	if len(scores) == 0 {
		return Report{}, errInvalidRequest("scores is required")
	}
	if len(maxScores) == 0 {
		return Report{}, errInvalidRequest("maxScores is required")
	}
	if err := ValidateInput(b.taxonomy, scores, maxScores); err != nil {
		return Report{}, err
	}

	catalog, err := b.loadCatalog(ctx)
	if err != nil {
		return Report{}, err
	}

	return BuildReport(scores, maxScores, b.taxonomy.Categories(), catalog), nil
}

func (b *Builder) loadCatalog(ctx context.Context) (model.Catalog, error) {
	if b.catalog == nil {
		return nil, errCatalogUnavailable(eris.New("assessment: no catalog source configured"))
	}
	catalog, err := b.catalog.Load(ctx)
	if err != nil {
		zap.L().Error("assessment: catalog load failed", zap.Error(err))
		return nil, errCatalogUnavailable(err)
	}
	if len(catalog) == 0 {
		zap.L().Error("assessment: catalog is empty")
		return nil, errCatalogUnavailable(eris.New("assessment: catalog is empty"))
	}
	return catalog, nil
}
