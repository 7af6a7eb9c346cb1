// Package catalog provides the suggestion catalog sources consumed by the
// report builder: a store-backed source, a Notion-backed source, and
// wrappers adding retries and short-lived caching.
package catalog

import (
	"context"

	"github.com/sells-group/privacy-assess/internal/model"
)

// Source loads the full suggestion catalog.
type Source interface {
	Load(ctx context.Context) (model.Catalog, error)
}

// EntryLister is the store capability StoreSource needs.
type EntryLister interface {
	ListSuggestions(ctx context.Context) ([]model.SuggestionEntry, error)
}

// StoreSource reads the catalog from the persistent store.
type StoreSource struct {
	store EntryLister
}

// NewStoreSource creates a Source backed by the store.
func NewStoreSource(store EntryLister) *StoreSource {
	return &StoreSource{store: store}
}

// Load returns every stored suggestion entry keyed by concern code.
func (s *StoreSource) Load(ctx context.Context) (model.Catalog, error) {
	entries, err := s.store.ListSuggestions(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewCatalog(entries), nil
}
