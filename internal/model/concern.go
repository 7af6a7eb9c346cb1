// Package model defines the shared domain types of the assessment service.
package model

import "time"

// ConcernCode identifies one fine-grained privacy concern (e.g. "ST" for
// Surveillance & Tracking).
type ConcernCode string

// SuggestionEntry holds the recommendation content for a single concern code.
type SuggestionEntry struct {
	Code        ConcernCode `json:"code"`
	Positive    string      `json:"positive"`
	Negative    string      `json:"negative"`
	Tools       []string    `json:"tools"`
	Methodology []string    `json:"methodology"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Catalog maps concern codes to their suggestion content. A loaded catalog
// is shared between requests and must be treated as read-only.
type Catalog map[ConcernCode]SuggestionEntry

// NewCatalog indexes entries by code. Later entries win on duplicate codes.
func NewCatalog(entries []SuggestionEntry) Catalog {
	c := make(Catalog, len(entries))
	for _, e := range entries {
		c[e.Code] = e
	}
	return c
}
