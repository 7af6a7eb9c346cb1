package catalog

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
)

// Upserter is the store capability needed to persist entries.
type Upserter interface {
	UpsertSuggestion(ctx context.Context, entry model.SuggestionEntry) error
}

// Save upserts entries in order and returns how many were written. It stops
// at the first failure.
func Save(ctx context.Context, dst Upserter, entries []model.SuggestionEntry) (int, error) {
	for i, e := range entries {
		if err := dst.UpsertSuggestion(ctx, e); err != nil {
			return i, eris.Wrapf(err, "catalog: save entry %s", e.Code)
		}
	}
	zap.L().Info("catalog: entries saved", zap.Int("count", len(entries)))
	return len(entries), nil
}

// Sync copies every valid entry of the Notion catalog into dst.
func Sync(ctx context.Context, src *NotionSource, dst Upserter) (int, error) {
	entries, err := src.Entries(ctx)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, eris.New("catalog: notion catalog has no valid entries")
	}
	return Save(ctx, dst, entries)
}
