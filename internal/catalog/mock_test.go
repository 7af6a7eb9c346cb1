package catalog

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Load(ctx context.Context) (model.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Catalog), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListSuggestions(ctx context.Context) ([]model.SuggestionEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SuggestionEntry), args.Error(1)
}

func (m *mockStore) UpsertSuggestion(ctx context.Context, entry model.SuggestionEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type mockNotion struct {
	mock.Mock
}

func (m *mockNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func oneEntry() model.Catalog {
	return model.NewCatalog([]model.SuggestionEntry{{Code: "DIT", Positive: "p", Negative: "n"}})
}
