package catalog

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/pkg/notion"
)

// Notion property names of the catalog database.
const (
	propCode        = "Code"
	propPositive    = "Positive"
	propNegative    = "Negative"
	propTools       = "Tools"
	propMethodology = "Methodology"
)

// NotionSource reads suggestion entries from a Notion database where
// editors maintain the recommendation copy.
type NotionSource struct {
	client notion.Client
	dbID   string
	known  func(model.ConcernCode) bool
}

// NewNotionSource creates a Source over the Notion database dbID. known,
// when non-nil, rejects pages whose code is outside the taxonomy.
func NewNotionSource(client notion.Client, dbID string, known func(model.ConcernCode) bool) *NotionSource {
	return &NotionSource{client: client, dbID: dbID, known: known}
}

// Load fetches every page of the catalog database. Malformed pages are
// skipped with a warning rather than failing the whole catalog.
func (s *NotionSource) Load(ctx context.Context) (model.Catalog, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewCatalog(entries), nil
}

// Entries returns the parsed entries in database order.
func (s *NotionSource) Entries(ctx context.Context) ([]model.SuggestionEntry, error) {
	pages, err := notion.QueryAll(ctx, s.client, s.dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: load notion catalog")
	}

	entries := make([]model.SuggestionEntry, 0, len(pages))
	for _, p := range pages {
		e, err := parseEntryPage(p)
		if err == nil && s.known != nil && !s.known(e.Code) {
			err = eris.Errorf("unknown concern code %q", e.Code)
		}
		if err != nil {
			zap.L().Warn("catalog: skipping malformed notion page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntryPage(p notionapi.Page) (model.SuggestionEntry, error) {
	e := model.SuggestionEntry{
		Code:        model.ConcernCode(strings.ToUpper(strings.TrimSpace(textProp(p.Properties, propCode)))),
		Positive:    strings.TrimSpace(textProp(p.Properties, propPositive)),
		Negative:    strings.TrimSpace(textProp(p.Properties, propNegative)),
		Tools:       listProp(p.Properties, propTools),
		Methodology: listProp(p.Properties, propMethodology),
		UpdatedAt:   p.LastEditedTime,
	}

	switch {
	case e.Code == "":
		return e, eris.New("missing Code property")
	case e.Positive == "":
		return e, eris.New("missing Positive property")
	case e.Negative == "":
		return e, eris.New("missing Negative property")
	}
	return e, nil
}

// textProp reads a title or rich_text property as plain text.
func textProp(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		return notion.PlainText(p.Title)
	case *notionapi.RichTextProperty:
		return notion.PlainText(p.RichText)
	}
	return ""
}

// listProp reads a multi_select property, or a rich_text property holding
// a semicolon-separated list.
func listProp(props notionapi.Properties, name string) []string {
	switch p := props[name].(type) {
	case *notionapi.MultiSelectProperty:
		out := make([]string, 0, len(p.MultiSelect))
		for _, opt := range p.MultiSelect {
			out = append(out, opt.Name)
		}
		return out
	case *notionapi.RichTextProperty:
		return SplitList(notion.PlainText(p.RichText))
	}
	return []string{}
}
