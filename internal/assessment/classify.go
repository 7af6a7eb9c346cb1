package assessment

import "github.com/sells-group/privacy-assess/internal/model"

// SuggestionType labels a recommendation as praise or a call to action.
type SuggestionType string

const (
	SuggestionPositive SuggestionType = "positive"
	SuggestionNegative SuggestionType = "negative"
)

// SuggestionItem is one recommendation in a category report.
type SuggestionItem struct {
	Type        SuggestionType    `json:"type"`
	Code        model.ConcernCode `json:"-"`
	Text        string            `json:"text"`
	Tools       []string          `json:"tools"`
	Methodology []string          `json:"methodology"`
}

// Classify picks one suggestion per suggestion concern of category, in
// declared order. Codes with no attainable points or no catalog entry are
// skipped. A code whose score is strictly above half its maximum gets the
// negative text; otherwise the positive text.
func Classify(scores, maxScores Scores, category Category, catalog model.Catalog) []SuggestionItem {
	items := make([]SuggestionItem, 0, len(category.SuggestionConcerns))
	for _, code := range category.SuggestionConcerns {
		maxScore := maxScores[code]
		if maxScore == 0 {
			continue
		}
		entry, ok := catalog[code]
		if !ok {
			continue
		}

		item := SuggestionItem{
			Type:        SuggestionPositive,
			Code:        code,
			Text:        entry.Positive,
			Tools:       cloneStrings(entry.Tools),
			Methodology: cloneStrings(entry.Methodology),
		}
		if float64(scores[code]) > float64(maxScore)/2 {
			item.Type = SuggestionNegative
			item.Text = entry.Negative
		}
		items = append(items, item)
	}
	return items
}

// cloneStrings copies s, returning an empty non-nil slice for nil input so
// the JSON encoding is always an array.
func cloneStrings(s []string) []string {
	return append(make([]string, 0, len(s)), s...)
}
