// Package questionbank validates authored questions and seeds the question
// bank from JSON fixtures.
package questionbank

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/privacy-assess/internal/model"
)

// ValidationError describes why a question was rejected. Its message is
// safe to return to API clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Clean trims authored text and normalizes it to NFC.
func Clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Normalize cleans the question and option text in place.
func Normalize(q *model.Question) {
	q.Text = Clean(q.Text)
	for i := range q.Options {
		q.Options[i].Text = Clean(q.Options[i].Text)
		q.Options[i].NextQuestionID = strings.TrimSpace(q.Options[i].NextQuestionID)
	}
}

// Validate checks a normalized question. Branch targets are only checked
// for self-reference; whether they exist depends on the caller's store.
func Validate(q model.Question, known func(model.ConcernCode) bool) error {
	if q.Text == "" {
		return invalid("text is required")
	}
	if q.Status != "" && !q.Status.Valid() {
		return invalid("unknown status %q", q.Status)
	}
	for i, o := range q.Options {
		if o.Text == "" {
			return invalid("option %d: text is required", i+1)
		}
		for code, pts := range o.Points {
			if !known(code) {
				return invalid("option %d: unknown concern code %q", i+1, code)
			}
			if pts < 0 {
				return invalid("option %d: points for %q must not be negative", i+1, code)
			}
		}
		if q.ID != "" && o.NextQuestionID == q.ID {
			return invalid("option %d: next question cannot be the question itself", i+1)
		}
	}
	return nil
}
