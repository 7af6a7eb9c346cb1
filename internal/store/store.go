package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/privacy-assess/internal/model"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = eris.New("store: conflict")
	// ErrInvalidOrder is returned by ReorderQuestions when the ID list is not
	// a permutation of the stored question IDs.
	ErrInvalidOrder = eris.New("store: order must list every question exactly once")
)

// QuestionFilter narrows ListQuestions. A zero filter lists everything.
type QuestionFilter struct {
	Status model.QuestionStatus `json:"status,omitempty"`
}

// Store defines the persistence interface for the assessment service.
type Store interface {
	// Questions
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]model.Question, error)
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error)
	UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	ReorderQuestions(ctx context.Context, ids []string) error

	// Suggestion catalog
	ListSuggestions(ctx context.Context) ([]model.SuggestionEntry, error)
	GetSuggestion(ctx context.Context, code model.ConcernCode) (*model.SuggestionEntry, error)
	UpsertSuggestion(ctx context.Context, entry model.SuggestionEntry) error
	DeleteSuggestion(ctx context.Context, code model.ConcernCode) error

	// Admins
	CreateAdmin(ctx context.Context, username, passwordHash string) (*model.AdminUser, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)

	// Subscribers
	CreateSubscriber(ctx context.Context, email string) (*model.Subscriber, error)
	DeleteSubscriber(ctx context.Context, id string) error
	ListDueSubscribers(ctx context.Context, dueBefore time.Time, afterID string, limit int) ([]model.Subscriber, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func notFound(entity, id string) error {
	return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
}

// checkOrder verifies that ids is a permutation of existing.
func checkOrder(existing, ids []string) error {
	if len(existing) != len(ids) {
		return ErrInvalidOrder
	}
	want := make(map[string]bool, len(existing))
	for _, id := range existing {
		want[id] = true
	}
	for _, id := range ids {
		if !want[id] {
			return ErrInvalidOrder
		}
		delete(want, id)
	}
	return nil
}

func prepareQuestion(q *model.Question, now time.Time) {
	if q.Status == "" {
		q.Status = model.QuestionDraft
	}
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.New().String()
		}
	}
	q.UpdatedAt = now
}

func normalizeEntry(e *model.SuggestionEntry, now time.Time) {
	if e.Tools == nil {
		e.Tools = []string{}
	}
	if e.Methodology == nil {
		e.Methodology = []string{}
	}
	e.UpdatedAt = now
}
