package questionbank

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
)

// LoadFile reads a JSON array of model.Question from path.
func LoadFile(path string) ([]model.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "questionbank: read fixture")
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, eris.Wrap(err, "questionbank: unmarshal fixture")
	}

	return questions, nil
}

// Writer is the store capability Import needs.
type Writer interface {
	CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error)
	UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error)
}

// Import validates the fixture questions and appends them to the bank in
// fixture order. Fixture IDs are local: they only name branch targets
// within the fixture and are replaced by store-assigned IDs. Every question
// is checked before anything is written.
func Import(ctx context.Context, dst Writer, questions []model.Question, known func(model.ConcernCode) bool) (int, error) {
	ids := make(map[string]bool, len(questions))
	for i := range questions {
		q := &questions[i]
		Normalize(q)
		if err := Validate(*q, known); err != nil {
			return 0, eris.Wrapf(err, "questionbank: question %d", i+1)
		}
		if q.ID != "" {
			if ids[q.ID] {
				return 0, eris.Errorf("questionbank: question %d: duplicate id %q", i+1, q.ID)
			}
			ids[q.ID] = true
		}
	}
	for i, q := range questions {
		for j, o := range q.Options {
			if o.NextQuestionID != "" && !ids[o.NextQuestionID] {
				return 0, eris.Errorf("questionbank: question %d option %d: next question %q is not in the fixture",
					i+1, j+1, o.NextQuestionID)
			}
		}
	}

	// First pass creates questions without branches; the second fills them
	// in once every target has a store ID.
	remap := make(map[string]string, len(questions))
	created := make([]*model.Question, len(questions))
	for i, q := range questions {
		draft := q
		draft.Options = make([]model.Option, len(q.Options))
		for j, o := range q.Options {
			o.NextQuestionID = ""
			draft.Options[j] = o
		}
		c, err := dst.CreateQuestion(ctx, draft)
		if err != nil {
			return i, eris.Wrapf(err, "questionbank: create question %d", i+1)
		}
		if q.ID != "" {
			remap[q.ID] = c.ID
		}
		created[i] = c
	}

	for i, q := range questions {
		branched := false
		for j, o := range q.Options {
			if o.NextQuestionID != "" {
				created[i].Options[j].NextQuestionID = remap[o.NextQuestionID]
				branched = true
			}
		}
		if !branched {
			continue
		}
		if _, err := dst.UpdateQuestion(ctx, *created[i]); err != nil {
			return len(questions), eris.Wrapf(err, "questionbank: link branches of question %d", i+1)
		}
	}

	zap.L().Info("questionbank: import complete", zap.Int("questions", len(questions)))
	return len(questions), nil
}
