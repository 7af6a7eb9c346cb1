package model

import "time"

// QuestionStatus controls whether a question is served to visitors.
type QuestionStatus string

const (
	QuestionDraft     QuestionStatus = "draft"
	QuestionPublished QuestionStatus = "published"
)

// Valid reports whether s is a known status.
func (s QuestionStatus) Valid() bool {
	return s == QuestionDraft || s == QuestionPublished
}

// Question is one multiple-choice item of the questionnaire.
type Question struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Position  int            `json:"position"`
	Status    QuestionStatus `json:"status"`
	Options   []Option       `json:"options"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Option is a selectable answer. Points are added to the visitor's running
// totals per concern code; NextQuestionID, when set, overrides the default
// position order and implements branching.
type Option struct {
	ID             string              `json:"id"`
	Text           string              `json:"text"`
	Points         map[ConcernCode]int `json:"points,omitempty"`
	NextQuestionID string              `json:"next_question_id,omitempty"`
}

// MaxPoints returns, per concern code, the highest points any single option
// of q can contribute. Clients sum these for every question actually shown
// to build the maxScores half of a report request.
func (q Question) MaxPoints() map[ConcernCode]int {
	out := make(map[ConcernCode]int)
	for _, o := range q.Options {
		for code, pts := range o.Points {
			if cur, ok := out[code]; !ok || pts > cur {
				out[code] = pts
			}
		}
	}
	return out
}
