package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_MaxPoints(t *testing.T) {
	q := Question{
		Options: []Option{
			{ID: "a", Points: map[ConcernCode]int{"DIT": 2, "SB": 1}},
			{ID: "b", Points: map[ConcernCode]int{"DIT": 5}},
			{ID: "c"},
		},
	}

	got := q.MaxPoints()
	assert.Equal(t, map[ConcernCode]int{"DIT": 5, "SB": 1}, got)
}

func TestQuestion_MaxPoints_NoOptions(t *testing.T) {
	assert.Empty(t, Question{}.MaxPoints())
}

func TestQuestionStatus_Valid(t *testing.T) {
	assert.True(t, QuestionDraft.Valid())
	assert.True(t, QuestionPublished.Valid())
	assert.False(t, QuestionStatus("archived").Valid())
}

func TestNewCatalog_LastWins(t *testing.T) {
	c := NewCatalog([]SuggestionEntry{
		{Code: "DIT", Positive: "old"},
		{Code: "SB", Positive: "sb"},
		{Code: "DIT", Positive: "new"},
	})
	assert.Len(t, c, 2)
	assert.Equal(t, "new", c["DIT"].Positive)
}

func TestSubscriber_ReminderBase(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Subscriber{CreatedAt: created}
	assert.Equal(t, created, s.ReminderBase())

	reminded := created.Add(48 * time.Hour)
	s.LastRemindedAt = &reminded
	assert.Equal(t, reminded, s.ReminderBase())
}
