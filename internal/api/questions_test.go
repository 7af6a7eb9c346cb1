package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/privacy-assess/internal/model"
)

func createQuestion(t *testing.T, env *testEnv, req questionRequest) model.Question {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/admin/questions", req, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var q model.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	return q
}

func TestQuestions_CRUD(t *testing.T) {
	env := newTestEnv(t)

	q := createQuestion(t, env, questionRequest{
		Text:   "  Do you reuse passwords?  ",
		Status: model.QuestionPublished,
		Options: []model.Option{
			{Text: "Yes", Points: map[model.ConcernCode]int{"DIT": 3}},
			{Text: "No", Points: map[model.ConcernCode]int{"DIT": 0}},
		},
	})
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "Do you reuse passwords?", q.Text)
	assert.Equal(t, 1, q.Position)
	require.Len(t, q.Options, 2)
	assert.NotEmpty(t, q.Options[0].ID)

	rec := env.do(t, http.MethodGet, "/api/admin/questions/"+q.ID, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/questions/"+q.ID, questionRequest{
		Text:    "Do you ever reuse passwords?",
		Status:  model.QuestionDraft,
		Options: q.Options,
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Do you ever reuse passwords?", updated.Text)
	assert.Equal(t, model.QuestionDraft, updated.Status)

	rec = env.do(t, http.MethodDelete, "/api/admin/questions/"+q.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/questions/"+q.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/questions/"+q.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuestions_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		req      questionRequest
		contains string
	}{
		{"empty text", questionRequest{Text: "   "}, "text is required"},
		{"bad status", questionRequest{Text: "Q", Status: "archived"}, "unknown status"},
		{"empty option", questionRequest{Text: "Q", Options: []model.Option{{Text: ""}}}, "option 1: text is required"},
		{"unknown code", questionRequest{Text: "Q", Options: []model.Option{
			{Text: "A", Points: map[model.ConcernCode]int{"ZZ": 1}},
		}}, `unknown concern code "ZZ"`},
		{"negative points", questionRequest{Text: "Q", Options: []model.Option{
			{Text: "A", Points: map[model.ConcernCode]int{"DIT": -1}},
		}}, "must not be negative"},
		{"missing branch target", questionRequest{Text: "Q", Options: []model.Option{
			{Text: "A", NextQuestionID: "does-not-exist"},
		}}, "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/admin/questions", tt.req, true)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.contains)
		})
	}
}

func TestQuestions_Branching(t *testing.T) {
	env := newTestEnv(t)
	target := createQuestion(t, env, questionRequest{Text: "Follow-up", Status: model.QuestionPublished})

	q := createQuestion(t, env, questionRequest{
		Text:   "Start",
		Status: model.QuestionPublished,
		Options: []model.Option{
			{Text: "Branch", NextQuestionID: target.ID},
		},
	})
	assert.Equal(t, target.ID, q.Options[0].NextQuestionID)

	rec := env.do(t, http.MethodPut, "/api/admin/questions/"+q.ID, questionRequest{
		Text:    "Start",
		Options: []model.Option{{Text: "Loop", NextQuestionID: q.ID}},
	}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestions_PublishedOnlyAndOrder(t *testing.T) {
	env := newTestEnv(t)
	a := createQuestion(t, env, questionRequest{Text: "A", Status: model.QuestionPublished, Options: []model.Option{
		{Text: "a1", Points: map[model.ConcernCode]int{"ST": 2}},
		{Text: "a2", Points: map[model.ConcernCode]int{"ST": 5}},
	}})
	createQuestion(t, env, questionRequest{Text: "Draft"})
	c := createQuestion(t, env, questionRequest{Text: "C", Status: model.QuestionPublished})

	rec := env.do(t, http.MethodGet, "/api/questions", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var pub []publishedQuestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pub))
	require.Len(t, pub, 2)
	assert.Equal(t, a.ID, pub[0].ID)
	assert.Equal(t, 5, pub[0].MaxPoints["ST"])
	assert.Equal(t, c.ID, pub[1].ID)

	rec = env.do(t, http.MethodGet, "/api/admin/questions?status=draft", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var drafts []model.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drafts))
	require.Len(t, drafts, 1)
	assert.Equal(t, "Draft", drafts[0].Text)

	rec = env.do(t, http.MethodGet, "/api/admin/questions?status=bogus", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestions_Reorder(t *testing.T) {
	env := newTestEnv(t)
	a := createQuestion(t, env, questionRequest{Text: "A"})
	b := createQuestion(t, env, questionRequest{Text: "B"})
	c := createQuestion(t, env, questionRequest{Text: "C"})

	rec := env.do(t, http.MethodPut, "/api/admin/questions/order", orderRequest{IDs: []string{c.ID, a.ID, b.ID}}, true)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/admin/questions", nil, true)
	var qs []model.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qs))
	require.Len(t, qs, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{qs[0].ID, qs[1].ID, qs[2].ID})

	rec = env.do(t, http.MethodPut, "/api/admin/questions/order", orderRequest{IDs: []string{a.ID, b.ID}}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
