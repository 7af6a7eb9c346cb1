package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/questionbank"
	"github.com/sells-group/privacy-assess/internal/store"
)

type questionRequest struct {
	Text     string               `json:"text"`
	Position int                  `json:"position"`
	Status   model.QuestionStatus `json:"status"`
	Options  []model.Option       `json:"options"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

// publishedQuestion is the visitor view of a question.
type publishedQuestion struct {
	ID        string                    `json:"id"`
	Text      string                    `json:"text"`
	Position  int                       `json:"position"`
	Options   []model.Option            `json:"options"`
	MaxPoints map[model.ConcernCode]int `json:"max_points"`
}

func (s *Server) handleListPublished(w http.ResponseWriter, r *http.Request) {
	qs, err := s.store.ListQuestions(r.Context(), store.QuestionFilter{Status: model.QuestionPublished})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]publishedQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, publishedQuestion{
			ID:        q.ID,
			Text:      q.Text,
			Position:  q.Position,
			Options:   q.Options,
			MaxPoints: q.MaxPoints(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	filter := store.QuestionFilter{Status: model.QuestionStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}
	qs, err := s.store.ListQuestions(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := req.toQuestion("")
	if msg := s.validateQuestion(r, &q); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	created, err := s.store.CreateQuestion(r.Context(), q)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	auditLog(r, "question created", zap.String("question_id", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := req.toQuestion(chi.URLParam(r, "id"))
	if msg := s.validateQuestion(r, &q); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	updated, err := s.store.UpdateQuestion(r.Context(), q)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	auditLog(r, "question updated", zap.String("question_id", updated.ID))
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteQuestion(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	auditLog(r, "question deleted", zap.String("question_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderQuestions(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.ReorderQuestions(r.Context(), req.IDs); err != nil {
		writeStoreError(w, r, err)
		return
	}
	auditLog(r, "questions reordered", zap.Int("count", len(req.IDs)))
	w.WriteHeader(http.StatusNoContent)
}

func (req questionRequest) toQuestion(id string) model.Question {
	q := model.Question{
		ID:       id,
		Text:     req.Text,
		Position: req.Position,
		Status:   req.Status,
		Options:  append([]model.Option{}, req.Options...),
	}
	questionbank.Normalize(&q)
	return q
}

// validateQuestion returns a client-facing message, or "" when q is valid.
// Branch targets must already exist.
func (s *Server) validateQuestion(r *http.Request, q *model.Question) string {
	if err := questionbank.Validate(*q, s.taxonomy.Known); err != nil {
		return err.Error()
	}
	for i, o := range q.Options {
		if o.NextQuestionID == "" {
			continue
		}
		if _, err := s.store.GetQuestion(r.Context(), o.NextQuestionID); err != nil {
			return fmt.Sprintf("option %d: next question %q does not exist", i+1, o.NextQuestionID)
		}
	}
	return ""
}
