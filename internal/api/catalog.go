package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/questionbank"
)

type catalogEntryRequest struct {
	Positive    string   `json:"positive"`
	Negative    string   `json:"negative"`
	Tools       []string `json:"tools"`
	Methodology []string `json:"methodology"`
}

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListSuggestions(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetCatalogEntry(w http.ResponseWriter, r *http.Request) {
	code, ok := s.codeParam(w, r)
	if !ok {
		return
	}
	entry, err := s.store.GetSuggestion(r.Context(), code)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handlePutCatalogEntry(w http.ResponseWriter, r *http.Request) {
	code, ok := s.codeParam(w, r)
	if !ok {
		return
	}
	var req catalogEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry := model.SuggestionEntry{
		Code:        code,
		Positive:    questionbank.Clean(req.Positive),
		Negative:    questionbank.Clean(req.Negative),
		Tools:       cleanList(req.Tools),
		Methodology: cleanList(req.Methodology),
	}
	if entry.Positive == "" || entry.Negative == "" {
		writeError(w, http.StatusBadRequest, "positive and negative text are required")
		return
	}
	if err := s.store.UpsertSuggestion(r.Context(), entry); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.invalidateCatalog()
	auditLog(r, "catalog entry saved", zap.String("code", string(code)))

	saved, err := s.store.GetSuggestion(r.Context(), code)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteCatalogEntry(w http.ResponseWriter, r *http.Request) {
	code, ok := s.codeParam(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteSuggestion(r.Context(), code); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.invalidateCatalog()
	auditLog(r, "catalog entry deleted", zap.String("code", string(code)))
	w.WriteHeader(http.StatusNoContent)
}

// codeParam reads the {code} URL parameter and rejects codes outside the
// taxonomy with a 400.
func (s *Server) codeParam(w http.ResponseWriter, r *http.Request) (model.ConcernCode, bool) {
	code := model.ConcernCode(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code"))))
	if !s.taxonomy.Known(code) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown concern code %q", code))
		return "", false
	}
	return code, true
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = questionbank.Clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
