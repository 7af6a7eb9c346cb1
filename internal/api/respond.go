package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/auth"
	"github.com/sells-group/privacy-assess/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels to client statuses and hides
// everything else behind a 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case eris.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case eris.Is(err, store.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, "order must list every question exactly once")
	default:
		zap.L().Error("api: store failure",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a single JSON value from the request body. The error
// text is safe to return to clients.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid request body")
	}
	if dec.More() {
		return errors.New("invalid request body")
	}
	return nil
}

// auditLog records an admin mutation with the acting admin's username.
func auditLog(r *http.Request, action string, fields ...zap.Field) {
	admin := "unknown"
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		admin = c.Subject
	}
	zap.L().Info("api: "+action, append([]zap.Field{zap.String("admin", admin)}, fields...)...)
}
