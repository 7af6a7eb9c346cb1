package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/assessment"
)

type reportRequest struct {
	Scores    assessment.Scores `json:"scores"`
	MaxScores assessment.Scores `json:"maxScores"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.ObserveReport(assessment.KindInvalidRequest.String())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.builder.Build(r.Context(), req.Scores, req.MaxScores)
	if err != nil {
		var ae *assessment.Error
		if !errors.As(err, &ae) {
			zap.L().Error("api: report failed", zap.Error(err))
			s.metrics.ObserveReport("internal")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s.metrics.ObserveReport(ae.Kind.String())
		writeError(w, ae.Kind.HTTPStatus(), ae.Msg)
		return
	}

	s.metrics.ObserveReport("ok")
	writeJSON(w, http.StatusOK, report)
}
