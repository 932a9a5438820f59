package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ethicalfinder/esg-api/internal/apperr"
)

// errorEnvelope is the documented failure shape.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("response encode failed", zap.Error(err))
	}
}

// writeError maps the error kind to a status and renders the envelope.
// Server-side faults get a generic message; the cause stays in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err))
		msg = "internal error"
		if kind == apperr.KindExternalService {
			msg = "upstream service error"
		}
	}

	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    string(kind),
		Message: msg,
	}})
}
