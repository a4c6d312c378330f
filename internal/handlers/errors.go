package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/travelog-app/server/internal/apperr"
)

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError normalizes a pipeline failure into a status code and JSON
// body and returns an outcome label for metrics. Server faults reply
// with a generic message; the wrapped cause only reaches the log.
func writeError(w http.ResponseWriter, log *logrus.Entry, err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.WithError(err).Error("Unclassified pipeline failure")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
		return "internal"
	}

	switch appErr.Kind {
	case apperr.KindAuth:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: appErr.Message})
		return "unauthorized"
	case apperr.KindRateLimit:
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: appErr.Message})
		return "rate_limited"
	case apperr.KindUpload:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: appErr.Message, Field: appErr.Field})
		return "upload_rejected"
	case apperr.KindValidation:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: appErr.Message, Field: appErr.Field})
		return "validation_failed"
	default:
		log.WithError(appErr.Err).Error("Persistence failure")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: appErr.Message})
		return "persistence_failed"
	}
}
