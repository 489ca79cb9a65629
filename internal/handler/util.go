package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/service"
	"github.com/capitalize-ai/omnilead/internal/store"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

const maxPageSize = 500

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service and store errors onto HTTP statuses.
// Unexpected errors are logged with the request logger.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, middleware.ErrInvalidBody):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pagination reads skip and limit query parameters.
func pagination(r *http.Request) (skip, limit int) {
	q := r.URL.Query()
	if s, err := strconv.Atoi(q.Get("skip")); err == nil && s >= 0 {
		skip = s
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= maxPageSize {
		limit = l
	}
	return skip, limit
}

// pathID reads and validates a UUID path parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}
