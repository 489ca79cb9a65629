package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/omnilead/internal/service"
)

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 365
)

// AnalyticsHandler handles reporting endpoints.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

func periodDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return defaultPeriodDays, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > maxPeriodDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxPeriodDays)
	}
	return days, nil
}

// Dashboard handles GET /api/v1/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	days, err := periodDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.service.Dashboard(r.Context(), days)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Performance handles GET /api/v1/analytics/performance
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.service.Performance(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": perf})
}

// Export handles GET /api/v1/analytics/export/:format
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	days, err := periodDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.service.Export(r.Context(), chi.URLParam(r, "format"), days)
	if errors.Is(err, service.ErrUnsupportedFormat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}
