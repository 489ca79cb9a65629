package handler

import (
	"net/http"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
)

// LeadHandler handles lead endpoints.
type LeadHandler struct {
	service *service.LeadService
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(svc *service.LeadService) *LeadHandler {
	return &LeadHandler{service: svc}
}

// List handles GET /api/v1/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.LeadFilter{Status: model.LeadStatus(r.URL.Query().Get("status"))}
	filter.Skip, filter.Limit = pagination(r)

	resp, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/leads/:id
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	lead, err := h.service.Get(r.Context(), leadID)
	if err != nil {
		writeServiceError(w, r, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Update handles PUT /api/v1/leads/:id
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req model.UpdateLeadRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.service.Update(ctx, middleware.GetActor(ctx), leadID, req)
	if err != nil {
		writeServiceError(w, r, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}
