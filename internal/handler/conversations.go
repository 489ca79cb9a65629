// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := model.ConversationFilter{
		Channel: model.Channel(q.Get("channel")),
		Status:  model.ConversationStatus(q.Get("status")),
	}
	if filter.Channel != "" && !filter.Channel.Valid() {
		writeError(w, http.StatusBadRequest, "invalid channel")
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	filter.Skip, filter.Limit = pagination(r)

	resp, err := h.service.List(ctx, middleware.GetActor(ctx), filter)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	conv, err := h.service.Get(ctx, middleware.GetActor(ctx), conversationID)
	if err != nil {
		writeServiceError(w, r, err, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Assign handles POST /api/v1/conversations/:id/assign
func (h *ConversationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req model.AssignConversationRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Assign(ctx, middleware.GetActor(ctx), conversationID, req.UserID)
	if err != nil {
		writeServiceError(w, r, err, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Close handles POST /api/v1/conversations/:id/close
func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Close(ctx, middleware.GetActor(ctx), conversationID); err != nil {
		writeServiceError(w, r, err, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusClosed)})
}
