package handler

import (
	"context"
	"net/http"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
)

// MessageHandler handles message endpoints of a conversation.
type MessageHandler struct {
	service *service.ConversationService
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.ConversationService) *MessageHandler {
	return &MessageHandler{
		service: svc,
	}
}

// List handles GET /api/v1/conversations/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	msgs, err := h.service.Messages(ctx, middleware.GetActor(ctx), conversationID)
	if err != nil {
		writeServiceError(w, r, err, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{Messages: msgs})
}

// Reply handles POST /api/v1/conversations/:id/reply
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req model.ReplyRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.Reply(ctx, middleware.GetActor(ctx), conversationID, req.Content)
	if err != nil {
		writeServiceError(w, r, err, "conversation not found")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Delivered handles POST /api/v1/conversations/:id/messages/:messageID/delivered
func (h *MessageHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	h.receipt(w, r, h.service.MarkDelivered)
}

// Read handles POST /api/v1/conversations/:id/messages/:messageID/read
func (h *MessageHandler) Read(w http.ResponseWriter, r *http.Request) {
	h.receipt(w, r, h.service.MarkRead)
}

type receiptFunc func(ctx context.Context, actor service.Actor, conversationID, messageID string) error

func (h *MessageHandler) receipt(w http.ResponseWriter, r *http.Request, mark receiptFunc) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	if err := mark(ctx, middleware.GetActor(ctx), conversationID, messageID); err != nil {
		writeServiceError(w, r, err, "message not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
