package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/webhook"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
)

// Processor runs the ingestion pipeline for one delivery.
type Processor interface {
	Process(ctx context.Context, channel model.Channel, body []byte) (model.ProcessResult, error)
}

// WebhookConfig holds per-channel verification settings.
type WebhookConfig struct {
	// Secrets maps a channel to its app secret. Channels without a secret
	// are accepted unsigned.
	Secrets      map[model.Channel]string
	VerifyToken  string
	MaxBodyBytes int64
}

// WebhookHandler receives platform webhooks.
type WebhookHandler struct {
	processor Processor
	cfg       WebhookConfig
	logger    *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(p Processor, cfg WebhookConfig, log *logger.Logger) *WebhookHandler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &WebhookHandler{
		processor: p,
		cfg:       cfg,
		logger:    log.Named("webhook"),
	}
}

// Verify handles GET /api/webhooks/whatsapp
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := webhook.VerifyHandshake(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), h.cfg.VerifyToken)
	switch {
	case errors.Is(err, webhook.ErrInvalidChallenge):
		writeError(w, http.StatusBadRequest, "invalid challenge")
	case err != nil:
		writeError(w, http.StatusForbidden, "verification failed")
	default:
		writeJSON(w, http.StatusOK, challenge)
	}
}

// Receive handles POST /api/webhooks/:channel
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	channel := model.Channel(chi.URLParam(r, "channel"))
	if !channel.Valid() {
		writeError(w, http.StatusNotFound, "unknown channel")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if secret := h.cfg.Secrets[channel]; secret != "" {
		if !webhook.VerifySignature(body, r.Header.Get(webhook.SignatureHeader), secret) {
			metrics.WebhookSignatureFailures.WithLabelValues(string(channel)).Inc()
			h.logger.Warn("invalid webhook signature", zap.String("channel", string(channel)))
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	result, err := h.process(r.Context(), channel, body)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, webhook.ErrMalformedPayload):
		writeJSON(w, http.StatusBadRequest, result)
	default:
		writeJSON(w, http.StatusInternalServerError, result)
	}
}

var errPanic = errors.New("panic while processing webhook")

// process contains panics from adversarial payloads to the single delivery.
func (h *WebhookHandler) process(ctx context.Context, channel model.Channel, body []byte) (result model.ProcessResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("webhook processing panicked",
				zap.String("channel", string(channel)),
				zap.Any("panic", rec),
			)
			result = model.ProcessResult{Status: model.ProcessStatusError, Message: "internal error"}
			err = errPanic
		}
	}()
	return h.processor.Process(ctx, channel, body)
}
