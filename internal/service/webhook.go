package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/compliance"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/webhook"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
	"github.com/capitalize-ai/omnilead/pkg/tracing"
)

// PipelineStore is the persistence used by webhook ingestion.
type PipelineStore interface {
	FindOrCreateConversation(ctx context.Context, channel model.Channel, msg *model.InboundMessage) (*model.Conversation, bool, error)
	AppendMessage(ctx context.Context, conversationID string, direction model.Direction, content string) (*model.Message, error)
	UpdateClassification(ctx context.Context, conv *model.Conversation) error
	CreateLead(ctx context.Context, conversationID string, info model.LeadInfo, score float64) (*model.Lead, error)
}

// Notifier alerts staff.
type Notifier interface {
	NotifyEscalation(ctx context.Context, conv *model.Conversation) error
	NotifyLead(ctx context.Context, lead *model.Lead) (bool, error)
}

// EventPublisher publishes conversation events for real-time subscribers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error)
}

// WebhookService runs the ingestion pipeline for one delivery: normalize,
// persist, classify, score, route and extract.
type WebhookService struct {
	store    PipelineStore
	ai       *AIService
	notifier Notifier
	events   *eventEmitter
	logger   *logger.Logger
}

// NewWebhookService creates a new webhook service. events may be nil.
func NewWebhookService(store PipelineStore, ai *AIService, notifier Notifier, events EventPublisher, log *logger.Logger) *WebhookService {
	log = log.Named("webhook")
	return &WebhookService{
		store:    store,
		ai:       ai,
		notifier: notifier,
		events:   newEventEmitter(events, log),
		logger:   log,
	}
}

// Process handles one delivery. The returned error is webhook.ErrMalformedPayload
// for undecodable bodies and a wrapped store error for persistence failures;
// in both cases the result has status "error".
func (s *WebhookService) Process(ctx context.Context, channel model.Channel, body []byte) (result model.ProcessResult, err error) {
	ctx, span := tracing.Tracer("omnilead/webhook").Start(ctx, "webhook.process")
	span.SetAttributes(attribute.String("channel", string(channel)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("result", string(result.Status)))
		span.End()
		metrics.WebhookDeliveriesTotal.WithLabelValues(string(channel), string(result.Status)).Inc()
	}()

	msg, err := webhook.Normalize(channel, body)
	switch {
	case errors.Is(err, webhook.ErrNoTextMessage):
		return model.ProcessResult{Status: model.ProcessStatusNoTextMessage}, nil
	case err != nil:
		return errorResult(err), err
	}

	conv, err := s.ingest(ctx, channel, msg)
	if err != nil {
		s.logger.Error("webhook processing failed",
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return errorResult(err), err
	}

	return model.ProcessResult{Status: model.ProcessStatusProcessed, ConversationID: conv.ID}, nil
}

func errorResult(err error) model.ProcessResult {
	msg := "internal error"
	if errors.Is(err, webhook.ErrMalformedPayload) {
		msg = "malformed payload"
	}
	return model.ProcessResult{Status: model.ProcessStatusError, Message: msg}
}

func (s *WebhookService) ingest(ctx context.Context, channel model.Channel, msg *model.InboundMessage) (*model.Conversation, error) {
	conv, created, err := s.store.FindOrCreateConversation(ctx, channel, msg)
	if err != nil {
		return nil, fmt.Errorf("find or create conversation: %w", err)
	}
	if created {
		metrics.ConversationsTotal.WithLabelValues(string(channel)).Inc()
	}

	if _, err := s.store.AppendMessage(ctx, conv.ID, model.DirectionInbound, msg.Text); err != nil {
		return nil, fmt.Errorf("append inbound message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.DirectionInbound)).Inc()

	log := s.logger.With(
		zap.String("conversation_id", conv.ID),
		zap.String("channel", string(channel)),
	)
	log.Info("message received",
		zap.Bool("new_conversation", created),
		zap.String("text", compliance.MaskPII(msg.Text)),
	)
	s.events.emit(ctx, conv.ID, model.EventTypeMessageReceived, map[string]any{
		"direction":        model.DirectionInbound,
		"new_conversation": created,
	})

	// Scoring and reply gating use the raw intent; the stored one is limited to known values.
	classification := s.ai.Classify(ctx, conv.MessageText)
	conv.Intent = classification.Intent.OrGeneral()
	conv.Sentiment = classification.Sentiment
	conv.Confidence = classification.Confidence
	conv.LeadScore = ScoreLead(conv.MessageText, classification)
	metrics.LeadScore.Observe(conv.LeadScore)

	s.events.emit(ctx, conv.ID, model.EventTypeClassified, map[string]any{
		"intent":     conv.Intent,
		"sentiment":  conv.Sentiment,
		"confidence": conv.Confidence,
		"lead_score": conv.LeadScore,
		"urgency":    classification.Urgency,
	})

	reason := EscalationReason(conv)
	switch {
	case reason != "":
		conv.RequiresHuman = true
		conv.Status = model.StatusEscalated

	case ShouldAutoReply(conv) && ShouldGenerateReply(classification):
		classification.Reply = s.ai.GenerateReply(ctx, conv.MessageText, classification)
		if _, err := s.store.AppendMessage(ctx, conv.ID, model.DirectionOutbound, classification.Reply); err != nil {
			return nil, fmt.Errorf("append reply: %w", err)
		}
		metrics.MessagesTotal.WithLabelValues(string(model.DirectionOutbound)).Inc()
		metrics.AutoRepliesTotal.WithLabelValues(string(channel)).Inc()
		conv.Status = model.StatusReplied
	}

	if err := s.store.UpdateClassification(ctx, conv); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	log.Info("message classified",
		zap.String("intent", string(conv.Intent)),
		zap.Float64("confidence", conv.Confidence),
		zap.Float64("lead_score", conv.LeadScore),
		zap.String("status", string(conv.Status)),
		zap.String("escalation_reason", reason),
	)

	switch conv.Status {
	case model.StatusEscalated:
		metrics.EscalationsTotal.WithLabelValues(string(channel)).Inc()
		s.events.emit(ctx, conv.ID, model.EventTypeEscalated, map[string]any{"reason": reason})
		if err := s.notifier.NotifyEscalation(ctx, conv); err != nil {
			log.Warn("escalation notification failed", zap.Error(err))
		}
	case model.StatusReplied:
		s.events.emit(ctx, conv.ID, model.EventTypeReplied, map[string]any{"automated": true})
	}

	if conv.Intent == model.IntentEnquiry || conv.Intent == model.IntentEnrollment {
		if err := s.extractLead(ctx, conv, log); err != nil {
			return nil, err
		}
	}

	return conv, nil
}

func (s *WebhookService) extractLead(ctx context.Context, conv *model.Conversation, log *logger.Logger) error {
	info := s.ai.ExtractLead(ctx, conv.MessageText)
	if info.Empty() {
		return nil
	}

	lead, err := s.store.CreateLead(ctx, conv.ID, info, conv.LeadScore)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	metrics.LeadsTotal.WithLabelValues(string(conv.Channel)).Inc()

	log.Info("lead created", zap.String("lead_id", lead.ID), zap.Float64("score", lead.Score))
	s.events.emit(ctx, conv.ID, model.EventTypeLeadCreated, map[string]any{
		"lead_id": lead.ID,
		"score":   lead.Score,
	})

	if _, err := s.notifier.NotifyLead(ctx, lead); err != nil {
		log.Warn("lead notification failed", zap.Error(err))
	}
	return nil
}
