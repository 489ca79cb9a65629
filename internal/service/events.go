package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

// eventEmitter publishes best-effort conversation events.
type eventEmitter struct {
	publisher EventPublisher
	logger    *logger.Logger
}

func newEventEmitter(p EventPublisher, log *logger.Logger) *eventEmitter {
	return &eventEmitter{publisher: p, logger: log}
}

func (e *eventEmitter) emit(ctx context.Context, conversationID string, eventType model.EventType, metadata map[string]any) {
	if e.publisher == nil {
		return
	}
	event := &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Type:           eventType,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := e.publisher.PublishEvent(ctx, event); err != nil {
		e.logger.Warn("failed to publish event",
			zap.String("conversation_id", conversationID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
