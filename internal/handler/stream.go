package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
)

const (
	replayBatchSize   = 50
	heartbeatInterval = 30 * time.Second
)

// EventSource replays and tails conversation events.
type EventSource interface {
	GetEvents(ctx context.Context, conversationID string, afterSequence uint64, limit int) ([]model.ConversationEvent, error)
	Subscribe(ctx context.Context, conversationID string, afterSequence uint64, handler func(model.ConversationEvent)) error
}

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	events              EventSource
	conversationService *service.ConversationService
	logger              *logger.Logger
	heartbeat           time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(events EventSource, convSvc *service.ConversationService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		events:              events,
		conversationService: convSvc,
		logger:              log.Named("stream"),
		heartbeat:           heartbeatInterval,
	}
}

// ReplayCompleteEvent marks the end of event replay.
type ReplayCompleteEvent struct {
	LastSequence uint64 `json:"last_sequence"`
	EventCount   int    `json:"event_count"`
}

// Stream handles GET /api/v1/conversations/:id/events
// Supports ?after_sequence=N for resuming from a specific point
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.conversationService.Get(ctx, middleware.GetActor(ctx), conversationID); err != nil {
		writeServiceError(w, r, err, "conversation not found")
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil {
			afterSequence = seq
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	log := h.logger.With(zap.String("conversation_id", conversationID))

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"conversation_id": conversationID,
	})

	lastSequence, replayed, err := h.replay(ctx, w, flusher, conversationID, afterSequence)
	if err != nil {
		log.Error("failed to replay events", zap.Error(err))
		sendSSEEvent(w, flusher, "error", map[string]string{"message": "failed to replay events"})
		return
	}
	sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{
		LastSequence: lastSequence,
		EventCount:   replayed,
	})

	// Consumer callbacks run on a NATS goroutine; only this goroutine writes.
	live := make(chan model.ConversationEvent, 64)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	subErr := make(chan error, 1)
	go func() {
		subErr <- h.events.Subscribe(subCtx, conversationID, lastSequence, func(e model.ConversationEvent) {
			select {
			case live <- e:
			case <-subCtx.Done():
			}
		})
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return
		case err := <-subErr:
			if err != nil {
				log.Error("event subscription failed", zap.Error(err))
				sendSSEEvent(w, flusher, "error", map[string]string{"message": "event subscription failed"})
			}
			return
		case e := <-live:
			sendSSEEvent(w, flusher, string(e.Type), e)
		case <-ticker.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{Timestamp: time.Now().UTC()})
		}
	}
}

func (h *StreamHandler) replay(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, conversationID string, after uint64) (uint64, int, error) {
	last, total := after, 0
	for {
		events, err := h.events.GetEvents(ctx, conversationID, last, replayBatchSize)
		if err != nil {
			return last, total, err
		}
		for _, e := range events {
			sendSSEEvent(w, flusher, string(e.Type), e)
			last = e.Sequence
			total++
		}
		if len(events) < replayBatchSize {
			return last, total, nil
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
