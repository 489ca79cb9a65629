package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
)

const (
	// StreamName is the name of the conversation events stream.
	StreamName = "LEADS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "lead"
)

// EventStream publishes conversation events and replays them to subscribers.
type EventStream struct {
	client *Client
}

// NewEventStream creates a new event stream.
func NewEventStream(client *Client) *EventStream {
	return &EventStream{client: client}
}

// EnsureStream creates the events stream if it does not exist.
func (m *EventStream) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Conversation lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject for an event.
func EventSubject(conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, conversationID, eventType)
}

// ConversationFilter matches every event of one conversation.
func ConversationFilter(conversationID string) string {
	return fmt.Sprintf("%s.%s.event.>", SubjectPrefix, conversationID)
}

// PublishEvent publishes an event and returns its stream sequence.
func (m *EventStream) PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error) {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, EventSubject(event.ConversationID, event.Type), data,
		jetstream.WithMsgID(event.ID))
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "ok").Inc()

	event.Sequence = ack.Sequence
	return ack.Sequence, nil
}

func (m *EventStream) consumer(ctx context.Context, conversationID string, afterSequence uint64) (jetstream.Consumer, error) {
	cfg := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ConversationFilter(conversationID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		cfg.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		cfg.OptStartSeq = afterSequence + 1
	}
	c, err := m.client.JetStream().OrderedConsumer(ctx, StreamName, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	return c, nil
}

func decodeEvent(msg jetstream.Msg) (model.ConversationEvent, bool) {
	var event model.ConversationEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return event, false
	}
	if meta, err := msg.Metadata(); err == nil {
		event.Sequence = meta.Sequence.Stream
	}
	return event, true
}

// GetEvents returns up to limit events of a conversation after a sequence.
func (m *EventStream) GetEvents(ctx context.Context, conversationID string, afterSequence uint64, limit int) ([]model.ConversationEvent, error) {
	c, err := m.consumer(ctx, conversationID, afterSequence)
	if err != nil {
		return nil, err
	}

	batch, err := c.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	events := []model.ConversationEvent{}
	for msg := range batch.Messages() {
		if event, ok := decodeEvent(msg); ok {
			events = append(events, event)
		}
	}
	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("batch error: %w", err)
	}
	return events, nil
}

// Subscribe delivers events after afterSequence, then live ones, until ctx ends.
func (m *EventStream) Subscribe(ctx context.Context, conversationID string, afterSequence uint64, handler func(model.ConversationEvent)) error {
	c, err := m.consumer(ctx, conversationID, afterSequence)
	if err != nil {
		return err
	}

	cc, err := c.Consume(func(msg jetstream.Msg) {
		if event, ok := decodeEvent(msg); ok {
			handler(event)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to consume events: %w", err)
	}

	<-ctx.Done()
	cc.Stop()
	return nil
}
