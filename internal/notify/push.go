package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/capitalize-ai/omnilead/internal/model"
)

// pushMessage is consumed by the mobile push gateway.
type pushMessage struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	ReferenceID string `json:"reference_id"`
}

// PushSender publishes push notifications to a RabbitMQ topic exchange.
// Routing keys are push.<kind>.<user id>.
type PushSender struct {
	conn     *amqp091.Connection
	exchange string
}

// NewPushSender dials the broker and declares the exchange.
func NewPushSender(url, exchange string) (*PushSender, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to push broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &PushSender{conn: conn, exchange: exchange}, nil
}

// Name returns the channel name.
func (p *PushSender) Name() string { return "push" }

// Send publishes one push message and waits for the broker confirm.
func (p *PushSender) Send(ctx context.Context, user model.User, n Notification) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return err
	}

	body, err := json.Marshal(pushMessage{
		UserID:      user.ID,
		Email:       user.Email,
		Kind:        n.Kind,
		Title:       n.Subject,
		Body:        n.Message,
		ReferenceID: n.ReferenceID,
	})
	if err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx, p.exchange, "push."+string(n.Kind)+"."+user.ID, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     uuid.NewString(),
			CorrelationId: n.ReferenceID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return err
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("push message for user %s was nacked", user.ID)
	}
	return nil
}

// Close closes the broker connection.
func (p *PushSender) Close() error {
	return p.conn.Close()
}
