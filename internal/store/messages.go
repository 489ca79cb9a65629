package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/capitalize-ai/omnilead/internal/model"
)

const messageColumns = `id, conversation_id, direction, content, content_type, sent_at, delivered_at, read_at`

// AppendMessage stores a text message on a conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, direction model.Direction, content string) (*model.Message, error) {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Direction:      direction,
		Content:        content,
		ContentType:    model.ContentTypeText,
		SentAt:         now(),
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO messages (`+messageColumns+`)
		VALUES (:id, :conversation_id, :direction, :content, :content_type, :sent_at, :delivered_at, :read_at)`, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	msgs := []model.Message{}
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY sent_at ASC, id ASC`)
	if err := s.db.SelectContext(ctx, &msgs, query, conversationID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// MarkMessageDelivered records the delivery time if not already set.
func (s *Store) MarkMessageDelivered(ctx context.Context, conversationID, messageID string) error {
	query := s.db.Rebind(`UPDATE messages SET delivered_at = COALESCE(delivered_at, ?) WHERE id = ? AND conversation_id = ?`)
	res, err := s.db.ExecContext(ctx, query, now(), messageID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return requireRow(res)
}

// MarkMessageRead records the read time, implying delivery.
func (s *Store) MarkMessageRead(ctx context.Context, conversationID, messageID string) error {
	ts := now()
	query := s.db.Rebind(`UPDATE messages SET read_at = COALESCE(read_at, ?), delivered_at = COALESCE(delivered_at, ?)
		WHERE id = ? AND conversation_id = ?`)
	res, err := s.db.ExecContext(ctx, query, ts, ts, messageID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return requireRow(res)
}
