package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/omnilead/internal/model"
)

const conversationColumns = `id, external_id, channel, sender_id, sender_name, recipient_id,
	message_text, message_type, timestamp, lead_score, sentiment, intent, confidence,
	requires_human, assigned_to, status, created_at, updated_at`

// FindOrCreateConversation returns the open conversation for the sender on
// channel, refreshed with the latest message, or creates one. The bool
// reports whether a new conversation was created.
func (s *Store) FindOrCreateConversation(ctx context.Context, channel model.Channel, msg *model.InboundMessage) (*model.Conversation, bool, error) {
	var (
		conv    model.Conversation
		created bool
	)

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`SELECT ` + conversationColumns + ` FROM conversations
			WHERE sender_id = ? AND channel = ? AND status <> ?
			ORDER BY created_at DESC LIMIT 1`)
		err := tx.GetContext(ctx, &conv, query, msg.SenderID, channel, model.StatusClosed)
		switch {
		case err == nil:
			conv.MessageText = msg.Text
			conv.MessageType = msg.Type
			conv.Timestamp = msg.Timestamp
			conv.UpdatedAt = now()
			if msg.SenderName != "" && msg.SenderName != "Unknown" {
				conv.SenderName = msg.SenderName
			}
			_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE conversations
				SET message_text = ?, message_type = ?, timestamp = ?, sender_name = ?, updated_at = ?
				WHERE id = ?`),
				conv.MessageText, conv.MessageType, conv.Timestamp, conv.SenderName, conv.UpdatedAt, conv.ID)
			if err != nil {
				return fmt.Errorf("failed to update conversation: %w", err)
			}
			return nil

		case errors.Is(err, sql.ErrNoRows):
			ts := now()
			conv = model.Conversation{
				ID:          uuid.Must(uuid.NewV7()).String(),
				ExternalID:  msg.ExternalID,
				Channel:     channel,
				SenderID:    msg.SenderID,
				SenderName:  msg.SenderName,
				RecipientID: model.RecipientBusiness,
				MessageText: msg.Text,
				MessageType: msg.Type,
				Timestamp:   msg.Timestamp,
				Status:      model.StatusOpen,
				CreatedAt:   ts,
				UpdatedAt:   ts,
			}
			if conv.MessageType == "" {
				conv.MessageType = model.ContentTypeText
			}
			_, err = tx.NamedExecContext(ctx, `INSERT INTO conversations (`+conversationColumns+`)
				VALUES (:id, :external_id, :channel, :sender_id, :sender_name, :recipient_id,
				:message_text, :message_type, :timestamp, :lead_score, :sentiment, :intent, :confidence,
				:requires_human, :assigned_to, :status, :created_at, :updated_at)`, &conv)
			if err != nil {
				return fmt.Errorf("failed to insert conversation: %w", err)
			}
			created = true
			return nil

		default:
			return fmt.Errorf("failed to find conversation: %w", err)
		}
	})
	if err != nil {
		return nil, false, err
	}

	return &conv, created, nil
}

// GetConversation returns a conversation by id.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	query := s.db.Rebind(`SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`)
	if err := s.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns conversations newest first.
func (s *Store) ListConversations(ctx context.Context, f model.ConversationFilter) ([]model.Conversation, error) {
	var (
		where []string
		args  []any
	)
	if f.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, f.Channel)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.VisibleTo != "" {
		where = append(where, "(assigned_to = ? OR assigned_to IS NULL)")
		args = append(args, f.VisibleTo)
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, pageLimit(f.Limit), max(f.Skip, 0))

	convs := []model.Conversation{}
	if err := s.db.SelectContext(ctx, &convs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// UpdateClassification stores the classification outcome and routing decision.
func (s *Store) UpdateClassification(ctx context.Context, conv *model.Conversation) error {
	conv.UpdatedAt = now()
	res, err := s.db.NamedExecContext(ctx, `UPDATE conversations SET
		intent = :intent, sentiment = :sentiment, confidence = :confidence, lead_score = :lead_score,
		requires_human = :requires_human, status = :status, updated_at = :updated_at
		WHERE id = :id`, conv)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return requireRow(res)
}

// AssignConversation sets the assignee and moves the conversation to assigned.
func (s *Store) AssignConversation(ctx context.Context, id, userID string) (*model.Conversation, error) {
	query := s.db.Rebind(`UPDATE conversations SET assigned_to = ?, status = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, userID, model.StatusAssigned, now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to assign conversation: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetConversation(ctx, id)
}

// SetConversationStatus changes the status of a conversation.
func (s *Store) SetConversationStatus(ctx context.Context, id string, status model.ConversationStatus) error {
	query := s.db.Rebind(`UPDATE conversations SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, status, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
