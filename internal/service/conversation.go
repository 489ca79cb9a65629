// Package service provides business logic for the lead management platform.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/store"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
)

var (
	// ErrForbidden is returned when the actor may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for requests that fail domain checks.
	ErrInvalidInput = errors.New("invalid input")
)

const defaultPageSize = 50

// Actor is the authenticated staff member performing an operation.
type Actor struct {
	UserID string
	Role   model.Role
}

func (a Actor) seesEverything() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleAnalyst
}

// ConversationStore is the persistence used by ConversationService.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, f model.ConversationFilter) ([]model.Conversation, error)
	AssignConversation(ctx context.Context, id, userID string) (*model.Conversation, error)
	SetConversationStatus(ctx context.Context, id string, status model.ConversationStatus) error
	AppendMessage(ctx context.Context, conversationID string, direction model.Direction, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	MarkMessageDelivered(ctx context.Context, conversationID, messageID string) error
	MarkMessageRead(ctx context.Context, conversationID, messageID string) error
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// ConversationService handles staff operations on conversations.
type ConversationService struct {
	store  ConversationStore
	events *eventEmitter
	logger *logger.Logger
}

// NewConversationService creates a new conversation service. events may be nil.
func NewConversationService(st ConversationStore, events EventPublisher, log *logger.Logger) *ConversationService {
	log = log.Named("conversations")
	return &ConversationService{
		store:  st,
		events: newEventEmitter(events, log),
		logger: log,
	}
}

// List returns conversations visible to the actor. Staff other than admins and
// analysts see only conversations assigned to them or not yet assigned.
func (s *ConversationService) List(ctx context.Context, actor Actor, f model.ConversationFilter) (*model.ListConversationsResponse, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if !actor.seesEverything() {
		f.VisibleTo = actor.UserID
	}

	convs, err := s.store.ListConversations(ctx, f)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{Conversations: convs, Skip: f.Skip, Limit: f.Limit}, nil
}

// Get returns a conversation the actor may view.
func (s *ConversationService) Get(ctx context.Context, actor Actor, id string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, conv) {
		return nil, ErrForbidden
	}
	return conv, nil
}

func canView(actor Actor, conv *model.Conversation) bool {
	return actor.seesEverything() || conv.AssignedTo == nil || *conv.AssignedTo == actor.UserID
}

// Messages returns the messages of a conversation the actor may view.
func (s *ConversationService) Messages(ctx context.Context, actor Actor, id string) ([]model.Message, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, id)
}

// Assign hands a conversation to an active staff member. Requires counselor or above.
func (s *ConversationService) Assign(ctx context.Context, actor Actor, id, userID string) (*model.Conversation, error) {
	if !actor.Role.AtLeast(model.RoleCounselor) {
		return nil, ErrForbidden
	}

	assignee, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidInput)
		}
		return nil, err
	}
	if !assignee.Active {
		return nil, fmt.Errorf("%w: user is inactive", ErrInvalidInput)
	}

	conv, err := s.store.AssignConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversation assigned",
		zap.String("conversation_id", id),
		zap.String("assigned_to", userID),
		zap.String("assigned_by", actor.UserID),
	)
	s.events.emit(ctx, id, model.EventTypeAssigned, map[string]any{
		"assigned_to": userID,
		"assigned_by": actor.UserID,
	})
	return conv, nil
}

// Reply records a manual outbound message. Admin, counselor and sales staff
// may reply to any conversation; others only to their own.
func (s *ConversationService) Reply(ctx context.Context, actor Actor, id, content string) (*model.Message, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleAdmin, model.RoleCounselor, model.RoleSales:
	default:
		if conv.AssignedTo == nil || *conv.AssignedTo != actor.UserID {
			return nil, ErrForbidden
		}
	}

	msg, err := s.store.AppendMessage(ctx, id, model.DirectionOutbound, content)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetConversationStatus(ctx, id, model.StatusReplied); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.DirectionOutbound)).Inc()

	s.events.emit(ctx, id, model.EventTypeReplied, map[string]any{
		"automated":  false,
		"message_id": msg.ID,
		"replied_by": actor.UserID,
	})
	return msg, nil
}

// Close marks a conversation closed; the sender's next message opens a new one.
func (s *ConversationService) Close(ctx context.Context, actor Actor, id string) error {
	if !actor.Role.AtLeast(model.RoleCounselor) {
		return ErrForbidden
	}
	if err := s.store.SetConversationStatus(ctx, id, model.StatusClosed); err != nil {
		return err
	}
	s.events.emit(ctx, id, model.EventTypeClosed, map[string]any{"closed_by": actor.UserID})
	return nil
}

// MarkDelivered records a delivery receipt for an outbound message.
func (s *ConversationService) MarkDelivered(ctx context.Context, actor Actor, conversationID, messageID string) error {
	if _, err := s.Get(ctx, actor, conversationID); err != nil {
		return err
	}
	return s.store.MarkMessageDelivered(ctx, conversationID, messageID)
}

// MarkRead records a read receipt for an outbound message.
func (s *ConversationService) MarkRead(ctx context.Context, actor Actor, conversationID, messageID string) error {
	if _, err := s.Get(ctx, actor, conversationID); err != nil {
		return err
	}
	return s.store.MarkMessageRead(ctx, conversationID, messageID)
}
