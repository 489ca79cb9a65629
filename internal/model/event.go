package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeMessageReceived EventType = "message_received"
	EventTypeClassified      EventType = "classified"
	EventTypeEscalated       EventType = "escalated"
	EventTypeReplied         EventType = "replied"
	EventTypeLeadCreated     EventType = "lead_created"
	EventTypeAssigned        EventType = "assigned"
	EventTypeClosed          EventType = "closed"
)

// ConversationEvent is a state change published for real-time subscribers.
type ConversationEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Type           EventType      `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Sequence       uint64         `json:"sequence,omitempty"`
}

// HeartbeatEvent keeps idle SSE connections open.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
