// Package model defines data structures for the lead management platform.
package model

import (
	"time"
)

// Channel is an external messaging platform.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelFacebook  Channel = "facebook"
	ChannelInstagram Channel = "instagram"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWhatsApp, ChannelFacebook, ChannelInstagram:
		return true
	}
	return false
}

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentEnquiry    Intent = "enquiry"
	IntentComplaint  Intent = "complaint"
	IntentEnrollment Intent = "enrollment"
	IntentTechnical  Intent = "technical"
	IntentGeneral    Intent = "general"
	IntentUrgent     Intent = "urgent"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentEnquiry, IntentComplaint, IntentEnrollment, IntentTechnical, IntentGeneral, IntentUrgent:
		return true
	}
	return false
}

// OrGeneral returns i when it is known and IntentGeneral otherwise.
func (i Intent) OrGeneral() Intent {
	if i.Valid() {
		return i
	}
	return IntentGeneral
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusOpen      ConversationStatus = "open"
	StatusAssigned  ConversationStatus = "assigned"
	StatusReplied   ConversationStatus = "replied"
	StatusEscalated ConversationStatus = "escalated"
	StatusClosed    ConversationStatus = "closed"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusReplied, StatusEscalated, StatusClosed:
		return true
	}
	return false
}

// RecipientBusiness is the recipient id stored for every inbound conversation.
const RecipientBusiness = "business"

// Conversation is a thread with one external sender on one channel.
type Conversation struct {
	ID            string             `json:"id" db:"id"`
	ExternalID    string             `json:"message_id" db:"external_id"`
	Channel       Channel            `json:"channel" db:"channel"`
	SenderID      string             `json:"sender_id" db:"sender_id"`
	SenderName    string             `json:"sender_name" db:"sender_name"`
	RecipientID   string             `json:"recipient_id" db:"recipient_id"`
	MessageText   string             `json:"message_text" db:"message_text"`
	MessageType   string             `json:"message_type" db:"message_type"`
	Timestamp     time.Time          `json:"timestamp" db:"timestamp"`
	LeadScore     float64            `json:"lead_score" db:"lead_score"`
	Sentiment     float64            `json:"sentiment" db:"sentiment"`
	Intent        Intent             `json:"intent" db:"intent"`
	Confidence    float64            `json:"confidence" db:"confidence"`
	RequiresHuman bool               `json:"requires_human" db:"requires_human"`
	AssignedTo    *string            `json:"assigned_to,omitempty" db:"assigned_to"`
	Status        ConversationStatus `json:"status" db:"status"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// ConversationFilter narrows a conversation listing.
type ConversationFilter struct {
	Channel Channel
	Status  ConversationStatus
	// VisibleTo restricts results to conversations assigned to this user or unassigned.
	VisibleTo string
	Skip      int
	Limit     int
}

// AssignConversationRequest is the request to assign a conversation.
type AssignConversationRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// ReplyRequest is the request to send a manual reply.
type ReplyRequest struct {
	Content string `json:"content" validate:"required,max=4096"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Skip          int            `json:"skip"`
	Limit         int            `json:"limit"`
}
