package model

import (
	"time"
)

// Direction tells whether a message came from the sender or the business.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ContentTypeText is the default message content type.
const ContentTypeText = "text"

// Message is a single inbound or outbound message in a conversation.
type Message struct {
	ID             string     `json:"id" db:"id"`
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	Direction      Direction  `json:"direction" db:"direction"`
	Content        string     `json:"content" db:"content"`
	ContentType    string     `json:"content_type" db:"content_type"`
	SentAt         time.Time  `json:"sent_at" db:"sent_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt         *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// InboundMessage is a platform payload reduced to the fields the pipeline uses.
type InboundMessage struct {
	ExternalID string
	SenderID   string
	SenderName string
	Text       string
	Type       string
	Timestamp  time.Time
}

// ClassificationResult is the outcome of classifying one message.
type ClassificationResult struct {
	Intent     Intent  `json:"intent"`
	Sentiment  float64 `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Urgency    bool    `json:"urgency"`
	Reply      string  `json:"reply,omitempty"`
}

// ProcessStatus is the outcome of processing one webhook delivery.
type ProcessStatus string

const (
	ProcessStatusProcessed     ProcessStatus = "processed"
	ProcessStatusNoTextMessage ProcessStatus = "no_text_message"
	ProcessStatusError         ProcessStatus = "error"
)

// ProcessResult is returned to the platform for each webhook delivery.
type ProcessResult struct {
	Status         ProcessStatus `json:"status"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Message        string        `json:"message,omitempty"`
}
