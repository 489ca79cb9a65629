package service

import (
	"strings"

	"github.com/capitalize-ai/omnilead/internal/model"
)

const (
	escalationConfidenceMin = 0.65
	escalationSentimentMin  = -0.5
	autoReplyConfidenceMin  = 0.7
)

var escalationKeywords = []string{"refund", "legal", "complaint", "technical", "urgent"}

// Escalation reasons.
const (
	ReasonLowConfidence     = "low_confidence"
	ReasonNegativeSentiment = "negative_sentiment"
	ReasonKeyword           = "keyword"
)

// EscalationReason returns why conv needs a human, or "" when it does not.
// Triggers are checked in order and the first match wins.
func EscalationReason(conv *model.Conversation) string {
	if conv.Confidence < escalationConfidenceMin {
		return ReasonLowConfidence
	}
	if conv.Sentiment < escalationSentimentMin {
		return ReasonNegativeSentiment
	}
	if containsAny(strings.ToLower(conv.MessageText), escalationKeywords) {
		return ReasonKeyword
	}
	return ""
}

// ShouldEscalate reports whether conv must be handed to a human.
func ShouldEscalate(conv *model.Conversation) bool {
	return EscalationReason(conv) != ""
}

// ShouldAutoReply reports whether a non-escalated conversation is confident
// enough for an automated reply.
func ShouldAutoReply(conv *model.Conversation) bool {
	return conv.Confidence >= autoReplyConfidenceMin
}
