package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/compliance"
	"github.com/capitalize-ai/omnilead/internal/llm"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
	"github.com/capitalize-ai/omnilead/pkg/tracing"
)

// FallbackReply is sent when a reply cannot be generated.
const FallbackReply = "Thank you for your message. A representative will get back to you shortly."

const (
	classifyPrompt = `You are an AI assistant for a student recruitment platform. Classify the intent of the incoming message and analyze sentiment.

Return JSON with:
- intent: one of [enquiry, complaint, enrollment, technical, general, urgent]
- sentiment: float between -1 (very negative) and 1 (very positive)
- confidence: float between 0 and 1
- urgency: boolean indicating if immediate human attention needed`

	replyPrompt = `You are a helpful student recruitment assistant. Generate a friendly, professional response to student inquiries.

Keep responses concise and helpful. If the inquiry is about specific programs or admissions, ask for more details or provide general information.

Always end with an offer to connect with a human representative if needed.`

	extractPrompt = `Extract lead information from the message. Return JSON with:
- name: person's name if mentioned
- phone: phone number if mentioned
- email: email address if mentioned
- program_interest: program/course they're interested in`
)

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Classifications returned when the model cannot be used.
var (
	noClientClassification    = model.ClassificationResult{Intent: model.IntentGeneral}
	unparsableClassification  = model.ClassificationResult{Intent: model.IntentGeneral, Confidence: 0.5}
	rateLimitedClassification = model.ClassificationResult{Intent: model.IntentGeneral, Confidence: 0.3}
	failedClassification      = model.ClassificationResult{Intent: model.IntentGeneral}
)

// AIService wraps the language model calls of the ingestion pipeline. A nil
// client disables the model; every method then returns its documented default.
type AIService struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewAIService creates a new AI service.
func NewAIService(client llm.Client, modelName string, timeout time.Duration, log *logger.Logger) *AIService {
	if client == nil {
		log.Warn("language model not configured; AI features disabled")
	}
	return &AIService{
		client:  client,
		model:   modelName,
		timeout: timeout,
		logger:  log.Named("ai"),
	}
}

// Enabled reports whether a model client is configured.
func (s *AIService) Enabled() bool {
	return s.client != nil
}

func (s *AIService) complete(ctx context.Context, operation, system, user string, temperature float64, maxTokens int) (string, error) {
	ctx, span := tracing.Tracer("omnilead/ai").Start(ctx, "llm."+operation)
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", s.client.Name()))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.Complete(ctx, &llm.CompletionRequest{
		Model:       s.model,
		System:      system,
		Messages:    []llm.ChatMessage{{Role: "user", Content: user}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordLLMRequest(operation, "", llmStatus(err), elapsed, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	metrics.RecordLLMRequest(operation, resp.Model, "ok", elapsed, resp.TokensIn, resp.TokensOut)
	return resp.Content, nil
}

func llmStatus(err error) string {
	switch {
	case errors.Is(err, llm.ErrAuthentication):
		return "auth_error"
	case errors.Is(err, llm.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// Classify determines intent, sentiment, confidence and urgency for text.
// It never fails; errors map to fixed default results.
func (s *AIService) Classify(ctx context.Context, text string) model.ClassificationResult {
	if s.client == nil {
		return noClientClassification
	}

	content, err := s.complete(ctx, "classify", classifyPrompt, text, 0.2, 200)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			s.logger.Warn("classification rate limited", zap.Error(err))
			return rateLimitedClassification
		case errors.Is(err, llm.ErrAuthentication):
			s.logger.Error("classification authentication failed; check the API key", zap.Error(err))
			return failedClassification
		default:
			s.logger.Error("classification failed", zap.Error(err))
			return failedClassification
		}
	}

	fields, ok := parseJSONResponse(content)
	if !ok {
		s.logger.Warn("unparsable classification response",
			zap.String("response", compliance.MaskPII(truncate(content, 200))))
		return unparsableClassification
	}

	result := model.ClassificationResult{
		Intent:     model.IntentGeneral,
		Sentiment:  clamp(numberField(fields, "sentiment"), -1, 1),
		Confidence: clamp(numberField(fields, "confidence"), 0, 1),
		Urgency:    boolField(fields, "urgency"),
	}
	if intent := strings.ToLower(strings.TrimSpace(stringField(fields, "intent"))); intent != "" {
		result.Intent = model.Intent(intent)
	}

	metrics.ClassificationsTotal.WithLabelValues(string(result.Intent.OrGeneral())).Inc()
	return result
}

// ShouldGenerateReply reports whether the classification qualifies for an
// automated reply: a routine intent classified with high confidence.
func ShouldGenerateReply(c model.ClassificationResult) bool {
	return (c.Intent == model.IntentEnquiry || c.Intent == model.IntentGeneral) && c.Confidence > 0.7
}

// GenerateReply drafts a reply to text. Failures yield FallbackReply.
func (s *AIService) GenerateReply(ctx context.Context, text string, c model.ClassificationResult) string {
	if s.client == nil {
		return FallbackReply
	}

	user := "Intent: " + string(c.Intent) + "\nMessage: " + text
	content, err := s.complete(ctx, "reply", replyPrompt, user, 0.7, 300)
	if err != nil {
		s.logger.Error("reply generation failed", zap.Error(err))
		return FallbackReply
	}

	reply := strings.TrimSpace(content)
	if reply == "" {
		return FallbackReply
	}
	return reply
}

// ExtractLead pulls contact details out of text. Failures yield an empty result.
func (s *AIService) ExtractLead(ctx context.Context, text string) model.LeadInfo {
	if s.client == nil {
		return model.LeadInfo{}
	}

	content, err := s.complete(ctx, "extract", extractPrompt, text, 0.1, 200)
	if err != nil {
		s.logger.Error("lead extraction failed", zap.Error(err))
		return model.LeadInfo{}
	}

	fields, ok := parseJSONResponse(content)
	if !ok {
		return model.LeadInfo{}
	}

	return model.LeadInfo{
		Name:            strings.TrimSpace(stringField(fields, "name")),
		Phone:           strings.TrimSpace(stringField(fields, "phone")),
		Email:           strings.TrimSpace(stringField(fields, "email")),
		ProgramInterest: strings.TrimSpace(stringField(fields, "program_interest")),
	}
}

// parseJSONResponse decodes the outermost brace-delimited object in content,
// falling back to the whole content.
func parseJSONResponse(content string) (map[string]any, bool) {
	var fields map[string]any
	if m := jsonObjectPattern.FindString(content); m != "" {
		if err := json.Unmarshal([]byte(m), &fields); err == nil && fields != nil {
			return fields, true
		}
		return nil, false
	}
	if err := json.Unmarshal([]byte(content), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func numberField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

func boolField(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
