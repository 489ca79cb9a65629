package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/omnilead/internal/llm"
	"github.com/capitalize-ai/omnilead/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
		want   model.ClassificationResult
	}{
		{
			name:   "parses fenced json",
			client: &fakeLLM{classify: "```json\n{\"intent\": \"Enquiry \", \"sentiment\": 0.3, \"confidence\": 0.9, \"urgency\": true}\n```"},
			want:   model.ClassificationResult{Intent: model.IntentEnquiry, Sentiment: 0.3, Confidence: 0.9, Urgency: true},
		},
		{
			name:   "missing fields take defaults",
			client: &fakeLLM{classify: `{"sentiment": "0.5"}`},
			want:   model.ClassificationResult{Intent: model.IntentGeneral, Sentiment: 0.5},
		},
		{
			name:   "out of range values are clamped",
			client: &fakeLLM{classify: `{"intent": "urgent", "sentiment": -3, "confidence": 1.7}`},
			want:   model.ClassificationResult{Intent: model.IntentUrgent, Sentiment: -1, Confidence: 1},
		},
		{
			name:   "non-finite numbers read as zero",
			client: &fakeLLM{classify: `{"intent": "enquiry", "sentiment": "NaN", "confidence": "NaN"}`},
			want:   model.ClassificationResult{Intent: model.IntentEnquiry},
		},
		{
			name:   "infinite confidence reads as zero",
			client: &fakeLLM{classify: `{"intent": "general", "sentiment": "-Inf", "confidence": "+Infinity"}`},
			want:   model.ClassificationResult{Intent: model.IntentGeneral},
		},
		{
			name:   "unparsable response",
			client: &fakeLLM{classify: "I think this is an enquiry."},
			want:   model.ClassificationResult{Intent: model.IntentGeneral, Confidence: 0.5},
		},
		{
			name:   "broken json inside braces",
			client: &fakeLLM{classify: `{"intent": enquiry}`},
			want:   model.ClassificationResult{Intent: model.IntentGeneral, Confidence: 0.5},
		},
		{
			name:   "rate limited",
			client: &fakeLLM{err: fmt.Errorf("%w: slow down", llm.ErrRateLimited)},
			want:   model.ClassificationResult{Intent: model.IntentGeneral, Confidence: 0.3},
		},
		{
			name:   "authentication failure",
			client: &fakeLLM{err: fmt.Errorf("%w: bad key", llm.ErrAuthentication)},
			want:   model.ClassificationResult{Intent: model.IntentGeneral},
		},
		{
			name:   "other failure",
			client: &fakeLLM{err: errors.New("connection reset")},
			want:   model.ClassificationResult{Intent: model.IntentGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestAI(tt.client).Classify(context.Background(), "hello")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAIServiceWithoutClient(t *testing.T) {
	ai := newTestAI(nil)
	ctx := context.Background()

	assert.False(t, ai.Enabled())
	assert.Equal(t, model.ClassificationResult{Intent: model.IntentGeneral}, ai.Classify(ctx, "hi"))
	assert.Equal(t, FallbackReply, ai.GenerateReply(ctx, "hi", model.ClassificationResult{}))
	assert.True(t, ai.ExtractLead(ctx, "I am Sam").Empty())
}

func TestGenerateReply(t *testing.T) {
	ctx := context.Background()
	c := model.ClassificationResult{Intent: model.IntentEnquiry, Confidence: 0.9}

	ai := newTestAI(&fakeLLM{reply: "  Happy to help with admissions!  "})
	assert.Equal(t, "Happy to help with admissions!", ai.GenerateReply(ctx, "hi", c))

	ai = newTestAI(&fakeLLM{reply: "   "})
	assert.Equal(t, FallbackReply, ai.GenerateReply(ctx, "hi", c))

	ai = newTestAI(&fakeLLM{err: errors.New("timeout")})
	assert.Equal(t, FallbackReply, ai.GenerateReply(ctx, "hi", c))
}

func TestExtractLead(t *testing.T) {
	ctx := context.Background()

	ai := newTestAI(&fakeLLM{extract: `Here you go: {"name": " Sam ", "phone": 5551234567, "email": "sam@example.com", "program_interest": null}`})
	info := ai.ExtractLead(ctx, "I am Sam")
	assert.Equal(t, model.LeadInfo{Name: "Sam", Phone: "5551234567", Email: "sam@example.com"}, info)

	ai = newTestAI(&fakeLLM{extract: "no contact details"})
	assert.True(t, ai.ExtractLead(ctx, "hello").Empty())

	ai = newTestAI(&fakeLLM{err: errors.New("boom")})
	assert.True(t, ai.ExtractLead(ctx, "hello").Empty())
}
