package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, status int, body string) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return newOpenAIClientWithConfig(cfg, "gpt-4")
}

func TestOpenAIComplete(t *testing.T) {
	c := newTestOpenAI(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"model": "gpt-4",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"intent\":\"enquiry\"}"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`)

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		System:   "classify",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"enquiry"}`, resp.Content)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 5, resp.TokensOut)
	assert.Equal(t, "stop", resp.StopReason)
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthentication},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestOpenAI(t, tt.status, `{"error": {"message": "nope", "type": "invalid_request_error"}}`)
			_, err := c.Complete(context.Background(), &CompletionRequest{
				Messages: []ChatMessage{{Role: "user", Content: "hi"}},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIServerErrorIsUnclassified(t *testing.T) {
	c := newTestOpenAI(t, http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`)
	_, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuthentication))
	assert.False(t, errors.Is(err, ErrRateLimited))
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient("mistral", "k", "")
	assert.Error(t, err)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, "", "")
	assert.Error(t, err)
	_, err = NewClient(ProviderAnthropic, "", "")
	assert.Error(t, err)
}
