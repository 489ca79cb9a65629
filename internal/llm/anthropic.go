package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	api   *anthropic.Client
	model string
}

// NewAnthropicClient creates a client for apiKey. Extra request options are
// applied after the key, so tests can override the base URL.
func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClient{api: anthropic.NewClient(opts...), model: model}, nil
}

func (c *AnthropicClient) Name() string { return string(ProviderAnthropic) }

// Complete sends one non-streaming message request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	r := req.withDefaults(c.model)

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(r.Model),
		MaxTokens:   anthropic.F(int64(r.MaxTokens)),
		Messages:    anthropic.F(anthropicMessages(r.Messages)),
		Temperature: anthropic.F(r.Temperature),
	}
	if r.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{anthropicText(r.System)})
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(apiErr.StatusCode, err)
		}
		return nil, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}

	return &CompletionResponse{
		Content:    text.String(),
		Model:      msg.Model,
		TokensIn:   int(msg.Usage.InputTokens),
		TokensOut:  int(msg.Usage.OutputTokens),
		StopReason: string(msg.StopReason),
	}, nil
}

func anthropicText(s string) anthropic.TextBlockParam {
	return anthropic.TextBlockParam{
		Type: anthropic.F(anthropic.TextBlockParamTypeText),
		Text: anthropic.F(s),
	}
}

func anthropicMessages(in []ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(in))
	for _, m := range in {
		out = append(out, anthropic.MessageParam{
			Role:    anthropic.F(anthropic.MessageParamRole(m.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{anthropicText(m.Content)}),
		})
	}
	return out
}
