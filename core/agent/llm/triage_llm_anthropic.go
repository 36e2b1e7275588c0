package llm

import (
	"context"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient is the Messages API gateway.
type AnthropicClient struct {
	client  anthropic.Client
	apiKey  string
	model   string
	timeout time.Duration
}

var _ out.Completer = (*AnthropicClient)(nil)

// NewAnthropicClient never fails; a missing key is reported by Complete.
func NewAnthropicClient(cfg ClientConfig) *AnthropicClient {
	cfg = cfg.withDefaults(DefaultAnthropicModel)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(opts...),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (c *AnthropicClient) Provider() string { return "anthropic" }

// Complete sends one system + user exchange. Content is the first text block.
func (c *AnthropicClient) Complete(ctx context.Context, req out.CompletionRequest) (*out.Completion, error) {
	if c.apiKey == "" {
		return nil, apperr.ConfigError("ANTHROPIC_API_KEY is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return nil, transportError(c.Provider(), err)
	}

	in, outTokens := int(message.Usage.InputTokens), int(message.Usage.OutputTokens)
	completion := &out.Completion{
		Model: string(message.Model),
		Usage: &domain.Usage{
			PromptTokens:     in,
			CompletionTokens: outTokens,
			TotalTokens:      in + outTokens,
		},
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			completion.Content = block.Text
			break
		}
	}
	return completion, nil
}
