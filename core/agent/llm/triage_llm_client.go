package llm

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures a provider client. The API key is read once at
// startup and never re-read.
type ClientConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c ClientConfig) withDefaults(model string) ClientConfig {
	if c.Model == "" {
		c.Model = model
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client is the OpenAI chat completions gateway.
type Client struct {
	client  *openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

var _ out.Completer = (*Client)(nil)

// NewClient never fails; a missing key is reported by Complete.
func NewClient(cfg ClientConfig) *Client {
	cfg = cfg.withDefaults(DefaultModel)

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		client:  openai.NewClientWithConfig(oc),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (c *Client) Provider() string { return "openai" }

// Complete sends one system + user exchange.
func (c *Client) Complete(ctx context.Context, req out.CompletionRequest) (*out.Completion, error) {
	if c.apiKey == "" {
		return nil, apperr.ConfigError("OPENAI_API_KEY is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
	})
	if err != nil {
		return nil, transportError(c.Provider(), err)
	}

	completion := &out.Completion{
		Model: resp.Model,
		Usage: &domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if completion.Model == "" {
		completion.Model = c.model
	}
	if len(resp.Choices) > 0 {
		completion.Content = resp.Choices[0].Message.Content
	}
	return completion, nil
}

// wireTemperature keeps a requested 0 on the wire. go-openai tags the field
// omitempty, and an omitted temperature means 1.0 server-side.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// transportError maps a provider failure to the gateway error taxonomy.
func transportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout(provider+" completion", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Timeout(provider+" completion", err)
	}
	return apperr.ExternalError(provider, err)
}
