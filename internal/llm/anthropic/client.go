package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"resume-editor/internal/llm"
	"resume-editor/internal/shared/telemetry"
)

const defaultMaxTokens = 512

// Client implements llm.Client on the Anthropic Messages API.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// Options tunes a Client. Zero values select SDK defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int64
}

// NewClient constructs an Anthropic client for model.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Anthropic")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	client := anthropic.NewClient(reqOpts...)
	return &Client{client: &client, model: model, maxTokens: maxTokens}, nil
}

// Complete sends prompt as one user message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			statusErr := &llm.StatusError{
				Provider: "anthropic",
				Status:   apiErr.StatusCode,
				Message:  http.StatusText(apiErr.StatusCode),
				Err:      err,
			}
			if apiErr.Response != nil {
				statusErr.RetryAfter = llm.ParseRetryAfter(apiErr.Response.Header, time.Now())
			}
			return "", statusErr
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("%w: anthropic response has no text", llm.ErrMalformedResponse)
	}

	telemetry.Info("llm.usage", map[string]any{
		"provider":      "anthropic",
		"model":         c.model,
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
		"stop_reason":   string(msg.StopReason),
	})
	return content, nil
}

var _ llm.Client = (*Client)(nil)
