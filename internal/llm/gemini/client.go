package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"resume-editor/internal/llm"
	"resume-editor/internal/shared/telemetry"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 512
)

// Client implements llm.Client on the Gemini generateContent API.
type Client struct {
	client    *genai.Client
	model     string
	timeout   time.Duration
	maxTokens int32
}

// Options tunes a Client. Zero values select defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxTokens  int32
	HTTPClient *http.Client
}

// NewClient constructs a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(opts.BaseURL, "/") + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{client: client, model: model, timeout: timeout, maxTokens: maxTokens}, nil
}

// Complete sends prompt as one user turn and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.4),
			MaxOutputTokens:  c.maxTokens,
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{
				Provider: "gemini",
				Status:   apiErr.Code,
				Message:  apiErr.Message,
				Err:      err,
			}
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", fmt.Errorf("%w: gemini response has no text", llm.ErrMalformedResponse)
	}

	fields := map[string]any{
		"provider": "gemini",
		"model":    c.model,
	}
	if len(resp.Candidates) > 0 {
		fields["finish_reason"] = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		fields["prompt_tokens"] = u.PromptTokenCount
		fields["completion_tokens"] = u.CandidatesTokenCount
		fields["total_tokens"] = u.TotalTokenCount
	}
	telemetry.Info("llm.usage", fields)
	return content, nil
}

var _ llm.Client = (*Client)(nil)
