package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-editor/internal/llm"
	"resume-editor/internal/shared/telemetry"
)

const (
	defaultBaseURL   = "https://api.openai.com"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 512
	// maxResponseBytes caps how much of a reply is buffered.
	maxResponseBytes = 1 << 20
	rewriteTemp      = float32(0.4)
)

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// Options tunes a Client. Zero values select defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxTokens  int
	HTTPClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		maxTokens:  maxTokens,
		httpClient: httpClient,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	Temperature         *float32       `json:"temperature,omitempty"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	ResponseFormat      responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message and returns the raw content.
// The rewrite prompts ask for a JSON object, so JSON mode is always on.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:               c.model,
		Messages:            []chatMessage{{Role: "user", Content: prompt}},
		MaxCompletionTokens: c.maxTokens,
		ResponseFormat:      responseFormat{Type: "json_object"},
	}
	// gpt-5 models reject a non-default temperature.
	if !isGPT5(c.model) {
		temp := rewriteTemp
		reqBody.Temperature = &temp
	}

	parsed, err := c.post(ctx, reqBody)
	if err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response missing choices", llm.ErrMalformedResponse)
	}
	choice := parsed.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: openai response empty content", llm.ErrMalformedResponse)
	}

	fields := map[string]any{
		"provider":      "openai",
		"model":         c.model,
		"finish_reason": choice.FinishReason,
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.usage", fields)
	return content, nil
}

func (c *Client) post(ctx context.Context, reqBody chatRequest) (chatResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return chatResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return chatResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return chatResponse{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return chatResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return chatResponse{}, err
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &llm.StatusError{
			Provider:   "openai",
			Status:     resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: llm.ParseRetryAfter(resp.Header, time.Now()),
		}
		if decodeErr == nil && parsed.Error != nil {
			statusErr.Message = fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return chatResponse{}, statusErr
	}
	if decodeErr != nil {
		return chatResponse{}, fmt.Errorf("%w: openai response parse: %v", llm.ErrMalformedResponse, decodeErr)
	}
	return parsed, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
