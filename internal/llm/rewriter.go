package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"resume-editor/internal/editor"
	"resume-editor/internal/shared/telemetry"
)

// Rewriter turns a completion request into a prompt, calls the provider and
// extracts the rewritten text. It implements editor.Completer.
type Rewriter struct {
	Client  Client
	Prompts *PromptCatalog
	policy  *bluemonday.Policy
}

// NewRewriter builds a Rewriter around client.
func NewRewriter(client Client, prompts *PromptCatalog) *Rewriter {
	return &Rewriter{Client: client, Prompts: prompts, policy: bluemonday.StrictPolicy()}
}

// Complete implements editor.Completer.
func (r *Rewriter) Complete(ctx context.Context, req editor.CompletionRequest) (editor.CompletionResult, error) {
	if r == nil || r.Client == nil || r.Prompts == nil {
		return editor.CompletionResult{}, ErrNotImplemented
	}
	if strings.TrimSpace(req.SourceText) == "" {
		return editor.CompletionResult{}, errors.New("source text is empty")
	}

	start := time.Now()
	prompt := r.Prompts.Render(promptName(req.Kind), req.SourceText)
	raw, err := r.Client.Complete(ctx, prompt)
	if err != nil {
		telemetry.Warn("llm.rewrite.failed", map[string]any{
			"kind":        req.Kind.String(),
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return editor.CompletionResult{}, err
	}
	text, err := ParseRewrite(raw)
	if err != nil {
		return editor.CompletionResult{}, err
	}
	text = r.sanitize(text)
	if text == "" {
		return editor.CompletionResult{}, fmt.Errorf("%w: empty text", ErrMalformedResponse)
	}
	telemetry.Info("llm.rewrite", map[string]any{
		"kind":           req.Kind.String(),
		"prompt_version": r.Prompts.Version,
		"source_chars":   len(req.SourceText),
		"result_chars":   len(text),
		"duration_ms":    time.Since(start).Milliseconds(),
	})
	return editor.CompletionResult{Text: text}, nil
}

func promptName(kind editor.Kind) string {
	switch kind {
	case editor.KindTitle:
		return "title"
	case editor.KindListItem:
		return "bullet"
	case editor.KindParagraph:
		return "paragraph"
	default:
		return ""
	}
}

type rewritePayload struct {
	Text *string `json:"text"`
}

// ParseRewrite extracts the text field from a JSON model response. Markdown
// code fences around the object are tolerated.
func ParseRewrite(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var payload rewritePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Text == nil {
		return "", fmt.Errorf("%w: missing text field", ErrMalformedResponse)
	}
	return *payload.Text, nil
}

// Sanitize strips markup and collapses whitespace in model output.
func Sanitize(text string) string {
	return sanitizeWith(bluemonday.StrictPolicy(), text)
}

func (r *Rewriter) sanitize(text string) string {
	policy := r.policy
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	return sanitizeWith(policy, text)
}

func sanitizeWith(policy *bluemonday.Policy, text string) string {
	clean := html.UnescapeString(policy.Sanitize(text))
	return strings.Join(strings.Fields(clean), " ")
}
