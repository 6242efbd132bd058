package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-editor/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestCompleteSendsBearerAndPrompt(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"{\"text\":\"Spearheaded a migration\"}"}}],"usage":{"prompt_tokens":5,"completion_tokens":4,"total_tokens":9}}`))
	}))
	defer srv.Close()

	client, err := NewClient("sk-test", "gpt-4o-mini", Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Complete(context.Background(), "Rewrite: Led a migration")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"text":"Spearheaded a migration"}` {
		t.Fatalf("unexpected content %q", out)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "Rewrite: Led a migration" {
		t.Fatalf("unexpected messages %+v", gotBody.Messages)
	}
	if gotBody.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %q", gotBody.ResponseFormat.Type)
	}
	if gotBody.MaxCompletionTokens != defaultMaxTokens {
		t.Fatalf("expected max tokens %d, got %d", defaultMaxTokens, gotBody.MaxCompletionTokens)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != rewriteTemp {
		t.Fatalf("expected temperature %v, got %v", rewriteTemp, gotBody.Temperature)
	}
}

func TestCompleteReportsRateLimitAsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("sk-test", "gpt-5-mini", Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), "prompt")
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusTooManyRequests || statusErr.RetryAfter != 2*time.Second {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if !llm.ShouldRetry(err) {
		t.Fatalf("expected 429 to be retryable")
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
		contains  string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", contains: "http status 502"},
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"invalid_request_error"}}`, contains: "bad key"},
		{name: "html error page", status: http.StatusServiceUnavailable, body: `<html>busy</html>`, contains: "http status 503"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, malformed: true},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, malformed: true},
		{name: "not json", status: http.StatusOK, body: `<html>`, malformed: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewClient("sk-test", "gpt-4o-mini", Options{BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			_, err = client.Complete(context.Background(), "prompt")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.malformed && !errors.Is(err, llm.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Fatalf("expected %q in %v", tt.contains, err)
			}
		})
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini", Options{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient("sk", " ", Options{}); err == nil {
		t.Fatalf("expected missing model error")
	}
}
