package claude

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestComplete_DefaultModelAndHeaders(t *testing.T) {
	t.Parallel()

	reqCh := make(chan map[string]any, 1)
	hdrCh := make(chan http.Header, 1)
	pathCh := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			defer r.Body.Close()
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		var gotReq map[string]any
		if err := json.Unmarshal(b, &gotReq); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		reqCh <- gotReq
		hdrCh <- r.Header.Clone()
		pathCh <- r.URL.Path

		w.Header().Set("content-type", "application/json")
		model, _ := gotReq["model"].(string)
		_ = json.NewEncoder(w).Encode(messageResponse(
			"msg_1",
			model,
			"end_turn",
			[]map[string]any{textBlock("ok")},
			1,
			2,
		))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL+"/v1/"))
	resp, err := c.Complete(context.Background(), &Request{
		Messages:  []Message{{Role: "user", Content: "hi"}},
		MaxTokens: 12,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp == nil {
		t.Fatalf("Complete: nil response")
	}
	if resp.Content[0].Text != "ok" {
		t.Fatalf("Content[0].Text: got %q want %q", resp.Content[0].Text, "ok")
	}

	gotReq := <-reqCh
	gotHdr := <-hdrCh
	gotPath := <-pathCh

	if gotPath != "/v1/messages" {
		t.Fatalf("path: got %q want %q", gotPath, "/v1/messages")
	}
	if gotReq["model"] != defaultModel {
		t.Fatalf("model: got %v want %q", gotReq["model"], defaultModel)
	}
	if gotReq["max_tokens"] != float64(12) {
		t.Fatalf("max_tokens: got %v want %d", gotReq["max_tokens"], 12)
	}
	if gotHdr.Get("x-api-key") != "test-key" {
		t.Fatalf("x-api-key: got %q want %q", gotHdr.Get("x-api-key"), "test-key")
	}
	if gotHdr.Get("anthropic-version") != apiVersionHeader {
		t.Fatalf("anthropic-version: got %q want %q", gotHdr.Get("anthropic-version"), apiVersionHeader)
	}
}

func TestComplete_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.Body.Close()
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "bad")
	}))
	t.Cleanup(srv.Close)

	c := NewClient("k", WithBaseURL(srv.URL+"/v1"))
	_, err := c.Complete(context.Background(), &Request{
		Messages:  []Message{{Role: "user", Content: "hi"}},
		MaxTokens: 1,
	})
	if err == nil {
		t.Fatalf("Complete: expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type: got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode: got %d want %d", apiErr.StatusCode, http.StatusBadRequest)
	}
	if apiErr.Type != "invalid_request_error" || apiErr.Message != "bad" {
		t.Fatalf("APIError: got %+v", apiErr)
	}
}

func TestComplete_RetryOn5xx(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.Body.Close()
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			writeAPIError(w, http.StatusInternalServerError, "overloaded_error", "server")
			return
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse(
			"msg_retry",
			defaultModel,
			"end_turn",
			[]map[string]any{textBlock("ok")},
			1,
			1,
		))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("k", WithBaseURL(srv.URL+"/v1"), WithRetry(3))
	c.retryBase = time.Millisecond
	resp, err := c.Complete(context.Background(), &Request{
		Messages:  []Message{{Role: "user", Content: "hi"}},
		MaxTokens: 1,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp == nil {
		t.Fatalf("Complete: nil response")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls: got %d want %d", got, 3)
	}
}

func TestComplete_NoRetryOn4xx(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.Body.Close()
		atomic.AddInt32(&calls, 1)
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "bad")
	}))
	t.Cleanup(srv.Close)

	c := NewClient("k", WithBaseURL(srv.URL+"/v1"), WithRetry(3))
	c.retryBase = time.Millisecond
	_, err := c.Complete(context.Background(), &Request{
		Messages:  []Message{{Role: "user", Content: "hi"}},
		MaxTokens: 1,
	})
	if err == nil {
		t.Fatalf("Complete: expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: got %d want %d", got, 1)
	}
}

func TestComplete_NilArgs(t *testing.T) {
	t.Parallel()

	if _, err := (*Client)(nil).Complete(context.Background(), &Request{}); err == nil {
		t.Fatalf("nil client: expected error")
	}

	c := NewClient("k")
	if _, err := c.Complete(nil, &Request{}); err == nil { //nolint:staticcheck
		t.Fatalf("nil context: expected error")
	}
	if _, err := c.Complete(context.Background(), nil); err == nil {
		t.Fatalf("nil request: expected error")
	}
}

func messageResponse(id, model, stopReason string, content []map[string]any, inputTokens, outputTokens int) map[string]any {
	return map[string]any{
		"id":            id,
		"type":          "message",
		"role":          "assistant",
		"content":       content,
		"model":         model,
		"stop_reason":   stopReason,
		"stop_sequence": "",
		"usage": map[string]any{
			"input_tokens":                inputTokens,
			"output_tokens":               outputTokens,
			"cache_creation":              map[string]any{"ephemeral_1h_input_tokens": 0, "ephemeral_5m_input_tokens": 0},
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
			"server_tool_use":             map[string]any{"web_search_requests": 0},
			"service_tier":                "standard",
		},
	}
}

func textBlock(text string) map[string]any {
	return map[string]any{
		"type": "text",
		"text": text,
	}
}

func writeAPIError(w http.ResponseWriter, status int, typ, message string) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    typ,
			"message": message,
		},
	})
}

func TestAPIError_ErrorFormatting(t *testing.T) {
	t.Parallel()

	if got := (*APIError)(nil).Error(); got != "claude: api error <nil>" {
		t.Fatalf("Error(nil): got %q", got)
	}

	e := &APIError{Status: "400 Bad Request", Type: "invalid", Message: "bad"}
	if got := e.Error(); !strings.Contains(got, "invalid: bad") {
		t.Fatalf("Error(): got %q", got)
	}

	e = &APIError{Status: "400 Bad Request", Body: []byte(" body ")}
	if got := e.Error(); !strings.Contains(got, ": body") {
		t.Fatalf("Error(): got %q", got)
	}
}

func TestEnsureAuth_EnvFallbacks(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")

	c := &Client{}
	if err := c.ensureAuth(); err == nil {
		t.Fatalf("ensureAuth: expected error")
	}

	t.Setenv("ANTHROPIC_API_KEY", "k")
	c = &Client{}
	if err := c.ensureAuth(); err != nil {
		t.Fatalf("ensureAuth(api key): %v", err)
	}
	if c.apiKey != "k" {
		t.Fatalf("apiKey: got %q want %q", c.apiKey, "k")
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "tok")
	c = &Client{}
	if err := c.ensureAuth(); err != nil {
		t.Fatalf("ensureAuth(auth token): %v", err)
	}
	if c.authToken != "tok" {
		t.Fatalf("authToken: got %q want %q", c.authToken, "tok")
	}
}

func TestRetryHelpers(t *testing.T) {
	t.Parallel()

	if got := sdkBaseURL("http://example.com/v1/"); got != "http://example.com" {
		t.Fatalf("sdkBaseURL: got %q want %q", got, "http://example.com")
	}
	if got := clampRetryMax(-1); got != 0 {
		t.Fatalf("clampRetryMax(-1): got %d", got)
	}
	if got := clampRetryMax(10); got != maxRetryMax {
		t.Fatalf("clampRetryMax(10): got %d want %d", got, maxRetryMax)
	}
	if got := retryBackoff(time.Second, 2); got != 4*time.Second {
		t.Fatalf("retryBackoff: got %v want %v", got, 4*time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Minute); err == nil {
		t.Fatalf("sleepWithContext: expected context error")
	}
}
