package llm

import (
	"testing"

	"github.com/stellarlinkco/rag-eval/internal/claude"
)

func TestToClaudeRequest(t *testing.T) {
	t.Parallel()

	if _, err := toClaudeRequest(nil); err == nil {
		t.Fatalf("nil request: expected error")
	}

	req, err := toClaudeRequest(&Request{
		Messages:    []Message{{Role: "", Content: "hi"}, {Role: "assistant", Content: "yo"}},
		System:      "sys",
		MaxTokens:   10,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("toClaudeRequest: %v", err)
	}
	if req.Messages[0].Role != "user" {
		t.Fatalf("empty role: got %q", req.Messages[0].Role)
	}
	if req.Messages[1].Role != "assistant" {
		t.Fatalf("role: got %q", req.Messages[1].Role)
	}
	if req.System != "sys" || req.MaxTokens != 10 || req.Temperature != 0.2 {
		t.Fatalf("request: got %+v", req)
	}
}

func TestFromClaudeResponse(t *testing.T) {
	t.Parallel()

	if got := fromClaudeResponse(nil); got != nil {
		t.Fatalf("nil response: got %+v", got)
	}

	resp := fromClaudeResponse(&claude.Response{
		StopReason: "end_turn",
		Usage:      claude.Usage{InputTokens: 1, OutputTokens: 2},
		Content: []claude.ContentBlock{
			{Type: "text", Text: "a"},
			{Type: "other"},
		},
	})
	if Text(resp) != "a" {
		t.Fatalf("Text: got %q", Text(resp))
	}
	if resp.StopReason != "end_turn" || resp.Usage.InputTokens != 1 || resp.Usage.OutputTokens != 2 {
		t.Fatalf("response: got %+v", resp)
	}
}
