package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
	"github.com/stellarlinkco/rag-eval/internal/llm"
)

// rawPrefixLimit bounds how much of a bad model response is kept for diagnostics.
const rawPrefixLimit = 512

const defaultNumQuestions = 5

// GenerationFailedError reports a synthesis attempt that produced no usable
// test cases. RawPrefix holds a bounded prefix of the model response.
type GenerationFailedError struct {
	Err       error
	RawPrefix string
}

func (e *GenerationFailedError) Error() string {
	if e == nil {
		return "generator: generation failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("generator: generation failed: %v", e.Err)
	}
	return "generator: generation failed"
}

func (e *GenerationFailedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Generator synthesizes Q&A test cases from source text using an LLM.
type Generator struct {
	Provider llm.Provider
}

// GenerateRequest describes one synthesis call.
type GenerateRequest struct {
	Text         string // source text the questions must be grounded in
	NumQuestions int    // bounded to 1..50 by the caller; <=0 defaults to 5
}

// GenerateResult contains validated test cases and any per-element rejects.
type GenerateResult struct {
	Cases    []dataset.TestCase
	Rejected []dataset.RejectedElement
}

const generatePrompt = `You are an expert at creating synthetic datasets for RAG evaluation.

Given the following text context, generate {{NUM_QUESTIONS}} diverse Q&A pairs.
Test different aspects: factual retrieval, reasoning, and synthesis.

CONTEXT:
{{TEXT}}

Return output as a JSON list. Each object must have:
- "input": The question.
- "expected_output": The correct answer based ONLY on the context.
- "context": A list containing the specific text snippet used to answer.

Example:
[
    {
        "input": "What is ...?",
        "expected_output": "It is ...",
        "context": ["relevant sentence..."]
    }
]

IMPORTANT: Return ONLY valid JSON, no markdown code blocks or extra text.`

// Generate produces validated test cases grounded in req.Text. It performs
// a single model call with no retry; a malformed response surfaces as a
// GenerationFailedError for the caller to handle. Nothing is persisted.
func (g *Generator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if g == nil || g.Provider == nil {
		return nil, errors.New("generator: nil provider")
	}
	if req == nil {
		return nil, errors.New("generator: nil request")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("generator: empty source text")
	}

	numQuestions := req.NumQuestions
	if numQuestions <= 0 {
		numQuestions = defaultNumQuestions
	}

	prompt := strings.ReplaceAll(generatePrompt, "{{NUM_QUESTIONS}}", fmt.Sprintf("%d", numQuestions))
	prompt = strings.ReplaceAll(prompt, "{{TEXT}}", req.Text)

	resp, err := g.Provider.Complete(ctx, &llm.Request{
		System:    "You are a helpful data generator assistant. Return only JSON.",
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: 16384,
	})
	if err != nil {
		return nil, &GenerationFailedError{Err: fmt.Errorf("model call: %w", err)}
	}

	raw := llm.Text(resp)
	outcome, err := dataset.ParseTestCases(raw, dataset.ParseOptions{
		AnswerField:     dataset.AnswerExpectedOutput,
		FallbackContext: req.Text,
	})
	if err != nil {
		return nil, &GenerationFailedError{Err: err, RawPrefix: rawPrefix(raw)}
	}
	if len(outcome.Cases) == 0 {
		return nil, &GenerationFailedError{
			Err:       fmt.Errorf("no valid test cases in response (%d rejected)", len(outcome.Rejected)),
			RawPrefix: rawPrefix(raw),
		}
	}

	return &GenerateResult{
		Cases:    outcome.Cases,
		Rejected: outcome.Rejected,
	}, nil
}

func rawPrefix(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= rawPrefixLimit {
		return raw
	}
	return raw[:rawPrefixLimit]
}
