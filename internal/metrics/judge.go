package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
	"github.com/stellarlinkco/rag-eval/internal/llm"
)

type judgeOutput struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// scoreBatch runs one judge-model call per case and collects verdicts in
// submission order. The first failing case aborts the batch.
func scoreBatch(
	ctx context.Context,
	cfg Config,
	metricName string,
	cases []dataset.TestCase,
	buildPrompt func(tc *dataset.TestCase) string,
) ([]Score, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%s: nil llm provider", metricName)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%s: nil context", metricName)
	}

	out := make([]Score, 0, len(cases))
	for i := range cases {
		verdict, err := judgeCase(ctx, cfg, metricName, buildPrompt(&cases[i]))
		if err != nil {
			return nil, fmt.Errorf("%s: case %d: %w", metricName, i, err)
		}
		out = append(out, verdict)
	}
	return out, nil
}

func judgeCase(ctx context.Context, cfg Config, metricName, prompt string) (Score, error) {
	callCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	resp, err := cfg.Provider.Complete(callCtx, &llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: 512,
	})
	if err != nil {
		return Score{}, fmt.Errorf("llm: %w", err)
	}
	if resp == nil {
		return Score{}, errors.New("nil llm response")
	}

	raw := strings.TrimSpace(llm.Text(resp))
	var out judgeOutput
	if err := llm.ParseJSON(raw, &out); err != nil {
		return Score{}, fmt.Errorf("invalid judge output: %w", err)
	}

	return Score{
		Score:  clamp01(out.Score),
		Reason: strings.TrimSpace(out.Reason),
	}, nil
}

// writeJudgeFooter appends the output-format contract shared by all judges,
// including the injected reason language when one is configured.
func writeJudgeFooter(sb *strings.Builder, cfg Config) {
	sb.WriteString("\n\n## Output\n")
	sb.WriteString("Output ONLY valid JSON in this exact format:\n")
	sb.WriteString(`{"score": <number 0.0-1.0>, "reason": "<brief explanation>"}`)
	if lang := strings.TrimSpace(cfg.ReasonLanguage); lang != "" {
		sb.WriteString("\nIMPORTANT: the \"reason\" value MUST be written in ")
		sb.WriteString(lang)
		sb.WriteString(".")
	}
}

func writeContextSection(sb *strings.Builder, heading string, snippets []string) {
	sb.WriteString("## ")
	sb.WriteString(heading)
	sb.WriteString("\n")
	if len(snippets) == 0 {
		sb.WriteString("(none provided)\n")
		return
	}
	for i, s := range snippets {
		fmt.Fprintf(sb, "%d. %s\n", i+1, s)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
