package metrics

import (
	"context"
	"strings"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
)

// FaithfulnessScorer checks whether the generated answer is strictly
// grounded in the retrieval context.
type FaithfulnessScorer struct {
	cfg Config
}

func (*FaithfulnessScorer) Name() string {
	return "faithfulness"
}

func (s *FaithfulnessScorer) Score(ctx context.Context, cases []dataset.TestCase) ([]Score, error) {
	return scoreBatch(ctx, s.cfg, s.Name(), cases, s.buildPrompt)
}

func (s *FaithfulnessScorer) buildPrompt(tc *dataset.TestCase) string {
	var sb strings.Builder
	sb.WriteString("You are an expert RAG evaluator. Determine whether the AI answer is strictly grounded in the provided retrieval context.\n\n")
	writeContextSection(&sb, "Retrieval Context", tc.RetrievalContext)
	sb.WriteString("\n## Question\n")
	sb.WriteString(tc.Input)
	sb.WriteString("\n\n## AI Answer\n")
	sb.WriteString(tc.ActualOutput)
	sb.WriteString("\n\n## Instructions\n")
	sb.WriteString("Score faithfulness from 0.0 to 1.0.\n")
	sb.WriteString("- 0.0: The answer is mostly unsupported / hallucinatory\n")
	sb.WriteString("- 1.0: Every factual claim is supported by the context; no new facts are introduced")
	writeJudgeFooter(&sb, s.cfg)
	return sb.String()
}
