package metrics

import (
	"context"
	"strings"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
)

// AnswerRelevancyScorer checks whether the generated answer actually
// addresses the question, independent of factual grounding.
type AnswerRelevancyScorer struct {
	cfg Config
}

func (*AnswerRelevancyScorer) Name() string {
	return "answer_relevancy"
}

func (s *AnswerRelevancyScorer) Score(ctx context.Context, cases []dataset.TestCase) ([]Score, error) {
	return scoreBatch(ctx, s.cfg, s.Name(), cases, s.buildPrompt)
}

func (s *AnswerRelevancyScorer) buildPrompt(tc *dataset.TestCase) string {
	var sb strings.Builder
	sb.WriteString("You are an expert RAG evaluator. Determine how relevant the AI answer is to the question asked.\n\n")
	sb.WriteString("## Question\n")
	sb.WriteString(tc.Input)
	sb.WriteString("\n\n## AI Answer\n")
	sb.WriteString(tc.ActualOutput)
	sb.WriteString("\n\n## Instructions\n")
	sb.WriteString("Score answer relevancy from 0.0 to 1.0.\n")
	sb.WriteString("- 0.0: The answer is off-topic or addresses a different question\n")
	sb.WriteString("- 1.0: Every statement in the answer directly addresses the question\n")
	sb.WriteString("Ignore factual correctness; only judge relevance to the question.")
	writeJudgeFooter(&sb, s.cfg)
	return sb.String()
}
