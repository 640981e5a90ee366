package metrics

import (
	"context"
	"strings"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
)

// ContextualPrecisionScorer checks whether the retrieval context ranks the
// snippets relevant to the expected answer above the irrelevant ones.
type ContextualPrecisionScorer struct {
	cfg Config
}

func (*ContextualPrecisionScorer) Name() string {
	return "contextual_precision"
}

func (s *ContextualPrecisionScorer) Score(ctx context.Context, cases []dataset.TestCase) ([]Score, error) {
	return scoreBatch(ctx, s.cfg, s.Name(), cases, s.buildPrompt)
}

func (s *ContextualPrecisionScorer) buildPrompt(tc *dataset.TestCase) string {
	var sb strings.Builder
	sb.WriteString("You are an expert RAG evaluator. Judge the precision of the retrieval context: relevant snippets should appear before irrelevant ones.\n\n")
	sb.WriteString("## Question\n")
	sb.WriteString(tc.Input)
	if tc.ExpectedOutput != "" {
		sb.WriteString("\n\n## Expected Answer\n")
		sb.WriteString(tc.ExpectedOutput)
	}
	sb.WriteString("\n\n")
	writeContextSection(&sb, "Retrieval Context (in ranked order)", tc.RetrievalContext)
	sb.WriteString("\n## Instructions\n")
	sb.WriteString("Score contextual precision from 0.0 to 1.0.\n")
	sb.WriteString("- 0.0: Irrelevant snippets dominate the top of the ranking\n")
	sb.WriteString("- 1.0: All snippets needed to produce the expected answer are ranked first")
	writeJudgeFooter(&sb, s.cfg)
	return sb.String()
}
