package metrics

import (
	"context"
	"time"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
	"github.com/stellarlinkco/rag-eval/internal/llm"
)

// Score is one scorer verdict for one test case. Scores are in [0, 1];
// Reason is an optional human-readable justification.
type Score struct {
	Score  float64
	Reason string
}

// Scorer grades a whole batch of test cases in one invocation and returns
// one Score per case, in submission order.
type Scorer interface {
	Name() string
	Score(ctx context.Context, cases []dataset.TestCase) ([]Score, error)
}

// Config carries shared scorer dependencies. ReasonLanguage is injected
// per registry instead of mutating any shared template state: when set,
// every judge prompt instructs the model to justify in that language.
type Config struct {
	Provider       llm.Provider
	ReasonLanguage string
	Timeout        time.Duration // per judge-model call; 0 disables
}

// Registry is the closed mapping of supported metric names to scorers.
type Registry struct {
	scorers map[string]Scorer
	order   []string
}

// NewRegistry builds the registry of supported metrics.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{scorers: make(map[string]Scorer)}
	r.register(&AnswerRelevancyScorer{cfg: cfg})
	r.register(&FaithfulnessScorer{cfg: cfg})
	r.register(&ContextualPrecisionScorer{cfg: cfg})
	return r
}

func (r *Registry) register(s Scorer) {
	if r == nil || s == nil {
		return
	}
	name := s.Name()
	if _, ok := r.scorers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.scorers[name] = s
}

// Get returns a named scorer if present.
func (r *Registry) Get(name string) (Scorer, bool) {
	if r == nil || r.scorers == nil {
		return nil, false
	}
	s, ok := r.scorers[name]
	return s, ok
}

// Names lists the supported metric names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Resolve maps requested metric names to scorers, preserving request
// order (duplicates included). Unknown names are skipped, not errored:
// permissive metric lists let a caller request a superset without failing.
func (r *Registry) Resolve(names []string) []Scorer {
	if r == nil {
		return nil
	}
	out := make([]Scorer, 0, len(names))
	for _, name := range names {
		if s, ok := r.scorers[name]; ok {
			out = append(out, s)
		}
	}
	return out
}
