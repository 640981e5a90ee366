package dataset

import "time"

// TestCase is one (question, answer, context) triple to be scored.
// Immutable once part of a stored dataset.
type TestCase struct {
	Input            string   `json:"input"`
	ActualOutput     string   `json:"actual_output"`
	RetrievalContext []string `json:"retrieval_context,omitempty"`
	ExpectedOutput   string   `json:"expected_output,omitempty"`
	Context          []string `json:"context,omitempty"`
}

// Dataset is an immutable, named sequence of test cases. Many runs may
// reference one dataset; it is only ever read after creation.
type Dataset struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	Content   []TestCase `json:"content"`
}
