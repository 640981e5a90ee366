package dataset

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Malformed-output causes.
const (
	CauseSyntax      = "syntax"
	CauseNoListFound = "no_list_found"
	CauseNotAList    = "not_a_list"
)

// MalformedOutputError reports a model response that could not be turned
// into a list of test cases at all. Per-element problems are reported
// through ParseOutcome.Rejected instead.
type MalformedOutputError struct {
	Cause string
	Err   error
}

func (e *MalformedOutputError) Error() string {
	if e == nil {
		return "dataset: malformed output"
	}
	if e.Err != nil {
		return fmt.Sprintf("dataset: malformed output (%s): %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("dataset: malformed output (%s)", e.Cause)
}

func (e *MalformedOutputError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AnswerField selects which field a parsed element must carry as its answer.
type AnswerField string

const (
	// AnswerExpectedOutput is used when parsing synthesized Q&A pairs:
	// the answer is a golden reference, the generated output stays empty.
	AnswerExpectedOutput AnswerField = "expected_output"
	// AnswerActualOutput is used when parsing already-answered triples.
	AnswerActualOutput AnswerField = "actual_output"
)

// ParseOptions controls required fields and context defaulting.
type ParseOptions struct {
	AnswerField AnswerField
	// FallbackContext, when non-empty, becomes the single-element context
	// list for elements that omitted their grounding, so every produced
	// case stays queryable.
	FallbackContext string
}

// RejectedElement records one element dropped during validation.
type RejectedElement struct {
	Index  int
	Reason string
}

// ParseOutcome is the result of validating one model response.
// Validation is partial-success: well-formed elements survive even when
// siblings are rejected.
type ParseOutcome struct {
	Cases    []TestCase
	Rejected []RejectedElement
}

type rawElement struct {
	Input            string   `json:"input"`
	Output           string   `json:"output"`
	ActualOutput     string   `json:"actual_output"`
	ExpectedOutput   string   `json:"expected_output"`
	RetrievalContext []string `json:"retrieval_context"`
	Context          []string `json:"context"`
}

// ParseTestCases validates raw judge-model text into test cases.
// The payload may be a top-level JSON array or an object wrapping the
// array under an arbitrary key (judge models routinely envelope their
// answers); anything else is a MalformedOutputError.
func ParseTestCases(raw string, opts ParseOptions) (*ParseOutcome, error) {
	if opts.AnswerField == "" {
		opts.AnswerField = AnswerExpectedOutput
	}

	payload := stripFences(raw)
	if payload == "" {
		return nil, &MalformedOutputError{Cause: CauseSyntax, Err: fmt.Errorf("empty response")}
	}

	var value json.RawMessage
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil, &MalformedOutputError{Cause: CauseSyntax, Err: err}
	}

	list, err := candidateList(value)
	if err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(list, &elements); err != nil {
		return nil, &MalformedOutputError{Cause: CauseNotAList, Err: err}
	}

	out := &ParseOutcome{}
	for i, elem := range elements {
		var re rawElement
		if err := json.Unmarshal(elem, &re); err != nil {
			out.Rejected = append(out.Rejected, RejectedElement{Index: i, Reason: fmt.Sprintf("not an object: %v", err)})
			continue
		}

		tc, reason := buildCase(&re, opts)
		if reason != "" {
			out.Rejected = append(out.Rejected, RejectedElement{Index: i, Reason: reason})
			continue
		}
		out.Cases = append(out.Cases, tc)
	}

	return out, nil
}

// candidateList returns the JSON array in value. An object is searched in
// document order for the first value that is itself an array.
func candidateList(value json.RawMessage) (json.RawMessage, error) {
	switch firstByte(value) {
	case '[':
		return value, nil
	case '{':
	default:
		return nil, &MalformedOutputError{Cause: CauseNotAList, Err: fmt.Errorf("payload is not a list or object")}
	}

	dec := json.NewDecoder(strings.NewReader(string(value)))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, &MalformedOutputError{Cause: CauseSyntax, Err: err}
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil, &MalformedOutputError{Cause: CauseSyntax, Err: err}
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, &MalformedOutputError{Cause: CauseSyntax, Err: err}
		}
		if firstByte(v) == '[' {
			return v, nil
		}
	}

	return nil, &MalformedOutputError{Cause: CauseNoListFound, Err: fmt.Errorf("object has no list value")}
}

func buildCase(re *rawElement, opts ParseOptions) (TestCase, string) {
	input := strings.TrimSpace(re.Input)
	if input == "" {
		return TestCase{}, "missing input"
	}

	answer := strings.TrimSpace(re.ExpectedOutput)
	if opts.AnswerField == AnswerActualOutput {
		answer = strings.TrimSpace(re.ActualOutput)
	}
	if answer == "" {
		answer = strings.TrimSpace(re.Output)
	}
	if answer == "" {
		return TestCase{}, fmt.Sprintf("missing %s", opts.AnswerField)
	}

	tc := TestCase{
		Input:            input,
		RetrievalContext: re.RetrievalContext,
		Context:          re.Context,
	}
	switch opts.AnswerField {
	case AnswerActualOutput:
		tc.ActualOutput = answer
	default:
		tc.ExpectedOutput = answer
	}

	if len(tc.RetrievalContext) == 0 {
		if len(tc.Context) > 0 {
			tc.RetrievalContext = tc.Context
		} else if opts.FallbackContext != "" {
			tc.RetrievalContext = []string{opts.FallbackContext}
		}
	}
	if len(tc.Context) == 0 && opts.FallbackContext != "" {
		tc.Context = []string{opts.FallbackContext}
	}

	return tc, ""
}

func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	if strings.HasPrefix(s, "json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "json"))
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	return s
}
