package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/go-multierror"

	"jsacademy/backend/internal/sandbox"
)

// Executor runs a function from learner source; *sandbox.Runner implements it.
type Executor interface {
	Call(ctx context.Context, source, fn string, args []any) (*sandbox.Result, error)
}

// TestResult is the outcome of one test case.
type TestResult struct {
	Input    []any             `json:"input"`
	Expected any               `json:"expected"`
	Actual   any               `json:"actual,omitempty"`
	Passed   bool              `json:"passed"`
	Error    string            `json:"error,omitempty"`
	Logs     []sandbox.LogLine `json:"logs,omitempty"`
}

// Report is the graded outcome of one submission.
type Report struct {
	ChallengeID string        `json:"challengeId"`
	Passed      bool          `json:"passed"`
	PassedCount int           `json:"passedCount"`
	Total       int           `json:"total"`
	Results     []TestResult  `json:"results"`
	Duration    time.Duration `json:"duration"`
}

// Evaluator grades submissions by calling the challenge function once per test case.
type Evaluator struct {
	exec Executor
}

// NewEvaluator returns an Evaluator running code through exec.
func NewEvaluator(exec Executor) *Evaluator {
	return &Evaluator{exec: exec}
}

const skippedAfterTimeout = "skipped: a previous test timed out"

// Evaluate runs code against every test case of ch. Failing tests are reported, not returned as errors.
// It returns an error only when the code cannot be run at all (too large, context done).
func (e *Evaluator) Evaluate(ctx context.Context, ch *Challenge, code string) (*Report, error) {
	if ch == nil {
		return nil, errors.New("challenge: nil challenge")
	}
	start := time.Now()
	rep := &Report{ChallengeID: ch.ID, Total: len(ch.Tests), Results: make([]TestResult, 0, len(ch.Tests))}
	timedOut := false
	for _, tc := range ch.Tests {
		tr := TestResult{Input: tc.Input, Expected: tc.Expected}
		if timedOut {
			tr.Error = skippedAfterTimeout
			rep.Results = append(rep.Results, tr)
			continue
		}
		res, err := e.exec.Call(ctx, code, ch.Function, tc.Input)
		switch {
		case errors.Is(err, sandbox.ErrTimeout):
			timedOut = true
			tr.Error = "execution timed out"
			if res != nil {
				tr.Logs = res.Logs
			}
		case err != nil:
			return nil, fmt.Errorf("challenge %s: %w", ch.ID, err)
		default:
			tr.Logs = res.Logs
			if res.Error != "" {
				tr.Error = res.Error
				break
			}
			tr.Actual = decodeJSON(res.JSON)
			tr.Passed = res.JSON != "" && Equal(tr.Actual, tc.Expected)
		}
		if tr.Passed {
			rep.PassedCount++
		}
		rep.Results = append(rep.Results, tr)
	}
	rep.Passed = rep.Total > 0 && rep.PassedCount == rep.Total
	rep.Duration = time.Since(start)
	return rep, nil
}

// VerifySolutions evaluates every reference solution in cat and reports those that fail their own tests.
func (e *Evaluator) VerifySolutions(ctx context.Context, cat *Catalog) error {
	var problems *multierror.Error
	for _, ch := range cat.All() {
		if ch.Solution == "" {
			problems = multierror.Append(problems, fmt.Errorf("challenge %q: no reference solution", ch.ID))
			continue
		}
		rep, err := e.Evaluate(ctx, ch, ch.Solution)
		if err != nil {
			return err
		}
		if !rep.Passed {
			problems = multierror.Append(problems, fmt.Errorf("challenge %q: solution passes %d/%d tests", ch.ID, rep.PassedCount, rep.Total))
		}
	}
	return problems.ErrorOrNil()
}

func decodeJSON(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Equal compares two values after a JSON round trip, so 5 and 5.0 match and object key order is ignored.
func Equal(actual, expected any) bool {
	a, err := normalize(actual)
	if err != nil {
		return false
	}
	b, err := normalize(expected)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
