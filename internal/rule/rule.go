// Package rule evaluates architecture rules against a code graph.
package rule

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/archcheck/internal/model"
)

// Priority is carried into the report header of a failing rule.
type Priority string

const (
	Low    Priority = "LOW"
	Medium Priority = "MEDIUM"
	High   Priority = "HIGH"
)

func (p Priority) orDefault() Priority {
	if p == "" {
		return Medium
	}
	return p
}

// Violation is one finding. Element is nil for findings about the rule as a
// whole, such as an empty selection or a dependency cycle.
type Violation struct {
	Element model.Element
	Message string
	// Details are printed indented below the message.
	Details []string
}

// Result is the outcome of evaluating one rule.
type Result struct {
	Rule       string
	Priority   Priority
	Violations []Violation
}

func (r Result) HasViolation() bool { return len(r.Violations) > 0 }

// FailureReport renders the header line and one line per violation, details
// indented beneath. It returns "" when there are no violations.
func (r Result) FailureReport() string {
	if !r.HasViolation() {
		return ""
	}
	n := len(r.Violations)
	times := "times"
	if n == 1 {
		times = "time"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Architecture Violation [Priority: %s] - Rule '%s' was violated (%d %s):",
		r.Priority.orDefault(), r.Rule, n, times)
	for _, v := range r.Violations {
		b.WriteString("\n")
		b.WriteString(v.Message)
		for _, d := range v.Details {
			b.WriteString("\n  ")
			b.WriteString(d)
		}
	}
	return b.String()
}

// Rule is anything that can be evaluated against a graph.
type Rule interface {
	Description() string
	Evaluate(g *model.Graph) Result
}

// EvaluateAll evaluates rules in parallel. The graph is only read. Results
// are returned in rule order regardless of completion order.
func EvaluateAll(ctx context.Context, g *model.Graph, rules []Rule) ([]Result, error) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	results := make([]Result, len(rules))
	for i, r := range rules {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.Evaluate(g)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating rules: %w", err)
	}
	return results, nil
}
