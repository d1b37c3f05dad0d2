package archrules

import (
	"fmt"
	"strings"

	"github.com/phobologic/archcheck/internal/config"
	"github.com/phobologic/archcheck/internal/graph"
	"github.com/phobologic/archcheck/internal/model"
	"github.com/phobologic/archcheck/internal/rule"
)

type slicesRule struct {
	pattern    string
	key        graph.KeyFunc
	references bool
	maxDeps    int
}

// SlicesFreeOfCycles reports one violation per group of package slices that
// depend on each other cyclically.
func SlicesFreeOfCycles(c config.SliceConfig) (rule.Rule, error) {
	key, err := graph.Matching(c.Pattern, graph.ByPackage(c.Depth))
	if err != nil {
		return nil, err
	}
	maxDeps := c.MaxDependencies
	if maxDeps <= 0 {
		maxDeps = config.Default().Slices.MaxDependencies
	}
	return &slicesRule{pattern: c.Pattern, key: key, references: c.References, maxDeps: maxDeps}, nil
}

func (r *slicesRule) Description() string {
	return fmt.Sprintf("slices matching '%s' should be free of cycles", r.pattern)
}

func (r *slicesRule) Evaluate(g *model.Graph) rule.Result {
	res := rule.Result{Rule: r.Description(), Priority: rule.Medium}

	sg := graph.BuildSliceGraph(graph.Slices(g, r.key), r.references)
	for _, c := range sg.Cycles() {
		res.Violations = append(res.Violations, rule.Violation{
			Message: cycleMessage(c),
			Details: r.cycleDetails(c),
		})
	}
	return res
}

func cycleMessage(c graph.Cycle) string {
	chain := c.Chain()
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = "Slice " + s
	}
	return "Cycle detected: " + strings.Join(names, " -> ")
}

func (r *slicesRule) cycleDetails(c graph.Cycle) []string {
	var lines []string
	for i, step := range c.Steps {
		lines = append(lines, fmt.Sprintf("%d. Dependencies of Slice %s", i+1, step.From))
		deps := step.Dependencies
		for j, d := range deps {
			if j == r.maxDeps {
				lines = append(lines, fmt.Sprintf("  (%d more)", len(deps)-r.maxDeps))
				break
			}
			lines = append(lines, "  - "+d.Description)
		}
	}
	return lines
}
