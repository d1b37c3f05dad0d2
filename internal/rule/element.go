package rule

import (
	"fmt"
	"strings"

	"github.com/phobologic/archcheck/internal/model"
	"github.com/phobologic/archcheck/internal/predicate"
)

// Selector enumerates the candidate elements of a rule in graph order.
type Selector struct {
	noun  string
	elems func(g *model.Graph) []model.Element
}

func Types() *ElementRule {
	return newElementRule("classes", func(g *model.Graph) []model.Element {
		return elements(g.Types())
	})
}

func Methods() *ElementRule {
	return newElementRule("methods", func(g *model.Graph) []model.Element {
		return elements(g.Methods())
	})
}

func Fields() *ElementRule {
	return newElementRule("fields", func(g *model.Graph) []model.Element {
		return elements(g.Fields())
	})
}

func Parameters() *ElementRule {
	return newElementRule("parameters", func(g *model.Graph) []model.Element {
		return elements(g.Parameters())
	})
}

func elements[E model.Element](in []E) []model.Element {
	out := make([]model.Element, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

// ElementRule reads as "<elements> that <predicate> should <condition> and
// should <condition>". Every condition is applied to every selected element.
type ElementRule struct {
	sel        Selector
	that       predicate.Predicate
	hasThat    bool
	conds      []Condition
	allowEmpty bool
	because    string
	priority   Priority
	desc       string
}

func newElementRule(noun string, elems func(*model.Graph) []model.Element) *ElementRule {
	return &ElementRule{sel: Selector{noun: noun, elems: elems}, priority: Medium}
}

// That restricts the selection. Calling it again narrows further.
func (r *ElementRule) That(p predicate.Predicate) *ElementRule {
	if r.hasThat {
		p = predicate.And(r.that, p)
	}
	r.that = p
	r.hasThat = true
	return r
}

// Should adds a condition.
func (r *ElementRule) Should(c Condition) *ElementRule {
	r.conds = append(r.conds, c)
	return r
}

// AndShould adds a further condition, evaluated independently of the others.
func (r *ElementRule) AndShould(c Condition) *ElementRule {
	return r.Should(c)
}

// AllowEmptyShould controls whether a rule that selects nothing passes.
// When false an empty selection is reported as one violation.
func (r *ElementRule) AllowEmptyShould(allow bool) *ElementRule {
	r.allowEmpty = allow
	return r
}

// Because appends a reason to the description.
func (r *ElementRule) Because(reason string) *ElementRule {
	r.because = reason
	return r
}

func (r *ElementRule) WithPriority(p Priority) *ElementRule {
	r.priority = p.orDefault()
	return r
}

// As replaces the generated description.
func (r *ElementRule) As(desc string) *ElementRule {
	r.desc = desc
	return r
}

func (r *ElementRule) Description() string {
	desc := r.desc
	if desc == "" {
		var b strings.Builder
		b.WriteString(r.sel.noun)
		if r.hasThat {
			b.WriteString(" that ")
			b.WriteString(r.that.Description())
		}
		for i, c := range r.conds {
			if i == 0 {
				b.WriteString(" should ")
			} else {
				b.WriteString(" and should ")
			}
			b.WriteString(c.Description())
		}
		desc = b.String()
	}
	if r.because != "" {
		desc += ", because " + r.because
	}
	return desc
}

func (r *ElementRule) Priority() Priority { return r.priority }

// Evaluate selects elements in graph order, then applies each condition to
// each element. Violations are ordered by element, then by condition.
func (r *ElementRule) Evaluate(g *model.Graph) Result {
	res := Result{Rule: r.Description(), Priority: r.priority}

	var selected []model.Element
	for _, e := range r.sel.elems(g) {
		if !r.hasThat || r.that.Test(e) {
			selected = append(selected, e)
		}
	}

	if len(selected) == 0 {
		if !r.allowEmpty {
			res.Violations = []Violation{{Message: emptyMessage(res.Rule, r.sel.noun)}}
		}
		return res
	}

	var ev Events
	for _, e := range selected {
		for _, c := range r.conds {
			c.check(e, &ev)
		}
	}
	res.Violations = ev.violations
	return res
}

func emptyMessage(desc, noun string) string {
	return fmt.Sprintf("Rule '%s' failed to check any %s. This means either that no %s were imported, "+
		"or that none of them matched the selection. Allow an empty selection to evaluate the rule "+
		"without checking any %s.", desc, noun, noun, noun)
}
