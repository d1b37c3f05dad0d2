package archrules

import (
	"fmt"

	"github.com/phobologic/archcheck/internal/config"
	"github.com/phobologic/archcheck/internal/predicate"
	"github.com/phobologic/archcheck/internal/rule"
)

var selectors = map[string]func() *rule.ElementRule{
	"classes":    rule.Types,
	"methods":    rule.Methods,
	"fields":     rule.Fields,
	"parameters": rule.Parameters,
}

// Declarative builds an element rule from its configuration. A named rule is
// described by its name; otherwise the description is generated from the
// matchers.
func Declarative(rc config.Rule) (rule.Rule, error) {
	sel, ok := selectors[rc.Elements]
	if !ok {
		return nil, fmt.Errorf("unknown elements %q", rc.Elements)
	}
	conds := conditions(rc.Should)
	if len(conds) == 0 {
		return nil, fmt.Errorf("should is empty")
	}

	r := sel()
	if ps := predicates(rc.That); len(ps) == 1 {
		r.That(ps[0])
	} else if len(ps) > 1 {
		r.That(predicate.And(ps...))
	}
	for _, c := range conds {
		r.Should(c)
	}
	if rc.Name != "" {
		r.As(rc.Name)
	}
	return r.
		AllowEmptyShould(rc.AllowEmpty).
		Because(rc.Because).
		WithPriority(rule.Priority(rc.Priority)), nil
}

func predicates(m config.Matcher) []predicate.Predicate {
	var ps []predicate.Predicate
	if m.AnnotatedWith != "" {
		ps = append(ps, predicate.Are(predicate.AnnotatedWith(m.AnnotatedWith)))
	}
	if m.NotAnnotatedWith != "" {
		ps = append(ps, predicate.Are(predicate.Not(predicate.AnnotatedWith(m.NotAnnotatedWith))))
	}
	if m.RawTypeAssignableTo != "" {
		ps = append(ps, predicate.Have(predicate.RawType(predicate.AssignableTo(m.RawTypeAssignableTo))))
	}
	if m.Static != nil {
		p := predicate.Static()
		if !*m.Static {
			p = predicate.Not(p)
		}
		ps = append(ps, predicate.Are(p))
	}
	if m.NoParameters {
		ps = append(ps, predicate.Have(predicate.NoParameters()))
	}
	if m.NameMatching != "" {
		ps = append(ps, predicate.Have(predicate.NameMatching(m.NameMatching)))
	}
	return ps
}

func conditions(m config.Matcher) []rule.Condition {
	var cs []rule.Condition
	if m.AnnotatedWith != "" {
		p := predicate.AnnotatedWith(m.AnnotatedWith)
		cs = append(cs, rule.Satisfy("be "+p.Description(), "is not "+p.Description(), p))
	}
	if m.NotAnnotatedWith != "" {
		p := predicate.AnnotatedWith(m.NotAnnotatedWith)
		cs = append(cs, rule.Satisfy("not be "+p.Description(), "is "+p.Description(), predicate.Not(p)))
	}
	if m.RawTypeAssignableTo != "" {
		p := predicate.RawType(predicate.AssignableTo(m.RawTypeAssignableTo))
		cs = append(cs, rule.Satisfy("have "+p.Description(), "does not have "+p.Description(), p))
	}
	if m.Static != nil {
		if *m.Static {
			cs = append(cs, rule.BeStatic())
		} else {
			cs = append(cs, rule.Satisfy("not be static", "has modifier STATIC", predicate.Not(predicate.Static())))
		}
	}
	if m.NoParameters {
		cs = append(cs, rule.HaveNoParameters())
	}
	if m.NameMatching != "" {
		p := predicate.NameMatching(m.NameMatching)
		cs = append(cs, rule.Satisfy("have "+p.Description(), "does not have "+p.Description(), p))
	}
	return cs
}
