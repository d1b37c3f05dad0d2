// Package archrules builds the configured architecture rules.
package archrules

import (
	"fmt"

	"github.com/phobologic/archcheck/internal/config"
	"github.com/phobologic/archcheck/internal/predicate"
	"github.com/phobologic/archcheck/internal/rule"
)

// FromConfig returns the enabled built-in rules followed by the declarative
// rules, in that fixed order: slice cycles, post-processor bean methods,
// factory post-processor bean methods, then cfg.Rules as listed.
func FromConfig(cfg *config.Config) ([]rule.Rule, error) {
	var rules []rule.Rule
	if cfg.Checks.SliceCycles {
		r, err := SlicesFreeOfCycles(cfg.Slices)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if cfg.Checks.PostProcessors {
		rules = append(rules, BeanPostProcessorMethods(cfg.Markers))
	}
	if cfg.Checks.FactoryPostProcessors {
		rules = append(rules, BeanFactoryPostProcessorMethods(cfg.Markers))
	}
	for i, rc := range cfg.Rules {
		r, err := Declarative(rc)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rc.Name, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func beanMethodsReturning(m config.Markers, marker string) *rule.ElementRule {
	return rule.Methods().That(predicate.And(
		predicate.Are(predicate.AnnotatedWith(m.Bean)),
		predicate.Have(predicate.RawReturnType(predicate.AssignableTo(marker))),
	))
}

// BeanPostProcessorMethods requires bean methods returning a post-processor
// to be static and to take only parameters that are resolved lazily: either
// annotated with the lazy marker or of one of the safe parameter types.
func BeanPostProcessorMethods(m config.Markers) rule.Rule {
	notLazy := predicate.Not(predicate.AnnotatedWith(m.Lazy))

	safe := make([]predicate.Predicate, len(m.SafeParameterTypes))
	for i, name := range m.SafeParameterTypes {
		safe[i] = predicate.AssignableTo(name)
	}
	notSafe := predicate.Not(predicate.Or(safe...))
	if len(safe) == 0 {
		notSafe = notSafe.As("of any type")
	}

	return beanMethodsReturning(m, m.BeanPostProcessor).
		Should(rule.NotHaveParametersThat(
			"not have parameters that will cause eager initialization",
			"will cause eager initialization",
			notLazy,
			predicate.RawType(notSafe).As(notSafe.Description()),
		)).
		AndShould(rule.BeStatic()).
		AllowEmptyShould(true)
}

// BeanFactoryPostProcessorMethods requires bean methods returning a factory
// post-processor to be static and to take no parameters at all.
func BeanFactoryPostProcessorMethods(m config.Markers) rule.Rule {
	return beanMethodsReturning(m, m.BeanFactoryPostProcessor).
		Should(rule.HaveNoParameters()).
		AndShould(rule.BeStatic()).
		AllowEmptyShould(true)
}
