package rule

import (
	"strings"

	"github.com/phobologic/archcheck/internal/model"
	"github.com/phobologic/archcheck/internal/predicate"
)

// Events collects the violations a condition reports while checking one
// element.
type Events struct {
	violations []Violation
}

// Violated records a violation against e.
func (ev *Events) Violated(e model.Element, msg string, details ...string) {
	ev.violations = append(ev.violations, Violation{Element: e, Message: msg, Details: details})
}

// Condition is what every selected element must satisfy. A condition may
// report any number of violations for one element.
type Condition struct {
	desc  string
	check func(e model.Element, ev *Events)
}

// NewCondition builds a custom condition.
func NewCondition(desc string, check func(e model.Element, ev *Events)) Condition {
	return Condition{desc: desc, check: check}
}

func (c Condition) Description() string { return c.desc }

// Satisfy turns a predicate into a condition. failure completes the message
// "<element> <failure>", e.g. "is not annotated with @Bean".
func Satisfy(desc, failure string, p predicate.Predicate) Condition {
	return NewCondition(desc, func(e model.Element, ev *Events) {
		if !p.Test(e) {
			ev.Violated(e, model.DescribeAt(e, e.Description()+" "+failure))
		}
	})
}

// BeStatic requires the static modifier.
func BeStatic() Condition {
	return Satisfy("be static", "does not have modifier STATIC", predicate.Static())
}

// HaveNoParameters requires methods to declare no parameters. Other element
// kinds are not affected.
func HaveNoParameters() Condition {
	return NewCondition("have no parameters", func(e model.Element, ev *Events) {
		m, ok := model.AsMethod(e)
		if ok && len(m.Parameters()) > 0 {
			ev.Violated(m, m.Description()+" should have no parameters")
		}
	})
}

// NotHaveParametersThat reports each parameter of a method that matches every
// one of the given predicates. The message names the parameter, states the
// consequence and lists why each predicate matched:
//
//	Parameter <a.Service> of method <...> will cause eager initialization as
//	it is not annotated with @Lazy and is not assignable to ...
func NotHaveParametersThat(desc, consequence string, reasons ...predicate.Predicate) Condition {
	return NewCondition(desc, func(e model.Element, ev *Events) {
		m, ok := model.AsMethod(e)
		if !ok || len(reasons) == 0 {
			return
		}
		for _, p := range m.Parameters() {
			if !matchesAll(p, reasons) {
				continue
			}
			descs := make([]string, len(reasons))
			for i, r := range reasons {
				descs[i] = r.Description()
			}
			ev.Violated(p, p.Description()+" "+consequence+" as it is "+strings.Join(descs, " and is "))
		}
	})
}

func matchesAll(e model.Element, ps []predicate.Predicate) bool {
	for _, p := range ps {
		if !p.Test(e) {
			return false
		}
	}
	return true
}
