// Package predicate provides described, composable predicates over code
// graph elements. A predicate is total: it returns false for element kinds
// it does not apply to and never panics.
package predicate

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/archcheck/internal/model"
)

// Predicate is a pure boolean function over an element plus the description
// used in rule and violation messages.
type Predicate struct {
	desc string
	fn   func(model.Element) bool
}

// New returns a predicate with the given description.
func New(desc string, fn func(model.Element) bool) Predicate {
	return Predicate{desc: desc, fn: fn}
}

func (p Predicate) Description() string { return p.desc }

// Test evaluates the predicate. The zero Predicate matches nothing.
func (p Predicate) Test(e model.Element) bool {
	if p.fn == nil || e == nil {
		return false
	}
	return p.fn(e)
}

// As returns p with a different description.
func (p Predicate) As(desc string) Predicate {
	return Predicate{desc: desc, fn: p.fn}
}

func (p Predicate) And(q Predicate) Predicate { return And(p, q) }
func (p Predicate) Or(q Predicate) Predicate  { return Or(p, q) }

// And matches when every predicate matches. With no arguments it matches
// everything.
func And(ps ...Predicate) Predicate {
	return Predicate{
		desc: join(ps, " and "),
		fn: func(e model.Element) bool {
			for _, p := range ps {
				if !p.Test(e) {
					return false
				}
			}
			return true
		},
	}
}

// Or matches when any predicate matches.
func Or(ps ...Predicate) Predicate {
	return Predicate{
		desc: join(ps, " or "),
		fn: func(e model.Element) bool {
			for _, p := range ps {
				if p.Test(e) {
					return true
				}
			}
			return false
		},
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return Predicate{
		desc: "not " + p.desc,
		fn:   func(e model.Element) bool { return !p.Test(e) },
	}
}

// Are and Have only adjust the description so that rules read naturally:
// "methods that are annotated with @Bean and have raw return type ...".
func Are(p Predicate) Predicate  { return p.As("are " + p.desc) }
func Have(p Predicate) Predicate { return p.As("have " + p.desc) }

func join(ps []Predicate, sep string) string {
	descs := make([]string, len(ps))
	for i, p := range ps {
		descs[i] = p.desc
	}
	return strings.Join(descs, sep)
}

// AnnotatedWith matches elements carrying an annotation of the named type.
func AnnotatedWith(name string) Predicate {
	return Predicate{
		desc: "annotated with @" + simpleName(name),
		fn:   func(e model.Element) bool { return model.IsAnnotatedWith(e, name) },
	}
}

// assignableCacheSize bounds the per-predicate memo of assignability results.
const assignableCacheSize = 4096

// AssignableTo matches types that are the named type or transitively extend
// or implement it. Other element kinds never match; combine with RawType or
// RawReturnType to test their declared types.
func AssignableTo(name string) Predicate {
	// Only fails for a non-positive size.
	memo, _ := lru.New[*model.Type, bool](assignableCacheSize)
	return Predicate{
		desc: "assignable to " + name,
		fn: func(e model.Element) bool {
			t, ok := model.AsType(e)
			if !ok {
				return false
			}
			if v, ok := memo.Get(t); ok {
				return v
			}
			v := assignable(t, name)
			memo.Add(t, v)
			return v
		},
	}
}

// assignable walks super type and interface edges. The visited set bounds
// the walk on malformed graphs where inheritance is cyclic.
func assignable(t *model.Type, name string) bool {
	visited := make(map[*model.Type]struct{})
	stack := []*model.Type{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		if cur.Name() == name {
			return true
		}
		stack = append(stack, cur.Super())
		stack = append(stack, cur.Interfaces()...)
	}
	return false
}

// Static matches elements declared static.
func Static() Predicate {
	return Modifier(model.Static).As("static")
}

// Modifier matches elements that have every modifier in m.
func Modifier(m model.Modifiers) Predicate {
	return Predicate{
		desc: "modifier " + m.String(),
		fn:   func(e model.Element) bool { return e.Modifiers().Has(m) },
	}
}

// NoParameters matches methods and constructors without parameters.
func NoParameters() Predicate {
	return Predicate{
		desc: "no parameters",
		fn: func(e model.Element) bool {
			m, ok := model.AsMethod(e)
			return ok && len(m.Parameters()) == 0
		},
	}
}

// RawReturnType applies p to a method's declared return type.
func RawReturnType(p Predicate) Predicate {
	return Predicate{
		desc: "raw return type " + p.desc,
		fn: func(e model.Element) bool {
			m, ok := model.AsMethod(e)
			if !ok || m.IsConstructor() || m.RawType() == nil {
				return false
			}
			return p.Test(m.RawType())
		},
	}
}

// RawType applies p to an element's raw type: the type itself, a method's
// return type, or a parameter's or field's declared type.
func RawType(p Predicate) Predicate {
	return Predicate{
		desc: "raw type " + p.desc,
		fn: func(e model.Element) bool {
			t := e.RawType()
			if t == nil {
				return false
			}
			return p.Test(t)
		},
	}
}

// Kind matches elements of kind k.
func Kind(k model.Kind) Predicate {
	return Predicate{
		desc: k.String() + "s",
		fn:   func(e model.Element) bool { return e.Kind() == k },
	}
}

// NameMatching matches an element's qualified name against a doublestar
// pattern in which dots separate segments, e.g. "com.example.**.*Config".
// Methods are matched by owner and name, without the parameter list.
func NameMatching(pattern string) Predicate {
	glob := dotted(pattern)
	return Predicate{
		desc: "name matching '" + pattern + "'",
		fn: func(e model.Element) bool {
			ok, err := doublestar.Match(glob, dotted(qualifiedName(e)))
			return err == nil && ok
		},
	}
}

func dotted(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}

func qualifiedName(e model.Element) string {
	switch v := e.(type) {
	case *model.Method:
		return v.Owner().Name() + "." + v.Name()
	case *model.Parameter:
		return v.Method().Owner().Name() + "." + v.Method().Name() + "." + v.Name()
	}
	return e.FullName()
}

func simpleName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
