package model

// Dependency is a directed edge from an element of one type to another type.
type Dependency struct {
	Origin      Element
	Target      *Type
	Description string
}

// Dependencies lists what t depends on: super type, interfaces, field types,
// parameter and return types of constructors and methods and, when
// withReferences is set, the class constants of its compiled code. Order
// follows declaration order. Array types contribute their component type;
// primitives and self references are skipped.
func (t *Type) Dependencies(withReferences bool) []Dependency {
	var deps []Dependency
	add := func(origin Element, target *Type, desc string) {
		if target == nil {
			return
		}
		target = target.Base()
		if target.primitive || target == t {
			return
		}
		deps = append(deps, Dependency{
			Origin:      origin,
			Target:      target,
			Description: DescribeAt(origin, desc+" <"+target.name+">"),
		})
	}

	add(t, t.super, t.Description()+" extends class")
	for _, i := range t.interfaces {
		add(t, i, t.Description()+" implements interface")
	}
	for _, f := range t.fields {
		add(f, f.typ, f.Description()+" has type")
	}
	members := make([]*Method, 0, len(t.ctors)+len(t.methods))
	members = append(members, t.ctors...)
	members = append(members, t.methods...)
	for _, m := range members {
		for _, p := range m.params {
			add(m, p.typ, m.Description()+" has parameter of type")
		}
		if !m.ctor {
			add(m, m.ret, m.Description()+" has return type")
		}
	}
	if withReferences {
		for _, r := range t.references {
			add(t, r, t.Description()+" references class")
		}
	}
	return deps
}
