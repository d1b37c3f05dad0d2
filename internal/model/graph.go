package model

import "strings"

// Graph is the complete import result. It owns every Type it hands out,
// imported or stub, and is not modified once the importer returns it.
type Graph struct {
	types  []*Type
	byName map[string]*Type
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]*Type)}
}

// Declare marks name as an imported type and returns it. A stub created by an
// earlier Ref is promoted in place, so references taken before the
// declaration resolve to the same Type.
func (g *Graph) Declare(name string) *Type {
	t, ok := g.byName[name]
	if !ok {
		t = newType(name)
		g.byName[name] = t
	}
	if t.stub {
		t.stub = false
		g.types = append(g.types, t)
	}
	return t
}

// Declared reports whether name was imported, as opposed to stubbed.
func (g *Graph) Declared(name string) bool {
	t, ok := g.byName[name]
	return ok && !t.stub
}

// Ref resolves a reference to a type by name, creating a stub when the type
// is unknown. Array names ("a.B[]") get a component chain; primitive names
// yield primitive stubs.
func (g *Graph) Ref(name string) *Type {
	if t, ok := g.byName[name]; ok {
		return t
	}
	var t *Type
	if elem, ok := strings.CutSuffix(name, "[]"); ok {
		t = &Type{name: name, stub: true, component: g.Ref(elem)}
	} else {
		t = newType(name)
	}
	g.byName[name] = t
	return t
}

// Lookup returns the type registered under name, imported or stub.
func (g *Graph) Lookup(name string) (*Type, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Types returns the imported types in import order.
func (g *Graph) Types() []*Type {
	return g.types
}

// Methods returns the methods of all imported types, constructors excluded,
// in graph order.
func (g *Graph) Methods() []*Method {
	var out []*Method
	for _, t := range g.types {
		out = append(out, t.methods...)
	}
	return out
}

// Fields returns the fields of all imported types in graph order.
func (g *Graph) Fields() []*Field {
	var out []*Field
	for _, t := range g.types {
		out = append(out, t.fields...)
	}
	return out
}

// Parameters returns the parameters of every constructor and method of all
// imported types in graph order.
func (g *Graph) Parameters() []*Parameter {
	var out []*Parameter
	for _, t := range g.types {
		for _, c := range t.ctors {
			out = append(out, c.params...)
		}
		for _, m := range t.methods {
			out = append(out, m.params...)
		}
	}
	return out
}
