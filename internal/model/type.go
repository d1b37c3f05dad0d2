package model

import (
	"strconv"
	"strings"
)

var primitives = map[string]struct{}{
	"boolean": {},
	"byte":    {},
	"char":    {},
	"short":   {},
	"int":     {},
	"long":    {},
	"float":   {},
	"double":  {},
	"void":    {},
}

// Type is a class, interface, enum or annotation type. A stub is a type that
// was referenced but not part of the imported artifact set: it has a name
// and nothing else.
type Type struct {
	name       string
	pkg        string
	mods       Modifiers
	stub       bool
	primitive  bool
	component  *Type
	super      *Type
	interfaces []*Type
	annots     []Annotation
	fields     []*Field
	methods    []*Method
	ctors      []*Method
	references []*Type
	sourceFile string
}

func newType(name string) *Type {
	t := &Type{name: name, stub: true}
	if _, ok := primitives[name]; ok {
		t.primitive = true
		return t
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		t.pkg = name[:i]
	}
	return t
}

func (t *Type) Kind() Kind                { return KindType }
func (t *Type) FullName() string          { return t.name }
func (t *Type) Annotations() []Annotation { return t.annots }
func (t *Type) Owner() *Type              { return nil }
func (t *Type) Modifiers() Modifiers      { return t.mods }
func (t *Type) RawType() *Type            { return t }
func (t *Type) Location() Location        { return Location{File: t.sourceFile} }

func (t *Type) Description() string {
	return "Class <" + t.name + ">"
}

// Name returns the qualified name, e.g. "com.example.Config$Inner".
func (t *Type) Name() string { return t.name }

// SimpleName returns the name without its package.
func (t *Type) SimpleName() string {
	if t.pkg == "" {
		return t.name
	}
	return t.name[len(t.pkg)+1:]
}

// Package returns the package path, "" for the default package, primitives
// and arrays.
func (t *Type) Package() string { return t.pkg }

// Stub reports whether the type was only referenced, never imported.
func (t *Type) Stub() bool { return t.stub }

// Primitive reports whether the type is a primitive or void.
func (t *Type) Primitive() bool { return t.primitive }

// Component returns the element type of an array type, nil otherwise.
func (t *Type) Component() *Type { return t.component }

// Base strips array dimensions.
func (t *Type) Base() *Type {
	b := t
	for b.component != nil {
		b = b.component
	}
	return b
}

func (t *Type) Super() *Type            { return t.super }
func (t *Type) Interfaces() []*Type     { return t.interfaces }
func (t *Type) Fields() []*Field        { return t.fields }
func (t *Type) Methods() []*Method      { return t.methods }
func (t *Type) Constructors() []*Method { return t.ctors }

// References returns the types referenced from the type's compiled code, in
// constant pool order.
func (t *Type) References() []*Type { return t.references }

func (t *Type) SourceFile() string { return t.sourceFile }

func (t *Type) SetModifiers(m Modifiers)  { t.mods = m }
func (t *Type) SetSuper(s *Type)          { t.super = s }
func (t *Type) AddInterface(i *Type)      { t.interfaces = append(t.interfaces, i) }
func (t *Type) Annotate(a Annotation)     { t.annots = append(t.annots, a) }
func (t *Type) AddReference(r *Type)      { t.references = append(t.references, r) }
func (t *Type) SetSourceFile(name string) { t.sourceFile = name }

// AddField declares a field of type typ on t.
func (t *Type) AddField(name string, typ *Type, mods Modifiers) *Field {
	f := &Field{owner: t, name: name, typ: typ, mods: mods}
	t.fields = append(t.fields, f)
	return f
}

// AddMethod declares a method returning ret with the given parameter types.
func (t *Type) AddMethod(name string, ret *Type, mods Modifiers, params ...*Type) *Method {
	m := newMethod(t, name, ret, mods, params)
	t.methods = append(t.methods, m)
	return m
}

// AddConstructor declares a constructor with the given parameter types.
func (t *Type) AddConstructor(mods Modifiers, params ...*Type) *Method {
	m := newMethod(t, "<init>", nil, mods, params)
	m.ctor = true
	t.ctors = append(t.ctors, m)
	return m
}

// Method is a method or constructor declared on a type.
type Method struct {
	owner  *Type
	name   string
	ret    *Type
	params []*Parameter
	mods   Modifiers
	annots []Annotation
	line   int
	ctor   bool
}

func newMethod(owner *Type, name string, ret *Type, mods Modifiers, params []*Type) *Method {
	m := &Method{owner: owner, name: name, ret: ret, mods: mods}
	for i, p := range params {
		m.params = append(m.params, &Parameter{method: m, index: i, typ: p})
	}
	return m
}

func (m *Method) Kind() Kind                { return KindMethod }
func (m *Method) Annotations() []Annotation { return m.annots }
func (m *Method) Owner() *Type              { return m.owner }
func (m *Method) Modifiers() Modifiers      { return m.mods }
func (m *Method) RawType() *Type            { return m.ret }

func (m *Method) Location() Location {
	return Location{File: m.owner.sourceFile, Line: m.line}
}

// FullName renders owner, name and parameter types,
// e.g. "com.example.Config.processor(com.example.Foo, int)".
func (m *Method) FullName() string {
	names := make([]string, len(m.params))
	for i, p := range m.params {
		names[i] = p.typ.Name()
	}
	return m.owner.name + "." + m.name + "(" + strings.Join(names, ", ") + ")"
}

func (m *Method) Description() string {
	if m.ctor {
		return "Constructor <" + m.FullName() + ">"
	}
	return "Method <" + m.FullName() + ">"
}

func (m *Method) Name() string             { return m.name }
func (m *Method) Parameters() []*Parameter { return m.params }
func (m *Method) IsConstructor() bool      { return m.ctor }
func (m *Method) Line() int                { return m.line }
func (m *Method) SetLine(line int)         { m.line = line }
func (m *Method) Annotate(a Annotation)    { m.annots = append(m.annots, a) }

// Parameter is one formal parameter of a method, in declaration order.
type Parameter struct {
	method *Method
	index  int
	name   string
	typ    *Type
	mods   Modifiers
	annots []Annotation
}

func (p *Parameter) Kind() Kind                { return KindParameter }
func (p *Parameter) Annotations() []Annotation { return p.annots }
func (p *Parameter) Owner() *Type              { return p.method.owner }
func (p *Parameter) Modifiers() Modifiers      { return p.mods }
func (p *Parameter) RawType() *Type            { return p.typ }
func (p *Parameter) Location() Location        { return p.method.Location() }

func (p *Parameter) FullName() string {
	return p.method.FullName() + "[" + strconv.Itoa(p.index) + "]"
}

func (p *Parameter) Description() string {
	owner := p.method.Description()
	return "Parameter <" + p.typ.Name() + "> of " + strings.ToLower(owner[:1]) + owner[1:]
}

func (p *Parameter) Method() *Method          { return p.method }
func (p *Parameter) Index() int               { return p.index }
func (p *Parameter) Name() string             { return p.name }
func (p *Parameter) SetName(name string)      { p.name = name }
func (p *Parameter) SetModifiers(m Modifiers) { p.mods = m }
func (p *Parameter) Annotate(a Annotation)    { p.annots = append(p.annots, a) }

// Field is a field declared on a type.
type Field struct {
	owner  *Type
	name   string
	typ    *Type
	mods   Modifiers
	annots []Annotation
}

func (f *Field) Kind() Kind                { return KindField }
func (f *Field) FullName() string          { return f.owner.name + "." + f.name }
func (f *Field) Description() string       { return "Field <" + f.FullName() + ">" }
func (f *Field) Annotations() []Annotation { return f.annots }
func (f *Field) Owner() *Type              { return f.owner }
func (f *Field) Modifiers() Modifiers      { return f.mods }
func (f *Field) RawType() *Type            { return f.typ }
func (f *Field) Location() Location        { return Location{File: f.owner.sourceFile} }
func (f *Field) Name() string              { return f.name }
func (f *Field) Annotate(a Annotation)     { f.annots = append(f.annots, a) }
