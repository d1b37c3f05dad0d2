// Package model defines the code graph imported from compiled artifacts.
package model

import (
	"fmt"
	"strings"
)

// Kind tags the concrete element behind an Element.
type Kind int

const (
	KindType Kind = iota
	KindMethod
	KindParameter
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindMethod:
		return "method"
	case KindParameter:
		return "parameter"
	case KindField:
		return "field"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Modifiers is a bit set of declaration modifiers.
type Modifiers uint16

const (
	Public Modifiers = 1 << iota
	Private
	Protected
	Static
	Final
	Abstract
	Synthetic
	Interface
	Enum
	AnnotationType
)

var modifierNames = []struct {
	m    Modifiers
	name string
}{
	{Public, "PUBLIC"},
	{Private, "PRIVATE"},
	{Protected, "PROTECTED"},
	{Static, "STATIC"},
	{Final, "FINAL"},
	{Abstract, "ABSTRACT"},
	{Synthetic, "SYNTHETIC"},
	{Interface, "INTERFACE"},
	{Enum, "ENUM"},
	{AnnotationType, "ANNOTATION"},
}

// Has reports whether every modifier in f is set.
func (m Modifiers) Has(f Modifiers) bool {
	return m&f == f
}

func (m Modifiers) String() string {
	var names []string
	for _, mn := range modifierNames {
		if m.Has(mn.m) {
			names = append(names, mn.name)
		}
	}
	return strings.Join(names, " ")
}

// Location points at the source position an element was compiled from.
// Line is 0 when the artifact carries no line information.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("(%s:%d)", l.File, l.Line)
}

// Annotation is a reference to an annotation type plus its attribute values
// rendered as strings.
type Annotation struct {
	Type   *Type
	Values map[string]string
}

// Name returns the qualified name of the annotation type.
func (a Annotation) Name() string {
	if a.Type == nil {
		return ""
	}
	return a.Type.Name()
}

// Element is the capability shared by every importable unit of code.
type Element interface {
	Kind() Kind
	// FullName identifies the element uniquely within a graph.
	FullName() string
	// Description is the human-readable form used in violation messages,
	// e.g. "Method <com.example.Config.processor()>".
	Description() string
	Annotations() []Annotation
	// Owner is the declaring type; nil for types.
	Owner() *Type
	Modifiers() Modifiers
	// RawType is the type itself for a Type, the return type for a Method
	// and the declared type for a Parameter or Field.
	RawType() *Type
	Location() Location
}

func annotated(as []Annotation, name string) bool {
	for _, a := range as {
		if a.Name() == name {
			return true
		}
	}
	return false
}

// IsAnnotatedWith reports whether e carries an annotation of the named type.
func IsAnnotatedWith(e Element, name string) bool {
	return annotated(e.Annotations(), name)
}

// AsMethod returns e as a method when its kind is KindMethod.
func AsMethod(e Element) (*Method, bool) {
	if e == nil || e.Kind() != KindMethod {
		return nil, false
	}
	m, ok := e.(*Method)
	return m, ok
}

// AsType returns e as a type when its kind is KindType.
func AsType(e Element) (*Type, bool) {
	if e == nil || e.Kind() != KindType {
		return nil, false
	}
	t, ok := e.(*Type)
	return t, ok
}

func located(desc string, loc Location) string {
	if s := loc.String(); s != "" {
		return desc + " in " + s
	}
	return desc
}

// DescribeAt appends the element's source location to msg when one is known.
func DescribeAt(e Element, msg string) string {
	return located(msg, e.Location())
}
