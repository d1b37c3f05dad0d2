// Package classfiletest writes minimal class files for tests. Only the
// structures the importer reads are emitted; method bodies consist of a
// single return instruction.
package classfiletest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Annotation is an annotation use. Values are emitted as string constants.
type Annotation struct {
	Type   string
	Values map[string]string
}

// A is shorthand for an annotation without values.
func A(typ string) Annotation {
	return Annotation{Type: typ}
}

// Field describes a field. Descriptor uses class file syntax, e.g. "I" or
// "Ljava/lang/String;".
type Field struct {
	Name        string
	Descriptor  string
	Access      uint16
	Annotations []Annotation
}

// Method describes a method. Line, when non-zero, produces a Code attribute
// with a line number table.
type Method struct {
	Name             string
	Descriptor       string
	Access           uint16
	Annotations      []Annotation
	ParamAnnotations [][]Annotation
	ParamNames       []string
	Line             int
}

// Class describes a class file. Names may use dots or slashes.
type Class struct {
	Name        string
	Super       string
	Interfaces  []string
	Access      uint16
	SourceFile  string
	Annotations []Annotation
	Fields      []Field
	Methods     []Method
	// References adds extra class constants, as code referring to other
	// classes would.
	References []string
}

// Desc converts a dotted class name into a field descriptor.
func Desc(name string) string {
	return "L" + internal(name) + ";"
}

func internal(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

type pool struct {
	buf   bytes.Buffer
	count uint16
	index map[string]uint16
}

func (p *pool) add(key string, write func(b *bytes.Buffer)) uint16 {
	if i, ok := p.index[key]; ok {
		return i
	}
	p.count++
	write(&p.buf)
	p.index[key] = p.count
	return p.count
}

func (p *pool) utf8(s string) uint16 {
	return p.add("u:"+s, func(b *bytes.Buffer) {
		b.WriteByte(1)
		put2(b, uint16(len(s)))
		b.WriteString(s)
	})
}

func (p *pool) class(name string) uint16 {
	n := p.utf8(internal(name))
	return p.add("c:"+internal(name), func(b *bytes.Buffer) {
		b.WriteByte(7)
		put2(b, n)
	})
}

func put2(b *bytes.Buffer, v uint16) { _ = binary.Write(b, binary.BigEndian, v) }
func put4(b *bytes.Buffer, v uint32) { _ = binary.Write(b, binary.BigEndian, v) }

type attr struct {
	name string
	data []byte
}

func writeAttributes(b *bytes.Buffer, p *pool, attrs []attr) {
	put2(b, uint16(len(attrs)))
	for _, a := range attrs {
		attribute(b, p, a.name, a.data)
	}
}

func attribute(b *bytes.Buffer, p *pool, name string, body []byte) {
	put2(b, p.utf8(name))
	put4(b, uint32(len(body)))
	b.Write(body)
}

func writeAnnotation(b *bytes.Buffer, p *pool, a Annotation) {
	put2(b, p.utf8(Desc(a.Type)))
	keys := make([]string, 0, len(a.Values))
	for k := range a.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	put2(b, uint16(len(keys)))
	for _, k := range keys {
		put2(b, p.utf8(k))
		b.WriteByte('s')
		put2(b, p.utf8(a.Values[k]))
	}
}

func annotationsBody(p *pool, as []Annotation) []byte {
	var b bytes.Buffer
	put2(&b, uint16(len(as)))
	for _, a := range as {
		writeAnnotation(&b, p, a)
	}
	return b.Bytes()
}

// Bytes encodes the class.
func (c Class) Bytes() []byte {
	p := &pool{index: make(map[string]uint16)}
	var body bytes.Buffer

	put2(&body, c.Access)
	put2(&body, p.class(c.Name))
	if c.Super != "" {
		put2(&body, p.class(c.Super))
	} else {
		put2(&body, 0)
	}
	put2(&body, uint16(len(c.Interfaces)))
	for _, i := range c.Interfaces {
		put2(&body, p.class(i))
	}
	for _, r := range c.References {
		p.class(r)
	}

	put2(&body, uint16(len(c.Fields)))
	for _, f := range c.Fields {
		put2(&body, f.Access)
		put2(&body, p.utf8(f.Name))
		put2(&body, p.utf8(f.Descriptor))
		var attrs []attr
		if len(f.Annotations) > 0 {
			attrs = append(attrs, attr{"RuntimeVisibleAnnotations", annotationsBody(p, f.Annotations)})
		}
		writeAttributes(&body, p, attrs)
	}

	put2(&body, uint16(len(c.Methods)))
	for _, m := range c.Methods {
		writeMethod(&body, p, m)
	}

	var attrs []attr
	if c.SourceFile != "" {
		var sf bytes.Buffer
		put2(&sf, p.utf8(c.SourceFile))
		attrs = append(attrs, attr{"SourceFile", sf.Bytes()})
	}
	if len(c.Annotations) > 0 {
		attrs = append(attrs, attr{"RuntimeVisibleAnnotations", annotationsBody(p, c.Annotations)})
	}
	writeAttributes(&body, p, attrs)

	var out bytes.Buffer
	put4(&out, 0xCAFEBABE)
	put2(&out, 0)
	put2(&out, 61)
	put2(&out, p.count+1)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeMethod(body *bytes.Buffer, p *pool, m Method) {
	put2(body, m.Access)
	put2(body, p.utf8(m.Name))
	put2(body, p.utf8(m.Descriptor))

	var attrs []attr
	if m.Line > 0 {
		var code bytes.Buffer
		put2(&code, 1) // max_stack
		put2(&code, 1) // max_locals
		put4(&code, 1)
		code.WriteByte(0xb1) // return
		put2(&code, 0)       // exception table
		var lnt bytes.Buffer
		put2(&lnt, 1)
		put2(&lnt, 0)
		put2(&lnt, uint16(m.Line))
		put2(&code, 1)
		attribute(&code, p, "LineNumberTable", lnt.Bytes())
		attrs = append(attrs, attr{"Code", code.Bytes()})
	}
	if len(m.Annotations) > 0 {
		attrs = append(attrs, attr{"RuntimeVisibleAnnotations", annotationsBody(p, m.Annotations)})
	}
	if len(m.ParamAnnotations) > 0 {
		var pa bytes.Buffer
		pa.WriteByte(byte(len(m.ParamAnnotations)))
		for _, as := range m.ParamAnnotations {
			pa.Write(annotationsBody(p, as))
		}
		attrs = append(attrs, attr{"RuntimeVisibleParameterAnnotations", pa.Bytes()})
	}
	if len(m.ParamNames) > 0 {
		var mp bytes.Buffer
		mp.WriteByte(byte(len(m.ParamNames)))
		for _, n := range m.ParamNames {
			put2(&mp, p.utf8(n))
			put2(&mp, 0)
		}
		attrs = append(attrs, attr{"MethodParameters", mp.Bytes()})
	}
	writeAttributes(body, p, attrs)
}

// Path returns the relative path a class is stored under, e.g.
// "com/example/Foo.class".
func (c Class) Path() string {
	return internal(c.Name) + ".class"
}

// WriteDir writes each class below dir at its package path.
func WriteDir(t testing.TB, dir string, classes ...Class) {
	t.Helper()
	for _, c := range classes {
		path := filepath.Join(dir, filepath.FromSlash(c.Path()))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, c.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// WriteJar writes the classes into a zip archive at path.
func WriteJar(t testing.TB, path string, classes ...Class) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, c := range classes {
		w, err := zw.Create(c.Path())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(c.Bytes()); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}
