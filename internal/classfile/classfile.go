// Package classfile decodes JVM class files into plain structures. It reads
// metadata only: bytecode is never interpreted.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Access flags, as laid out in the class file.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccBridge     = 0x0040
	AccVarargs    = 0x0080
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

const magic = 0xCAFEBABE

var (
	// ErrNotClassFile is returned when the magic number is wrong.
	ErrNotClassFile = errors.New("not a class file")
	// ErrTruncated is returned when the data ends inside a structure.
	ErrTruncated = errors.New("truncated class file")
)

// Class is the decoded form of one class file. Names are binary names with
// dots, e.g. "com.example.Outer$Inner".
type Class struct {
	Name        string
	Super       string
	Interfaces  []string
	Access      uint16
	Major       uint16
	Minor       uint16
	SourceFile  string
	Annotations []Annotation
	Fields      []Field
	Methods     []Method
	// References lists classes named by the constant pool, self excluded,
	// array types reduced to their element type.
	References []string
}

// Annotation is one annotation use with its element values rendered as text.
type Annotation struct {
	Type   string
	Values map[string]string
}

// Field is a declared field.
type Field struct {
	Name        string
	Type        string
	Access      uint16
	Annotations []Annotation
}

// Method is a declared method, constructor ("<init>") or static
// initializer ("<clinit>").
type Method struct {
	Name        string
	Params      []Param
	Return      string
	Access      uint16
	Annotations []Annotation
	// Line is the first line in the method's line number table, 0 if absent.
	Line int
}

// Param is a formal parameter in declaration order.
type Param struct {
	Name        string
	Type        string
	Access      uint16
	Annotations []Annotation
}

type cpEntry struct {
	tag  byte
	a, b uint16
	n    uint64
	s    string
}

const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type decoder struct {
	r    reader
	pool []cpEntry
}

// Parse decodes a class file.
func Parse(data []byte) (*Class, error) {
	d := &decoder{r: reader{data: data}}
	c, err := d.class()
	if err != nil && d.r.err != nil {
		// Running out of data explains whatever went wrong afterwards.
		return nil, d.r.err
	}
	return c, err
}

func (d *decoder) class() (*Class, error) {
	if d.r.u4() != magic {
		if d.r.err != nil {
			return nil, d.r.err
		}
		return nil, ErrNotClassFile
	}
	c := &Class{}
	c.Minor = d.r.u2()
	c.Major = d.r.u2()
	if err := d.readPool(); err != nil {
		return nil, err
	}

	c.Access = d.r.u2()
	var err error
	if c.Name, err = d.className(d.r.u2()); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if super := d.r.u2(); super != 0 {
		if c.Super, err = d.className(super); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}
	for n := d.r.u2(); n > 0 && d.r.err == nil; n-- {
		name, err := d.className(d.r.u2())
		if err != nil {
			return nil, fmt.Errorf("interfaces: %w", err)
		}
		c.Interfaces = append(c.Interfaces, name)
	}

	for n := d.r.u2(); n > 0 && d.r.err == nil; n-- {
		f, err := d.readField()
		if err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
		c.Fields = append(c.Fields, f)
	}
	for n := d.r.u2(); n > 0 && d.r.err == nil; n-- {
		m, err := d.readMethod()
		if err != nil {
			return nil, fmt.Errorf("method: %w", err)
		}
		c.Methods = append(c.Methods, m)
	}
	if err := d.readAttributes(func(name string, body reader) error {
		switch name {
		case "SourceFile":
			s, err := d.utf8(body.u2())
			if err != nil {
				return err
			}
			c.SourceFile = s
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			as, err := d.readAnnotations(&body)
			if err != nil {
				return err
			}
			c.Annotations = append(c.Annotations, as...)
		}
		return body.err
	}); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	if d.r.err != nil {
		return nil, d.r.err
	}

	c.References = d.references(c.Name)
	return c, nil
}

func (d *decoder) readPool() error {
	count := int(d.r.u2())
	if d.r.err != nil {
		return d.r.err
	}
	d.pool = make([]cpEntry, count)
	for i := 1; i < count; i++ {
		e := cpEntry{tag: d.r.u1()}
		switch e.tag {
		case tagUtf8:
			e.s = decodeModifiedUTF8(d.r.bytes(int(d.r.u2())))
		case tagInteger, tagFloat:
			e.n = uint64(d.r.u4())
		case tagLong, tagDouble:
			e.n = uint64(d.r.u4())<<32 | uint64(d.r.u4())
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.a = d.r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			e.a = d.r.u2()
			e.b = d.r.u2()
		case tagMethodHandle:
			e.a = uint16(d.r.u1())
			e.b = d.r.u2()
		default:
			if d.r.err != nil {
				return d.r.err
			}
			return fmt.Errorf("constant pool entry %d: unknown tag %d", i, e.tag)
		}
		d.pool[i] = e
		// 8-byte constants take two slots.
		if e.tag == tagLong || e.tag == tagDouble {
			i++
		}
	}
	return d.r.err
}

func (d *decoder) entry(idx uint16, tag byte) (cpEntry, error) {
	if int(idx) <= 0 || int(idx) >= len(d.pool) {
		return cpEntry{}, fmt.Errorf("constant pool index %d out of range", idx)
	}
	e := d.pool[idx]
	if e.tag != tag {
		return cpEntry{}, fmt.Errorf("constant pool index %d: tag %d, want %d", idx, e.tag, tag)
	}
	return e, nil
}

func (d *decoder) utf8(idx uint16) (string, error) {
	e, err := d.entry(idx, tagUtf8)
	return e.s, err
}

func (d *decoder) className(idx uint16) (string, error) {
	e, err := d.entry(idx, tagClass)
	if err != nil {
		return "", err
	}
	name, err := d.utf8(e.a)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(name, "/", "."), nil
}

func (d *decoder) readField() (Field, error) {
	f := Field{Access: d.r.u2()}
	var err error
	if f.Name, err = d.utf8(d.r.u2()); err != nil {
		return f, err
	}
	desc, err := d.utf8(d.r.u2())
	if err != nil {
		return f, err
	}
	if f.Type, err = FieldType(desc); err != nil {
		return f, err
	}
	err = d.readAttributes(func(name string, body reader) error {
		if name == "RuntimeVisibleAnnotations" || name == "RuntimeInvisibleAnnotations" {
			as, err := d.readAnnotations(&body)
			if err != nil {
				return err
			}
			f.Annotations = append(f.Annotations, as...)
		}
		return body.err
	})
	return f, err
}

func (d *decoder) readMethod() (Method, error) {
	m := Method{Access: d.r.u2()}
	var err error
	if m.Name, err = d.utf8(d.r.u2()); err != nil {
		return m, err
	}
	desc, err := d.utf8(d.r.u2())
	if err != nil {
		return m, err
	}
	params, ret, err := MethodType(desc)
	if err != nil {
		return m, err
	}
	m.Return = ret
	m.Params = make([]Param, len(params))
	for i, p := range params {
		m.Params[i].Type = p
	}

	err = d.readAttributes(func(name string, body reader) error {
		switch name {
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			as, err := d.readAnnotations(&body)
			if err != nil {
				return err
			}
			m.Annotations = append(m.Annotations, as...)
		case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
			n := int(body.u1())
			// Compilers may omit synthetic leading parameters, so the
			// table is aligned to the end of the parameter list.
			offset := len(m.Params) - n
			for i := 0; i < n && body.err == nil; i++ {
				as, err := d.readAnnotations(&body)
				if err != nil {
					return err
				}
				if j := offset + i; j >= 0 && j < len(m.Params) {
					m.Params[j].Annotations = append(m.Params[j].Annotations, as...)
				}
			}
		case "MethodParameters":
			n := int(body.u1())
			for i := 0; i < n && body.err == nil; i++ {
				nameIdx, access := body.u2(), body.u2()
				if i >= len(m.Params) {
					continue
				}
				m.Params[i].Access = access
				if nameIdx != 0 {
					s, err := d.utf8(nameIdx)
					if err != nil {
						return err
					}
					m.Params[i].Name = s
				}
			}
		case "Code":
			m.Line = readFirstLine(d, &body)
		}
		return body.err
	})
	return m, err
}

// readFirstLine walks a Code attribute to its LineNumberTable and returns the
// smallest line number.
func readFirstLine(d *decoder, body *reader) int {
	body.u2() // max_stack
	body.u2() // max_locals
	body.bytes(int(body.u4()))
	body.bytes(int(body.u2()) * 8)
	line := 0
	for n := body.u2(); n > 0 && body.err == nil; n-- {
		name, err := d.utf8(body.u2())
		sub := reader{data: body.bytes(int(body.u4()))}
		if err != nil || name != "LineNumberTable" {
			continue
		}
		for k := sub.u2(); k > 0 && sub.err == nil; k-- {
			sub.u2() // start_pc
			l := int(sub.u2())
			if sub.err == nil && (line == 0 || l < line) {
				line = l
			}
		}
	}
	return line
}

func (d *decoder) readAttributes(fn func(name string, body reader) error) error {
	for n := d.r.u2(); n > 0 && d.r.err == nil; n-- {
		name, err := d.utf8(d.r.u2())
		if err != nil {
			return err
		}
		body := d.r.bytes(int(d.r.u4()))
		if d.r.err != nil {
			return d.r.err
		}
		if err := fn(name, reader{data: body}); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return d.r.err
}

func (d *decoder) readAnnotations(r *reader) ([]Annotation, error) {
	var out []Annotation
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		a, err := d.readAnnotation(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, r.err
}

func (d *decoder) readAnnotation(r *reader) (Annotation, error) {
	desc, err := d.utf8(r.u2())
	if err != nil {
		return Annotation{}, err
	}
	typ, err := FieldType(desc)
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{Type: typ}
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		name, err := d.utf8(r.u2())
		if err != nil {
			return a, err
		}
		v, err := d.readElementValue(r)
		if err != nil {
			return a, fmt.Errorf("annotation %s.%s: %w", typ, name, err)
		}
		if a.Values == nil {
			a.Values = make(map[string]string)
		}
		a.Values[name] = v
	}
	return a, r.err
}

func (d *decoder) readElementValue(r *reader) (string, error) {
	tag := r.u1()
	switch tag {
	case 's':
		return d.utf8(r.u2())
	case 'B', 'C', 'I', 'S', 'Z':
		e, err := d.entry(r.u2(), tagInteger)
		if err != nil {
			return "", err
		}
		v := int32(uint32(e.n))
		switch tag {
		case 'Z':
			return strconv.FormatBool(v != 0), nil
		case 'C':
			return string(rune(v)), nil
		}
		return strconv.Itoa(int(v)), nil
	case 'J':
		e, err := d.entry(r.u2(), tagLong)
		return strconv.FormatInt(int64(e.n), 10), err
	case 'F':
		e, err := d.entry(r.u2(), tagFloat)
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(e.n))), 'g', -1, 32), err
	case 'D':
		e, err := d.entry(r.u2(), tagDouble)
		return strconv.FormatFloat(math.Float64frombits(e.n), 'g', -1, 64), err
	case 'e':
		typeDesc, err := d.utf8(r.u2())
		if err != nil {
			return "", err
		}
		constName, err := d.utf8(r.u2())
		if err != nil {
			return "", err
		}
		typ, err := FieldType(typeDesc)
		return typ + "." + constName, err
	case 'c':
		desc, err := d.utf8(r.u2())
		if err != nil {
			return "", err
		}
		return FieldType(desc)
	case '@':
		a, err := d.readAnnotation(r)
		return "@" + a.Type, err
	case '[':
		var vals []string
		for n := r.u2(); n > 0 && r.err == nil; n-- {
			v, err := d.readElementValue(r)
			if err != nil {
				return "", err
			}
			vals = append(vals, v)
		}
		return "[" + strings.Join(vals, ", ") + "]", r.err
	}
	if r.err != nil {
		return "", r.err
	}
	return "", fmt.Errorf("unknown element value tag %q", tag)
}

func (d *decoder) references(self string) []string {
	seen := map[string]struct{}{self: {}}
	var out []string
	for _, e := range d.pool {
		if e.tag != tagClass {
			continue
		}
		raw, err := d.utf8(e.a)
		if err != nil {
			continue
		}
		var name string
		if strings.HasPrefix(raw, "[") {
			if name, err = FieldType(raw); err != nil {
				continue
			}
			name = strings.TrimRight(name, "[]")
		} else {
			name = strings.ReplaceAll(raw, "/", ".")
		}
		if _, dup := seen[name]; dup || isPrimitive(name) {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// decodeModifiedUTF8 converts the class file string encoding. The only
// difference from UTF-8 that matters for names is the two-byte NUL.
func decodeModifiedUTF8(b []byte) string {
	s := string(b)
	if strings.Contains(s, "\xc0\x80") {
		s = strings.ReplaceAll(s, "\xc0\x80", "\x00")
	}
	return s
}

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u1() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
