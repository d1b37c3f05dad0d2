// Package importer builds a code graph from compiled artifacts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/archcheck/internal/classfile"
	"github.com/phobologic/archcheck/internal/discover"
	"github.com/phobologic/archcheck/internal/model"
)

// Error is returned when the artifact set cannot be imported. It is fatal:
// no partial graph is ever returned.
type Error struct {
	// Origin is the unit or path that failed, when known.
	Origin string
	Err    error
}

func (e *Error) Error() string {
	if e.Origin == "" {
		return "import: " + e.Err.Error()
	}
	return fmt.Sprintf("import %s: %v", e.Origin, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures an import.
type Options struct {
	// Exclude holds doublestar patterns for class files to leave out.
	Exclude []string
	// Workers bounds parallel parsing; GOMAXPROCS when <= 0.
	Workers int
	Logger  *zap.Logger
}

// Import reads every class file at or under paths and returns the graph.
// Types are added in discovery order; when a class name occurs more than
// once, the first occurrence wins.
func Import(ctx context.Context, paths []string, opts Options) (*model.Graph, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	set, err := discover.Units(paths, discover.Options{Exclude: opts.Exclude})
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer set.Close()

	classes, err := parseUnits(ctx, set.Units, opts.Workers)
	if err != nil {
		return nil, err
	}

	g := model.NewGraph()
	for i, c := range classes {
		if g.Declared(c.Name) {
			log.Debug("duplicate class ignored",
				zap.String("class", c.Name),
				zap.String("origin", set.Units[i].Origin))
			continue
		}
		populate(g, c)
	}

	log.Info("imported code graph",
		zap.Int("units", len(set.Units)),
		zap.Int("types", len(g.Types())))
	return g, nil
}

func parseUnits(ctx context.Context, units []discover.Unit, workers int) ([]*classfile.Class, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	// Results are written by index so the order never depends on scheduling.
	classes := make([]*classfile.Class, len(units))
	for i, u := range units {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := u.Read()
			if err != nil {
				return &Error{Origin: u.Origin, Err: err}
			}
			c, err := classfile.Parse(data)
			if err != nil {
				return &Error{Origin: u.Origin, Err: err}
			}
			classes[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return nil, ie
		}
		return nil, &Error{Err: err}
	}
	return classes, nil
}

func populate(g *model.Graph, c *classfile.Class) {
	t := g.Declare(c.Name)
	t.SetModifiers(modifiers(c.Access, true))
	t.SetSourceFile(c.SourceFile)
	if c.Super != "" {
		t.SetSuper(g.Ref(c.Super))
	}
	for _, i := range c.Interfaces {
		t.AddInterface(g.Ref(i))
	}
	for _, a := range annotations(g, c.Annotations) {
		t.Annotate(a)
	}

	for _, f := range c.Fields {
		field := t.AddField(f.Name, g.Ref(f.Type), modifiers(f.Access, false))
		for _, a := range annotations(g, f.Annotations) {
			field.Annotate(a)
		}
	}

	for _, m := range c.Methods {
		if m.Name == "<clinit>" {
			continue
		}
		params := make([]*model.Type, len(m.Params))
		for i, p := range m.Params {
			params[i] = g.Ref(p.Type)
		}

		var method *model.Method
		if m.Name == "<init>" {
			method = t.AddConstructor(modifiers(m.Access, false), params...)
		} else {
			method = t.AddMethod(m.Name, g.Ref(m.Return), modifiers(m.Access, false), params...)
		}
		method.SetLine(m.Line)
		for _, a := range annotations(g, m.Annotations) {
			method.Annotate(a)
		}
		for i, p := range m.Params {
			param := method.Parameters()[i]
			param.SetName(p.Name)
			param.SetModifiers(modifiers(p.Access, false))
			for _, a := range annotations(g, p.Annotations) {
				param.Annotate(a)
			}
		}
	}

	for _, r := range c.References {
		t.AddReference(g.Ref(r))
	}
}

func annotations(g *model.Graph, in []classfile.Annotation) []model.Annotation {
	out := make([]model.Annotation, len(in))
	for i, a := range in {
		out[i] = model.Annotation{Type: g.Ref(a.Type), Values: a.Values}
	}
	return out
}

var accessModifiers = []struct {
	flag   uint16
	mod    model.Modifiers
	onType bool
}{
	{classfile.AccPublic, model.Public, false},
	{classfile.AccPrivate, model.Private, false},
	{classfile.AccProtected, model.Protected, false},
	{classfile.AccStatic, model.Static, false},
	{classfile.AccFinal, model.Final, false},
	{classfile.AccAbstract, model.Abstract, false},
	{classfile.AccSynthetic, model.Synthetic, false},
	{classfile.AccInterface, model.Interface, true},
	{classfile.AccEnum, model.Enum, true},
	{classfile.AccAnnotation, model.AnnotationType, true},
}

// modifiers maps access flags. Some bits mean different things on members,
// so the type-only flags are ignored there.
func modifiers(access uint16, forType bool) model.Modifiers {
	var m model.Modifiers
	for _, am := range accessModifiers {
		if am.onType && !forType {
			continue
		}
		if access&am.flag != 0 {
			m |= am.mod
		}
	}
	return m
}
