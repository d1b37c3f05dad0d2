package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/archcheck/internal/model"
)

// depends adds a field on from of type to.
func depends(g *model.Graph, from, to string) {
	t := g.Declare(from)
	t.AddField("dep"+to[len(to)-1:], g.Ref(to), model.Private)
}

func chains(cycles []Cycle) [][]string {
	var out [][]string
	for _, c := range cycles {
		out = append(out, c.Chain())
	}
	return out
}

func TestSlicesByPackage(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	g.Declare("b.x.B")
	g.Declare("a.A2")
	g.Declare("a.A1")
	g.Declare("Root")
	g.Ref("c.Stub")

	slices := Slices(g, ByPackage(0))
	require.Len(t, slices, 2)
	assert.Equal(t, "a", slices[0].Name)
	assert.Equal(t, "a.A2", slices[0].Types[0].Name(), "graph order inside a slice")
	assert.Equal(t, "b.x", slices[1].Name)

	top := Slices(g, ByPackage(1))
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[1].Name)
}

func TestMatching(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	g.Declare("com.example.web.Controller")
	g.Declare("com.example.data.Repo")
	g.Declare("org.other.Thing")

	key, err := Matching("com.example.**", ByPackage(0))
	require.NoError(t, err)
	slices := Slices(g, key)
	require.Len(t, slices, 2)
	assert.Equal(t, "com.example.data", slices[0].Name)
	assert.Equal(t, "com.example.web", slices[1].Name)

	_, err = Matching("com.[", ByPackage(0))
	assert.Error(t, err)
}

func TestCyclesTwoSlices(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	depends(g, "b.B", "a.A")
	depends(g, "a.A", "b.B")
	depends(g, "a.A2", "a.A") // same slice, not an edge

	sg := BuildSliceGraph(Slices(g, ByPackage(0)), false)
	assert.True(t, sg.HasEdge("a", "b"))
	assert.True(t, sg.HasEdge("b", "a"))
	assert.False(t, sg.HasEdge("a", "a"))
	assert.False(t, sg.HasEdge("a", "missing"))

	cycles := sg.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0].Chain())

	step := cycles[0].Steps[0]
	require.Len(t, step.Dependencies, 1)
	assert.Equal(t, "Field <a.A.depB> has type <b.B>", step.Dependencies[0].Description)
}

func TestCyclesAcyclic(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	depends(g, "a.A", "b.B")
	depends(g, "b.B", "c.C")
	depends(g, "a.A2", "c.C")
	depends(g, "c.C", "java.util.List") // stub, outside every slice

	sg := BuildSliceGraph(Slices(g, ByPackage(0)), true)
	assert.Empty(t, sg.Cycles())
}

func TestCyclesNoDependencies(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	g.Declare("a.A")
	g.Declare("b.B")
	assert.Empty(t, BuildSliceGraph(Slices(g, ByPackage(0)), true).Cycles())
	assert.Empty(t, BuildSliceGraph(nil, true).Cycles())
}

func TestCyclesShortestFromSmallestSlice(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	// One component: c -> d -> b -> c plus the shorter b <-> c.
	depends(g, "c.C", "d.D")
	depends(g, "d.D", "b.B")
	depends(g, "b.B", "c.C")
	depends(g, "c.C2", "b.B")
	// A separate component.
	depends(g, "x.X", "y.Y")
	depends(g, "y.Y", "x.X")

	cycles := BuildSliceGraph(Slices(g, ByPackage(0)), false).Cycles()
	assert.Equal(t, [][]string{{"b", "c", "b"}, {"x", "y", "x"}}, chains(cycles))
}

func TestCyclesThroughReferences(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	a := g.Declare("a.A")
	b := g.Declare("b.B")
	a.AddReference(b)
	b.AddReference(a)

	assert.Empty(t, BuildSliceGraph(Slices(g, ByPackage(0)), false).Cycles())

	cycles := BuildSliceGraph(Slices(g, ByPackage(0)), true).Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "Class <a.A> references class <b.B>", cycles[0].Steps[0].Dependencies[0].Description)
}

func TestCyclesDeterministic(t *testing.T) {
	t.Parallel()

	build := func() [][]string {
		g := model.NewGraph()
		for _, e := range [][2]string{
			{"p.A", "q.B"}, {"q.B", "r.C"}, {"r.C", "p.A"},
			{"q.B2", "p.A"}, {"s.D", "t.E"}, {"t.E", "s.D"},
		} {
			depends(g, e[0], e[1])
		}
		return chains(BuildSliceGraph(Slices(g, ByPackage(0)), false).Cycles())
	}
	want := build()
	for range 10 {
		assert.Equal(t, want, build())
	}
	assert.Equal(t, [][]string{{"p", "q", "p"}, {"s", "t", "s"}}, want)
}
