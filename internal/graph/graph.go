// Package graph partitions a code graph into slices and finds dependency
// cycles between them.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/phobologic/archcheck/internal/model"
)

// KeyFunc assigns a type to a slice. An empty key leaves the type out.
type KeyFunc func(t *model.Type) string

// ByPackage keys types by their package. A positive depth truncates the
// package to its first depth segments. Types in the default package are left
// out.
func ByPackage(depth int) KeyFunc {
	return func(t *model.Type) string {
		pkg := t.Package()
		if depth <= 0 || pkg == "" {
			return pkg
		}
		segs := strings.Split(pkg, ".")
		if len(segs) > depth {
			segs = segs[:depth]
		}
		return strings.Join(segs, ".")
	}
}

// Matching restricts key to types whose package matches pattern, a
// doublestar glob in which dots separate package segments, e.g.
// "com.example.**".
func Matching(pattern string, key KeyFunc) (KeyFunc, error) {
	glob := strings.ReplaceAll(pattern, ".", "/")
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid slice pattern %q", pattern)
	}
	return func(t *model.Type) string {
		pkg := strings.ReplaceAll(t.Package(), ".", "/")
		if ok, _ := doublestar.Match(glob, pkg); !ok {
			return ""
		}
		return key(t)
	}, nil
}

// Slice is a named group of imported types.
type Slice struct {
	Name  string
	Types []*model.Type
}

// Slices partitions the imported types of g. Slices are sorted by name;
// types within a slice keep graph order.
func Slices(g *model.Graph, key KeyFunc) []Slice {
	members := make(map[string][]*model.Type)
	for _, t := range g.Types() {
		if k := key(t); k != "" {
			members[k] = append(members[k], t)
		}
	}
	slices := make([]Slice, 0, len(members))
	for _, name := range sortedKeys(members) {
		slices = append(slices, Slice{Name: name, Types: members[name]})
	}
	return slices
}

// SliceGraph is the directed dependency graph between slices. Dependencies
// inside one slice are not edges.
type SliceGraph struct {
	slices []Slice
	g      *simple.DirectedGraph
	deps   map[[2]int64][]model.Dependency
}

// BuildSliceGraph adds an edge A->B for every type of A that depends on a
// type of B through its super type, interfaces, field, parameter or return
// types and, when withReferences is set, the classes its code refers to.
// Node ids are slice indexes.
func BuildSliceGraph(slices []Slice, withReferences bool) *SliceGraph {
	sg := &SliceGraph{
		slices: slices,
		g:      simple.NewDirectedGraph(),
		deps:   make(map[[2]int64][]model.Dependency),
	}

	owner := make(map[*model.Type]int64)
	for i, s := range slices {
		sg.g.AddNode(simple.Node(i))
		for _, t := range s.Types {
			owner[t] = int64(i)
		}
	}

	for i, s := range slices {
		from := int64(i)
		for _, t := range s.Types {
			for _, d := range t.Dependencies(withReferences) {
				to, ok := owner[d.Target]
				if !ok || to == from {
					continue
				}
				key := [2]int64{from, to}
				if _, seen := sg.deps[key]; !seen {
					sg.g.SetEdge(sg.g.NewEdge(simple.Node(from), simple.Node(to)))
				}
				sg.deps[key] = append(sg.deps[key], d)
			}
		}
	}
	return sg
}

// Slices returns the slices in node order.
func (sg *SliceGraph) Slices() []Slice { return sg.slices }

// HasEdge reports whether slice a depends on slice b.
func (sg *SliceGraph) HasEdge(a, b string) bool {
	ai, bi := sg.index(a), sg.index(b)
	return ai >= 0 && bi >= 0 && sg.g.HasEdgeFromTo(ai, bi)
}

func (sg *SliceGraph) index(name string) int64 {
	i := sort.Search(len(sg.slices), func(i int) bool { return sg.slices[i].Name >= name })
	if i < len(sg.slices) && sg.slices[i].Name == name {
		return int64(i)
	}
	return -1
}

// Step is one edge of a cycle with the dependencies that create it.
type Step struct {
	From, To     string
	Dependencies []model.Dependency
}

// Cycle is a closed chain of slices. The first step starts at the
// lexicographically smallest slice of the cycle; the last step returns to it.
type Cycle struct {
	Steps []Step
}

// Chain renders the slices along the cycle, first slice repeated at the end.
func (c Cycle) Chain() []string {
	if len(c.Steps) == 0 {
		return nil
	}
	chain := []string{c.Steps[0].From}
	for _, s := range c.Steps {
		chain = append(chain, s.To)
	}
	return chain
}

// Cycles finds one cycle per strongly connected component spanning more than
// one slice. Cycles are ordered by their starting slice.
func (sg *SliceGraph) Cycles() []Cycle {
	var cycles []Cycle
	for _, scc := range topo.TarjanSCC(sg.g) {
		if len(scc) < 2 {
			continue
		}
		members := make(map[int64]bool, len(scc))
		start := scc[0].ID()
		for _, n := range scc {
			members[n.ID()] = true
			// Node ids are indexes into the sorted slices, so the
			// smallest id is the lexicographically smallest name.
			if n.ID() < start {
				start = n.ID()
			}
		}
		cycles = append(cycles, sg.cycleFrom(start, members))
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Steps[0].From < cycles[j].Steps[0].From
	})
	return cycles
}

// cycleFrom finds the shortest path from start back to itself inside one
// component, visiting neighbours in name order.
func (sg *SliceGraph) cycleFrom(start int64, members map[int64]bool) Cycle {
	parent := map[int64]int64{}
	visited := map[int64]bool{start: true}
	queue := []int64{start}
	last := int64(-1)

	for len(queue) > 0 && last < 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range sg.successors(u) {
			if v == start {
				last = u
				break
			}
			if !members[v] || visited[v] {
				continue
			}
			visited[v] = true
			parent[v] = u
			queue = append(queue, v)
		}
	}

	path := []int64{start}
	for n := last; n != start; n = parent[n] {
		path = append(path, n)
	}
	// path is start followed by the chain in reverse.
	for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	path = append(path, start)

	var c Cycle
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		c.Steps = append(c.Steps, Step{
			From:         sg.slices[from].Name,
			To:           sg.slices[to].Name,
			Dependencies: sg.deps[[2]int64{from, to}],
		})
	}
	return c
}

func (sg *SliceGraph) successors(id int64) []int64 {
	nodes := gograph.NodesOf(sg.g.From(id))
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
