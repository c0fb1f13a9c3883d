package graph

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// unionFind is an independent oracle for connected components.
type unionFind struct{ parent map[int64]int64 }

func (u *unionFind) find(x int64) int64 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int64) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func oracleComponents(g *Graph[node]) [][]int64 {
	u := &unionFind{parent: make(map[int64]int64)}
	for _, n := range g.VertexSet() {
		u.parent[n.ID()] = n.ID()
	}
	for _, e := range g.EdgeSet() {
		u.union(e.Source().ID(), e.Target().ID())
	}
	groups := make(map[int64][]int64)
	for _, n := range g.VertexSet() {
		r := u.find(n.ID())
		groups[r] = append(groups[r], n.ID())
	}
	out := make([][]int64, 0, len(groups))
	for _, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func partitionIDs(p *Partition[node]) [][]int64 {
	out := make([][]int64, p.Len())
	for i := 0; i < p.Len(); i++ {
		for _, n := range p.Nodes(i) {
			out[i] = append(out[i], n.ID())
		}
	}
	return out
}

func TestPartition_MatchesUnionFind(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.IntN(40)
		g := newTestGraph(t, n)
		links := rng.IntN(2 * n)
		for i := 0; i < links; i++ {
			a, b := node(rng.IntN(n)), node(rng.IntN(n))
			_, _ = g.AddEdge(a, b, rng.Float64()) // loops and duplicates are rejected
		}
		// Remove a few vertices and edges to exercise the mutation paths.
		for i := 0; i < n/5; i++ {
			_, _ = g.RemoveVertex(node(rng.IntN(n)))
		}
		for _, e := range g.EdgeSet() {
			if rng.IntN(4) == 0 {
				_ = g.RemoveEdge(e)
			}
		}

		p := g.Partition()
		if diff := cmp.Diff(oracleComponents(g), partitionIDs(p)); diff != "" {
			t.Fatalf("trial %d: partition mismatch (-oracle +got):\n%s", trial, diff)
		}

		// Every edge belongs to exactly the component of its endpoints.
		var total int
		for i := 0; i < p.Len(); i++ {
			for _, e := range p.Edges(i) {
				total++
				if c, _ := p.ComponentOf(e.Source().ID()); c != i {
					t.Fatalf("trial %d: edge %v listed in component %d, source in %d", trial, e, i, c)
				}
				if c, ok := p.ComponentOfEdge(e); !ok || c != i {
					t.Fatalf("trial %d: ComponentOfEdge(%v) = %d,%v want %d", trial, e, c, ok, i)
				}
			}
		}
		if total != g.Size() {
			t.Fatalf("trial %d: partition lists %d edges, graph has %d", trial, total, g.Size())
		}
	}
}

func TestPartition_Singletons(t *testing.T) {
	g := newTestGraph(t, 3)
	p := g.Partition()
	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}
	for i := 0; i < 3; i++ {
		if len(p.Edges(i)) != 0 {
			t.Errorf("singleton %d has edges", i)
		}
	}
}

func TestPartition_Deterministic(t *testing.T) {
	build := func() *Partition[node] {
		g := newTestGraph(t, 6)
		g.AddEdge(node(5), node(4), 1)
		g.AddEdge(node(0), node(2), 1)
		g.AddEdge(node(3), node(1), 1)
		return g.Partition()
	}
	first := partitionIDs(build())
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, partitionIDs(build())); diff != "" {
			t.Fatalf("partition order changed:\n%s", diff)
		}
	}
	want := [][]int64{{0, 2}, {1, 3}, {4, 5}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("unexpected partition (-want +got):\n%s", diff)
	}
}

func TestPartition_NilAndOutOfRange(t *testing.T) {
	var p *Partition[node]
	if p.Len() != 0 || p.Nodes(0) != nil || p.Edges(0) != nil {
		t.Error("nil partition must be empty")
	}
	if _, ok := p.ComponentOf(1); ok {
		t.Error("nil partition has no components")
	}
	g := newTestGraph(t, 1)
	q := g.Partition()
	if q.Nodes(-1) != nil || q.Nodes(1) != nil {
		t.Error("out of range index must return nil")
	}
	if _, ok := q.ComponentOfEdge(nil); ok {
		t.Error("nil edge has no component")
	}
}
