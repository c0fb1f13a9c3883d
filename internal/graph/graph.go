package graph

import (
	"fmt"
	"math"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Node is anything with a stable int64 identity. It is gonum's graph.Node,
// so payloads can be stored in gonum graphs directly.
type Node = gonum.Node

// Edge is a weighted link between two vertices. It is stored without
// direction; Source and Target are the endpoints in the order they were
// given to AddEdge.
type Edge[N Node] struct {
	source N
	target N
	weight float64
}

// Source returns the first endpoint given to AddEdge.
func (e *Edge[N]) Source() N { return e.source }

// Target returns the second endpoint given to AddEdge.
func (e *Edge[N]) Target() N { return e.target }

// Weight returns the edge weight.
func (e *Edge[N]) Weight() float64 { return e.weight }

// Other returns the endpoint opposite to n.
func (e *Edge[N]) Other(n N) N {
	if e.source.ID() == n.ID() {
		return e.target
	}
	return e.source
}

func (e *Edge[N]) String() string {
	return fmt.Sprintf("%v-%v (%g)", e.source, e.target, e.weight)
}

type edgeKey struct{ lo, hi int64 }

func keyOf(a, b int64) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

func (e *Edge[N]) key() edgeKey { return keyOf(e.source.ID(), e.target.ID()) }

// Graph is an undirected, weighted, simple graph (no loops, at most one
// edge per vertex pair) over payload type N. Adjacency is held in a gonum
// WeightedUndirectedGraph; edge handles are held alongside it so callers get
// stable identities for selection and change reporting.
type Graph[N Node] struct {
	g     *simple.WeightedUndirectedGraph
	nodes map[int64]N
	edges map[edgeKey]*Edge[N]
}

// New returns an empty graph.
func New[N Node]() *Graph[N] {
	return &Graph[N]{
		g:     simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		nodes: make(map[int64]N),
		edges: make(map[edgeKey]*Edge[N]),
	}
}

// Order returns the number of vertices.
func (g *Graph[N]) Order() int { return len(g.nodes) }

// Size returns the number of edges.
func (g *Graph[N]) Size() int { return len(g.edges) }

// AddVertex adds n to the vertex set.
func (g *Graph[N]) AddVertex(n N) error {
	if _, ok := g.nodes[n.ID()]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID())
	}
	g.g.AddNode(n)
	g.nodes[n.ID()] = n
	return nil
}

// ContainsVertex reports whether n is in the vertex set.
func (g *Graph[N]) ContainsVertex(n N) bool {
	_, ok := g.nodes[n.ID()]
	return ok
}

// Vertex returns the vertex with the given ID.
func (g *Graph[N]) Vertex(id int64) (N, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// RemoveVertex removes n and every edge incident to it. The removed edges
// are returned sorted by endpoint IDs.
func (g *Graph[N]) RemoveVertex(n N) ([]*Edge[N], error) {
	if _, ok := g.nodes[n.ID()]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, n.ID())
	}
	removed := g.EdgesOf(n)
	for _, e := range removed {
		delete(g.edges, e.key())
	}
	g.g.RemoveNode(n.ID())
	delete(g.nodes, n.ID())
	return removed, nil
}

// AddEdge links a and b with the given weight and returns the new handle.
// Both endpoints must already be vertices.
func (g *Graph[N]) AddEdge(a, b N, weight float64) (*Edge[N], error) {
	if _, ok := g.nodes[a.ID()]; !ok {
		return nil, fmt.Errorf("%w: source %d", ErrNodeNotFound, a.ID())
	}
	if _, ok := g.nodes[b.ID()]; !ok {
		return nil, fmt.Errorf("%w: target %d", ErrNodeNotFound, b.ID())
	}
	if a.ID() == b.ID() {
		return nil, fmt.Errorf("%w: %d", ErrSelfLoop, a.ID())
	}
	k := keyOf(a.ID(), b.ID())
	if _, ok := g.edges[k]; ok {
		return nil, fmt.Errorf("%w: %d-%d", ErrDuplicateEdge, a.ID(), b.ID())
	}
	e := &Edge[N]{source: a, target: b, weight: weight}
	g.g.SetWeightedEdge(simple.WeightedEdge{F: a, T: b, W: weight})
	g.edges[k] = e
	return e, nil
}

// EdgeBetween returns the edge linking a and b, in either order.
func (g *Graph[N]) EdgeBetween(a, b N) (*Edge[N], bool) {
	e, ok := g.edges[keyOf(a.ID(), b.ID())]
	return e, ok
}

// ContainsEdge reports whether e is a live edge of this graph.
func (g *Graph[N]) ContainsEdge(e *Edge[N]) bool {
	if e == nil {
		return false
	}
	cur, ok := g.edges[e.key()]
	return ok && cur == e
}

// RemoveEdgeBetween removes the edge linking a and b and returns it.
func (g *Graph[N]) RemoveEdgeBetween(a, b N) (*Edge[N], error) {
	e, ok := g.edges[keyOf(a.ID(), b.ID())]
	if !ok {
		return nil, fmt.Errorf("%w: %d-%d", ErrEdgeNotFound, a.ID(), b.ID())
	}
	g.dropEdge(e)
	return e, nil
}

// RemoveEdge removes e.
func (g *Graph[N]) RemoveEdge(e *Edge[N]) error {
	if !g.ContainsEdge(e) {
		return ErrEdgeNotFound
	}
	g.dropEdge(e)
	return nil
}

func (g *Graph[N]) dropEdge(e *Edge[N]) {
	g.g.RemoveEdge(e.source.ID(), e.target.ID())
	delete(g.edges, e.key())
}

// SetEdgeWeight changes the weight of e.
func (g *Graph[N]) SetEdgeWeight(e *Edge[N], weight float64) error {
	if !g.ContainsEdge(e) {
		return ErrEdgeNotFound
	}
	e.weight = weight
	g.g.SetWeightedEdge(simple.WeightedEdge{F: e.source, T: e.target, W: weight})
	return nil
}

// EdgeSource returns the source endpoint of e.
func (g *Graph[N]) EdgeSource(e *Edge[N]) N { return e.source }

// EdgeTarget returns the target endpoint of e.
func (g *Graph[N]) EdgeTarget(e *Edge[N]) N { return e.target }

// EdgeWeight returns the weight of e.
func (g *Graph[N]) EdgeWeight(e *Edge[N]) float64 { return e.weight }

// EdgesOf returns the edges incident to n, ordered by the opposite
// endpoint's ID. It returns nil when n is not a vertex.
func (g *Graph[N]) EdgesOf(n N) []*Edge[N] {
	if _, ok := g.nodes[n.ID()]; !ok {
		return nil
	}
	it := g.g.From(n.ID())
	out := make([]*Edge[N], 0, it.Len())
	for it.Next() {
		if e, ok := g.edges[keyOf(n.ID(), it.Node().ID())]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Other(n).ID() < out[j].Other(n).ID()
	})
	return out
}

// Neighbors returns the vertices adjacent to n, ordered by ID.
func (g *Graph[N]) Neighbors(n N) []N {
	edges := g.EdgesOf(n)
	out := make([]N, len(edges))
	for i, e := range edges {
		out[i] = e.Other(n)
	}
	return out
}

// Degree returns the number of edges incident to n.
func (g *Graph[N]) Degree(n N) int {
	if _, ok := g.nodes[n.ID()]; !ok {
		return 0
	}
	return g.g.From(n.ID()).Len()
}

// VertexSet returns every vertex ordered by ID.
func (g *Graph[N]) VertexSet() []N {
	out := make([]N, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// EdgeSet returns every edge ordered by endpoint IDs.
func (g *Graph[N]) EdgeSet() []*Edge[N] {
	out := make([]*Edge[N], 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	SortEdges(out)
	return out
}

// SortEdges orders edges by their lower endpoint ID, then their higher one.
func SortEdges[N Node](edges []*Edge[N]) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i].key(), edges[j].key()
		if a.lo != b.lo {
			return a.lo < b.lo
		}
		return a.hi < b.hi
	})
}
