package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"
)

// Partition is the decomposition of a graph into connected components at
// one instant. Isolated vertices form single-vertex components. Component
// indices are contiguous from 0 and carry no identity across partitions:
// two partitions of different graphs may use index k for unrelated sets.
//
// A Partition is immutable once returned.
type Partition[N Node] struct {
	nodes [][]N
	edges [][]*Edge[N]
	index map[int64]int
}

// Partition computes the connected components of the current graph in
// O(V+E) plus the sort that orders them. Components are ordered by their
// smallest vertex ID and vertices within a component by ID, so equal
// graphs always produce equal partitions.
func (g *Graph[N]) Partition() *Partition[N] {
	comps := topo.ConnectedComponents(g.g)

	p := &Partition[N]{
		nodes: make([][]N, len(comps)),
		edges: make([][]*Edge[N], len(comps)),
		index: make(map[int64]int, len(g.nodes)),
	}
	for i, comp := range comps {
		members := make([]N, len(comp))
		for j, v := range comp {
			members[j] = g.nodes[v.ID()]
		}
		sort.Slice(members, func(a, b int) bool { return members[a].ID() < members[b].ID() })
		p.nodes[i] = members
	}
	sort.Slice(p.nodes, func(a, b int) bool { return p.nodes[a][0].ID() < p.nodes[b][0].ID() })

	for i, members := range p.nodes {
		var edges []*Edge[N]
		for _, n := range members {
			p.index[n.ID()] = i
			it := g.g.From(n.ID())
			for it.Next() {
				// Each undirected edge is seen from both ends; keep the
				// visit from the lower ID only.
				if m := it.Node().ID(); n.ID() < m {
					edges = append(edges, g.edges[keyOf(n.ID(), m)])
				}
			}
		}
		SortEdges(edges)
		p.edges[i] = edges
	}
	return p
}

// Len returns the number of components.
func (p *Partition[N]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.nodes)
}

// Nodes returns the vertices of component i. The slice must not be
// modified.
func (p *Partition[N]) Nodes(i int) []N {
	if p == nil || i < 0 || i >= len(p.nodes) {
		return nil
	}
	return p.nodes[i]
}

// Edges returns the edges of component i. The slice must not be modified.
func (p *Partition[N]) Edges(i int) []*Edge[N] {
	if p == nil || i < 0 || i >= len(p.edges) {
		return nil
	}
	return p.edges[i]
}

// ComponentOf returns the index of the component holding the vertex with
// the given ID.
func (p *Partition[N]) ComponentOf(id int64) (int, bool) {
	if p == nil {
		return 0, false
	}
	i, ok := p.index[id]
	return i, ok
}

// ComponentOfEdge returns the index of the component holding e.
func (p *Partition[N]) ComponentOfEdge(e *Edge[N]) (int, bool) {
	if e == nil {
		return 0, false
	}
	i, ok := p.ComponentOf(e.source.ID())
	if !ok {
		return 0, false
	}
	for _, cand := range p.edges[i] {
		if cand == e {
			return i, true
		}
	}
	return 0, false
}
