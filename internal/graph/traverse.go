package graph

import (
	"fmt"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/traverse"
)

// DepthFirst walks the component of start depth-first, calling visit on
// each vertex once. Returning false from visit stops the walk.
func (g *Graph[N]) DepthFirst(start N, visit func(N) bool) error {
	if _, ok := g.nodes[start.ID()]; !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, start.ID())
	}
	var d traverse.DepthFirst
	d.Walk(g.g, start, func(n gonum.Node) bool {
		return !visit(g.nodes[n.ID()])
	})
	return nil
}

// BreadthFirst walks the component of start breadth-first, calling visit on
// each vertex once with its hop distance from start. Returning false from
// visit stops the walk.
func (g *Graph[N]) BreadthFirst(start N, visit func(n N, depth int) bool) error {
	if _, ok := g.nodes[start.ID()]; !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, start.ID())
	}
	var b traverse.BreadthFirst
	b.Walk(g.g, start, func(n gonum.Node, depth int) bool {
		return !visit(g.nodes[n.ID()], depth)
	})
	return nil
}

// ShortestPath returns the minimum-weight path between a and b as an
// ordered list of edges, and its total weight. ok is false when b is not
// reachable from a. Weights reachable from a must be non-negative.
func (g *Graph[N]) ShortestPath(a, b N) (edges []*Edge[N], weight float64, ok bool, err error) {
	if _, found := g.nodes[a.ID()]; !found {
		return nil, 0, false, fmt.Errorf("%w: %d", ErrNodeNotFound, a.ID())
	}
	if _, found := g.nodes[b.ID()]; !found {
		return nil, 0, false, fmt.Errorf("%w: %d", ErrNodeNotFound, b.ID())
	}
	if a.ID() == b.ID() {
		return nil, 0, true, nil
	}

	var negative *Edge[N]
	if err := g.DepthFirst(a, func(n N) bool {
		for _, e := range g.EdgesOf(n) {
			if e.weight < 0 {
				negative = e
				return false
			}
		}
		return true
	}); err != nil {
		return nil, 0, false, err
	}
	if negative != nil {
		return nil, 0, false, fmt.Errorf("%w: %v", ErrNegativeWeight, negative)
	}

	shortest := path.DijkstraFrom(a, g.g)
	nodes, w := shortest.To(b.ID())
	if len(nodes) == 0 {
		return nil, 0, false, nil
	}
	edges = make([]*Edge[N], 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, g.edges[keyOf(nodes[i-1].ID(), nodes[i].ID())])
	}
	return edges, w, true, nil
}
