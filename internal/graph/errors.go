package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound is returned when an operation references a vertex
	// that is not in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when adding a vertex whose ID is
	// already present.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrEdgeNotFound is returned when removing or updating an edge that
	// is not in the graph.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDuplicateEdge is returned when linking two vertices that are
	// already linked. The graph holds at most one edge per vertex pair.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrSelfLoop is returned when linking a vertex to itself.
	ErrSelfLoop = errors.New("self loop")

	// ErrNegativeWeight is returned by ShortestPath when a reachable edge
	// carries a negative weight.
	ErrNegativeWeight = errors.New("negative edge weight")
)
