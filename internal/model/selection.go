package model

import (
	"github.com/fiji/fiji-sub027/internal/graph"
	"github.com/fiji/fiji-sub027/internal/spot"
)

type selection struct {
	spots map[*spot.Spot]struct{}
	edges map[*Edge]struct{}
}

func newSelection() selection {
	return selection{
		spots: make(map[*spot.Spot]struct{}),
		edges: make(map[*Edge]struct{}),
	}
}

// AddSpotToSelection selects the given spots. Spots not in the model are
// ignored.
func (m *Model) AddSpotToSelection(spots ...*spot.Spot) {
	var added []*spot.Spot
	for _, s := range spots {
		if _, ok := m.sel.spots[s]; ok || !m.graph.ContainsVertex(s) {
			continue
		}
		m.sel.spots[s] = struct{}{}
		added = append(added, s)
	}
	if len(added) > 0 {
		m.fireSelectionChanged(SelectionChangeEvent{Source: m, SpotsAdded: added})
	}
}

// RemoveSpotFromSelection deselects the given spots.
func (m *Model) RemoveSpotFromSelection(spots ...*spot.Spot) {
	var removed []*spot.Spot
	for _, s := range spots {
		if _, ok := m.sel.spots[s]; !ok {
			continue
		}
		delete(m.sel.spots, s)
		removed = append(removed, s)
	}
	if len(removed) > 0 {
		m.fireSelectionChanged(SelectionChangeEvent{Source: m, SpotsRemoved: removed})
	}
}

// AddEdgeToSelection selects the given edges. Edges not in the model are
// ignored.
func (m *Model) AddEdgeToSelection(edges ...*Edge) {
	var added []*Edge
	for _, e := range edges {
		if _, ok := m.sel.edges[e]; ok || !m.graph.ContainsEdge(e) {
			continue
		}
		m.sel.edges[e] = struct{}{}
		added = append(added, e)
	}
	if len(added) > 0 {
		m.fireSelectionChanged(SelectionChangeEvent{Source: m, EdgesAdded: added})
	}
}

// RemoveEdgeFromSelection deselects the given edges.
func (m *Model) RemoveEdgeFromSelection(edges ...*Edge) {
	var removed []*Edge
	for _, e := range edges {
		if _, ok := m.sel.edges[e]; !ok {
			continue
		}
		delete(m.sel.edges, e)
		removed = append(removed, e)
	}
	if len(removed) > 0 {
		m.fireSelectionChanged(SelectionChangeEvent{Source: m, EdgesRemoved: removed})
	}
}

// ClearSelection deselects everything.
func (m *Model) ClearSelection() {
	ev := SelectionChangeEvent{Source: m, SpotsRemoved: m.SpotSelection(), EdgesRemoved: m.EdgeSelection()}
	if len(ev.SpotsRemoved) == 0 && len(ev.EdgesRemoved) == 0 {
		return
	}
	m.sel = newSelection()
	m.fireSelectionChanged(ev)
}

// SpotSelection returns the selected spots ordered by ID.
func (m *Model) SpotSelection() []*spot.Spot {
	out := make([]*spot.Spot, 0, len(m.sel.spots))
	for s := range m.sel.spots {
		out = append(out, s)
	}
	spot.SortByID(out)
	return out
}

// EdgeSelection returns the selected edges ordered by endpoint IDs.
func (m *Model) EdgeSelection() []*Edge {
	out := make([]*Edge, 0, len(m.sel.edges))
	for e := range m.sel.edges {
		out = append(out, e)
	}
	graph.SortEdges(out)
	return out
}

// IsSpotSelected reports whether s is selected.
func (m *Model) IsSpotSelected(s *spot.Spot) bool {
	_, ok := m.sel.spots[s]
	return ok
}

// IsEdgeSelected reports whether e is selected.
func (m *Model) IsEdgeSelected(e *Edge) bool {
	_, ok := m.sel.edges[e]
	return ok
}

// pruneSelection drops selected spots and edges that left the model.
func (m *Model) pruneSelection() {
	ev := SelectionChangeEvent{Source: m}
	for _, s := range m.SpotSelection() {
		if !m.graph.ContainsVertex(s) {
			delete(m.sel.spots, s)
			ev.SpotsRemoved = append(ev.SpotsRemoved, s)
		}
	}
	for _, e := range m.EdgeSelection() {
		if !m.graph.ContainsEdge(e) {
			delete(m.sel.edges, e)
			ev.EdgesRemoved = append(ev.EdgesRemoved, e)
		}
	}
	if len(ev.SpotsRemoved) > 0 || len(ev.EdgesRemoved) > 0 {
		m.fireSelectionChanged(ev)
	}
}
