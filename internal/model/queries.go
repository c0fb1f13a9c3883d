package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/graph"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// Spots returns a copy of the collection of every spot in the model.
func (m *Model) Spots() *spot.Collection { return m.spots.Clone() }

// FilteredSpots returns a copy of the filtered spot collection.
func (m *Model) FilteredSpots() *spot.Collection { return m.filtered.Clone() }

// NSpots returns the number of spots in the model.
func (m *Model) NSpots() int { return m.graph.Order() }

// NEdges returns the number of edges in the model.
func (m *Model) NEdges() int { return m.graph.Size() }

// ContainsSpot reports whether s is in the model.
func (m *Model) ContainsSpot(s *spot.Spot) bool { return m.graph.ContainsVertex(s) }

// ContainsEdge reports whether e is in the model.
func (m *Model) ContainsEdge(e *Edge) bool { return m.graph.ContainsEdge(e) }

// EdgeBetween returns the edge linking a and b.
func (m *Model) EdgeBetween(a, b *spot.Spot) (*Edge, bool) { return m.graph.EdgeBetween(a, b) }

// EdgesOf returns the edges touching s.
func (m *Model) EdgesOf(s *spot.Spot) []*Edge { return m.graph.EdgesOf(s) }

// EdgeSet returns every edge ordered by endpoint IDs.
func (m *Model) EdgeSet() []*Edge { return m.graph.EdgeSet() }

// Successors returns the neighbours of s in later frames, ordered by ID.
func (m *Model) Successors(s *spot.Spot) []*spot.Spot {
	var out []*spot.Spot
	for _, n := range m.graph.Neighbors(s) {
		if n.Frame() > s.Frame() {
			out = append(out, n)
		}
	}
	return out
}

// Predecessors returns the neighbours of s in earlier frames, ordered by ID.
func (m *Model) Predecessors(s *spot.Spot) []*spot.Spot {
	var out []*spot.Spot
	for _, n := range m.graph.Neighbors(s) {
		if n.Frame() < s.Frame() {
			out = append(out, n)
		}
	}
	return out
}

// DepthFirst visits the spots of the track holding start, depth-first,
// until visit returns false.
func (m *Model) DepthFirst(start *spot.Spot, visit func(*spot.Spot) bool) error {
	return m.graph.DepthFirst(start, visit)
}

// DepthFirstDirected visits the spots reachable from start by following
// links forward in time, depth-first. Successors are taken in ID order.
// Each spot is visited once, until visit returns false.
func (m *Model) DepthFirstDirected(start *spot.Spot, visit func(*spot.Spot) bool) error {
	if !m.graph.ContainsVertex(start) {
		return fmt.Errorf("%w: %v", graph.ErrNodeNotFound, start)
	}
	seen := make(map[*spot.Spot]bool)
	stack := []*spot.Spot{start}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		if !visit(s) {
			return nil
		}
		next := m.Successors(s)
		for i := len(next) - 1; i >= 0; i-- {
			if !seen[next[i]] {
				stack = append(stack, next[i])
			}
		}
	}
	return nil
}

// BreadthFirst visits the spots of the track holding start in order of hop
// distance from start, until visit returns false.
func (m *Model) BreadthFirst(start *spot.Spot, visit func(s *spot.Spot, depth int) bool) error {
	return m.graph.BreadthFirst(start, visit)
}

// ShortestPath returns the minimum-weight chain of edges from a to b.
func (m *Model) ShortestPath(a, b *spot.Spot) (edges []*Edge, weight float64, ok bool, err error) {
	return m.graph.ShortestPath(a, b)
}

// NTracks returns the number of tracks at the last commit, or only the
// visible ones.
func (m *Model) NTracks(visibleOnly bool) int {
	if visibleOnly {
		return len(m.visible)
	}
	return m.partition.Len()
}

// TrackIDs returns the indices of all tracks, or only the visible ones, in
// increasing order.
func (m *Model) TrackIDs(visibleOnly bool) []int {
	out := make([]int, 0, m.partition.Len())
	for i := 0; i < m.partition.Len(); i++ {
		if !visibleOnly || m.visible[i] {
			out = append(out, i)
		}
	}
	return out
}

// IsTrackVisible reports whether track i is visible.
func (m *Model) IsTrackVisible(i int) bool { return m.visible[i] }

// SetTrackVisibility shows or hides track i and sends a
// TracksVisibilityChanged event when that changed anything.
func (m *Model) SetTrackVisibility(i int, visible bool) bool {
	if i < 0 || i >= m.partition.Len() || m.visible[i] == visible {
		return false
	}
	if visible {
		m.visible[i] = true
	} else {
		delete(m.visible, i)
	}
	m.fireModelChanged(ModelChangeEvent{Source: m, Kind: TracksVisibilityChanged})
	return true
}

// TrackSpots returns the spots of track i ordered by ID.
func (m *Model) TrackSpots(i int) []*spot.Spot {
	return append([]*spot.Spot(nil), m.partition.Nodes(i)...)
}

// TrackEdges returns the edges of track i ordered by endpoint IDs.
func (m *Model) TrackEdges(i int) []*Edge {
	return append([]*Edge(nil), m.partition.Edges(i)...)
}

// TrackIndexOf returns the track holding s at the last commit.
func (m *Model) TrackIndexOf(s *spot.Spot) (int, bool) {
	return m.partition.ComponentOf(s.ID())
}

// TrackIndexOfEdge returns the track holding e at the last commit.
func (m *Model) TrackIndexOfEdge(e *Edge) (int, bool) {
	return m.partition.ComponentOfEdge(e)
}

// TrackName returns the name of track i, or "" if there is no such track.
func (m *Model) TrackName(i int) string {
	if i < 0 || i >= len(m.names) {
		return ""
	}
	return m.names[i]
}

// SetTrackName renames track i. The name follows the track's spots across
// later edits.
func (m *Model) SetTrackName(i int, name string) error {
	if i < 0 || i >= len(m.names) {
		return fmt.Errorf("%w: %d", ErrTrackNotFound, i)
	}
	m.names[i] = name
	return nil
}

// TrackFeature returns feature f of track i.
func (m *Model) TrackFeature(i int, f features.TrackFeature) (float64, bool) {
	if i < 0 || i >= len(m.trackFeatures) {
		return 0, false
	}
	return m.trackFeatures[i].Get(f)
}

// TrackFeatureTable returns a copy of the track feature table, indexed by
// track.
func (m *Model) TrackFeatureTable() []features.TrackFeatures {
	return append([]features.TrackFeatures(nil), m.trackFeatures...)
}

// TrackToString describes track i: its name, then its spots grouped by
// frame.
func (m *Model) TrackToString(i int) string {
	spots := m.TrackSpots(i)
	if len(spots) == 0 {
		return fmt.Sprintf("track %d: not found", i)
	}
	sort.SliceStable(spots, func(a, b int) bool { return spots[a].Frame() < spots[b].Frame() })

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d spots, %d edges):", m.TrackName(i), len(spots), len(m.partition.Edges(i)))
	frame := spots[0].Frame() - 1
	for _, s := range spots {
		if s.Frame() != frame {
			frame = s.Frame()
			fmt.Fprintf(&b, "\n  t=%d:", frame)
		}
		fmt.Fprintf(&b, " %v", s)
	}
	return b.String()
}
