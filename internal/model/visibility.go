package model

import (
	"github.com/fiji/fiji-sub027/internal/graph"
	"github.com/fiji/fiji-sub027/internal/monitoring"
)

// InheritVisibility derives the visible tracks of next from the visible
// tracks of old: track j of next is visible iff one of its vertices was in
// a visible track of old. A track that splits leaves every piece visible; a
// merge with any visible track is visible. An empty oldVisible yields an
// empty result.
//
// Runs in O(V) using the vertex index of old.
func InheritVisibility[N graph.Node](old *graph.Partition[N], oldVisible map[int]bool, next *graph.Partition[N]) map[int]bool {
	out := make(map[int]bool)
	if len(oldVisible) == 0 {
		return out
	}
	for j := 0; j < next.Len(); j++ {
		for _, n := range next.Nodes(j) {
			if k, ok := old.ComponentOf(n.ID()); ok && oldVisible[k] {
				out[j] = true
				break
			}
		}
	}
	return out
}

// markNewborn sets visible every track of next none of whose vertices
// existed in old.
func markNewborn[N graph.Node](old, next *graph.Partition[N], visible map[int]bool) {
	for j := 0; j < next.Len(); j++ {
		if visible[j] {
			continue
		}
		newborn := true
		for _, n := range next.Nodes(j) {
			if _, ok := old.ComponentOf(n.ID()); ok {
				newborn = false
				break
			}
		}
		if newborn {
			visible[j] = true
		}
	}
}

func allVisible(n int) map[int]bool {
	out := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		out[i] = true
	}
	return out
}

// repartition recomputes the tracks and carries visibility and names over
// from the previous partition. The first partition, and any partition with
// reset set, is entirely visible.
func (m *Model) repartition(reset bool) {
	old, oldVisible := m.partition, m.visible
	next := m.graph.Partition()

	var visible map[int]bool
	if old == nil || reset {
		visible = allVisible(next.Len())
	} else {
		visible = InheritVisibility(old, oldVisible, next)
		if m.cfg.NewbornTracksVisible {
			markNewborn(old, next, visible)
		}
	}
	m.names = inheritNames(old, m.names, next, m.freshTrackName)
	m.partition, m.visible = next, visible

	monitoring.Tracks.Set(float64(next.Len()))
	diagf("repartition: %d -> %d tracks, %d visible", old.Len(), next.Len(), len(visible))
}
