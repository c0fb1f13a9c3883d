package model

import (
	"fmt"
	"sort"

	"github.com/fiji/fiji-sub027/internal/graph"
)

func (m *Model) freshTrackName() string {
	name := fmt.Sprintf("%s%d", m.cfg.TrackNamePrefix, m.nameSeq)
	m.nameSeq++
	return name
}

// inheritNames names the tracks of next. Larger tracks choose first; each
// takes the name of the unclaimed old track it shares most vertices with
// (lowest old index on ties), or a fresh name when it shares none.
func inheritNames[N graph.Node](old *graph.Partition[N], oldNames []string, next *graph.Partition[N], fresh func() string) []string {
	order := make([]int, next.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(next.Nodes(order[a])) > len(next.Nodes(order[b]))
	})

	names := make([]string, next.Len())
	claimed := make(map[int]bool)
	for _, j := range order {
		counts := make(map[int]int)
		for _, n := range next.Nodes(j) {
			if k, ok := old.ComponentOf(n.ID()); ok && !claimed[k] && k < len(oldNames) {
				counts[k]++
			}
		}
		best, bestN := -1, 0
		for k, c := range counts {
			if c > bestN || (c == bestN && k < best) {
				best, bestN = k, c
			}
		}
		if best < 0 {
			names[j] = fresh()
			continue
		}
		claimed[best] = true
		names[j] = oldNames[best]
	}
	return names
}
