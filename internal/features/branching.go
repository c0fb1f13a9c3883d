package features

import (
	"math"

	"github.com/fiji/fiji-sub027/internal/spot"
)

// BranchingAnalyzer counts spots, gaps and topological events, and reports
// the temporal extent of a track.
//
// An edge is oriented from the earlier to the later frame. A split is a spot
// with more than one successor, a merge a spot with more than one
// predecessor, and a complex point a spot that is both. A gap is an edge that
// skips at least one frame.
type BranchingAnalyzer struct {
	cal Calibration
}

// NewBranchingAnalyzer returns a BranchingAnalyzer.
func NewBranchingAnalyzer(cal Calibration) *BranchingAnalyzer {
	return &BranchingAnalyzer{cal: cal}
}

func (a *BranchingAnalyzer) Name() string { return "branching" }

func (a *BranchingAnalyzer) Features() []TrackFeature {
	return []TrackFeature{
		NumberSpots, NumberGaps, LongestGap, NumberSplits, NumberMerges,
		NumberComplex, TrackDuration, TrackStart, TrackStop, TrackDisplacement,
	}
}

// Process implements TrackAnalyzer.
func (a *BranchingAnalyzer) Process(t Track, out *TrackFeatures) error {
	out.Put(NumberSpots, float64(len(t.Spots)))

	succ := make(map[int64]int, len(t.Spots))
	pred := make(map[int64]int, len(t.Spots))
	gaps, longest := 0, 0
	for _, e := range t.Edges {
		early, late := orient(e.Source(), e.Target())
		if early.Frame() != late.Frame() {
			succ[early.ID()]++
			pred[late.ID()]++
		}
		if d := late.Frame() - early.Frame(); d > 1 {
			gaps++
			longest = max(longest, d-1)
		}
	}
	splits, merges, complexes := 0, 0, 0
	for _, s := range t.Spots {
		sp, mg := succ[s.ID()] > 1, pred[s.ID()] > 1
		if sp {
			splits++
		}
		if mg {
			merges++
		}
		if sp && mg {
			complexes++
		}
	}
	out.Put(NumberGaps, float64(gaps))
	out.Put(LongestGap, float64(longest))
	out.Put(NumberSplits, float64(splits))
	out.Put(NumberMerges, float64(merges))
	out.Put(NumberComplex, float64(complexes))

	if len(t.Spots) == 0 {
		return nil
	}
	first, last := t.Spots[0], t.Spots[0]
	for _, s := range t.Spots[1:] {
		if s.Frame() < first.Frame() {
			first = s
		}
		if s.Frame() > last.Frame() {
			last = s
		}
	}
	interval := a.cal.FrameInterval
	if interval <= 0 || math.IsNaN(interval) {
		interval = 1
	}
	out.Put(TrackStart, float64(first.Frame())*interval)
	out.Put(TrackStop, float64(last.Frame())*interval)
	out.Put(TrackDuration, float64(last.Frame()-first.Frame())*interval)
	out.Put(TrackDisplacement, first.DistanceTo(last))
	return nil
}

// orient returns the endpoints ordered by frame, then by ID.
func orient(a, b *spot.Spot) (early, late *spot.Spot) {
	if a.Frame() < b.Frame() || (a.Frame() == b.Frame() && a.ID() < b.ID()) {
		return a, b
	}
	return b, a
}
