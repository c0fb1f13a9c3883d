package model

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fiji/fiji-sub027/internal/monitoring"
	"github.com/fiji/fiji-sub027/internal/spot"
)

type spotState struct {
	present bool
	frame   int
}

// transaction accumulates the dirty state of the open update. The first
// touch of each spot and edge records its state before the transaction, so
// the commit can report net changes.
type transaction struct {
	depth int

	spotsAdded   []*spot.Spot
	spotsRemoved []*spot.Spot
	spotsMoved   []*spot.Spot
	spotsUpdated []*spot.Spot
	edgesAdded   []*Edge
	edgesRemoved []*Edge

	spotBefore map[*spot.Spot]spotState
	spotOrder  []*spot.Spot
	edgeBefore map[*Edge]bool
	edgeOrder  []*Edge

	kind            EventKind
	resetVisibility bool
}

func (t *transaction) touchSpot(s *spot.Spot, present bool, frame int) {
	if t.spotBefore == nil {
		t.spotBefore = make(map[*spot.Spot]spotState)
	}
	if _, ok := t.spotBefore[s]; ok {
		return
	}
	t.spotBefore[s] = spotState{present: present, frame: frame}
	t.spotOrder = append(t.spotOrder, s)
}

func (t *transaction) touchEdge(e *Edge, existed bool) {
	if t.edgeBefore == nil {
		t.edgeBefore = make(map[*Edge]bool)
	}
	if _, ok := t.edgeBefore[e]; ok {
		return
	}
	t.edgeBefore[e] = existed
	t.edgeOrder = append(t.edgeOrder, e)
}

func (t *transaction) structural() bool {
	return len(t.edgesAdded)+len(t.edgesRemoved)+len(t.spotsAdded)+len(t.spotsRemoved) > 0
}

// BeginUpdate opens a transaction, or nests inside the open one.
func (m *Model) BeginUpdate() {
	m.tx.depth++
}

// EndUpdate closes the innermost transaction. Closing the outermost one
// commits. Feature failures during the commit are returned wrapped in
// ErrFeatureComputation; the commit is complete regardless.
func (m *Model) EndUpdate() error {
	if m.tx.depth == 0 {
		opsf("EndUpdate called with no open transaction")
		monitoring.UnbalancedUpdates.Inc()
		return ErrUnbalancedUpdate
	}
	m.tx.depth--
	if m.tx.depth > 0 {
		return nil
	}
	return m.commit()
}

// Depth returns the nesting depth of the open transaction, 0 if none.
func (m *Model) Depth() int { return m.tx.depth }

func (m *Model) commit() error {
	start := time.Now()

	// Detach the dirty state first; listeners may open new transactions.
	tx := m.tx
	m.tx = transaction{}

	spotChanges := m.coalesceSpots(&tx)
	edgeChanges := m.coalesceEdges(&tx)

	structural := tx.structural()
	if structural {
		m.repartition(tx.resetVisibility)
	}

	var errs []error
	dirty := m.dirtySpots(&tx)
	if len(dirty) > 0 && len(m.cfg.SpotAnalyzers) > 0 {
		errs = append(errs, m.computeSpotFeatures(dirty)...)
	}
	if structural || len(dirty) > 0 {
		errs = append(errs, m.computeTrackFeatures()...)
	}
	m.pruneSelection()

	elapsed := time.Since(start)
	monitoring.CommitsTotal.Inc()
	monitoring.CommitDuration.Observe(elapsed.Seconds())
	monitoring.Spots.Set(float64(m.graph.Order()))
	tracef("commit %s: %d spot changes, %d edge changes, %d tracks, %d failures in %v",
		tx.kind, len(spotChanges), len(edgeChanges), m.partition.Len(), len(errs), elapsed)

	var err error
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", ErrFeatureComputation, errors.Join(errs...))
	}
	if len(spotChanges) == 0 && len(edgeChanges) == 0 {
		return err
	}
	m.fireModelChanged(ModelChangeEvent{
		Source:           m,
		Kind:             tx.kind,
		Spots:            spotChanges,
		Edges:            edgeChanges,
		TracksRecomputed: structural,
		Errors:           errs,
	})
	return err
}

// coalesceSpots reduces the transaction to one change per spot, comparing
// the state at first touch with the state now.
func (m *Model) coalesceSpots(tx *transaction) []SpotChange {
	var out []SpotChange
	for _, s := range tx.spotOrder {
		before := tx.spotBefore[s]
		present := m.graph.ContainsVertex(s)
		c := SpotChange{Spot: s, Frame: s.Frame(), PrevFrame: before.frame}
		switch {
		case !before.present && present:
			c.Flag = SpotAdded
			c.PrevFrame = s.Frame()
		case before.present && !present:
			c.Flag = SpotRemoved
			c.Frame = before.frame
		case !before.present && !present:
			continue
		case s.Frame() != before.frame:
			c.Flag = SpotFrameChanged
		default:
			c.Flag = SpotModified
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spot.ID() < out[j].Spot.ID() })
	return out
}

func (m *Model) coalesceEdges(tx *transaction) []EdgeChange {
	var out []EdgeChange
	for _, e := range tx.edgeOrder {
		existed, present := tx.edgeBefore[e], m.graph.ContainsEdge(e)
		switch {
		case !existed && present:
			out = append(out, EdgeChange{Edge: e, Flag: EdgeAdded})
		case existed && !present:
			out = append(out, EdgeChange{Edge: e, Flag: EdgeRemoved})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Edge, out[j].Edge
		if a.Source().ID() != b.Source().ID() {
			return a.Source().ID() < b.Source().ID()
		}
		return a.Target().ID() < b.Target().ID()
	})
	return out
}

// dirtySpots returns the added, moved and updated spots still in the model,
// without duplicates.
func (m *Model) dirtySpots(tx *transaction) []*spot.Spot {
	seen := make(map[*spot.Spot]bool)
	var out []*spot.Spot
	for _, list := range [][]*spot.Spot{tx.spotsAdded, tx.spotsMoved, tx.spotsUpdated} {
		for _, s := range list {
			if seen[s] || !m.graph.ContainsVertex(s) {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	spot.SortByID(out)
	return out
}
