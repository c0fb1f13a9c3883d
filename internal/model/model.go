package model

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/graph"
	"github.com/fiji/fiji-sub027/internal/spot"
)

var (
	// ErrUnbalancedUpdate is returned by EndUpdate when no transaction is
	// open. The model is left unchanged.
	ErrUnbalancedUpdate = errors.New("EndUpdate without matching BeginUpdate")

	// ErrFeatureComputation wraps the failures of individual frames or
	// tracks during a commit. The commit itself still completed.
	ErrFeatureComputation = errors.New("feature computation failed")

	// ErrTransactionOpen is returned by bulk operations that must run as
	// their own transaction.
	ErrTransactionOpen = errors.New("operation not allowed inside an open transaction")

	// ErrFrameMismatch is returned when a spot is addressed by a frame it
	// does not belong to.
	ErrFrameMismatch = errors.New("spot is not in the given frame")

	// ErrTrackNotFound is returned for track indices outside 0..NTracks()-1.
	ErrTrackNotFound = errors.New("track not found")
)

// Edge is a link between two spots.
type Edge = graph.Edge[*spot.Spot]

// Link describes an edge for SetGraph.
type Link struct {
	Source *spot.Spot
	Target *spot.Spot
	Weight float64
}

// Model is the track-graph model. The zero value is not usable; call New.
type Model struct {
	id  uuid.UUID
	cfg Config

	graph    *graph.Graph[*spot.Spot]
	spots    *spot.Collection
	filtered *spot.Collection

	partition     *graph.Partition[*spot.Spot]
	visible       map[int]bool
	names         []string
	nameSeq       int
	trackFeatures []features.TrackFeatures

	filters FilterSet
	tx      transaction
	sel     selection

	modelListeners     listenerSet[ModelChangeListener]
	selectionListeners listenerSet[SelectionChangeListener]
}

// New returns an empty model.
func New(cfg Config) *Model {
	if cfg.FeatureThreads < 1 {
		cfg.FeatureThreads = runtime.NumCPU()
	}
	if cfg.IDs == nil {
		cfg.IDs = spot.NewIDAllocator()
	}
	return &Model{
		id:       uuid.New(),
		cfg:      cfg,
		graph:    graph.New[*spot.Spot](),
		spots:    spot.NewCollection(),
		filtered: spot.NewCollection(),
		visible:  make(map[int]bool),
		sel:      newSelection(),
	}
}

// ID returns the identity of this model instance.
func (m *Model) ID() uuid.UUID { return m.id }

// NewSpot creates a spot with an identity from the model's allocator. The
// spot is not added to the model.
func (m *Model) NewSpot(x, y, z, radius, quality float64) *spot.Spot {
	return m.cfg.IDs.NewSpot(x, y, z, radius, quality)
}

// endImplicit closes the transaction opened by a single mutator and merges
// the commit error into *err.
func (m *Model) endImplicit(err *error) {
	*err = errors.Join(*err, m.EndUpdate())
}

// AddSpotTo adds s to the model in the given frame.
func (m *Model) AddSpotTo(s *spot.Spot, frame int) (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	return m.addSpot(s, frame)
}

func (m *Model) addSpot(s *spot.Spot, frame int) error {
	if err := m.graph.AddVertex(s); err != nil {
		diagf("add spot %v: %v", s, err)
		return err
	}
	m.tx.touchSpot(s, false, 0)
	m.spots.Add(s, frame)
	m.filtered.Add(s, frame)
	m.tx.spotsAdded = append(m.tx.spotsAdded, s)
	return nil
}

// RemoveSpot removes s, and every link touching it, from the model.
func (m *Model) RemoveSpot(s *spot.Spot) (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	frame, ok := m.spots.FrameOf(s)
	if !ok {
		diagf("remove spot %v: not in model", s)
		return fmt.Errorf("%w: %v", graph.ErrNodeNotFound, s)
	}
	return m.removeSpot(s, frame)
}

// RemoveSpotFrom removes s, which must be in the given frame.
func (m *Model) RemoveSpotFrom(s *spot.Spot, frame int) (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	return m.removeSpot(s, frame)
}

func (m *Model) removeSpot(s *spot.Spot, frame int) error {
	actual, ok := m.spots.FrameOf(s)
	if !ok || !m.graph.ContainsVertex(s) {
		diagf("remove spot %v: not in model", s)
		return fmt.Errorf("%w: %v", graph.ErrNodeNotFound, s)
	}
	if actual != frame {
		diagf("remove spot %v from frame %d: spot is in frame %d", s, frame, actual)
		return fmt.Errorf("%w: %v is in frame %d, not %d", ErrFrameMismatch, s, actual, frame)
	}
	m.tx.touchSpot(s, true, frame)
	removed, err := m.graph.RemoveVertex(s)
	if err != nil {
		return err
	}
	for _, e := range removed {
		m.tx.touchEdge(e, true)
		m.tx.edgesRemoved = append(m.tx.edgesRemoved, e)
	}
	m.spots.Remove(s, frame)
	m.filtered.Remove(s, frame)
	m.tx.spotsRemoved = append(m.tx.spotsRemoved, s)
	return nil
}

// MoveSpotFrom moves s from one frame to another. Moving a spot to the
// frame it is already in does nothing.
func (m *Model) MoveSpotFrom(s *spot.Spot, from, to int) (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)

	actual, ok := m.spots.FrameOf(s)
	if !ok {
		diagf("move spot %v: not in model", s)
		return fmt.Errorf("%w: %v", graph.ErrNodeNotFound, s)
	}
	if actual != from {
		diagf("move spot %v from frame %d: spot is in frame %d", s, from, actual)
		return fmt.Errorf("%w: %v is in frame %d, not %d", ErrFrameMismatch, s, actual, from)
	}
	if from == to {
		return nil
	}
	m.tx.touchSpot(s, true, from)
	m.spots.Move(s, from, to)
	if m.filtered.Contains(s) {
		m.filtered.Move(s, from, to)
	}
	m.tx.spotsMoved = append(m.tx.spotsMoved, s)
	return nil
}

// UpdateFeatures marks s as modified, so its spot features are recomputed
// and it is reported as MODIFIED on commit.
func (m *Model) UpdateFeatures(s *spot.Spot) (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	if !m.graph.ContainsVertex(s) {
		diagf("update spot %v: not in model", s)
		return fmt.Errorf("%w: %v", graph.ErrNodeNotFound, s)
	}
	m.tx.touchSpot(s, true, s.Frame())
	m.tx.spotsUpdated = append(m.tx.spotsUpdated, s)
	return nil
}

// AddEdge links a and b. Both spots must already be in the model.
func (m *Model) AddEdge(a, b *spot.Spot, weight float64) (e *Edge, err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	return m.addEdge(a, b, weight)
}

func (m *Model) addEdge(a, b *spot.Spot, weight float64) (*Edge, error) {
	e, err := m.graph.AddEdge(a, b, weight)
	if err != nil {
		diagf("add edge %v-%v: %v", a, b, err)
		return nil, err
	}
	m.tx.touchEdge(e, false)
	m.tx.edgesAdded = append(m.tx.edgesAdded, e)
	return e, nil
}

// RemoveEdgeBetween removes the link between a and b and returns it.
func (m *Model) RemoveEdgeBetween(a, b *spot.Spot) (e *Edge, err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	cur, ok := m.graph.EdgeBetween(a, b)
	if !ok {
		diagf("remove edge %v-%v: not in model", a, b)
		return nil, fmt.Errorf("%w: %v-%v", graph.ErrEdgeNotFound, a, b)
	}
	return cur, m.removeEdge(cur)
}

// RemoveEdge removes e.
func (m *Model) RemoveEdge(e *Edge) (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	return m.removeEdge(e)
}

func (m *Model) removeEdge(e *Edge) error {
	if !m.graph.ContainsEdge(e) {
		diagf("remove edge %v: not in model", e)
		return graph.ErrEdgeNotFound
	}
	m.tx.touchEdge(e, true)
	if err := m.graph.RemoveEdge(e); err != nil {
		return err
	}
	m.tx.edgesRemoved = append(m.tx.edgesRemoved, e)
	return nil
}

// SetEdgeWeight changes the weight of e. Weight changes are not structural
// and do not produce change events.
func (m *Model) SetEdgeWeight(e *Edge, weight float64) error {
	if err := m.graph.SetEdgeWeight(e, weight); err != nil {
		diagf("set weight of %v: %v", e, err)
		return err
	}
	return nil
}

// SetSpots replaces every spot in the model with the content of c, in one
// commit reported as SpotsComputed. Links between replaced spots are
// dropped.
func (m *Model) SetSpots(c *spot.Collection) error {
	if m.tx.depth > 0 {
		return ErrTransactionOpen
	}
	m.BeginUpdate()
	m.tx.kind = SpotsComputed

	var errs []error
	for _, s := range m.graph.VertexSet() {
		frame, _ := m.spots.FrameOf(s)
		if err := m.removeSpot(s, frame); err != nil {
			errs = append(errs, err)
		}
	}
	c.Iterate(func(frame int, s *spot.Spot) bool {
		if err := m.addSpot(s, frame); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errors.Join(errs...), m.EndUpdate())
}

// SetGraph replaces every link in the model with links, in one commit
// reported as TracksComputed. Every resulting track is made visible.
func (m *Model) SetGraph(links []Link) error {
	if m.tx.depth > 0 {
		return ErrTransactionOpen
	}
	m.BeginUpdate()
	m.tx.kind = TracksComputed
	m.tx.resetVisibility = true

	var errs []error
	for _, e := range m.graph.EdgeSet() {
		if err := m.removeEdge(e); err != nil {
			errs = append(errs, err)
		}
	}
	for _, l := range links {
		if _, err := m.addEdge(l.Source, l.Target, l.Weight); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errors.Join(errs...), m.EndUpdate())
}

// ExecInitialSpotFiltering removes, in one commit, every spot whose quality
// is below threshold. Spots without a quality are kept. It returns the
// number of spots removed.
func (m *Model) ExecInitialSpotFiltering(threshold float64) (removed int, err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)

	f := SpotFilter{Feature: spot.Quality, Value: threshold, IsAbove: true}
	var errs []error
	for _, s := range m.spots.All() {
		if f.Accept(s.Feature(f.Feature)) {
			continue
		}
		frame, _ := m.spots.FrameOf(s)
		if err := m.removeSpot(s, frame); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	diagf("initial filtering at quality %g removed %d spots", threshold, removed)
	return removed, errors.Join(errs...)
}

// ComputeSpotFeatures recomputes the spot features of every spot in one
// commit reported as SpotsComputed.
func (m *Model) ComputeSpotFeatures() (err error) {
	m.BeginUpdate()
	defer m.endImplicit(&err)
	if m.tx.depth == 1 {
		m.tx.kind = SpotsComputed
	}
	for _, s := range m.graph.VertexSet() {
		m.tx.touchSpot(s, true, s.Frame())
		m.tx.spotsUpdated = append(m.tx.spotsUpdated, s)
	}
	return nil
}
