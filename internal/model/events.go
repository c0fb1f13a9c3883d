package model

import (
	"fmt"

	"github.com/fiji/fiji-sub027/internal/monitoring"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// EventKind tells listeners which operation produced a ModelChangeEvent.
type EventKind int

const (
	ModelModified EventKind = iota
	SpotsComputed
	TracksComputed
	SpotsFiltered
	TracksVisibilityChanged
)

func (k EventKind) String() string {
	switch k {
	case ModelModified:
		return "ModelModified"
	case SpotsComputed:
		return "SpotsComputed"
	case TracksComputed:
		return "TracksComputed"
	case SpotsFiltered:
		return "SpotsFiltered"
	case TracksVisibilityChanged:
		return "TracksVisibilityChanged"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// SpotFlag is the net change of one spot over a commit.
type SpotFlag int

const (
	SpotAdded SpotFlag = iota
	SpotRemoved
	SpotFrameChanged
	SpotModified
)

func (f SpotFlag) String() string {
	switch f {
	case SpotAdded:
		return "ADDED"
	case SpotRemoved:
		return "REMOVED"
	case SpotFrameChanged:
		return "FRAME_CHANGED"
	case SpotModified:
		return "MODIFIED"
	}
	return fmt.Sprintf("SpotFlag(%d)", int(f))
}

// EdgeFlag is the net change of one edge over a commit.
type EdgeFlag int

const (
	EdgeAdded EdgeFlag = iota
	EdgeRemoved
)

func (f EdgeFlag) String() string {
	switch f {
	case EdgeAdded:
		return "ADDED"
	case EdgeRemoved:
		return "REMOVED"
	}
	return fmt.Sprintf("EdgeFlag(%d)", int(f))
}

// SpotChange reports one spot. Frame is the frame after the commit, or the
// last frame of a removed spot; PrevFrame is the frame before the commit.
type SpotChange struct {
	Spot      *spot.Spot
	Flag      SpotFlag
	Frame     int
	PrevFrame int
}

// EdgeChange reports one edge.
type EdgeChange struct {
	Edge *Edge
	Flag EdgeFlag
}

// ModelChangeEvent is sent once per commit, and once per explicit filtering
// or visibility operation. The slices are fresh copies shared by every
// listener of the event; listeners must not modify them.
type ModelChangeEvent struct {
	Source *Model
	Kind   EventKind
	Spots  []SpotChange
	Edges  []EdgeChange

	// TracksRecomputed is set when the commit repartitioned the graph;
	// track indices from before the event are then void.
	TracksRecomputed bool

	// Errors holds the feature failures of the commit, one per failing
	// frame or track.
	Errors []error
}

// ModelChangeListener receives structural change events.
type ModelChangeListener interface {
	ModelChanged(ev ModelChangeEvent)
}

// ModelChangeListenerFunc adapts a function to ModelChangeListener.
type ModelChangeListenerFunc func(ev ModelChangeEvent)

func (f ModelChangeListenerFunc) ModelChanged(ev ModelChangeEvent) { f(ev) }

// SelectionChangeEvent is sent immediately by every selection call that
// changed the selection.
type SelectionChangeEvent struct {
	Source       *Model
	SpotsAdded   []*spot.Spot
	SpotsRemoved []*spot.Spot
	EdgesAdded   []*Edge
	EdgesRemoved []*Edge
}

// SelectionChangeListener receives selection change events.
type SelectionChangeListener interface {
	SelectionChanged(ev SelectionChangeEvent)
}

// SelectionChangeListenerFunc adapts a function to SelectionChangeListener.
type SelectionChangeListenerFunc func(ev SelectionChangeEvent)

func (f SelectionChangeListenerFunc) SelectionChanged(ev SelectionChangeEvent) { f(ev) }

type listenerEntry[L any] struct {
	id int
	l  L
}

type listenerSet[L any] struct {
	next    int
	entries []listenerEntry[L]
}

func (s *listenerSet[L]) add(l L) (remove func()) {
	id := s.next
	s.next++
	s.entries = append(s.entries, listenerEntry[L]{id: id, l: l})
	return func() {
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
				return
			}
		}
	}
}

// snapshot copies the listeners, so a listener may unregister itself
// during dispatch.
func (s *listenerSet[L]) snapshot() []L {
	out := make([]L, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.l
	}
	return out
}

// AddModelChangeListener registers l and returns a function that
// unregisters it.
func (m *Model) AddModelChangeListener(l ModelChangeListener) (remove func()) {
	return m.modelListeners.add(l)
}

// AddSelectionChangeListener registers l and returns a function that
// unregisters it.
func (m *Model) AddSelectionChangeListener(l SelectionChangeListener) (remove func()) {
	return m.selectionListeners.add(l)
}

func (m *Model) fireModelChanged(ev ModelChangeEvent) {
	monitoring.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	for _, l := range m.modelListeners.snapshot() {
		l.ModelChanged(ev)
	}
}

func (m *Model) fireSelectionChanged(ev SelectionChangeEvent) {
	for _, l := range m.selectionListeners.snapshot() {
		l.SelectionChanged(ev)
	}
}
