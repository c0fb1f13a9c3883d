package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiji/fiji-sub027/internal/spot"
)

type selectionRecorder struct {
	events []SelectionChangeEvent
}

func (r *selectionRecorder) SelectionChanged(ev SelectionChangeEvent) {
	r.events = append(r.events, ev)
}

func TestSelection_FiresImmediately(t *testing.T) {
	m, rec := newTestModel(t, DefaultConfig())
	sel := &selectionRecorder{}
	m.AddSelectionChangeListener(sel)
	s := addSpots(t, m, 0, 1)
	link(t, m, [2]*spot.Spot{s[0], s[1]})
	e, _ := m.EdgeBetween(s[0], s[1])
	structural := len(rec.events)

	m.BeginUpdate()
	m.AddSpotToSelection(s[0], s[1])
	require.Len(t, sel.events, 1, "selection events are not batched")
	assert.Equal(t, []*spot.Spot{s[0], s[1]}, sel.events[0].SpotsAdded)
	m.AddEdgeToSelection(e)
	require.Len(t, sel.events, 2)
	require.NoError(t, m.EndUpdate())
	assert.Len(t, rec.events, structural, "selection does not produce structural events")

	assert.True(t, m.IsSpotSelected(s[0]))
	assert.True(t, m.IsEdgeSelected(e))

	// Re-selecting and selecting strangers change nothing.
	m.AddSpotToSelection(s[0], m.NewSpot(0, 0, 0, 1, 1))
	assert.Len(t, sel.events, 2)

	m.RemoveSpotFromSelection(s[1])
	require.Len(t, sel.events, 3)
	assert.Equal(t, []*spot.Spot{s[1]}, sel.events[2].SpotsRemoved)
	m.RemoveEdgeFromSelection(e)
	require.Len(t, sel.events, 4)
	assert.Equal(t, []*Edge{e}, sel.events[3].EdgesRemoved)
}

func TestSelection_PrunedOnCommit(t *testing.T) {
	m, _ := newTestModel(t, DefaultConfig())
	sel := &selectionRecorder{}
	m.AddSelectionChangeListener(sel)
	s := addSpots(t, m, 0, 1, 2)
	link(t, m, [2]*spot.Spot{s[0], s[1]}, [2]*spot.Spot{s[1], s[2]})
	e01, _ := m.EdgeBetween(s[0], s[1])
	m.AddSpotToSelection(s[0], s[2])
	m.AddEdgeToSelection(e01)
	sel.events = nil

	require.NoError(t, m.RemoveSpot(s[0]))
	require.Len(t, sel.events, 1)
	assert.Equal(t, []*spot.Spot{s[0]}, sel.events[0].SpotsRemoved)
	assert.Equal(t, []*Edge{e01}, sel.events[0].EdgesRemoved)
	assert.Equal(t, []*spot.Spot{s[2]}, m.SpotSelection())
	assert.Empty(t, m.EdgeSelection())
}

func TestSelection_Clear(t *testing.T) {
	m, _ := newTestModel(t, DefaultConfig())
	sel := &selectionRecorder{}
	remove := m.AddSelectionChangeListener(sel)
	s := addSpots(t, m, 0)
	m.AddSpotToSelection(s[0])

	m.ClearSelection()
	require.Len(t, sel.events, 2)
	assert.Equal(t, []*spot.Spot{s[0]}, sel.events[1].SpotsRemoved)
	m.ClearSelection()
	assert.Len(t, sel.events, 2)

	remove()
	m.AddSpotToSelection(s[0])
	assert.Len(t, sel.events, 2)
}
