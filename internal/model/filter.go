package model

import (
	"fmt"
	"slices"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// FeatureFilter is a threshold on one feature. With IsAbove set it keeps
// values >= Value, otherwise values <= Value. Items that lack the feature
// are kept.
type FeatureFilter[F comparable] struct {
	Feature F
	Value   float64
	IsAbove bool
}

// Accept applies the filter to a value and whether it was present.
func (f FeatureFilter[F]) Accept(v float64, ok bool) bool {
	if !ok {
		return true
	}
	if f.IsAbove {
		return v >= f.Value
	}
	return v <= f.Value
}

func (f FeatureFilter[F]) String() string {
	op := "<="
	if f.IsAbove {
		op = ">="
	}
	return fmt.Sprintf("%v %s %g", f.Feature, op, f.Value)
}

// SpotFilter filters spots on a spot feature.
type SpotFilter = FeatureFilter[spot.Feature]

// TrackFilter filters tracks on a track feature.
type TrackFilter = FeatureFilter[features.TrackFeature]

// FilterSet holds the spot and track filters of a model. An item passes a
// list when it passes every filter in it.
type FilterSet struct {
	Spots  []SpotFilter
	Tracks []TrackFilter
}

// AcceptSpot reports whether s passes every spot filter.
func (fs FilterSet) AcceptSpot(s *spot.Spot) bool {
	for _, f := range fs.Spots {
		if !f.Accept(s.Feature(f.Feature)) {
			return false
		}
	}
	return true
}

// AcceptTrack reports whether a track with the given features passes every
// track filter.
func (fs FilterSet) AcceptTrack(tf *features.TrackFeatures) bool {
	for _, f := range fs.Tracks {
		if !f.Accept(tf.Get(f.Feature)) {
			return false
		}
	}
	return true
}

// AddSpotFilter appends a spot filter. Filters take effect on the next
// ExecSpotFiltering.
func (m *Model) AddSpotFilter(f SpotFilter) {
	m.filters.Spots = append(m.filters.Spots, f)
}

// AddTrackFilter appends a track filter. Filters take effect on the next
// ExecTrackFiltering.
func (m *Model) AddTrackFilter(f TrackFilter) {
	m.filters.Tracks = append(m.filters.Tracks, f)
}

// RemoveSpotFilter removes the first spot filter equal to f. It reports
// whether one was found.
func (m *Model) RemoveSpotFilter(f SpotFilter) bool {
	i := slices.Index(m.filters.Spots, f)
	if i < 0 {
		return false
	}
	m.filters.Spots = slices.Delete(m.filters.Spots, i, i+1)
	return true
}

// RemoveTrackFilter removes the first track filter equal to f. It reports
// whether one was found.
func (m *Model) RemoveTrackFilter(f TrackFilter) bool {
	i := slices.Index(m.filters.Tracks, f)
	if i < 0 {
		return false
	}
	m.filters.Tracks = slices.Delete(m.filters.Tracks, i, i+1)
	return true
}

// SetSpotFilters replaces the spot filters.
func (m *Model) SetSpotFilters(fs []SpotFilter) {
	m.filters.Spots = append([]SpotFilter(nil), fs...)
}

// SetTrackFilters replaces the track filters.
func (m *Model) SetTrackFilters(fs []TrackFilter) {
	m.filters.Tracks = append([]TrackFilter(nil), fs...)
}

// Filters returns a copy of the filter set.
func (m *Model) Filters() FilterSet {
	return FilterSet{
		Spots:  append([]SpotFilter(nil), m.filters.Spots...),
		Tracks: append([]TrackFilter(nil), m.filters.Tracks...),
	}
}

// ExecSpotFiltering rebuilds the filtered spot collection from every spot
// in the model and the spot filters, and sends a SpotsFiltered event.
func (m *Model) ExecSpotFiltering() {
	m.filtered = m.spots.Filter(m.filters.AcceptSpot)
	diagf("spot filtering: %d of %d spots kept", m.filtered.NSpots(), m.spots.NSpots())
	m.fireModelChanged(ModelChangeEvent{Source: m, Kind: SpotsFiltered})
}

// ExecTrackFiltering rebuilds the visible track set from the track filters,
// and sends a TracksVisibilityChanged event.
func (m *Model) ExecTrackFiltering() {
	visible := make(map[int]bool)
	for i := range m.trackFeatures {
		if m.filters.AcceptTrack(&m.trackFeatures[i]) {
			visible[i] = true
		}
	}
	m.visible = visible
	diagf("track filtering: %d of %d tracks visible", len(visible), m.partition.Len())
	m.fireModelChanged(ModelChangeEvent{Source: m, Kind: TracksVisibilityChanged})
}
