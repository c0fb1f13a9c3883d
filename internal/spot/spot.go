package spot

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// Feature names a scalar value attached to a spot.
type Feature string

// Reserved and well-known spot features. Position is stored in the feature
// map under the three POSITION_* keys.
const (
	PositionX Feature = "POSITION_X"
	PositionY Feature = "POSITION_Y"
	PositionZ Feature = "POSITION_Z"
	Radius    Feature = "RADIUS"
	Quality   Feature = "QUALITY"

	MeanIntensity     Feature = "MEAN_INTENSITY"
	MedianIntensity   Feature = "MEDIAN_INTENSITY"
	MinIntensity      Feature = "MIN_INTENSITY"
	MaxIntensity      Feature = "MAX_INTENSITY"
	TotalIntensity    Feature = "TOTAL_INTENSITY"
	StandardDeviation Feature = "STANDARD_DEVIATION"
	Contrast          Feature = "CONTRAST"
	SNR               Feature = "SNR"
)

// IDAllocator hands out spot identities. Each model owns one, so that
// independent models never share a counter. Safe for concurrent use.
type IDAllocator struct {
	next atomic.Int64
}

// NewIDAllocator returns an allocator whose first identity is 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh identity.
func (a *IDAllocator) Next() int64 {
	return a.next.Add(1) - 1
}

// NewSpot creates a spot at the given position with a fresh identity.
func (a *IDAllocator) NewSpot(x, y, z, radius, quality float64) *Spot {
	s := &Spot{
		id:       a.Next(),
		features: make(map[Feature]float64, 8),
	}
	s.features[PositionX] = x
	s.features[PositionY] = y
	s.features[PositionZ] = z
	s.features[Radius] = radius
	s.features[Quality] = quality
	return s
}

// Spot is a single detection: an identity, a frame index and a sparse
// feature map.
//
// The frame is set by the Collection the spot is added to. Spots held by a
// model are relocated with Model.MoveSpotFrom.
type Spot struct {
	id       int64
	Name     string
	frame    int
	features map[Feature]float64
}

// ID returns the spot identity. It also satisfies gonum's graph.Node.
func (s *Spot) ID() int64 { return s.id }

// Frame returns the frame index of the spot.
func (s *Spot) Frame() int { return s.frame }

// Feature returns the value stored for f and whether it was set.
func (s *Spot) Feature(f Feature) (float64, bool) {
	v, ok := s.features[f]
	return v, ok
}

// PutFeature stores v under f.
func (s *Spot) PutFeature(f Feature, v float64) {
	if s.features == nil {
		s.features = make(map[Feature]float64, 8)
	}
	s.features[f] = v
}

// Features returns a copy of the feature map.
func (s *Spot) Features() map[Feature]float64 {
	out := make(map[Feature]float64, len(s.features))
	for k, v := range s.features {
		out[k] = v
	}
	return out
}

// FeatureNames returns the names of all set features, sorted.
func (s *Spot) FeatureNames() []Feature {
	names := make([]Feature, 0, len(s.features))
	for k := range s.features {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Position returns the reserved position features; unset coordinates are 0.
func (s *Spot) Position() (x, y, z float64) {
	return s.features[PositionX], s.features[PositionY], s.features[PositionZ]
}

// SquareDistanceTo returns the squared euclidean distance between two spots.
func (s *Spot) SquareDistanceTo(o *Spot) float64 {
	x0, y0, z0 := s.Position()
	x1, y1, z1 := o.Position()
	dx, dy, dz := x1-x0, y1-y0, z1-z0
	return dx*dx + dy*dy + dz*dz
}

// DistanceTo returns the euclidean distance between two spots.
func (s *Spot) DistanceTo(o *Spot) float64 {
	return math.Sqrt(s.SquareDistanceTo(o))
}

func (s *Spot) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("ID%d", s.id)
}

// SortByID sorts spots in place by identity.
func SortByID(spots []*Spot) {
	sort.Slice(spots, func(i, j int) bool { return spots[i].id < spots[j].id })
}
