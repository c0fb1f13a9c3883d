package spot

import (
	"github.com/tidwall/btree"
)

// Collection indexes spots by frame. Frames iterate in ascending order and
// spots within a frame in ascending identity order. A spot is a member of
// at most one frame bucket.
//
// Collection is not safe for concurrent mutation.
type Collection struct {
	frames  btree.Map[int, map[int64]*Spot]
	frameOf map[int64]int
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{frameOf: make(map[int64]int)}
}

// Add puts s in the bucket for frame and records frame as the frame of s.
// It returns false if s is already a member of any bucket.
func (c *Collection) Add(s *Spot, frame int) bool {
	if _, ok := c.frameOf[s.ID()]; ok {
		return false
	}
	s.frame = frame
	bucket, ok := c.frames.Get(frame)
	if !ok {
		bucket = make(map[int64]*Spot)
		c.frames.Set(frame, bucket)
	}
	bucket[s.ID()] = s
	c.frameOf[s.ID()] = frame
	return true
}

// Remove takes s out of the bucket for frame. It returns false if s is not
// in that bucket.
func (c *Collection) Remove(s *Spot, frame int) bool {
	cur, ok := c.frameOf[s.ID()]
	if !ok || cur != frame {
		return false
	}
	bucket, _ := c.frames.Get(frame)
	delete(bucket, s.ID())
	if len(bucket) == 0 {
		c.frames.Delete(frame)
	}
	delete(c.frameOf, s.ID())
	return true
}

// Move relocates s from one bucket to another and updates its frame. It
// returns false, leaving the collection untouched, if s is not in the from
// bucket.
func (c *Collection) Move(s *Spot, from, to int) bool {
	if !c.Remove(s, from) {
		return false
	}
	c.Add(s, to)
	return true
}

// FrameOf returns the bucket holding s.
func (c *Collection) FrameOf(s *Spot) (int, bool) {
	f, ok := c.frameOf[s.ID()]
	return f, ok
}

// Contains reports whether s is a member of any bucket.
func (c *Collection) Contains(s *Spot) bool {
	_, ok := c.frameOf[s.ID()]
	return ok
}

// Get returns the spots of one frame sorted by identity.
func (c *Collection) Get(frame int) []*Spot {
	bucket, ok := c.frames.Get(frame)
	if !ok {
		return nil
	}
	out := make([]*Spot, 0, len(bucket))
	for _, s := range bucket {
		out = append(out, s)
	}
	SortByID(out)
	return out
}

// Frames returns the non-empty frame indices in ascending order.
func (c *Collection) Frames() []int {
	out := make([]int, 0, c.frames.Len())
	c.frames.Scan(func(frame int, _ map[int64]*Spot) bool {
		out = append(out, frame)
		return true
	})
	return out
}

// NSpots returns the number of member spots.
func (c *Collection) NSpots() int { return len(c.frameOf) }

// NFrames returns the number of non-empty frames.
func (c *Collection) NFrames() int { return c.frames.Len() }

// Iterate calls fn for every member, frame by frame. Returning false stops
// the iteration.
func (c *Collection) Iterate(fn func(frame int, s *Spot) bool) {
	c.frames.Scan(func(frame int, _ map[int64]*Spot) bool {
		for _, s := range c.Get(frame) {
			if !fn(frame, s) {
				return false
			}
		}
		return true
	})
}

// All returns every member, ordered by frame then identity.
func (c *Collection) All() []*Spot {
	out := make([]*Spot, 0, len(c.frameOf))
	c.Iterate(func(_ int, s *Spot) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Filter returns a new collection holding the members accepted by keep,
// each in the same frame bucket.
func (c *Collection) Filter(keep func(*Spot) bool) *Collection {
	out := NewCollection()
	c.Iterate(func(frame int, s *Spot) bool {
		if keep(s) {
			out.Add(s, frame)
		}
		return true
	})
	return out
}

// Subset returns a new collection holding the given spots that are members
// of c, in their current buckets.
func (c *Collection) Subset(spots []*Spot) *Collection {
	out := NewCollection()
	for _, s := range spots {
		if f, ok := c.frameOf[s.ID()]; ok {
			out.Add(s, f)
		}
	}
	return out
}

// Clone returns a shallow copy: new buckets, same spots.
func (c *Collection) Clone() *Collection {
	return c.Filter(func(*Spot) bool { return true })
}
