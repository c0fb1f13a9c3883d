// Package spot owns the detection layer of the track-graph model.
//
// Responsibilities: the Spot type (one detection in one frame, with a
// sparse feature map), the per-model identity allocator, and the
// frame-indexed Collection used for both the raw and the filtered views.
// Key types: Spot, Feature, IDAllocator, Collection.
//
// Dependency rule: spot depends on nothing else in this module. Graph
// storage, partitioning and notification live in the graph and model
// packages.
package spot
