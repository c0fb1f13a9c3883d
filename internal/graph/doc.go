// Package graph provides the attributed, undirected, weighted graph that
// stores spots and links, and the connected-component partition derived
// from it.
//
// # Ownership Model
//
// The graph stores node values but does not own them: callers keep their
// own references and the graph never copies node payloads. Edge handles
// (*Edge) are owned by the graph; a handle stays valid as an identity
// after removal, but a removed handle is never reused.
//
// # Invariants
//
// Every edge references two present vertices. RemoveVertex removes the
// incident edges in the same call and returns them, so callers can record
// them as removed.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. It is designed for a single
// writer; read-only access from several goroutines is safe only while no
// mutation is in progress.
package graph
