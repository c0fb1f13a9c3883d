// Package model is the track-graph model: spots and links held in one
// graph, edited in transactions, and partitioned into tracks on commit.
//
// # Transactions
//
// Every mutator records what it touched in the open transaction. Calls made
// outside BeginUpdate/EndUpdate run as a transaction of their own. When the
// outermost EndUpdate closes, the model commits once:
//
//  1. structural edits (spots or links added or removed) recompute the
//     track partition, then track visibility and track names;
//  2. spots that were added, moved or marked updated get their spot
//     features recomputed, one job per frame on a bounded worker pool;
//  3. the track feature table is rebuilt whenever the partition or any spot
//     feature changed;
//  4. one ModelChangeEvent carrying the coalesced spot and link changes is
//     sent to every ModelChangeListener, unless nothing changed.
//
// Dirty state is cleared on every exit path, including calculator panics.
//
// # Tracks
//
// A track is a connected component of the graph at the last commit. Track
// indices run 0..NTracks()-1 and are reassigned on every repartition; use
// TrackName for a label that survives edits. Visibility is inherited: a new
// track is visible if any of its spots belonged to a visible track.
//
// # Thread safety
//
// A Model has a single writer. Callers that share one across goroutines
// must serialize access themselves. The only internal concurrency is the
// per-frame feature fan-out, which completes before EndUpdate returns.
package model
