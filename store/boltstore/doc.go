// Package boltstore implements store.CrawlStore on top of
// go.etcd.io/bbolt, an embedded, tree-based (B+tree), snapshot-consistent
// key/value engine — the backend spec.md §4.1 describes without naming
// a concrete implementation.
//
// # Layout
//
// Each of the five CrawlStore partitions is a top-level bolt bucket.
// queued additionally maintains a secondary index bucket (queuedIndex)
// mapping a reference key to its FIFO sequence number, so that
// re-queueing an already-queued key updates it in place (idempotent,
// "last write wins") without disturbing its position or creating a
// duplicate.
//
// # Concurrency
//
// bbolt permits exactly one read-write transaction at a time; every
// Store method that mutates more than one partition (NextQueued,
// Processed, Open's reconciliation) does so inside a single bolt
// transaction, which is sufficient to satisfy spec.md §3's atomicity
// invariants: bbolt serializes writers and gives readers a consistent
// snapshot of the last committed state.
//
// # Crash safety
//
// bbolt fsyncs each committed write transaction before returning, so a
// crash at any instant leaves the file at a prior or the latest
// committed transaction boundary — never a torn write. Open(resume=true)
// therefore always observes a valid partition configuration.
package boltstore
