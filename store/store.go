package store

import (
	"context"
	"errors"
	"iter"

	"github.com/crawlcore/crawlcore/reference"
)

var (
	// ErrNotOpen is returned by any operation performed before Open has
	// succeeded, or after Close.
	ErrNotOpen = errors.New("store: not open")

	// ErrAlreadyOpen is returned if Open is called twice without an
	// intervening Close.
	ErrAlreadyOpen = errors.New("store: already open")
)

// Partition names one of the five disjoint reference sets a CrawlStore
// maintains.
type Partition string

const (
	Queued           Partition = "queued"
	Active           Partition = "active"
	ProcessedValid   Partition = "processedValid"
	ProcessedInvalid Partition = "processedInvalid"
	Cached           Partition = "cached"
)

// Queuer accepts new work into the queued partition.
type Queuer interface {
	// Queue inserts a defensive copy of ref into the queued partition.
	// Queue is idempotent on ref.Key: re-queueing an existing key
	// overwrites its non-key fields ("last write wins") without
	// duplicating the entry.
	Queue(ctx context.Context, ref *reference.Reference) error
}

// Dequeuer hands queued work to workers and records terminal outcomes.
type Dequeuer interface {
	// NextQueued atomically removes the head of the queued partition and
	// inserts it into active. It returns (nil, nil) if queued is empty.
	// Ordering across concurrent callers is unspecified but must be
	// starvation-free.
	NextQueued(ctx context.Context) (*reference.Reference, error)

	// Processed atomically removes ref from active and from cached, and
	// inserts it into processedValid if ref.State.IsGoodState() or
	// ref.State is Deleted (a spoiled or orphan-expelled reference is
	// terminal-good-for-removal, not an error outcome), otherwise into
	// processedInvalid.
	Processed(ctx context.Context, ref *reference.Reference) error
}

// CacheReader provides read-only access to the previous run's results.
type CacheReader interface {
	// GetCached returns a defensive copy of the cached entry for key, or
	// (nil, nil) if none exists.
	GetCached(ctx context.Context, key string) (*reference.Reference, error)

	// CachedIterable returns a read-only iterator over every entry
	// still present in the cached partition (i.e. not yet re-encountered
	// this run). It is used by OrphanHandler's sweep.
	CachedIterable(ctx context.Context) (iter.Seq[*reference.Reference], error)
}

// Counters exposes observable, approximate partition sizes.
type Counters interface {
	QueuedCount(ctx context.Context) (int, error)
	ActiveCount(ctx context.Context) (int, error)
	ProcessedCount(ctx context.Context) (int, error)
	IsQueueEmpty(ctx context.Context) (bool, error)
	IsCacheEmpty(ctx context.Context) (bool, error)
}

// Lifecycle governs start-of-run reconciliation and shutdown.
type Lifecycle interface {
	// Open performs the start-of-run reconciliation described in
	// spec.md §4.1 and returns whether the run is resuming prior work.
	//
	// Resume path: every active entry moves back to queued; queued,
	// cached, processedValid, and processedInvalid are otherwise left
	// intact.
	//
	// Fresh path: cached, active, queued, and processedInvalid are
	// cleared; processedValid is drained into cached, keeping only
	// entries whose state is good, and is itself cleared afterward.
	Open(ctx context.Context, resume bool) (resuming bool, err error)

	// Close flushes and releases the store. Close is idempotent.
	Close() error
}

// Entry pairs a Reference with the partition it currently occupies. It
// is the unit exchanged with an external snapshot format (see
// catalog.Snapshotter's Snapshot and Restore).
type Entry struct {
	Partition Partition
	Reference *reference.Reference
}

// Exporter produces a full, partition-tagged dump of every entry a
// CrawlStore holds. It backs the storeexport CLI verb (spec.md §6).
type Exporter interface {
	ExportAll(ctx context.Context) (iter.Seq[Entry], error)
}

// Importer restores a full, partition-tagged dump produced by an
// Exporter. It backs the storeimport CLI verb and must only be called
// against a store whose partitions are empty (immediately after Open on
// a fresh backing file).
type Importer interface {
	ImportAll(ctx context.Context, entries iter.Seq[Entry]) error
}

// CrawlStore is the full contract spec.md §4.1 and §6 name
// "CrawlStoreEngine." It is composed from the narrower interfaces above
// so that a concrete backend's read path, write path, and lifecycle can
// be reasoned about (and tested) independently, while callers that need
// the whole contract — the Scheduler and PipelineDriver — depend on this
// single interface.
type CrawlStore interface {
	Queuer
	Dequeuer
	CacheReader
	Counters
	Lifecycle
}
