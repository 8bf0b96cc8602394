// Package crawlcore provides the resumable crawl engine core of a
// generic web/document collector framework.
//
// # Overview
//
// crawlcore coordinates a persistent queue/active/processed/cache state
// machine (package store), drives each reference.Reference through a
// fetch→import→commit pipeline (PipelineDriver), reconciles with a
// prior-run cache, classifies failures via a spoiled-reference policy
// (SpoilPolicy), handles orphans left over from a prior run
// (OrphanHandler), and emits a progress/event stream (package event).
//
// crawlcore is fetch-protocol agnostic: the fetcher, importer, and
// committer pipelines are external collaborators invoked polymorphically
// through the Capabilities interface. Concrete collectors (HTTP,
// filesystem, etc.) specialize the engine by implementing Capabilities.
//
// # State Machine
//
// A Reference moves through a crawl store like this:
//
//	queued -> active -> processedValid   (good state, or Deleted)
//	                  -> processedInvalid (any other state)
//
// cached holds the previous run's processedValid snapshot and shrinks as
// references are re-encountered; anything left in cached once the main
// pass drains is an orphan, handled by OrphanHandler.
//
// # Failure Classification
//
// Unlike a retry queue with exponential backoff, crawlcore does not
// reschedule a failed reference within a run. Instead, a terminal bad
// state is handed to SpoilPolicy, which decides whether to ignore it,
// delete it from the committer's downstream sink, or grant it one more
// run before deleting it (GRACE_ONCE).
//
// # Concurrency Model
//
// Scheduler runs a fixed pool of worker goroutines that pull references
// from the store (no per-worker queue, no stealing, no affinity) and
// drive them through PipelineDriver. Workers idle briefly rather than
// exit while peers may still produce new queue entries via link
// extraction (the wait-for-peers rule); an unhandled error escaping a
// worker's outer loop stops the whole crawl.
//
// # Lifecycle
//
// Crawler is the top-level LifecycleController: Init opens the store
// (detecting whether this run is resuming), Run drives the scheduler and
// then the orphan sweep, Stop requests graceful shutdown, and
// Export/Import move a store's full state out through a store.Exporter
// and back in through a store.Importer.
package crawlcore
