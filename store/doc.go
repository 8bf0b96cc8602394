// Package store defines the CrawlStore contract: persistent, partitioned
// reference state that survives a crash and supports resuming a crawl.
//
// A CrawlStore holds reference.Reference entries partitioned across five
// disjoint sets keyed by Reference.Key: queued, active, processedValid,
// processedInvalid, and cached. All operations are safe for concurrent
// use; NextQueued and Processed are linearizable with respect to the
// partition moves they perform.
//
// package store defines only the contract (this is the "external
// interface" spec.md §6 calls CrawlStoreEngine). Concrete backends live
// in subpackages — store/boltstore is the canonical tree-based,
// snapshot-consistent embedded engine spec.md §4.1 describes.
package store
