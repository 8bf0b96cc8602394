// Package catalog provides a bun-based relational ledger alongside the
// tree-based crawl store (package store/boltstore).
//
// # Overview
//
// Where store.CrawlStore holds the live, per-reference state a crawl
// pass mutates continuously, catalog records facts about runs
// themselves: one row per crawl run with its start/end time, seed
// count, and final processed/spoiled/orphan tallies. This ledger
// survives independently of the crawl store's own lifecycle and is
// what an operator queries to answer "when did the last run finish,
// and how much did it process".
//
// catalog also backs the storeexport/storeimport CLI verbs: Snapshot
// writes every store.Entry from a store.Exporter into a portable SQL
// table, and Restore reads them back into a store.Importer. This gives
// a second, at-rest copy of crawl state independent of the embedded KV
// file, suitable for backup or migrating a crawl to new storage.
//
// # Schema
//
// InitDB creates two tables: runs (one row per RunLedger.Start/Finish
// pair) and snapshot_entries (one row per exported store.Entry, tagged
// with the run that produced it).
//
// # Database Lifecycle
//
// As with the original SQL backend this package is descended from,
// catalog does not manage connection pooling or migrations: the caller
// constructs and configures *bun.DB, and InitDB only creates missing
// tables and indexes.
package catalog
