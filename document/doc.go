// Package document defines the transport-level content abstraction
// produced and consumed inside a single pipeline pass.
//
// A Document holds the bytes fetched for a reference along with
// whatever structured metadata the fetcher, importer, and link
// extractor attach to it (headers, parsed fields, is-new-crawl flags,
// and so on). It is intentionally minimal and carries no delivery or
// scheduling state — that belongs to reference.Reference.
//
// Documents are ephemeral: PipelineDriver constructs one per dequeued
// reference (wrapDocument) and disposes of it once finalize completes.
// Nothing in crawlcore persists a Document past the pipeline pass that
// created it.
package document
