// Package reference defines the unit of work processed by a crawl: a
// stable reference identity plus the state accumulated about it across
// runs.
//
// A Reference is created by a seed loader or by a link extractor
// (an embedded reference, discovered while importing a parent). It is
// mutated only by the worker holding it while the crawl store considers
// it active. It becomes immutable once recorded in a processed partition;
// entries carried over from a previous run (cached) are read-only.
//
// Reference deliberately carries no transport payload. The bytes and
// metadata produced while fetching and importing a reference live in a
// document.Document for the duration of a single pipeline pass; only the
// identity, state, and a handful of small scalars (checksums, content
// type, crawl date) are persisted.
package reference
