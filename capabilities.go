package crawlcore

import (
	"context"

	"github.com/crawlcore/crawlcore/document"
	"github.com/crawlcore/crawlcore/reference"
)

// PipelineContext carries everything a pipeline stage needs for one
// dequeued reference. It replaces the source framework's thread-local
// "current crawler" accessor: every value a stage might need is threaded
// through explicitly rather than fetched from an ambient singleton.
type PipelineContext struct {
	// Ref is the reference being processed. Stages may mutate its State,
	// MetaChecksum, ContentChecksum, ContentType, and CrawlDate fields.
	Ref *reference.Reference

	// Cached is the previous run's entry for Ref, or nil if none exists.
	Cached *reference.Reference

	// Document is the wrapped document content for this pass.
	Document *document.Document

	// Delete is true when this reference is being routed directly to
	// deletion by PipelineDriver.ProcessDelete (OrphanHandler's
	// OrphanDelete strategy), with no fetch or import performed.
	Delete bool

	// Orphan is true when this reference originated from a cache
	// remnant rather than a seed or an embedded discovery.
	Orphan bool
}

// DocumentWrapper produces the initial document.Document for a
// reference, performing whatever fetch is appropriate for the concrete
// collector (HTTP GET, filesystem read, ...). It runs before the
// importer pipeline and is the only stage in the pass that actually
// retrieves bytes.
type DocumentWrapper interface {
	Wrap(ctx context.Context, ref *reference.Reference) (*document.Document, error)
}

// ImporterResponse is the result of running the importer pipeline
// against a PipelineContext.
type ImporterResponse struct {
	// Document is the (possibly mutated) document produced by the
	// importer pipeline.
	Document *document.Document

	// Success reports whether the importer pipeline accepted the
	// reference.
	Success bool

	// Description is a short, human-readable explanation, primarily
	// populated on failure.
	Description string

	// Nested holds embedded references discovered while importing
	// (e.g. attachments), each processed recursively within the current
	// worker rather than re-queued.
	Nested []*reference.Reference
}

// ImporterPipeline transforms a fetched document into a classified
// result, or returns (nil, nil) to indicate the importer pipeline
// produced no response at all (e.g. a filter rejected the reference
// before any import logic ran).
type ImporterPipeline interface {
	Import(ctx context.Context, pc *PipelineContext) (*ImporterResponse, error)
}

// CommitterPipeline delivers an imported document downstream. Add is
// called for a good-state reference; Remove is called by deleteReference
// when a reference must be expelled from the downstream sink.
//
// Implementations must be safe for concurrent use: multiple workers may
// call Add and Remove concurrently for different references.
type CommitterPipeline interface {
	Add(ctx context.Context, pc *PipelineContext) error
	Remove(ctx context.Context, pc *PipelineContext) error
}

// DocumentChecksummer computes a checksum for a document, optionally
// scoped to a named field (e.g. "meta" vs "content"). It is a pure
// function from the engine's point of view: the engine only consumes
// the checksum string it returns, never the algorithm.
type DocumentChecksummer interface {
	Checksum(doc *document.Document, field string) (string, error)
}

// ReferenceAliaser marks variations of a reference (e.g. URL canonical
// aliases) as processed alongside the canonical reference itself. The
// default NopAliaser does nothing; concrete collectors that have a
// notion of reference variations supply their own.
type ReferenceAliaser interface {
	MarkVariationsProcessed(ctx context.Context, ref *reference.Reference) error
}

// NopAliaser is a ReferenceAliaser that does nothing. It is the default
// used when a collector has no notion of reference variations.
type NopAliaser struct{}

// MarkVariationsProcessed implements ReferenceAliaser and is a no-op.
func (NopAliaser) MarkVariationsProcessed(ctx context.Context, ref *reference.Reference) error {
	return nil
}

// EmbeddedReferenceFactory constructs the Reference for a child
// discovered during import. The default factory uses reference.NewEmbedded,
// which is sufficient for collectors with no reference-type-specific
// construction needs.
type EmbeddedReferenceFactory interface {
	NewEmbedded(key string, parent *reference.Reference) *reference.Reference
}

// DefaultEmbeddedReferenceFactory implements EmbeddedReferenceFactory
// using reference.NewEmbedded directly.
type DefaultEmbeddedReferenceFactory struct{}

// NewEmbedded implements EmbeddedReferenceFactory.
func (DefaultEmbeddedReferenceFactory) NewEmbedded(key string, parent *reference.Reference) *reference.Reference {
	return reference.NewEmbedded(key, parent)
}

// BeforeFinalizeHook is an optional extension point invoked at the start
// of finalize, before spoil handling. The default NopBeforeFinalizeHook
// does nothing.
type BeforeFinalizeHook interface {
	BeforeFinalize(ctx context.Context, pc *PipelineContext) error
}

// NopBeforeFinalizeHook is a BeforeFinalizeHook that does nothing.
type NopBeforeFinalizeHook struct{}

// BeforeFinalize implements BeforeFinalizeHook and is a no-op.
func (NopBeforeFinalizeHook) BeforeFinalize(ctx context.Context, pc *PipelineContext) error {
	return nil
}

// Capabilities bundles every collaborator PipelineDriver needs to
// specialize the engine for a concrete collector. It replaces the
// source framework's deep subclass hook hierarchy
// (wrapDocument/executeImporterPipeline/executeCommitterPipeline/
// markReferenceVariationsAsProcessed/createEmbeddedCrawlReference/
// beforeFinalizeDocumentProcessing/...) with a single value a Crawler
// holds, plus the PipelineContext threaded through each call.
type Capabilities struct {
	Wrapper        DocumentWrapper
	Importer       ImporterPipeline
	Committer      CommitterPipeline
	Checksummer    DocumentChecksummer
	Aliaser        ReferenceAliaser
	Embedder       EmbeddedReferenceFactory
	BeforeFinalize BeforeFinalizeHook
}

// WithDefaults fills any nil collaborator with its no-op default,
// returning a Capabilities value safe to use directly.
func (c Capabilities) WithDefaults() Capabilities {
	if c.Aliaser == nil {
		c.Aliaser = NopAliaser{}
	}
	if c.Embedder == nil {
		c.Embedder = DefaultEmbeddedReferenceFactory{}
	}
	if c.BeforeFinalize == nil {
		c.BeforeFinalize = NopBeforeFinalizeHook{}
	}
	return c
}
