package crawlcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crawlcore/crawlcore/document"
	"github.com/crawlcore/crawlcore/event"
	"github.com/crawlcore/crawlcore/reference"
	"github.com/crawlcore/crawlcore/store"
)

// PipelineDriver drives a single reference through the
// fetch -> checksum -> import -> commit -> finalize state machine.
//
// A PipelineDriver is stateless between calls to Process; all per-
// reference state lives in the PipelineContext it builds internally.
// It is safe for concurrent use by multiple Scheduler workers.
type PipelineDriver struct {
	caps        Capabilities
	crawlStore  store.CrawlStore
	spoilPolicy SpoilPolicy
	bus         *event.Bus
}

// NewPipelineDriver constructs a PipelineDriver. If spoilPolicy is nil,
// DefaultSpoilPolicy is used.
func NewPipelineDriver(caps Capabilities, crawlStore store.CrawlStore, spoilPolicy SpoilPolicy, bus *event.Bus) *PipelineDriver {
	if spoilPolicy == nil {
		spoilPolicy = DefaultSpoilPolicy{}
	}
	return &PipelineDriver{
		caps:        caps.WithDefaults(),
		crawlStore:  crawlStore,
		spoilPolicy: spoilPolicy,
		bus:         bus,
	}
}

// Process runs ref through the full pipeline: wrap, checksum, import,
// finalize, and — on a successful import that discovered embedded
// references — recursively processes each of them in the calling
// goroutine rather than re-queuing them.
func (d *PipelineDriver) Process(ctx context.Context, ref *reference.Reference) error {
	cached, err := d.crawlStore.GetCached(ctx, ref.Key)
	if err != nil {
		return fmt.Errorf("crawlcore: lookup cached entry for %q: %w", ref.Key, err)
	}
	return d.processOne(ctx, &PipelineContext{Ref: ref, Cached: cached})
}

// ProcessDelete routes ref directly to deletion, with no fetch or
// import performed. It is used by OrphanHandler for the OrphanDelete
// strategy.
func (d *PipelineDriver) ProcessDelete(ctx context.Context, ref *reference.Reference) error {
	return d.processOne(ctx, &PipelineContext{Ref: ref, Delete: true})
}

// ProcessOrphan runs an orphan (a cache remnant not re-encountered this
// run) through the normal pipeline inline, in the calling goroutine,
// tagged Orphan for capabilities that care about the distinction. The
// orphan is not put back on the store's queued partition.
func (d *PipelineDriver) ProcessOrphan(ctx context.Context, ref *reference.Reference, cached *reference.Reference) error {
	return d.processOne(ctx, &PipelineContext{Ref: ref, Cached: cached, Orphan: true})
}

func (d *PipelineDriver) processOne(ctx context.Context, pc *PipelineContext) error {
	if pc.Delete {
		return d.deleteReference(ctx, pc)
	}

	ref := pc.Ref
	doc, err := d.caps.Wrapper.Wrap(ctx, ref)
	if err != nil {
		ref.State = reference.Error
		d.bus.Publish(event.WithSubject(event.RejectedError, ref, event.ErrSubject(err)))
		return d.finalize(ctx, pc)
	}
	pc.Document = doc
	if doc != nil {
		doc.Set(document.IsNewCrawlKey, pc.Cached == nil)
	}

	cont, err := d.resolveChecksums(pc)
	if err != nil {
		ref.State = reference.Error
		d.bus.Publish(event.WithSubject(event.RejectedError, ref, event.ErrSubject(err)))
		return d.finalize(ctx, pc)
	}
	if !cont {
		d.bus.Publish(event.New(event.RejectedUnmodified, ref))
		return d.finalize(ctx, pc)
	}

	resp, err := d.caps.Importer.Import(ctx, pc)
	if err != nil {
		ref.State = reference.Error
		d.bus.Publish(event.WithSubject(event.RejectedError, ref, event.ErrSubject(err)))
		return d.finalize(ctx, pc)
	}
	if resp == nil {
		// No importer response at all: the reference is rejected, but no
		// REJECTED_IMPORT event is fired for it.
		ref.State = reference.Rejected
		return d.finalize(ctx, pc)
	}
	if !resp.Success {
		ref.State = reference.Rejected
		d.bus.Publish(event.WithSubject(event.RejectedImport, ref, event.DescriptionSubject(resp.Description)))
		return d.finalize(ctx, pc)
	}
	pc.Document = resp.Document

	if err := d.finalize(ctx, pc); err != nil {
		return err
	}
	return d.processNested(ctx, pc.Ref, resp.Nested)
}

func (d *PipelineDriver) processNested(ctx context.Context, parent *reference.Reference, nested []*reference.Reference) error {
	for _, child := range nested {
		ref := d.caps.Embedder.NewEmbedded(child.Key, parent)
		cached, err := d.crawlStore.GetCached(ctx, ref.Key)
		if err != nil {
			return fmt.Errorf("crawlcore: lookup cached entry for embedded %q: %w", ref.Key, err)
		}
		if err := d.processOne(ctx, &PipelineContext{Ref: ref, Cached: cached}); err != nil {
			return err
		}
	}
	return nil
}

// resolveChecksums computes and records the meta and content checksums
// for pc.Document, comparing the meta checksum against pc.Cached.
//
// It returns true when the pass should continue on to the importer
// pipeline (the reference is new or its meta checksum changed), and
// false when the reference's state is already final — reference.Unmodified
// — and finalize should run directly without importing or committing
// anything.
func (d *PipelineDriver) resolveChecksums(pc *PipelineContext) (bool, error) {
	ref := pc.Ref
	if d.caps.Checksummer == nil {
		if pc.Cached == nil {
			ref.State = reference.New
		} else {
			ref.State = reference.Modified
		}
		return true, nil
	}

	metaSum, err := d.caps.Checksummer.Checksum(pc.Document, "meta")
	if err != nil {
		return false, fmt.Errorf("crawlcore: meta checksum for %q: %w", ref.Key, err)
	}
	ref.MetaChecksum = metaSum

	if pc.Cached != nil && pc.Cached.MetaChecksum == metaSum {
		ref.State = reference.Unmodified
		return false, nil
	}

	contentSum, err := d.caps.Checksummer.Checksum(pc.Document, "content")
	if err != nil {
		return false, fmt.Errorf("crawlcore: content checksum for %q: %w", ref.Key, err)
	}
	ref.ContentChecksum = contentSum

	if pc.Cached == nil {
		ref.State = reference.New
	} else {
		ref.State = reference.Modified
	}
	return true, nil
}

// finalize commits or spoils ref according to its terminal state, marks
// it processed in the store, and emits the matching commit event. It is
// always the last step of a pass over a reference that was not routed
// directly to deletion. It is idempotent in the sense that it only ever
// moves ref further along its terminal state, never backward.
func (d *PipelineDriver) finalize(ctx context.Context, pc *PipelineContext) error {
	if err := d.caps.BeforeFinalize.BeforeFinalize(ctx, pc); err != nil {
		return fmt.Errorf("crawlcore: before-finalize hook for %q: %w", pc.Ref.Key, err)
	}

	ref := pc.Ref
	if ref.State == reference.Unknown {
		slog.Default().Warn("crawlcore: reference finalized with unknown state, coercing to bad_status", "key", ref.Key)
		ref.State = reference.BadStatus
	}

	if !ref.State.IsNewOrModified() && pc.Cached != nil {
		ref.CopyOverNulls(pc.Cached)
	}

	switch {
	case ref.State == reference.Deleted:
		// Already expelled by an earlier pass (e.g. deleteReference);
		// nothing left to commit or spoil.
	case ref.State.IsGoodState():
		if ref.State.IsNewOrModified() {
			if err := d.caps.Committer.Add(ctx, pc); err != nil {
				return fmt.Errorf("crawlcore: commit %q: %w", ref.Key, err)
			}
			if err := d.caps.Aliaser.MarkVariationsProcessed(ctx, ref); err != nil {
				return fmt.Errorf("crawlcore: mark variations for %q: %w", ref.Key, err)
			}
			d.bus.Publish(event.New(event.DocumentCommittedAdd, ref))
		}
	default:
		if err := d.spoil(ctx, pc); err != nil {
			return err
		}
	}

	if err := d.crawlStore.Processed(ctx, ref); err != nil {
		return fmt.Errorf("crawlcore: mark %q processed: %w", ref.Key, err)
	}
	if pc.Document != nil {
		pc.Document.Dispose()
	}
	return nil
}

// spoil dispatches a non-good, non-Deleted reference to the configured
// SpoilPolicy and applies its decision against pc.Cached and the
// committer's downstream sink.
func (d *PipelineDriver) spoil(ctx context.Context, pc *PipelineContext) error {
	ref := pc.Ref
	action := d.spoilPolicy.Decide(ref)
	switch action {
	case Ignore:
		d.bus.Publish(event.WithSubject(event.RejectedError, ref, event.DescriptionSubject(action.String())))
	case Delete:
		if pc.Cached != nil && pc.Cached.State != reference.Deleted {
			return d.spoilDelete(ctx, pc, action)
		}
	case GraceOnce:
		switch {
		case pc.Cached == nil:
			// No cached entry to fall back on next run: delete now
			// rather than leave the reference in limbo.
			return d.spoilDelete(ctx, pc, action)
		case pc.Cached.State.IsGoodState():
			slog.Default().Info("crawlcore: grace_once leaves reference for one more run", "key", ref.Key)
			d.bus.Publish(event.WithSubject(event.RejectedError, ref, event.DescriptionSubject(action.String())))
		default:
			return d.spoilDelete(ctx, pc, action)
		}
	}
	return nil
}

// spoilDelete applies a SpoilPolicy DELETE or GRACE_ONCE decision that
// resolved to deletion: it expels ref from the committer's downstream
// sink, marks it reference.Deleted, and publishes
// DOCUMENT_COMMITTED_REMOVE. It does not mark ref processed in the
// store; finalize does that itself once spoil returns.
func (d *PipelineDriver) spoilDelete(ctx context.Context, pc *PipelineContext, action Action) error {
	ref := pc.Ref
	if err := d.caps.Committer.Remove(ctx, pc); err != nil {
		return fmt.Errorf("crawlcore: spoil-delete %q: %w", ref.Key, err)
	}
	ref.State = reference.Deleted
	d.bus.Publish(event.WithSubject(event.DocumentCommittedRemove, ref, event.DescriptionSubject(action.String())))
	return nil
}

// deleteReference expels ref from the committer's downstream sink
// without fetching or importing anything, and marks it reference.Deleted
// in the store. It backs OrphanHandler's OrphanDelete strategy.
func (d *PipelineDriver) deleteReference(ctx context.Context, pc *PipelineContext) error {
	ref := pc.Ref
	if err := d.caps.Committer.Remove(ctx, pc); err != nil {
		return fmt.Errorf("crawlcore: delete %q: %w", ref.Key, err)
	}
	ref.State = reference.Deleted
	if err := d.crawlStore.Processed(ctx, ref); err != nil {
		return fmt.Errorf("crawlcore: mark %q processed: %w", ref.Key, err)
	}
	d.bus.Publish(event.New(event.DocumentCommittedRemove, ref))
	return nil
}
