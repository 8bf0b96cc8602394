package crawlcore

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/crawlcore/crawlcore/event"
	"github.com/crawlcore/crawlcore/store"
)

// Crawler is the top-level lifecycle controller: it owns the store, the
// scheduler, the pipeline driver, and the orphan sweep, and coordinates
// them through a single Init/Run/Stop/Clean surface.
//
// Crawler has the same start-once/stop-gracefully shape as Scheduler,
// implemented with its own lcBase guard.
type Crawler struct {
	lcBase

	crawlStore store.CrawlStore
	scheduler  *Scheduler
	driver     *PipelineDriver
	orphan     *OrphanHandler
	bus        *event.Bus
	progress   *event.Progress
	log        *slog.Logger
	cfg        CrawlerConfig
}

// NewCrawler wires a Crawler from a CrawlStore, a Capabilities value,
// and a SpoilPolicy (nil selects DefaultSpoilPolicy). caps must set
// Wrapper, Importer, and Committer.
func NewCrawler(crawlStore store.CrawlStore, caps Capabilities, spoilPolicy SpoilPolicy, cfg CrawlerConfig, log *slog.Logger) (*Crawler, error) {
	if caps.Wrapper == nil || caps.Importer == nil || caps.Committer == nil {
		return nil, ErrMissingCapabilities
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.WithDefaults()

	bus := event.NewBus(log)
	driver := NewPipelineDriver(caps, crawlStore, spoilPolicy, bus)
	scheduler := NewScheduler(crawlStore, driver, cfg.Scheduler, log)
	orphan := NewOrphanHandler(crawlStore, driver, cfg.Orphan, bus, log)

	return &Crawler{
		crawlStore: crawlStore,
		scheduler:  scheduler,
		driver:     driver,
		orphan:     orphan,
		bus:        bus,
		progress:   event.NewProgress(log, cfg.ProgressInterval),
		log:        log,
		cfg:        cfg,
	}, nil
}

// Events returns the event bus a caller can Subscribe to for progress
// and lifecycle notifications.
func (c *Crawler) Events() *event.Bus {
	return c.bus
}

// Init opens the backing store, detecting whether this run resumes a
// prior crash (any reference left in the active partition is requeued).
func (c *Crawler) Init(ctx context.Context, resume bool) (resuming bool, err error) {
	c.bus.Publish(event.New(event.CrawlerInitBegin, nil))
	resuming, err = c.crawlStore.Open(ctx, resume)
	c.bus.Publish(event.New(event.CrawlerInitEnd, nil))
	return resuming, err
}

// Run starts the scheduler and blocks until the crawl store drains, ctx
// is canceled, or Stop is called, then performs the orphan sweep over
// whatever remains in the cache partition.
func (c *Crawler) Run(ctx context.Context) error {
	if err := c.tryStart(); err != nil {
		return err
	}
	defer c.state.Store(stopped)

	c.bus.Publish(event.New(event.CrawlerRunBegin, nil))
	defer c.bus.Publish(event.New(event.CrawlerRunEnd, nil))

	if err := c.scheduler.Run(ctx); err != nil {
		return fmt.Errorf("crawlcore: scheduler run: %w", err)
	}
	c.reportProgress(ctx)

	if err := c.orphan.Sweep(ctx); err != nil {
		return fmt.Errorf("crawlcore: orphan sweep: %w", err)
	}
	return nil
}

func (c *Crawler) reportProgress(ctx context.Context) {
	processed, err := c.crawlStore.ProcessedCount(ctx)
	if err != nil {
		return
	}
	queued, err := c.crawlStore.QueuedCount(ctx)
	if err != nil {
		return
	}
	c.progress.Report(processed, queued)
}

// Stop requests graceful shutdown of an in-progress Run, waiting up to
// CrawlerConfig.StopTimeout for the scheduler to settle.
func (c *Crawler) Stop(ctx context.Context) error {
	c.bus.Publish(event.New(event.CrawlerStopBegin, nil))
	defer c.bus.Publish(event.New(event.CrawlerStopEnd, nil))

	c.scheduler.Stop()
	timer := time.NewTimer(c.cfg.StopTimeout)
	defer timer.Stop()
	for c.state.Load() == started {
		select {
		case <-timer.C:
			return ErrStopTimeout
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

// Clean closes the backing store, releasing any held file handles.
func (c *Crawler) Clean(ctx context.Context) error {
	c.bus.Publish(event.New(event.CrawlerCleanBegin, nil))
	defer c.bus.Publish(event.New(event.CrawlerCleanEnd, nil))
	return c.crawlStore.Close()
}

// Export returns every partitioned entry in the store, for the
// storeexport CLI verb. It returns an error if the store does not
// implement store.Exporter.
func (c *Crawler) Export(ctx context.Context) (iter.Seq[store.Entry], error) {
	exporter, ok := c.crawlStore.(store.Exporter)
	if !ok {
		return nil, fmt.Errorf("crawlcore: store does not support export")
	}
	return exporter.ExportAll(ctx)
}

// Import restores a dump produced by Export into the store, for the
// storeimport CLI verb. It returns an error if the store does not
// implement store.Importer.
func (c *Crawler) Import(ctx context.Context, entries iter.Seq[store.Entry]) error {
	importer, ok := c.crawlStore.(store.Importer)
	if !ok {
		return fmt.Errorf("crawlcore: store does not support import")
	}
	return importer.ImportAll(ctx, entries)
}
