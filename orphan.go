package crawlcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crawlcore/crawlcore/event"
	"github.com/crawlcore/crawlcore/store"
)

// OrphanHandler sweeps the cache partition once the main scheduler pass
// drains. Anything still in cached was present in a prior run but never
// re-queued this run — it is an orphan, and OrphanConfig.Strategy
// decides what happens to it.
type OrphanHandler struct {
	crawlStore store.CrawlStore
	driver     *PipelineDriver
	strategy   OrphanStrategy
	bus        *event.Bus
	log        *slog.Logger
}

// NewOrphanHandler constructs an OrphanHandler.
func NewOrphanHandler(crawlStore store.CrawlStore, driver *PipelineDriver, cfg OrphanConfig, bus *event.Bus, log *slog.Logger) *OrphanHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OrphanHandler{
		crawlStore: crawlStore,
		driver:     driver,
		strategy:   cfg.Strategy,
		bus:        bus,
		log:        log,
	}
}

// Sweep iterates the store's cached partition and applies the
// configured OrphanStrategy to each remaining entry.
func (h *OrphanHandler) Sweep(ctx context.Context) error {
	if h.strategy == OrphanIgnore {
		return nil
	}

	cached, err := h.crawlStore.CachedIterable(ctx)
	if err != nil {
		return fmt.Errorf("crawlcore: iterate cached partition: %w", err)
	}

	for ref := range cached {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch h.strategy {
		case OrphanProcess:
			if err := h.driver.ProcessOrphan(ctx, ref.Copy(), ref); err != nil {
				h.log.Error("orphan processing failed", "key", ref.Key, "err", err)
			}
		case OrphanDelete:
			if err := h.driver.ProcessDelete(ctx, ref.Copy()); err != nil {
				h.log.Error("orphan deletion failed", "key", ref.Key, "err", err)
			}
		}
	}
	return nil
}
