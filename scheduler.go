package crawlcore

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crawlcore/crawlcore/internal"
	"github.com/crawlcore/crawlcore/reference"
	"github.com/crawlcore/crawlcore/store"
)

// Scheduler drives the main crawl pass: a pool of workers repeatedly
// dequeues a reference from the store and hands it to a PipelineDriver.
//
// Unlike a work-stealing pool, workers share a single dequeue source
// (the store) and have no per-worker queue or affinity. When the store's
// queued partition is empty but active is not, a worker's peers may
// still discover and queue new references (link extraction), so the
// scheduler waits rather than exits: this is the wait-for-peers rule.
// The scheduler only considers the pass complete once both queued and
// active are empty.
type Scheduler struct {
	lcBase

	crawlStore   store.CrawlStore
	driver       *PipelineDriver
	pool         *internal.WorkerPool[*reference.Reference]
	pullTask     internal.TimerTask
	pullInterval time.Duration
	log          *slog.Logger

	maxDocuments int
	dispatched   atomic.Int64
	processed    atomic.Int64

	done   chan struct{}
	closed atomic.Bool
	runErr atomic.Value // error
}

// NewScheduler constructs a Scheduler over crawlStore, dispatching each
// dequeued reference to driver.
func NewScheduler(crawlStore store.CrawlStore, driver *PipelineDriver, cfg SchedulerConfig, log *slog.Logger) *Scheduler {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		crawlStore:   crawlStore,
		driver:       driver,
		pool:         internal.NewWorkerPool[*reference.Reference](cfg.Concurrency, cfg.Queue, log),
		pullInterval: cfg.PullInterval,
		log:          log,
		maxDocuments: cfg.MaxDocuments,
		done:         make(chan struct{}),
	}
}

// handle drives one dequeued reference through the pipeline. A non-nil
// return is an unhandled, stability-compromising failure (not a normal
// bad-status/rejection outcome, which PipelineDriver already resolves
// internally) and propagates through the worker pool's errgroup,
// canceling every other worker and becoming the crawl's stop cause.
func (s *Scheduler) handle(ctx context.Context, ref *reference.Reference) error {
	err := s.driver.Process(ctx, ref)
	s.processed.Add(1)
	s.maybeFinish(ctx)
	return err
}

// pull is invoked periodically by pullTask. It drains the store's
// queued partition into the worker pool until the partition is empty,
// the pool stops accepting work, or maxDocuments references have been
// dispatched, then returns — pullTask's own ticker provides the
// wait-for-peers idle delay before the next attempt. Push blocks while
// the pool's inbound buffer is full.
func (s *Scheduler) pull(ctx context.Context) {
	for {
		if s.maxDocuments > 0 && int(s.processed.Load()) >= s.maxDocuments {
			s.finish(nil)
			return
		}
		if s.maxDocuments > 0 && int(s.dispatched.Load()) >= s.maxDocuments {
			return
		}
		ref, err := s.crawlStore.NextQueued(ctx)
		if err != nil {
			s.finish(err)
			return
		}
		if ref == nil {
			s.maybeFinish(ctx)
			return
		}
		s.dispatched.Add(1)
		if !s.pool.Push(ref) {
			return
		}
	}
}

// maybeFinish checks whether the store has fully drained (nothing
// queued, nothing active) and, if so, signals Run to return.
func (s *Scheduler) maybeFinish(ctx context.Context) {
	queued, err := s.crawlStore.QueuedCount(ctx)
	if err != nil {
		s.finish(err)
		return
	}
	if queued > 0 {
		return
	}
	active, err := s.crawlStore.ActiveCount(ctx)
	if err != nil {
		s.finish(err)
		return
	}
	if active == 0 {
		s.finish(nil)
	}
}

func (s *Scheduler) finish(err error) {
	if s.closed.CompareAndSwap(false, true) {
		if err != nil {
			s.runErr.Store(err)
		}
		close(s.done)
	}
}

// Run starts the scheduler and blocks until the store drains, ctx is
// canceled, or Stop is called. It returns ErrDoubleStarted if already
// running, or the first unrecoverable store error encountered.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.tryStart(); err != nil {
		return err
	}
	defer s.state.Store(stopped)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.pool.Start(runCtx, s.handle)
	s.pullTask.Start(runCtx, s.pull, s.pullInterval)

	select {
	case <-s.done:
	case <-ctx.Done():
	case <-s.pool.Done():
	}

	first := s.pullTask.Stop()
	second := s.pool.Stop()
	<-internal.Combine(first, second)

	if err := s.pool.Err(); err != nil {
		return err
	}
	if v, _ := s.runErr.Load().(error); v != nil {
		return v
	}
	return ctx.Err()
}

// Stop requests early termination of an in-progress Run; Run returns
// once in-flight workers settle. It is safe to call from any goroutine,
// including concurrently with Run.
func (s *Scheduler) Stop() {
	s.finish(nil)
}

// Processed returns the number of references finalized so far in the
// current (or most recent) run.
func (s *Scheduler) Processed() int64 {
	return s.processed.Load()
}
