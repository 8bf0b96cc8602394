package internal

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// WorkHandler processes one item pulled from a WorkerPool. A non-nil
// return is treated as an unhandled, stability-compromising failure: it
// cancels every other worker's context and is surfaced by Stop's
// DoneChan closing with Err() set, rather than being swallowed.
type WorkHandler[T any] func(context.Context, T) error

// WorkerPool runs a fixed number of goroutines pulling from a shared
// inbound channel — no per-worker queue, no stealing, no affinity.
// The first worker to return a non-nil error cancels its siblings via
// errgroup's shared context, the same join-barrier semantics used to
// propagate a worker fault into a crawl-level stop cause.
type WorkerPool[T any] struct {
	concurrency int
	queue       int
	group       *errgroup.Group
	in          chan T
	ctx         context.Context
	cancel      context.CancelFunc
	log         *slog.Logger
}

func NewWorkerPool[T any](concurrency int, queue int, log *slog.Logger) *WorkerPool[T] {
	return &WorkerPool[T]{
		concurrency: concurrency,
		queue:       queue,
		log:         log,
	}
}

func (wp *WorkerPool[T]) safeHandle(ctx context.Context, wh WorkHandler[T], t T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error("worker panic recovered", "err", r)
		}
	}()
	return wh(ctx, t)
}

func (wp *WorkerPool[T]) worker(ctx context.Context, wh WorkHandler[T]) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-wp.in:
			if err := wp.safeHandle(ctx, wh, t); err != nil {
				return err
			}
		}
	}
}

// Push enqueues t for processing. It returns false if the pool has
// been stopped or its context canceled before t could be accepted.
func (wp *WorkerPool[T]) Push(t T) bool {
	select {
	case <-wp.ctx.Done():
		return false
	case wp.in <- t:
		return true
	}
}

// Start launches concurrency worker goroutines, each invoking wh for
// every item pushed until ctx is done or a sibling worker faults.
func (wp *WorkerPool[T]) Start(ctx context.Context, wh WorkHandler[T]) {
	var groupCtx context.Context
	wp.group, groupCtx = errgroup.WithContext(ctx)
	wp.ctx, wp.cancel = context.WithCancel(groupCtx)
	wp.in = make(chan T, wp.queue)
	for i := 0; i < wp.concurrency; i++ {
		wp.group.Go(func() error {
			return wp.worker(wp.ctx, wh)
		})
	}
}

// Done returns a channel closed when the pool's shared context ends,
// either because Stop was called or because a worker faulted (an
// errgroup fault cancels every sibling's context). A caller can select
// on this to notice a worker fault promptly, before calling Stop.
func (wp *WorkerPool[T]) Done() <-chan struct{} {
	return wp.ctx.Done()
}

// Stop cancels the pool and returns a DoneChan that closes once every
// worker has returned. Call Err after the DoneChan closes to retrieve
// the first worker fault, if any.
func (wp *WorkerPool[T]) Stop() DoneChan {
	wp.cancel()
	return wrapGroup(wp.group)
}

// Err returns the first error returned by any worker, or nil if none
// faulted. Only meaningful after the DoneChan returned by Stop closes.
func (wp *WorkerPool[T]) Err() error {
	return wp.group.Wait()
}
