package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crawlcore/crawlcore/internal"
)

var (
	// ErrDoubleStarted is returned when Start is called on a CleanWorker
	// that has already been started.
	ErrDoubleStarted = errors.New("catalog: double start")

	// ErrDoubleStopped is returned when Stop is called on a CleanWorker
	// that is not currently running.
	ErrDoubleStopped = errors.New("catalog: double stop")

	// ErrStopTimeout is returned when a CleanWorker fails to shut down
	// within the provided timeout during Stop.
	ErrStopTimeout = errors.New("catalog: stop timeout")
)

const (
	stopped = iota
	started
)

// CleanConfig defines the scheduling and filtering parameters for a
// CleanWorker.
//
// Interval defines how often the cleaner runs. Delta defines the age
// threshold: a run row is only eligible for deletion once Delta has
// elapsed since it ended. A zero Delta deletes every finished run on
// each tick.
type CleanConfig struct {
	Interval time.Duration
	Delta    time.Duration
}

// CleanWorker periodically invokes a RunCleaner according to the
// provided configuration, pruning finished crawl runs once they age
// past Delta.
//
// CleanWorker has a strict lifecycle:
//   - Start may only be called once.
//   - Stop must be called to terminate the worker.
//   - Stop waits for the internal task to finish or until the timeout
//     expires.
type CleanWorker struct {
	state    atomic.Int32
	cleaner  *RunCleaner
	task     internal.TimerTask
	log      *slog.Logger
	interval time.Duration
	delta    time.Duration
}

// NewCleanWorker creates a CleanWorker over cleaner using config.
func NewCleanWorker(cleaner *RunCleaner, config CleanConfig, log *slog.Logger) *CleanWorker {
	if log == nil {
		log = slog.Default()
	}
	return &CleanWorker{
		cleaner:  cleaner,
		log:      log,
		interval: config.Interval,
		delta:    config.Delta,
	}
}

func (cw *CleanWorker) beforeStamp() *time.Time {
	ret := time.Now().Add(-cw.delta)
	return &ret
}

func (cw *CleanWorker) clean(ctx context.Context) {
	count, err := cw.cleaner.Clean(ctx, cw.beforeStamp())
	if err != nil {
		cw.log.Error("error while cleaning runs", "error", err)
		return
	}
	cw.log.Info("pruned finished runs", "count", count)
}

// Start begins periodic execution of the cleaning task.
func (cw *CleanWorker) Start(ctx context.Context) error {
	if !cw.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	cw.task.Start(ctx, cw.clean, cw.interval)
	return nil
}

// Stop terminates the background cleaning task, waiting up to timeout
// for it to settle.
func (cw *CleanWorker) Stop(timeout time.Duration) error {
	if !cw.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := cw.task.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
