// Package besteffort runs remote writes whose failure must not reach the caller.
//
// Every task is spawned, tracked and its result explicitly discarded after
// being logged. Retry or backoff policies belong here, not at call sites.
package besteffort

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"
)

// DefaultTimeout bounds a single task when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Runner spawns best-effort tasks.
type Runner struct {
	logger  *slog.Logger
	timeout time.Duration

	wg       sync.WaitGroup
	inflight atomic.Int64
	failures atomic.Int64
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(logger *slog.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Go spawns fn in the background. The task outlives the caller's
// cancellation but not the runner's timeout. Its error is logged and dropped.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...any) {
	r.wg.Add(1)
	r.inflight.Add(1)

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	lifecycle.Go(taskCtx, func(ctx context.Context) error {
		defer r.wg.Done()
		defer r.inflight.Add(-1)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.failures.Add(1)
			r.logger.Warn("best-effort task failed", append([]any{"task", name, "error", err}, attrs...)...)
			return nil
		}
		r.logger.Debug("best-effort task done", append([]any{"task", name}, attrs...)...)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		r.failures.Add(1)
		r.logger.Error("best-effort task panic", "task", name, "error", fmt.Errorf("%s: %w", name, err))
	}))
}

// Wait blocks until every spawned task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// InFlight returns the number of running tasks.
func (r *Runner) InFlight() int {
	return int(r.inflight.Load())
}

// Failures returns how many tasks failed since the runner was created.
func (r *Runner) Failures() int {
	return int(r.failures.Load())
}
