package importer

// runner.go serializes import runs for long-lived callers (the HTTP server
// and its scheduler) and remembers the outcome of the last one.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// ProcessLock serializes imports across processes sharing a store.
type ProcessLock interface {
	Lock(ctx context.Context, ttl time.Duration) error
	Unlock(ctx context.Context) error
}

// Runner admits one import at a time.
type Runner struct {
	importer *Importer
	limiter  *core.RunLimiter
	lock     ProcessLock
	lockTTL  time.Duration

	mu   sync.RWMutex
	last *RunResult
}

// NewRunner wraps im. A nil limiter admits a single run.
func NewRunner(im *Importer, limiter *core.RunLimiter) *Runner {
	if limiter == nil {
		limiter = core.NewRunLimiter(1, 0)
	}
	return &Runner{importer: im, limiter: limiter}
}

// WithLock makes every run also hold l, for at most ttl. A lock held by
// another process fails the run with an error wrapping
// core.ErrImportInProgress.
func (r *Runner) WithLock(l ProcessLock, ttl time.Duration) *Runner {
	r.lock = l
	r.lockTTL = ttl
	return r
}

// Limiter exposes the run slot for status reporting and shutdown.
func (r *Runner) Limiter() *core.RunLimiter { return r.limiter }

// TryRun runs an import if none is in flight and returns
// core.ErrImportInProgress otherwise.
func (r *Runner) TryRun(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !r.limiter.TryAcquire() {
		return nil, core.ErrImportInProgress
	}
	defer r.limiter.Release()
	return r.run(ctx, opts)
}

// Run waits for the run slot, then imports.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.limiter.Release()
	return r.run(ctx, opts)
}

func (r *Runner) run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if r.lock != nil {
		if err := r.lock.Lock(ctx, r.lockTTL); err != nil {
			return nil, err
		}
		defer func() {
			if err := r.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("release import lock", "error", err)
			}
		}()
	}

	res, err := r.importer.Run(ctx, opts)
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
	return res, err
}

// Latest returns the result of the most recent run, or nil.
func (r *Runner) Latest() *RunResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// StartScheduler imports every interval until ctx is cancelled. It runs once
// immediately. A tick that finds an import already running is skipped.
func (r *Runner) StartScheduler(ctx context.Context, interval time.Duration, opts RunOptions) {
	slog.Info("import scheduler started", "interval", interval.String())

	r.scheduledRun(ctx, opts)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import scheduler stopped")
			return
		case <-ticker.C:
			r.scheduledRun(ctx, opts)
		}
	}
}

func (r *Runner) scheduledRun(ctx context.Context, opts RunOptions) {
	start := time.Now()
	_, err := r.TryRun(ctx, opts)
	switch {
	case errors.Is(err, core.ErrImportInProgress):
		slog.Info("scheduled import skipped, another import is running")
	case err != nil:
		slog.Error("scheduled import failed", "error", err)
	default:
		slog.Info("scheduled import completed", "duration_ms", time.Since(start).Milliseconds())
	}
}
