package core

// run_limiter.go guards how many import runs may be in flight.
//
// An import run owns one long transaction over the whole inventory, so the
// server allows a single run at a time. Requests that cannot get the slot
// either fail straight away (TryAcquire) or wait up to maxWait (Acquire)
// before failing with ErrImportInProgress. WaitForDrain lets shutdown wait
// for a running import to finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrImportInProgress is returned when the run slot is taken.
var ErrImportInProgress = errors.New("an import is already in progress")

// DefaultRunWait is how long Acquire waits for the slot before giving up.
const DefaultRunWait = 30 * time.Second

// RunLimiter is a counting semaphore over import runs.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
	since  time.Time
}

// NewRunLimiter creates a limiter admitting maxConcurrent runs. Values below
// one mean a single run.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = DefaultRunWait
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it afterwards.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return nil
	case <-timer.C:
		return ErrImportInProgress
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot if one is free, without blocking.
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.track(-1)
	<-l.slots
}

func (l *RunLimiter) track(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active += delta
	switch {
	case l.active == 0:
		l.since = time.Time{}
	case delta > 0 && l.active == 1:
		l.since = time.Now()
	}
}

// ActiveCount returns the number of runs holding a slot.
func (l *RunLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of the limiter for monitoring.
type RunLimiterStatus struct {
	Active        int        `json:"active"`
	MaxConcurrent int        `json:"max_concurrent"`
	BusySince     *time.Time `json:"busy_since,omitempty"`
}

// Status returns the current limiter state.
func (l *RunLimiter) Status() RunLimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := RunLimiterStatus{Active: l.active, MaxConcurrent: cap(l.slots)}
	if !l.since.IsZero() {
		since := l.since
		st.BusySince = &since
	}
	return st
}
