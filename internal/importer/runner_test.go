package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/netinventory/internal/core"
	"github.com/JonMunkholm/netinventory/internal/store/memory"
)

func TestRunner_TryRunRejectsConcurrentImport(t *testing.T) {
	ctx := context.Background()
	limiter := core.NewRunLimiter(1, time.Second)
	runner := NewRunner(newTestImporter(t, memory.New(), Sources{}), limiter)

	require.True(t, limiter.TryAcquire())
	_, err := runner.TryRun(ctx, RunOptions{})
	assert.ErrorIs(t, err, core.ErrImportInProgress)
	assert.Nil(t, runner.Latest())
	limiter.Release()

	res, err := runner.TryRun(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Same(t, res, runner.Latest())
	assert.Zero(t, limiter.ActiveCount())
}

func TestRunner_RunWaitsForSlot(t *testing.T) {
	limiter := core.NewRunLimiter(1, 50*time.Millisecond)
	runner := NewRunner(newTestImporter(t, memory.New(), Sources{}), limiter)

	require.True(t, limiter.TryAcquire())
	_, err := runner.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, core.ErrImportInProgress)
	limiter.Release()
}

func TestRunner_SchedulerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(newTestImporter(t, memory.New(), Sources{}), nil)

	done := make(chan struct{})
	go func() {
		runner.StartScheduler(ctx, time.Hour, RunOptions{})
		close(done)
	}()

	require.Eventually(t, func() bool { return runner.Latest() != nil }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeLock struct {
	held     bool
	locks    int
	unlocks  int
	lockedAt time.Duration
}

func (l *fakeLock) Lock(_ context.Context, ttl time.Duration) error {
	if l.held {
		return fmt.Errorf("lock held: %w", core.ErrImportInProgress)
	}
	l.locks++
	l.lockedAt = ttl
	return nil
}

func (l *fakeLock) Unlock(context.Context) error {
	l.unlocks++
	return nil
}

func TestRunner_WithLock(t *testing.T) {
	ctx := context.Background()
	lock := &fakeLock{}
	runner := NewRunner(newTestImporter(t, memory.New(), Sources{}), nil).WithLock(lock, time.Minute)

	_, err := runner.TryRun(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks)
	assert.Equal(t, time.Minute, lock.lockedAt)

	lock.held = true
	_, err = runner.TryRun(ctx, RunOptions{})
	assert.ErrorIs(t, err, core.ErrImportInProgress)
	assert.Equal(t, 1, lock.unlocks)
	assert.Zero(t, runner.Limiter().ActiveCount())
}
