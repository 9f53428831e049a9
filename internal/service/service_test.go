package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swapiexport/internal/service"
)

// ─────────────────────────────────────────────────────────────
// RunningJobsGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	t.Parallel()

	var g service.ExportedRunningGuard

	require.True(t, g.TryLock("job-1"))
	require.False(t, g.TryLock("job-1"), "same job must not run twice")
	require.True(t, g.TryLock("job-2"))
	require.True(t, g.Running("job-1"))

	g.Unlock("job-1")
	g.Unlock("job-2")
	require.False(t, g.Running("job-1"))

	require.True(t, g.TryLock("job-1"))
	g.Unlock("job-1")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	t.Parallel()

	var g service.ExportedRunningGuard
	require.True(t, g.TryLock("job-a"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("job-a")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestRunningGuard_WaitAllRespectsContext(t *testing.T) {
	t.Parallel()

	var g service.ExportedRunningGuard
	require.True(t, g.TryLock("stuck"))
	defer g.Unlock("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	g.WaitAll(ctx)
	require.Error(t, ctx.Err())
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	t.Parallel()

	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	require.Equal(t, []string{"test:event", "test:event2"}, m.Names())
	require.Equal(t, map[string]string{"foo": "bar"}, m.Events[0].Data)
}
