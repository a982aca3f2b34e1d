package fs

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tabnotes/pkg/core"
)

// A watcher whose fsnotify handle dies is restarted by a supervisor and
// keeps serving the same events channel.
func TestWatchWorker_RestartedBySupervisor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore(Config{Path: t.TempDir()})
	require.NoError(t, store.Initialize(ctx))

	events := make(chan core.Event, 4)
	created := make(chan *watchWorker, 2)

	sup := supervisor.New("local-store-watch", supervisor.StrategyOneForOne, supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(store, events)
			created <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	})
	require.NoError(t, sup.Start(ctx))

	active := func() bool {
		state, ok := store.State().(StoreState)
		return ok && state.WatcherActive
	}

	first := nextWorker(t, created)
	require.Eventually(t, active, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return first.watcher != nil }, 2*time.Second, 10*time.Millisecond)
	_ = first.watcher.Close()

	second := nextWorker(t, created)
	require.NotSame(t, first, second)
	require.Eventually(t, active, 2*time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, sup.Stop(stopCtx))
}

func nextWorker(t *testing.T, ch <-chan *watchWorker) *watchWorker {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for watch worker")
		return nil
	}
}
