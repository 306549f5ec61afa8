package tilequeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/jirevwe/tilequeue/queue/sqlite"
	"github.com/stretchr/testify/require"
)

func TestNewServer_NoLocation(t *testing.T) {
	_, err := NewServer(&Config{Logger: slogger})
	require.ErrorIs(t, err, queue.ErrNoLocation)
}

func TestServer_DrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := sqlite.NewSqlite(queue.Memory, slogger)
	require.NoError(t, err)
	defer store.Close()

	srv, err := NewServer(&Config{
		Logger:       slogger,
		Queue:        store,
		Workers:      3,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		rendered = map[int]queue.QueueItem{}
	)
	srv.Handle("satellite", HandlerFunc(func(_ context.Context, task *Task) error {
		item, err := task.Item()
		if err != nil {
			return err
		}
		mu.Lock()
		rendered[item.X] = *item
		mu.Unlock()
		return nil
	}))

	for x := 0; x < 10; x++ {
		require.NoError(t, srv.Enqueue(ctx, "satellite", x, 1, 5))
	}
	require.NoError(t, srv.Enqueue(ctx, "satellite", 0, 1, 5))
	require.NoError(t, srv.Enqueue(ctx, "unregistered", 0, 1, 5))

	done := make(chan struct{})
	go func() {
		srv.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		processed, _ := srv.Stats()
		return processed == 11
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	processed, failed := srv.Stats()
	require.Equal(t, uint64(11), processed)
	require.Equal(t, uint64(1), failed)

	mu.Lock()
	require.Len(t, rendered, 10)
	mu.Unlock()

	n, err := srv.Queue().Length(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestServer_DrainReturnsWhenEmpty(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.NewSqlite(queue.Memory, slogger)
	require.NoError(t, err)
	defer store.Close()

	c := NewCounterTest()
	mux := NewMux()
	mux.HandleFunc("satellite", c.Inc)

	srv, err := NewServer(&Config{Logger: slogger, Queue: store, Mux: mux, Workers: 2, Drain: true})
	require.NoError(t, err)

	for x := 0; x < 5; x++ {
		require.NoError(t, srv.Enqueue(ctx, "satellite", x, x, 3))
	}

	srv.Start(ctx)

	require.Equal(t, 5, c.Count())
	processed, failed := srv.Stats()
	require.Equal(t, uint64(5), processed)
	require.Zero(t, failed)
}

func TestServer_ClosesStoreItOpened(t *testing.T) {
	ctx := context.Background()

	srv, err := NewServer(&Config{Logger: slogger, Location: queue.Memory, Drain: true})
	require.NoError(t, err)
	require.NoError(t, srv.Enqueue(ctx, "unregistered", 1, 1, 1))

	srv.Start(ctx)

	_, err = srv.Queue().Length(ctx)
	require.ErrorIs(t, err, queue.ErrNotReady)
}

func TestServer_LeavesCallerStoreOpen(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.NewSqlite(queue.Memory, slogger)
	require.NoError(t, err)
	defer store.Close()

	srv, err := NewServer(&Config{Logger: slogger, Queue: store, Drain: true})
	require.NoError(t, err)

	srv.Start(ctx)

	n, err := store.Length(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
