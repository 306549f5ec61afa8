package tilequeue

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/jirevwe/tilequeue/queue/sqlite"
)

const defaultPollInterval = 100 * time.Millisecond

// Server drains the tile queue into a pool of render workers
type Server struct {
	mux          *Mux
	queue        queue.Queue
	logger       *slog.Logger
	workerPool   Pool
	pollInterval time.Duration
	drain        bool

	// ownsQueue is set when the server opened the store itself and must close it
	ownsQueue bool

	// finished is a channel used to signal up a layer about work completion status
	finished chan *TaskInfo

	processed atomic.Uint64
	failed    atomic.Uint64
}

type Config struct {
	Mux    *Mux
	Queue  queue.Queue
	Logger *slog.Logger

	// Location opens a sqlite store when Queue is nil
	Location string

	Workers      uint
	PollInterval time.Duration

	// Drain makes Start return once the queue is empty instead of polling
	Drain bool
}

func NewServer(cfg *Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	ownsQueue := false
	if cfg.Queue == nil {
		s, err := sqlite.NewSqlite(cfg.Location, cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Queue = s
		ownsQueue = true
	}

	if cfg.Mux == nil {
		cfg.Mux = NewMux()
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	finished := make(chan *TaskInfo)

	return &Server{
		mux:          cfg.Mux,
		queue:        cfg.Queue,
		logger:       cfg.Logger,
		finished:     finished,
		pollInterval: cfg.PollInterval,
		drain:        cfg.Drain,
		ownsQueue:    ownsQueue,
		workerPool:   NewWorkerPool(cfg.Workers, cfg.Logger, finished, cfg.Mux),
	}, nil
}

// Handle registers the renderer for a preset
func (q *Server) Handle(preset string, h Handler) {
	q.mux.Handle(preset, h)
}

// Enqueue adds a tile job, duplicates of a pending job are ignored
func (q *Server) Enqueue(ctx context.Context, preset string, x, y, z int) error {
	return q.queue.Insert(ctx, preset, x, y, z)
}

func (q *Server) Queue() queue.Queue { return q.queue }

// Stats returns how many tasks the workers finished and how many of those failed
func (q *Server) Stats() (processed, failed uint64) {
	return q.processed.Load(), q.failed.Load()
}

// Start takes jobs off the queue and hands them to the workers until ctx is
// done, or in drain mode until the queue is empty. It waits for handed over
// tasks to finish before returning. A store the server opened from
// Config.Location is closed on return. Start must only be called once.
func (q *Server) Start(ctx context.Context) {
	q.workerPool.Start()

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		q.collect()
	}()

	defer func() {
		_ = q.workerPool.Stop()
		close(q.finished)
		<-collected

		if q.ownsQueue {
			if err := q.queue.Close(); err != nil {
				q.logger.Error(err.Error(), "func", "queue.Close")
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		item, err := q.queue.Take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error(err.Error(), "func", "queue.Take")
			q.sleep(ctx)
			continue
		}

		if item == nil {
			if q.drain {
				return
			}
			// nothing to work on, sleep then try again
			q.sleep(ctx)
			continue
		}

		task, err := NewTask(item)
		if err != nil {
			q.logger.Error(err.Error(), "preset", item.Preset, "x", item.X, "y", item.Y, "z", item.Z)
			continue
		}

		if err = q.workerPool.AddWork(task); err != nil {
			q.logger.Error(err.Error(), "func", "workerPool.AddWork")
		}
	}
}

func (q *Server) collect() {
	for info := range q.finished {
		q.processed.Add(1)
		if info.Err() != nil {
			q.failed.Add(1)
		}
	}
}

func (q *Server) sleep(ctx context.Context) {
	t := time.NewTimer(q.pollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
