package tilequeue

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrWorkerPoolClosed = errors.New("worker pool is not active")

type WorkerPool struct {
	// channel from which workers consume work
	tasks chan *Task

	// ensure the pool can only be started once
	start sync.Once

	// ensure the pool can only be stopped once
	stop sync.Once

	// guards closed so AddWork never sends on a closed channel
	mu     sync.RWMutex
	closed bool

	workers []*Worker

	wg *sync.WaitGroup

	mux *Mux

	log *slog.Logger

	// finished is a channel used to signal up a layer about work completion status, may be nil
	finished chan *TaskInfo
}

func (p *WorkerPool) Start() {
	p.start.Do(func() {
		p.log.Info("starting worker pool", "workers", len(p.workers))
		p.startWorkers()
	})
}

func (p *WorkerPool) startWorkers() {
	for i := 0; i < len(p.workers); i++ {
		w := NewWorker(fmt.Sprintf("worker_%d", i+1), p.tasks, p.finished, p.wg, p.log, p.mux)
		p.workers[i] = w
		p.wg.Add(1)
		go w.Start()
	}
}

// AddWorkNonBlocking adds work to the WorkerPool and returns immediately
func (p *WorkerPool) AddWorkNonBlocking(t *Task, errChan chan error) {
	go func() {
		err := p.AddWork(t)
		if err != nil {
			if errChan != nil {
				errChan <- err
			} else {
				p.log.Error(err.Error(), "task", t.Id())
			}
		}
	}()
}

func (p *WorkerPool) Stop() error {
	p.stop.Do(func() {
		p.log.Info("stopping worker pool")

		p.mu.Lock()
		p.closed = true
		// workers drain what is buffered, then exit on the closed channel
		close(p.tasks)
		p.mu.Unlock()

		// wait for all of them to clean themselves up
		p.wg.Wait()

		p.log.Info("worker pool has been stopped")
	})
	return nil
}

// AddWork adds work to the WorkerPool. If the channel buffer is full (or 0) and
// all workers are occupied, this will block until work is consumed.
func (p *WorkerPool) AddWork(t *Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrWorkerPoolClosed
	}

	p.tasks <- t
	return nil
}

func NewWorkerPool(numWorkers uint, log *slog.Logger, finished chan *TaskInfo, mux *Mux) Pool {
	if numWorkers == 0 {
		numWorkers = 1
	}

	return &WorkerPool{
		// number of workers in the pool
		workers:  make([]*Worker, numWorkers),
		tasks:    make(chan *Task, numWorkers),
		wg:       &sync.WaitGroup{},
		finished: finished,
		mux:      mux,
		log:      log,
	}
}
