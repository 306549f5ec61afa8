package tilequeue

import (
	"context"
	"log/slog"
	"sync"
)

// Worker is a worker instance
type Worker struct {
	// the worker id
	id string

	// channel from which the worker consumes work, closed by the pool on Stop
	tasks chan *Task

	// used to signal the pool to clean itself up
	wg *sync.WaitGroup

	mux      *Mux
	finished chan *TaskInfo
	log      *slog.Logger
}

func NewWorker(id string, tasks chan *Task, finished chan *TaskInfo, wg *sync.WaitGroup, log *slog.Logger, mux *Mux) *Worker {
	return &Worker{
		id:       id,
		wg:       wg,
		mux:      mux,
		log:      log,
		tasks:    tasks,
		finished: finished,
	}
}

func (w *Worker) Start() {
	w.log.Debug("starting worker", "worker", w.id)

	defer func() {
		w.wg.Done()
		w.log.Debug("worker has been stopped", "worker", w.id)
	}()

	for task := range w.tasks {
		err := w.mux.ProcessTask(context.Background(), task)
		if err != nil {
			w.log.Error("failed to render tile", "worker", w.id, "task", task.Id(), "preset", task.Preset(), "error", err)
		}

		if w.finished != nil {
			w.finished <- &TaskInfo{task: task, err: err}
		}
	}
}
