package tilequeue

import "context"

// A Handler renders tile jobs.
//
// ProcessTask should return nil if the tile was rendered.
//
// A job is removed from the queue before it reaches a Handler, so
// a non-nil error is logged and counted but the job is not retried;
// enqueue it again if it should be.
type Handler interface {
	ProcessTask(context.Context, *Task) error
}

// The HandlerFunc type is an adapter to allow the use of
// ordinary functions as a Handler. If f is a function
// with the appropriate signature, HandlerFunc(f) is a
// Handler that calls f.
type HandlerFunc func(context.Context, *Task) error

// ProcessTask calls fn(ctx, task)
func (fn HandlerFunc) ProcessTask(ctx context.Context, task *Task) error {
	return fn(ctx, task)
}
