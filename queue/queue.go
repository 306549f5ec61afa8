package queue

import (
	"context"
	"errors"
	"time"
)

const (
	// Memory is the location of an ephemeral, non-durable store
	Memory = ":memory:"

	// DefaultSelectLimit caps Select when no limit is given
	DefaultSelectLimit = 500
)

var (
	// ErrNoLocation is returned when a store is opened without a location
	ErrNoLocation = errors.New("no location given for the queue store")

	// ErrNotReady is returned by every operation on a store that was never opened or has been closed
	ErrNotReady = errors.New("queue store is not ready")

	// ErrBatchDone is returned when a batch is used after Commit or Rollback
	ErrBatchDone = errors.New("batch has already been committed or rolled back")
)

// Queue holds pending tile jobs, deduplicated on (z, x, y, preset).
type Queue interface {
	// Insert enqueues a job; enqueuing a job that is already pending is a no-op
	Insert(ctx context.Context, preset string, x, y, z int) error

	// Batch opens a transaction for inserting many jobs as one unit
	Batch(ctx context.Context) (Batch, error)

	// Select returns pending jobs at zoom z inside the given ranges without removing them
	Select(ctx context.Context, z int, xr, yr Range, opts *SelectOptions) ([]QueueItem, error)

	// Take removes one arbitrary pending job and returns it, or nil when the queue is empty
	Take(ctx context.Context) (*QueueItem, error)

	// Length counts the pending jobs
	Length(ctx context.Context) (int, error)

	// Reset removes every pending job
	Reset(ctx context.Context) error

	Close() error
}

// Batch is a single open transaction. Commit and Rollback end it; after either
// one every method returns ErrBatchDone.
type Batch interface {
	Insert(ctx context.Context, preset string, x, y, z int) error
	Commit() error
	Rollback() error
}

type QueueItem struct {
	Id         int64  `json:"id" db:"id" msgpack:"id"`
	X          int    `json:"x" db:"x" msgpack:"x"`
	Y          int    `json:"y" db:"y" msgpack:"y"`
	Z          int    `json:"z" db:"z" msgpack:"z"`
	Preset     string `json:"preset" db:"preset" msgpack:"preset"`
	EnqueuedAt int64  `json:"ts" db:"ts" msgpack:"ts"`
}

// EnqueuedTime converts the millisecond timestamp of the job
func (q *QueueItem) EnqueuedTime() time.Time {
	return time.UnixMilli(q.EnqueuedAt)
}

// Range is inclusive on both ends
type Range struct {
	Min int
	Max int
}

func Span(min, max int) Range {
	return Range{Min: min, Max: max}
}

type SelectOptions struct {
	Limit int
}

// LimitOrDefault returns the row cap for a Select, opts may be nil
func (o *SelectOptions) LimitOrDefault() int {
	if o == nil || o.Limit <= 0 {
		return DefaultSelectLimit
	}
	return o.Limit
}
