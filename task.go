package tilequeue

import (
	"fmt"

	"github.com/jirevwe/tilequeue/packer"
	"github.com/jirevwe/tilequeue/queue"
	"github.com/oklog/ulid/v2"
)

// Task is one taken job on its way to a handler
type Task struct {
	taskid  string
	preset  string
	message []byte
}

func (t *Task) Id() string      { return t.taskid }
func (t *Task) Preset() string  { return t.preset }
func (t *Task) Payload() []byte { return t.message }

// NewTask packs a job that has already been taken off the queue
func NewTask(item *queue.QueueItem) (*Task, error) {
	raw, err := packer.EncodeItem(item)
	if err != nil {
		return nil, fmt.Errorf("encode job %d: %w", item.Id, err)
	}

	return &Task{
		taskid:  ulid.Make().String(),
		preset:  item.Preset,
		message: raw,
	}, nil
}

// Item unpacks the job carried by the task
func (t *Task) Item() (*queue.QueueItem, error) {
	return packer.DecodeItem(t.message)
}

// TaskInfo reports how a task ended
type TaskInfo struct {
	task *Task
	err  error
}

func (i *TaskInfo) Task() *Task { return i.task }
func (i *TaskInfo) Err() error  { return i.err }
