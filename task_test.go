package tilequeue

import (
	"testing"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/stretchr/testify/require"
)

func TestNewTask_CarriesItem(t *testing.T) {
	item := &queue.QueueItem{Id: 42, X: 1, Y: 2, Z: 3, Preset: "satellite", EnqueuedAt: 1700000000123}

	task, err := NewTask(item)
	require.NoError(t, err)
	require.NotEmpty(t, task.Id())
	require.Equal(t, "satellite", task.Preset())

	got, err := task.Item()
	require.NoError(t, err)
	require.Equal(t, item, got)

	other, err := NewTask(item)
	require.NoError(t, err)
	require.NotEqual(t, task.Id(), other.Id())
}
