package tilequeue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMux_RoutesByPreset(t *testing.T) {
	var got string
	mux := NewMux()
	mux.HandleFunc("satellite", func(_ context.Context, task *Task) error {
		got = task.Preset()
		return nil
	})

	require.NoError(t, mux.ProcessTask(context.Background(), newTestTask(t, "satellite", 1)))
	require.Equal(t, "satellite", got)

	err := mux.ProcessTask(context.Background(), newTestTask(t, "streets", 1))
	require.EqualError(t, err, `handler not found for preset "streets"`)
}
