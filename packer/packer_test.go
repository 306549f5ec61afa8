package packer

import (
	"testing"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/stretchr/testify/require"
)

func TestDecodeItem_Garbage(t *testing.T) {
	_, err := DecodeItem([]byte{0xc1})
	require.Error(t, err)
}

func TestEncodeItem_KeepsKey(t *testing.T) {
	raw, err := EncodeItem(&queue.QueueItem{Id: 9, X: 1, Y: 2, Z: 3, Preset: "satellite", EnqueuedAt: 1700000000000})
	require.NoError(t, err)

	item, err := DecodeItem(raw)
	require.NoError(t, err)
	require.Equal(t, int64(9), item.Id)
	require.Equal(t, "satellite", item.Preset)
	require.Equal(t, int64(1700000000000), item.EnqueuedAt)
}
