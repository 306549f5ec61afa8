package packer

import (
	"github.com/jirevwe/tilequeue/queue"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeItem packs a job for handing off to a worker
func EncodeItem(item *queue.QueueItem) ([]byte, error) {
	return msgpack.Marshal(item)
}

func DecodeItem(raw []byte) (*queue.QueueItem, error) {
	var item queue.QueueItem
	if err := msgpack.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
