package serializer

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackSerializer encodes plain Go values as MessagePack.
type MsgpackSerializer struct{}

var _ Serializer = (*MsgpackSerializer)(nil)

func (MsgpackSerializer) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
