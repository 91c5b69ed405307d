package serializer

import (
	"github.com/lk2023060901/archive-go/internal/json"
)

// JSONSerializer encodes plain Go values with internal/json.
type JSONSerializer struct{}

var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
