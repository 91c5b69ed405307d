package serializer

import (
	"gopkg.in/yaml.v3"
)

// YAMLSerializer encodes plain Go values as YAML documents.
type YAMLSerializer struct{}

var _ Serializer = (*YAMLSerializer)(nil)

func (YAMLSerializer) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLSerializer) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
