// Package json is the project wide entry to github.com/bytedance/sonic.
package json

import (
	"github.com/bytedance/sonic"
)

// api follows encoding/json behavior: sorted map keys, HTML escaping and
// validated strings.
var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid reports whether data is a single valid JSON document.
func Valid(data []byte) bool {
	return api.Valid(data)
}
