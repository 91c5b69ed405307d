package serializer

// Serializer turns objects into bytes and back.
type Serializer interface {
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, usually a pointer.
	Unmarshal(data []byte, v any) error
}
