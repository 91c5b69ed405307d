package compressor

// Compressor compresses and decompresses whole blocks.
type Compressor interface {
	// Compress appends the compressed form of src to dst[:0].
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress reverses Compress. src must be a Compress output.
	Decompress(dst, src []byte) (plain []byte, err error)

	// ShouldCompress reports whether a block of n bytes is worth compressing.
	ShouldCompress(n int) bool
}

// NopCompressor passes data through unchanged.
type NopCompressor struct{}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) ShouldCompress(int) bool {
	return false
}

var _ Compressor = NopCompressor{}
