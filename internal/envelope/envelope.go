// Package envelope frames archive documents for storage and transport.
//
// A frame is laid out as
//
//	magic "ARCV" | version length u8 | version | format u8 | flags u8 | payload length u32 BE | payload
//
// where version is the semantic version of the engine that wrote the frame.
// Readers accept any frame with the same major version.
package envelope

import (
	"encoding/binary"
	"strconv"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/archive-go/internal/compressor"
	"github.com/lk2023060901/archive-go/pkg/codec"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

const (
	Magic = "ARCV"

	// FlagZstd marks a zstd compressed payload.
	FlagZstd byte = 1 << 0

	knownFlags = FlagZstd
	maxPayload = 1<<32 - 1
)

// EngineVersion is written into every frame.
var EngineVersion = semver.MustParse("1.0.0")

// Config controls sealing. Opening always understands compressed frames.
type Config struct {
	Compress        bool `mapstructure:"compress"`
	MinCompressSize int  `mapstructure:"min_compress_size"`
}

// Frame is an opened envelope.
type Frame struct {
	Version    semver.Version
	Format     codec.Format
	Compressed bool
	Payload    []byte
}

// Envelope seals and opens frames. It is safe for concurrent use.
type Envelope struct {
	version semver.Version
	sealer  compressor.Compressor
	zstd    *compressor.ZstdCompressor
}

func New(cfg Config) (*Envelope, error) {
	zstd, err := compressor.NewZstdCompressor()
	if err != nil {
		return nil, err
	}
	zstd.SetMinCompressSize(cfg.MinCompressSize)

	var sealer compressor.Compressor = compressor.NopCompressor{}
	if cfg.Compress {
		sealer = zstd
	}
	return &Envelope{
		version: EngineVersion,
		sealer:  sealer,
		zstd:    zstd,
	}, nil
}

// Close releases the compressor. The Envelope must not be used afterwards.
func (e *Envelope) Close() {
	e.zstd.Close()
}

// Seal wraps payload, a document of format f, into a frame.
func (e *Envelope) Seal(f codec.Format, payload []byte) ([]byte, error) {
	if !f.Valid() {
		return nil, merr.WrapErrParameterInvalidMsg("unknown format %d", f)
	}
	var flags byte
	if e.sealer.ShouldCompress(len(payload)) {
		packed, err := e.sealer.Compress(nil, payload)
		if err != nil {
			return nil, merr.WrapErrIoFailed("compress payload", err)
		}
		payload = packed
		flags |= FlagZstd
	}
	if uint64(len(payload)) > maxPayload {
		return nil, merr.WrapErrParameterInvalid(uint64(maxPayload), uint64(len(payload)), "payload too large")
	}

	version := e.version.String()
	frame := make([]byte, 0, len(Magic)+1+len(version)+2+4+len(payload))
	frame = append(frame, Magic...)
	frame = append(frame, byte(len(version)))
	frame = append(frame, version...)
	frame = append(frame, byte(f), flags)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	return frame, nil
}

// Open validates a frame and returns its decompressed payload.
func (e *Envelope) Open(data []byte) (Frame, error) {
	r := reader{data: data}

	magic, ok := r.next(len(Magic))
	if !ok {
		return Frame{}, merr.WrapErrEnvelopeInvalid("truncated frame", "magic")
	}
	if string(magic) != Magic {
		return Frame{}, merr.WrapErrEnvelopeInvalid("bad magic", strconv.Quote(string(magic)))
	}

	n, ok := r.next(1)
	if !ok {
		return Frame{}, merr.WrapErrEnvelopeInvalid("truncated frame", "version length")
	}
	raw, ok := r.next(int(n[0]))
	if !ok {
		return Frame{}, merr.WrapErrEnvelopeInvalid("truncated frame", "version")
	}
	version, err := semver.Parse(string(raw))
	if err != nil {
		return Frame{}, merr.WrapErrEnvelopeInvalid("bad version", err.Error())
	}
	if version.Major != e.version.Major {
		return Frame{}, merr.WrapErrEnvelopeInvalid("incompatible version",
			version.String()+" is not compatible with "+e.version.String())
	}

	head, ok := r.next(6)
	if !ok {
		return Frame{}, merr.WrapErrEnvelopeInvalid("truncated frame", "header")
	}
	f := codec.Format(head[0])
	if !f.Valid() {
		return Frame{}, merr.WrapErrEnvelopeInvalid("unknown format", strconv.Itoa(int(head[0])))
	}
	flags := head[1]
	if flags&^knownFlags != 0 {
		return Frame{}, merr.WrapErrEnvelopeInvalid("unknown flags", strconv.Itoa(int(flags)))
	}
	size := binary.BigEndian.Uint32(head[2:])
	payload, ok := r.next(int(size))
	if !ok {
		return Frame{}, merr.WrapErrEnvelopeInvalid("truncated frame", "payload")
	}
	if r.left() > 0 {
		return Frame{}, merr.WrapErrEnvelopeInvalid("trailing data", strconv.Itoa(r.left())+" bytes")
	}

	frame := Frame{Version: version, Format: f, Payload: payload}
	if flags&FlagZstd != 0 {
		plain, err := e.zstd.Decompress(nil, payload)
		if err != nil {
			return Frame{}, merr.WrapErrEnvelopeInvalid("corrupt payload", err.Error())
		}
		frame.Payload = plain
		frame.Compressed = true
	}
	return frame, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) next(n int) ([]byte, bool) {
	if n < 0 || n > len(r.data)-r.off {
		return nil, false
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *reader) left() int {
	return len(r.data) - r.off
}
