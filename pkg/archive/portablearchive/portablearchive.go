// Package portablearchive stores archives in a host independent binary
// layout. The first byte records the byte order of the document, 1 for
// little endian and 0 for big endian. Writers always produce little endian
// documents with 64-bit int, uint and size words.
package portablearchive

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/internal/binwire"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

const (
	bigEndianMark    byte = 0
	littleEndianMark byte = 1
)

type (
	Encoder = binwire.Encoder
	Decoder = binwire.Decoder
)

func layout(order binwire.ByteOrder) binwire.Layout {
	return binwire.Layout{Order: order, IntBits: 64}
}

func NewEncoder(w io.Writer) *Encoder {
	return binwire.NewEncoder(w, layout(binary.LittleEndian), []byte{littleEndianMark})
}

// NewDecoder consumes the byte order mark and returns a decoder for the
// rest of the document.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bufio.NewReader(r)
	mark, err := br.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, merr.WrapErrTruncated("byte order mark")
		}
		return nil, merr.WrapErrIoFailed("read byte order mark", err)
	}
	switch mark {
	case littleEndianMark:
		return binwire.NewDecoder(br, layout(binary.LittleEndian)), nil
	case bigEndianMark:
		return binwire.NewDecoder(br, layout(binary.BigEndian)), nil
	}
	return nil, merr.WrapErrFormat("byte order mark 0 or 1", strconv.Itoa(int(mark)))
}

func NewOutput(w io.Writer) *archive.Output {
	return archive.NewOutput(NewEncoder(w))
}

func NewInput(r io.Reader) (*archive.Input, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return archive.NewInput(dec), nil
}
