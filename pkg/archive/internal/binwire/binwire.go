// Package binwire implements the fixed width binary encoding shared by the
// native and portable binary backends. Names and groups leave no trace on
// the wire; values follow each other in emission order.
package binwire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// ByteOrder is satisfied by binary.LittleEndian, binary.BigEndian and
// binary.NativeEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Layout fixes the byte order and the width of int, uint and size tags.
type Layout struct {
	Order   ByteOrder
	IntBits int
}

// Native is the layout of the host.
var Native = Layout{Order: binary.NativeEndian, IntBits: strconv.IntSize}

type Encoder struct {
	w      io.Writer
	layout Layout
	buf    []byte
}

// NewEncoder buffers the document; header is emitted first.
func NewEncoder(w io.Writer, layout Layout, header []byte) *Encoder {
	return &Encoder{w: w, layout: layout, buf: append([]byte(nil), header...)}
}

func (e *Encoder) BeginGroup(string, archive.GroupKind) error { return nil }

func (e *Encoder) EndGroup() error { return nil }

func (e *Encoder) WriteValue(_ string, s archive.Scalar) error {
	o := e.layout.Order
	switch s.Kind {
	case archive.KindBool:
		if s.Bool {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case archive.KindInt8:
		e.buf = append(e.buf, byte(s.Int))
	case archive.KindUint8:
		e.buf = append(e.buf, byte(s.Uint))
	case archive.KindInt16:
		e.buf = o.AppendUint16(e.buf, uint16(s.Int))
	case archive.KindUint16:
		e.buf = o.AppendUint16(e.buf, uint16(s.Uint))
	case archive.KindInt32:
		e.buf = o.AppendUint32(e.buf, uint32(s.Int))
	case archive.KindUint32:
		e.buf = o.AppendUint32(e.buf, uint32(s.Uint))
	case archive.KindInt64:
		e.buf = o.AppendUint64(e.buf, uint64(s.Int))
	case archive.KindUint64:
		e.buf = o.AppendUint64(e.buf, s.Uint)
	case archive.KindInt:
		if e.layout.IntBits == 32 {
			if s.Int < math.MinInt32 || s.Int > math.MaxInt32 {
				return merr.WrapErrParameterInvalidMsg("int %d does not fit 32 bits", s.Int)
			}
			e.buf = o.AppendUint32(e.buf, uint32(s.Int))
		} else {
			e.buf = o.AppendUint64(e.buf, uint64(s.Int))
		}
	case archive.KindUint:
		return e.writeWord(s.Uint)
	case archive.KindFloat32:
		e.buf = o.AppendUint32(e.buf, math.Float32bits(float32(s.Float)))
	case archive.KindFloat64:
		e.buf = o.AppendUint64(e.buf, math.Float64bits(s.Float))
	case archive.KindString:
		if err := e.writeWord(uint64(len(s.Str))); err != nil {
			return err
		}
		e.buf = append(e.buf, s.Str...)
	case archive.KindBytes:
		if err := e.writeWord(uint64(len(s.Bytes))); err != nil {
			return err
		}
		e.buf = append(e.buf, s.Bytes...)
	default:
		return merr.WrapErrParameterInvalidMsg("unknown kind %s", s.Kind)
	}
	return nil
}

func (e *Encoder) WriteSize(n uint64) error {
	return e.writeWord(n)
}

func (e *Encoder) writeWord(n uint64) error {
	if e.layout.IntBits == 32 {
		if n > math.MaxUint32 {
			return merr.WrapErrParameterInvalidMsg("%d does not fit 32 bits", n)
		}
		e.buf = e.layout.Order.AppendUint32(e.buf, uint32(n))
		return nil
	}
	e.buf = e.layout.Order.AppendUint64(e.buf, n)
	return nil
}

// Len is the number of buffered bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

func (e *Encoder) Flush() error {
	if _, err := e.w.Write(e.buf); err != nil {
		return merr.WrapErrIoFailed("write", err)
	}
	return nil
}

type Decoder struct {
	r       *bufio.Reader
	layout  Layout
	off     uint64
	scratch [8]byte
}

func NewDecoder(r io.Reader, layout Layout) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br, layout: layout}
}

func (d *Decoder) BeginGroup(string, archive.GroupKind) error { return nil }

func (d *Decoder) EndGroup() error { return nil }

func (d *Decoder) read(n int, what string) ([]byte, error) {
	b := d.scratch[:n]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, readError(err, what)
	}
	d.off += uint64(n)
	return b, nil
}

// Offset is the number of bytes consumed so far.
func (d *Decoder) Offset() uint64 {
	return d.off
}

func readError(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return merr.WrapErrTruncated(what)
	}
	return merr.WrapErrIoFailed("read "+what, err)
}

func (d *Decoder) ReadValue(_ string, k archive.Kind) (archive.Scalar, error) {
	o := d.layout.Order
	switch k {
	case archive.KindBool:
		b, err := d.read(1, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		if b[0] > 1 {
			return archive.Scalar{}, merr.WrapErrFormat("0 or 1", strconv.Itoa(int(b[0])), "reading bool")
		}
		return archive.BoolScalar(b[0] == 1), nil
	case archive.KindInt8:
		b, err := d.read(1, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.IntScalar(k, int64(int8(b[0]))), nil
	case archive.KindUint8:
		b, err := d.read(1, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.UintScalar(k, uint64(b[0])), nil
	case archive.KindInt16:
		b, err := d.read(2, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.IntScalar(k, int64(int16(o.Uint16(b)))), nil
	case archive.KindUint16:
		b, err := d.read(2, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.UintScalar(k, uint64(o.Uint16(b))), nil
	case archive.KindInt32:
		b, err := d.read(4, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.IntScalar(k, int64(int32(o.Uint32(b)))), nil
	case archive.KindUint32:
		b, err := d.read(4, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.UintScalar(k, uint64(o.Uint32(b))), nil
	case archive.KindInt64:
		b, err := d.read(8, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.IntScalar(k, int64(o.Uint64(b))), nil
	case archive.KindUint64:
		b, err := d.read(8, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.UintScalar(k, o.Uint64(b)), nil
	case archive.KindInt:
		if d.layout.IntBits == 32 {
			b, err := d.read(4, k.String())
			if err != nil {
				return archive.Scalar{}, err
			}
			return archive.IntScalar(k, int64(int32(o.Uint32(b)))), nil
		}
		b, err := d.read(8, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.IntScalar(k, int64(o.Uint64(b))), nil
	case archive.KindUint:
		n, err := d.readWord(k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.UintScalar(k, n), nil
	case archive.KindFloat32:
		b, err := d.read(4, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.FloatScalar(k, float64(math.Float32frombits(o.Uint32(b)))), nil
	case archive.KindFloat64:
		b, err := d.read(8, k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.FloatScalar(k, math.Float64frombits(o.Uint64(b))), nil
	case archive.KindString:
		b, err := d.readBlob(k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.StringScalar(string(b)), nil
	case archive.KindBytes:
		b, err := d.readBlob(k.String())
		if err != nil {
			return archive.Scalar{}, err
		}
		return archive.BytesScalar(b), nil
	}
	return archive.Scalar{}, merr.WrapErrParameterInvalidMsg("unknown kind %s", k)
}

func (d *Decoder) ReadSize() (uint64, error) {
	return d.readWord("size")
}

func (d *Decoder) readWord(what string) (uint64, error) {
	if d.layout.IntBits == 32 {
		b, err := d.read(4, what)
		if err != nil {
			return 0, err
		}
		return uint64(d.layout.Order.Uint32(b)), nil
	}
	b, err := d.read(8, what)
	if err != nil {
		return 0, err
	}
	return d.layout.Order.Uint64(b), nil
}

// readBlob copies a length prefixed payload. The copy grows with the data
// actually present, a corrupt length ends in a truncation error.
func (d *Decoder) readBlob(what string) ([]byte, error) {
	n, err := d.readWord(what + " length")
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt64 {
		return nil, merr.WrapErrFormat("length", strconv.FormatUint(n, 10), "reading "+what)
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		return nil, readError(err, what)
	}
	d.off += n
	return buf.Bytes(), nil
}

var (
	_ archive.Encoder = (*Encoder)(nil)
	_ archive.Decoder = (*Decoder)(nil)
)
