package portablearchive

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

func TestLayout(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.Save(archive.NVP("n", int(-2)), archive.NVP("xs", []uint16{0x0102})))
	require.NoError(t, out.Close())

	want := []byte{
		1,
		0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		1, 0, 0, 0, 0, 0, 0, 0,
		0x02, 0x01,
	}
	assert.Equal(t, want, buf.Bytes())
}

func TestBigEndianInput(t *testing.T) {
	doc := []byte{
		0,
		0, 0, 0, 0, 0, 0, 0, 2,
		0x01, 0x02,
		0x03, 0x04,
	}
	in, err := NewInput(bytes.NewReader(doc))
	require.NoError(t, err)
	var xs []uint16
	require.NoError(t, in.Load(&xs))
	assert.Equal(t, []uint16{0x0102, 0x0304}, xs)
}

func TestBadMark(t *testing.T) {
	_, err := NewInput(bytes.NewReader([]byte{7}))
	assert.True(t, errors.Is(err, merr.ErrFormat))

	_, err = NewInput(bytes.NewReader(nil))
	assert.True(t, errors.Is(err, merr.ErrTruncated))
}

func TestTruncatedSequence(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.Save([]string{"a", "b", "c"}))
	require.NoError(t, out.Close())
	doc := buf.Bytes()

	in, err := NewInput(bytes.NewReader(doc[:len(doc)-1]))
	require.NoError(t, err)
	var xs []string
	err = in.Load(&xs)
	assert.True(t, errors.Is(err, merr.ErrTruncated))
	assert.Nil(t, xs)
}

func TestCorruptCountOfEmptyElements(t *testing.T) {
	doc := binary.LittleEndian.AppendUint64([]byte{1}, 1<<40)

	in, err := NewInput(bytes.NewReader(doc))
	require.NoError(t, err)
	var xs [][0]int
	assert.True(t, errors.Is(in.Load(&xs), merr.ErrFormat))

	in, err = NewInput(bytes.NewReader(doc))
	require.NoError(t, err)
	var m map[[0]int][0]int
	assert.True(t, errors.Is(in.Load(&m), merr.ErrFormat))
}

func TestEmptyElements(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.Save(make([][0]int, 3)))
	require.NoError(t, out.Close())

	in, err := NewInput(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var xs [][0]int
	require.NoError(t, in.Load(&xs))
	require.NoError(t, in.Close())
	assert.Len(t, xs, 3)
}
