package binaryarchive

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/archive-go/pkg/archive"
)

func TestMapCarriesCount(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.Save(archive.NVP("m", map[uint8]bool{3: true, 1: false, 2: true})))
	require.NoError(t, out.Close())

	word := strconv.IntSize / 8
	doc := buf.Bytes()
	require.Len(t, doc, word+3*2)
	var count uint64
	if word == 8 {
		count = binary.NativeEndian.Uint64(doc)
	} else {
		count = uint64(binary.NativeEndian.Uint32(doc))
	}
	assert.EqualValues(t, 3, count)
	// keys are written in order
	assert.Equal(t, []byte{1, 0, 2, 1, 3, 1}, doc[word:])

	in := NewInput(bytes.NewReader(doc))
	var m map[uint8]bool
	require.NoError(t, in.Load(&m))
	assert.Equal(t, map[uint8]bool{3: true, 1: false, 2: true}, m)
}
