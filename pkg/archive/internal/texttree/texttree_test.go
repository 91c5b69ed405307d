package texttree

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

func TestFormatFloat(t *testing.T) {
	cases := []struct {
		in   float64
		bits int
		want string
	}{
		{33, 64, "33.0"},
		{0, 64, "0.0"},
		{math.Copysign(0, -1), 64, "-0.0"},
		{0.5, 64, "0.5"},
		{-2.25, 64, "-2.25"},
		{1e21, 64, "1.0e+21"},
		{1e20, 64, "100000000000000000000.0"},
		{1e-7, 64, "1.0e-7"},
		{1.5e-9, 64, "1.5e-9"},
		{1e-100, 64, "1.0e-100"},
		{0.1, 32, "0.1"},
		{float64(float32(3.25)), 32, "3.25"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatFloat(c.in, c.bits), "%v", c.in)
	}
}

func TestFormatScalar(t *testing.T) {
	text, tok := FormatScalar(archive.IntScalar(archive.KindInt32, -7))
	assert.Equal(t, "-7", text)
	assert.Equal(t, TokenNumber, tok)

	text, tok = FormatScalar(archive.BoolScalar(true))
	assert.Equal(t, "true", text)
	assert.Equal(t, TokenBool, tok)

	text, tok = FormatScalar(archive.FloatScalar(archive.KindFloat64, math.Inf(-1)))
	assert.Equal(t, "-Infinity", text)
	assert.Equal(t, TokenString, tok)

	text, tok = FormatScalar(archive.BytesScalar([]byte("hi")))
	assert.Equal(t, "aGk=", text)
	assert.Equal(t, TokenString, tok)
}

func TestParseScalar(t *testing.T) {
	s, err := ParseScalar(&Node{Text: "300", Token: TokenNumber}, archive.KindUint16)
	require.NoError(t, err)
	assert.EqualValues(t, 300, s.Uint)

	_, err = ParseScalar(&Node{Text: "300", Token: TokenNumber}, archive.KindUint8)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	_, err = ParseScalar(&Node{Text: "12", Token: TokenString}, archive.KindInt)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	s, err = ParseScalar(&Node{Text: "NaN", Token: TokenString}, archive.KindFloat64)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(s.Float))

	s, err = ParseScalar(&Node{Text: "1.0e-7"}, archive.KindFloat64)
	require.NoError(t, err)
	assert.Equal(t, 1e-7, s.Float)

	_, err = ParseScalar(&Node{Token: TokenNull}, archive.KindString)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	_, err = ParseScalar(&Node{Text: "yes"}, archive.KindBool)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	_, err = ParseScalar(&Node{Kind: Object}, archive.KindString)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	s, err = ParseScalar(&Node{Text: "aGk=", Token: TokenString}, archive.KindBytes)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), s.Bytes)
}

func TestNamer(t *testing.T) {
	var n Namer
	assert.Equal(t, "value0", n.Next(""))
	assert.Equal(t, "a", n.Next("a"))
	assert.Equal(t, "value1", n.Next(""))
}

func leaf(name, text string) *Node {
	return &Node{Name: name, Text: text, Token: TokenNumber}
}

func TestCursor(t *testing.T) {
	root := &Node{Kind: Object, Children: []*Node{
		{Name: "obj", Kind: Object, Children: []*Node{leaf("a", "1"), leaf("b", "2"), leaf("c", "3")}},
		{Name: "seq", Kind: Array, Children: []*Node{leaf("", "10"), leaf("", "20")}},
		{Name: "empty", Token: TokenText},
	}}
	c := NewCursor(root)
	c.Strict = true

	require.NoError(t, c.Enter("obj", archive.ObjectGroup))
	assert.Equal(t, 1, c.Depth())
	// out of order lookups
	s, err := c.Value("c", archive.KindInt)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.Int)
	s, err = c.Value("a", archive.KindInt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Int)
	// positional continues after the last match
	s, err = c.Value("", archive.KindInt)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.Int)
	_, err = c.Value("missing", archive.KindInt)
	assert.True(t, errors.Is(err, merr.ErrFormat))
	require.NoError(t, c.Leave())

	err = c.Enter("seq", archive.ObjectGroup)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	c = NewCursor(root)
	c.Strict = true
	require.NoError(t, c.Enter("seq", archive.SequenceGroup))
	assert.EqualValues(t, 2, c.Size())
	for _, want := range []int64{10, 20} {
		s, err := c.Value("ignored", archive.KindInt)
		require.NoError(t, err)
		assert.Equal(t, want, s.Int)
	}
	_, err = c.Value("", archive.KindInt)
	assert.True(t, errors.Is(err, merr.ErrFormat))
	require.NoError(t, c.Leave())

	err = c.Enter("empty", archive.SequenceGroup)
	assert.True(t, errors.Is(err, merr.ErrFormat))

	c = NewCursor(root)
	require.NoError(t, c.Enter("empty", archive.SequenceGroup))
	assert.EqualValues(t, 0, c.Size())
	require.NoError(t, c.Leave())
	assert.True(t, errors.Is(c.Leave(), merr.ErrStructure))
}
