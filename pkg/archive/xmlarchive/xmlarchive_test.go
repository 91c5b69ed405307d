package xmlarchive

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

type simpleData struct {
	A int
	B int
	C float64
}

func (s *simpleData) Serialize(ar archive.Archive) error {
	return ar.Process(
		archive.NVP("a", &s.A),
		archive.NVP("b", &s.B),
		archive.NVP("c", &s.C),
	)
}

func save(t *testing.T, items ...any) string {
	t.Helper()
	var buf bytes.Buffer
	out := NewOutput(&buf)
	require.NoError(t, out.Save(items...))
	require.NoError(t, out.Close())
	return buf.String()
}

func TestSimpleData(t *testing.T) {
	got := save(t, archive.NVP("simple_data", &simpleData{A: 1, B: 22, C: 33}))
	want := `<?xml version="1.0" encoding="UTF-8"?>
<archive>
    <simple_data>
        <a>1</a>
        <b>22</b>
        <c>33.0</c>
    </simple_data>
</archive>
`
	assert.Equal(t, want, got)

	in, err := NewInput(strings.NewReader(got))
	require.NoError(t, err)
	var loaded simpleData
	require.NoError(t, in.Load(archive.NVP("simple_data", &loaded)))
	require.NoError(t, in.Close())
	assert.Equal(t, simpleData{A: 1, B: 22, C: 33}, loaded)
}

func TestEmptyDocument(t *testing.T) {
	got := save(t)
	assert.Equal(t, xmlHeader()+"<archive></archive>\n", got)
}

func xmlHeader() string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
}

func TestContainers(t *testing.T) {
	m := map[string][]int{"a": {1, 2}, "b": {}}
	got := save(t, archive.NVP("m", m), archive.NVP("xs", [2]string{"x", ""}))
	assert.Contains(t, got, "<key>a</key>")
	assert.Contains(t, got, "<value0>1</value0>")

	in, err := NewInput(strings.NewReader(got))
	require.NoError(t, err)
	var (
		lm map[string][]int
		xs [2]string
	)
	require.NoError(t, in.Load(archive.NVP("m", &lm), archive.NVP("xs", &xs)))
	assert.Equal(t, map[string][]int{"a": {1, 2}, "b": nil}, lm)
	assert.Equal(t, [2]string{"x", ""}, xs)
}

func TestAnyRootName(t *testing.T) {
	doc := `<cereal><n>7</n><s> padded </s></cereal>`
	in, err := NewInput(strings.NewReader(doc))
	require.NoError(t, err)
	var (
		n int
		s string
	)
	require.NoError(t, in.Load(archive.NVP("n", &n), archive.NVP("s", &s)))
	assert.Equal(t, 7, n)
	assert.Equal(t, " padded ", s)
}

func TestEscaping(t *testing.T) {
	got := save(t, archive.NVP("s", "a<b>&\"c\"\nd"))
	in, err := NewInput(strings.NewReader(got))
	require.NoError(t, err)
	var s string
	require.NoError(t, in.Load(archive.NVP("s", &s)))
	assert.Equal(t, "a<b>&\"c\"\nd", s)
}

func TestTruncatedInput(t *testing.T) {
	doc := save(t, archive.NVP("simple_data", &simpleData{A: 1, B: 22, C: 33}))
	end := strings.Index(doc, "</archive>")
	for _, cut := range []int{0, len(xmlHeader()) + 3, len(doc) / 2, end} {
		_, err := NewInput(strings.NewReader(doc[:cut]))
		assert.True(t, errors.Is(err, merr.ErrTruncated), "cut at %d: %v", cut, err)
	}
}

func TestMalformedInput(t *testing.T) {
	for _, doc := range []string{`<a><b></a>`, `<a></a><b></b>`} {
		_, err := NewInput(strings.NewReader(doc))
		assert.True(t, errors.Is(err, merr.ErrFormat), "%s: %v", doc, err)
	}

	in, err := NewInput(strings.NewReader(`<archive><n>x</n></archive>`))
	require.NoError(t, err)
	var n int
	assert.True(t, errors.Is(in.Load(archive.NVP("n", &n)), merr.ErrFormat))
}

func TestInvalidNames(t *testing.T) {
	for _, name := range []string{"a b", "1st", "-x", "a<b", "ns:x", "\xff"} {
		var buf bytes.Buffer
		out := NewOutput(&buf)
		err := out.Save(archive.NVP(name, "x"))
		assert.True(t, errors.Is(err, merr.ErrParameterInvalid), "%q: %v", name, err)

		out = NewOutput(&buf)
		err = out.Group(name, func() error { return nil })
		assert.True(t, errors.Is(err, merr.ErrParameterInvalid), "group %q: %v", name, err)
	}

	got := save(t, archive.NVP("x.y-z_1", 1), archive.NVP("été", 2))
	in, err := NewInput(strings.NewReader(got))
	require.NoError(t, err)
	var a, b int
	require.NoError(t, in.Load(archive.NVP("x.y-z_1", &a), archive.NVP("été", &b)))
	assert.Equal(t, []int{1, 2}, []int{a, b})
}

func TestInvalidCharacters(t *testing.T) {
	for _, s := range []string{"ctl\x01", "bad\xffutf8", "nul\x00"} {
		var buf bytes.Buffer
		out := NewOutput(&buf)
		err := out.Save(archive.NVP("s", s))
		assert.True(t, errors.Is(err, merr.ErrFormat), "%q: %v", s, err)
		assert.Error(t, out.Close())
		assert.Zero(t, buf.Len())
	}

	want := "tab\tcr\r�\U0001F600"
	got := save(t, archive.NVP("s", want))
	in, err := NewInput(strings.NewReader(got))
	require.NoError(t, err)
	var s string
	require.NoError(t, in.Load(archive.NVP("s", &s)))
	assert.Equal(t, want, s)
}
