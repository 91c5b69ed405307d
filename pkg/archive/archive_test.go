package archive_test

import (
	"bytes"
	"math"
	"math/rand"
	"runtime"
	"strings"
	"sync"
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
	return ar.Process(archive.NVP("a", &s.A), archive.NVP("b", &s.B), archive.NVP("c", &s.C))
}

func TestSimpleDataScenario(t *testing.T) {
	doc := encode(t, formats[0], archive.NVP("simple_data", &simpleData{A: 1, B: 22, C: 33}))
	compact := strings.Join(strings.Fields(string(doc)), "")
	assert.Equal(t, `{"simple_data":{"a":1,"b":22,"c":33.0}}`, compact)

	for _, f := range formats {
		var got simpleData
		decode(t, f, encode(t, f, archive.NVP("simple_data", &simpleData{A: 1, B: 22, C: 33})), archive.NVP("simple_data", &got))
		assert.Equal(t, simpleData{A: 1, B: 22, C: 33}, got, f.name)
	}
}

// crossed closes its groups out of order.
type crossed struct{}

func (crossed) Save(out *archive.Output) error {
	outer, err := out.BeginGroup("outer", archive.ObjectGroup)
	if err != nil {
		return err
	}
	if _, err := out.BeginGroup("inner", archive.SequenceGroup); err != nil {
		return err
	}
	return out.EndGroup(outer)
}

func (*crossed) Load(*archive.Input) error { return nil }

func TestStructureErrorPoisons(t *testing.T) {
	for _, f := range formats {
		var buf bytes.Buffer
		out := f.output(&buf)
		err := out.Save(archive.NVP("x", crossed{}))
		require.True(t, errors.Is(err, merr.ErrStructure), f.name)

		assert.Equal(t, err, out.Save(archive.NVP("n", 1)))
		_, gerr := out.BeginGroup("g", archive.ObjectGroup)
		assert.Equal(t, err, gerr)
		assert.Equal(t, err, out.Close())
		assert.Zero(t, buf.Len(), "a poisoned archive never reaches the sink")
	}
}

func TestIncompleteDocument(t *testing.T) {
	for _, f := range formats {
		var buf bytes.Buffer
		out := f.output(&buf)
		_, err := out.BeginGroup("open", archive.ObjectGroup)
		require.NoError(t, err)
		require.NoError(t, out.Save(archive.NVP("n", 1)))
		assert.True(t, errors.Is(out.Close(), merr.ErrStructure), f.name)
		assert.Zero(t, buf.Len())
	}

	in, err := formats[0].input(strings.NewReader(`{"open": {"n": 1}}`))
	require.NoError(t, err)
	_, err = in.BeginGroup("open", archive.ObjectGroup)
	require.NoError(t, err)
	assert.True(t, errors.Is(in.Close(), merr.ErrStructure))
}

func TestGroupHelperAndClose(t *testing.T) {
	var buf bytes.Buffer
	out := formats[0].output(&buf)
	require.NoError(t, out.Group("g", func() error {
		return out.Save(archive.NVP("n", 1))
	}))
	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	assert.True(t, errors.Is(out.Save(1), merr.ErrStructure))

	in, err := formats[0].input(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var n int
	require.NoError(t, in.Group("g", func() error {
		return in.Load(archive.NVP("n", &n))
	}))
	assert.Equal(t, 1, n)
}

func TestParameterErrors(t *testing.T) {
	out := formats[0].output(&bytes.Buffer{})
	var nilPtr *int
	assert.True(t, errors.Is(out.Save(archive.NVP("p", nilPtr)), merr.ErrParameterInvalid))
	assert.True(t, errors.Is(out.Save(nil), merr.ErrParameterInvalid))
	assert.True(t, errors.Is(out.Save(archive.SizeTag(new(string))), merr.ErrParameterInvalid))
	require.NoError(t, out.Close())

	in, err := formats[0].input(strings.NewReader(`{"n": 1}`))
	require.NoError(t, err)
	assert.True(t, errors.Is(in.Load(archive.NVP("n", 1)), merr.ErrParameterInvalid))
	assert.True(t, errors.Is(in.Load(archive.NVP("n", nilPtr)), merr.ErrParameterInvalid))
}

type pair struct {
	A, B, C *int
}

func (p *pair) Serialize(ar archive.Archive) error {
	return ar.Process(archive.NVP("a", &p.A), archive.NVP("b", &p.B), archive.NVP("c", &p.C))
}

func TestSharedPointers(t *testing.T) {
	x := 5
	for _, f := range formats {
		t.Run(f.name, func(t *testing.T) {
			doc := encode(t, f, archive.NVP("pair", &pair{A: &x, B: &x}))
			var got pair
			decode(t, f, doc, archive.NVP("pair", &got))
			require.NotNil(t, got.A)
			assert.Equal(t, 5, *got.A)
			assert.Same(t, got.A, got.B)
			assert.NotSame(t, &x, got.A)
			assert.Nil(t, got.C)
		})
	}

	doc := string(encode(t, formats[0], archive.NVP("pair", &pair{A: &x, B: &x})))
	assert.Contains(t, doc, `"id": 2147483649`)
	assert.Contains(t, doc, `"id": 1`)
	assert.Contains(t, doc, `"id": 0`)
}

func TestDanglingPointerID(t *testing.T) {
	doc := `{"pair": {
		"a": {"ptr_wrapper": {"id": 3}},
		"b": {"ptr_wrapper": {"id": 0}},
		"c": {"ptr_wrapper": {"id": 0}}}}`
	in, err := formats[0].input(strings.NewReader(doc))
	require.NoError(t, err)
	var got pair
	assert.True(t, errors.Is(in.Load(archive.NVP("pair", &got)), merr.ErrFormat))
}

// box owns a pointer that nothing else references once it is saved.
type box struct {
	P *[64]byte
}

func (b *box) Serialize(ar archive.Archive) error {
	return ar.Process(archive.NVP("p", &b.P))
}

// transient builds a fresh box on every save.
type transient struct{ n byte }

func (tr *transient) Save(out *archive.Output) error {
	runtime.GC()
	return out.Save(archive.NVP("box", box{P: &[64]byte{tr.n}}))
}

func (tr *transient) Load(in *archive.Input) error {
	var b box
	if err := in.Load(archive.NVP("box", &b)); err != nil {
		return err
	}
	tr.n = b.P[0]
	return nil
}

func TestTemporaryPointersKeepIdentity(t *testing.T) {
	want := make([]transient, 64)
	for i := range want {
		want[i].n = byte(i + 1)
	}
	for _, f := range formats {
		t.Run(f.name, func(t *testing.T) {
			doc := encode(t, f, archive.NVP("items", want))
			var got []transient
			decode(t, f, doc, archive.NVP("items", &got))
			assert.Equal(t, want, got)
		})
	}
}

// bag stores its own size tag.
type bag struct {
	items []string
}

func (b *bag) Save(out *archive.Output) error {
	g, err := out.BeginGroup("items", archive.SequenceGroup)
	if err != nil {
		return err
	}
	n := len(b.items)
	if err := out.Save(archive.SizeTag(&n)); err != nil {
		return err
	}
	for i := range b.items {
		if err := out.Save(&b.items[i]); err != nil {
			return err
		}
	}
	return out.EndGroup(g)
}

func (b *bag) Load(in *archive.Input) error {
	g, err := in.BeginGroup("items", archive.SequenceGroup)
	if err != nil {
		return err
	}
	var n uint16
	if err := in.Load(archive.SizeTag(&n)); err != nil {
		return err
	}
	b.items = make([]string, n)
	for i := range b.items {
		if err := in.Load(&b.items[i]); err != nil {
			return err
		}
	}
	return in.EndGroup(g)
}

func TestSizeTag(t *testing.T) {
	for _, f := range formats {
		want := bag{items: []string{"x", "y", "z"}}
		var got bag
		decode(t, f, encode(t, f, archive.NVP("bag", &want)), archive.NVP("bag", &got))
		assert.Equal(t, want, got, f.name)
	}
}

func TestMapSize(t *testing.T) {
	m := map[string]int{"one": 1, "two": 2, "three": 3}
	for _, f := range formats {
		var got map[string]int
		decode(t, f, encode(t, f, archive.NVP("m", m)), archive.NVP("m", &got))
		assert.Equal(t, m, got, f.name)
	}
}

type node struct {
	Name     string
	Children []*node
	Tags     map[int8]string
}

func (n *node) Serialize(ar archive.Archive) error {
	return ar.Process(archive.NVP("name", &n.Name), archive.NVP("children", &n.Children), archive.NVP("tags", &n.Tags))
}

type sample struct {
	B    bool
	I8   int8
	I16  int16
	I32  int32
	I64  int64
	I    int
	U8   uint8
	U16  uint16
	U32  uint32
	U64  uint64
	U    uint
	F32  float32
	F64  float64
	S    string
	Raw  []byte
	List []float64
	Grid [2][3]int16
	Map  map[uint32][]string
	Tree *node
}

func (s *sample) Serialize(ar archive.Archive) error {
	return ar.Process(
		archive.NVP("b", &s.B), archive.NVP("i8", &s.I8), archive.NVP("i16", &s.I16),
		archive.NVP("i32", &s.I32), archive.NVP("i64", &s.I64), archive.NVP("i", &s.I),
		archive.NVP("u8", &s.U8), archive.NVP("u16", &s.U16), archive.NVP("u32", &s.U32),
		archive.NVP("u64", &s.U64), archive.NVP("u", &s.U), archive.NVP("f32", &s.F32),
		archive.NVP("f64", &s.F64), archive.NVP("s", &s.S), archive.NVP("raw", &s.Raw),
		archive.NVP("list", &s.List), archive.NVP("grid", &s.Grid), archive.NVP("map", &s.Map),
		archive.NVP("tree", &s.Tree),
	)
}

const alphabet = "abcxyz019 _-é世"

func randString(r *rand.Rand) string {
	runes := []rune(alphabet)
	out := make([]rune, 1+r.Intn(8))
	for i := range out {
		out[i] = runes[r.Intn(len(runes))]
	}
	return string(out)
}

func randSample(r *rand.Rand) sample {
	s := sample{
		B:   r.Intn(2) == 1,
		I8:  int8(r.Intn(256) - 128),
		I16: int16(r.Intn(1<<16) - 1<<15),
		I32: r.Int31() - r.Int31(),
		I64: r.Int63() - r.Int63(),
		I:   r.Intn(math.MaxInt32) - r.Intn(math.MaxInt32),
		U8:  uint8(r.Intn(256)),
		U16: uint16(r.Intn(1 << 16)),
		U32: r.Uint32(),
		U64: r.Uint64(),
		U:   uint(r.Uint32()),
		F32: float32(r.NormFloat64() * 1e3),
		F64: r.NormFloat64() * math.Pow(10, float64(r.Intn(60)-30)),
		S:   randString(r),
		Raw: make([]byte, 1+r.Intn(16)),
		Map: make(map[uint32][]string),
		Tree: &node{
			Name: randString(r),
			Tags: map[int8]string{int8(r.Intn(100)): randString(r)},
		},
	}
	r.Read(s.Raw)
	for i := 0; i < 1+r.Intn(5); i++ {
		s.List = append(s.List, r.ExpFloat64())
	}
	for i := range s.Grid {
		for j := range s.Grid[i] {
			s.Grid[i][j] = int16(r.Intn(2000) - 1000)
		}
	}
	for i := 0; i < 1+r.Intn(3); i++ {
		s.Map[r.Uint32()] = []string{randString(r), randString(r)}
	}
	for i := 0; i < 1+r.Intn(3); i++ {
		s.Tree.Children = append(s.Tree.Children, &node{
			Name: randString(r),
			Tags: map[int8]string{-1: randString(r)},
		})
	}
	return s
}

func TestRandomRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(20240601))
	for i := 0; i < 25; i++ {
		want := randSample(r)
		for _, f := range formats {
			var got sample
			decode(t, f, encode(t, f, archive.NVP("sample", &want)), archive.NVP("sample", &got))
			require.Equal(t, want, got, "iteration %d, %s", i, f.name)
		}
	}
}

func TestConcurrentArchives(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			want := randSample(rand.New(rand.NewSource(seed)))
			for _, f := range formats {
				var buf bytes.Buffer
				out := f.output(&buf)
				if !assert.NoError(t, out.Save(archive.NVP("sample", &want))) || !assert.NoError(t, out.Close()) {
					return
				}
				in, err := f.input(&buf)
				if !assert.NoError(t, err) {
					return
				}
				var got sample
				assert.NoError(t, in.Load(archive.NVP("sample", &got)))
				assert.Equal(t, want, got)
			}
		}(int64(i))
	}
	wg.Wait()
}

func TestTruncatedNeverDefaults(t *testing.T) {
	want := randSample(rand.New(rand.NewSource(7)))
	for _, f := range formats {
		doc := encode(t, f, archive.NVP("sample", &want))
		for _, cut := range []int{len(doc) / 3, len(doc) - 2} {
			in, err := f.input(bytes.NewReader(doc[:cut]))
			if err != nil {
				assert.True(t, errors.Is(err, merr.ErrTruncated), "%s cut %d: %v", f.name, cut, err)
				continue
			}
			var got sample
			err = in.Load(archive.NVP("sample", &got))
			assert.True(t, errors.Is(err, merr.ErrTruncated), "%s cut %d: %v", f.name, cut, err)
		}
	}
}
