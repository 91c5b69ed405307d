package archive

import (
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// Input rebuilds a value graph from a Decoder. It is the mirror of Output
// and shares its rules: single goroutine use, stack ordered groups, and a
// sticky first error.
type Input struct {
	dec    Decoder
	stack  []Group
	lastID uint64
	err    error
	closed bool

	ptrs map[uint32]reflect.Value
}

// NewInput binds an Input to dec.
func NewInput(dec Decoder) *Input {
	return &Input{dec: dec}
}

func (in *Input) Direction() Direction {
	return Loading
}

// Load reads items in order. Every item must reference a non-nil pointer,
// either directly, through a NamedValue, or through a SizeTag.
func (in *Input) Load(items ...any) error {
	if err := in.check(); err != nil {
		return err
	}
	steps := make([]loadStep, 0, len(items))
	for i, item := range items {
		step, err := prepareLoad(item)
		if err != nil {
			return errors.Wrapf(err, "load item %d", i)
		}
		steps = append(steps, step)
	}
	for _, step := range steps {
		if err := step.run(in); err != nil {
			return in.fail(err)
		}
	}
	return nil
}

// Process is Load, it lets combined strategies ignore the direction.
func (in *Input) Process(items ...any) error {
	return in.Load(items...)
}

func (in *Input) BeginGroup(name string, kind GroupKind) (Group, error) {
	if err := in.check(); err != nil {
		return Group{}, err
	}
	if err := in.dec.BeginGroup(name, kind); err != nil {
		return Group{}, in.fail(err)
	}
	in.lastID++
	g := Group{id: in.lastID, kind: kind}
	in.stack = append(in.stack, g)
	return g, nil
}

func (in *Input) EndGroup(g Group) error {
	if err := in.check(); err != nil {
		return err
	}
	stack, err := popGroup(in.stack, g)
	if err != nil {
		return in.fail(err)
	}
	in.stack = stack
	if err := in.dec.EndGroup(); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Input) Group(name string, fn func() error) error {
	g, err := in.BeginGroup(name, ObjectGroup)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return in.fail(err)
	}
	return in.EndGroup(g)
}

// Close releases the Input. It fails if a group is still open.
func (in *Input) Close() error {
	if in.closed || in.err != nil {
		return in.err
	}
	if len(in.stack) > 0 {
		return in.fail(merr.WrapErrStructure("incomplete read", "groups left open: "+strconv.Itoa(len(in.stack))))
	}
	in.closed = true
	return nil
}

func (in *Input) check() error {
	if in.err != nil {
		return in.err
	}
	if in.closed {
		return merr.WrapErrStructure("archive already closed")
	}
	return nil
}

func (in *Input) fail(err error) error {
	if in.err == nil {
		in.err = err
	}
	return in.err
}

func (in *Input) readValue(name string, k Kind) (Scalar, error) {
	if in.err != nil {
		return Scalar{}, in.err
	}
	s, err := in.dec.ReadValue(name, k)
	if err != nil {
		return Scalar{}, in.fail(err)
	}
	return s, nil
}

func (in *Input) readSize() (uint64, error) {
	if in.err != nil {
		return 0, in.err
	}
	n, err := in.dec.ReadSize()
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

// offsetDecoder is implemented by decoders that know how much input they
// have consumed.
type offsetDecoder interface {
	Offset() uint64
}

func (in *Input) offset() (uint64, bool) {
	d, ok := in.dec.(offsetDecoder)
	if !ok {
		return 0, false
	}
	return d.Offset(), true
}

// checkCount rejects a size of more than maxWidthlessElements when the
// elements read since start took no input.
func (in *Input) checkCount(n, start uint64) error {
	if n <= maxWidthlessElements {
		return nil
	}
	if end, _ := in.offset(); end != start {
		return nil
	}
	return merr.WrapErrFormat("at most "+strconv.Itoa(maxWidthlessElements)+" empty elements",
		strconv.FormatUint(n, 10), "size exceeds the input")
}

type loadStep struct {
	name  string
	value reflect.Value
	plan  *plan
	size  bool
}

func (s loadStep) run(in *Input) error {
	if s.size {
		n, err := in.readSize()
		if err != nil {
			return err
		}
		if s.value.CanInt() {
			if n > 1<<63-1 || s.value.OverflowInt(int64(n)) {
				return merr.WrapErrFormat(s.value.Type().String(), strconv.FormatUint(n, 10), "size out of range")
			}
			s.value.SetInt(int64(n))
			return nil
		}
		if s.value.OverflowUint(n) {
			return merr.WrapErrFormat(s.value.Type().String(), strconv.FormatUint(n, 10), "size out of range")
		}
		s.value.SetUint(n)
		return nil
	}
	return s.plan.load(in, s.name, s.value)
}

func prepareLoad(item any) (loadStep, error) {
	var (
		name  string
		value any
	)
	switch it := item.(type) {
	case sizeTag:
		v, err := sizeRef(it.ref, Loading)
		if err != nil {
			return loadStep{}, err
		}
		return loadStep{value: v, size: true}, nil
	case NamedValue:
		name, value = it.Name, it.Value
	default:
		value = item
	}
	if value == nil {
		return loadStep{}, merr.WrapErrParameterInvalidMsg("nil target for %q", name)
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Pointer {
		return loadStep{}, merr.WrapErrParameterInvalid("pointer", rv.Type().String(), "load target for "+strconv.Quote(name))
	}
	if rv.IsNil() {
		return loadStep{}, merr.WrapErrParameterInvalidMsg("nil target for %q", name)
	}
	rv = rv.Elem()
	p, err := defaultRegistry.plan(rv.Type(), Loading)
	if err != nil {
		return loadStep{}, err
	}
	return loadStep{name: name, value: rv, plan: p}, nil
}
