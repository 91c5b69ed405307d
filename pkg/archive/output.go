package archive

import (
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// Output drives a value graph into an Encoder.
//
// Output is not safe for concurrent use. Backends buffer the whole document
// and the sink only sees it when Close succeeds, so a failed save never
// leaves a partial document behind. Once an operation fails the Output is
// poisoned: every later call, Close included, returns the first error.
type Output struct {
	enc    Encoder
	stack  []Group
	lastID uint64
	err    error
	closed bool

	ptrIDs  map[ptrKey]ptrEntry
	lastPtr uint32
}

// NewOutput binds an Output to enc.
func NewOutput(enc Encoder) *Output {
	return &Output{enc: enc}
}

func (o *Output) Direction() Direction {
	return Saving
}

// Save writes items in order. Each item is a NamedValue, a SizeTag, or an
// unnamed value. Strategies for every item are resolved before the first
// one is written.
func (o *Output) Save(items ...any) error {
	if err := o.check(); err != nil {
		return err
	}
	steps := make([]saveStep, 0, len(items))
	for i, item := range items {
		step, err := prepareSave(item)
		if err != nil {
			return errors.Wrapf(err, "save item %d", i)
		}
		steps = append(steps, step)
	}
	for _, step := range steps {
		if err := step.run(o); err != nil {
			return o.fail(err)
		}
	}
	return nil
}

// Process is Save, it lets combined strategies ignore the direction.
func (o *Output) Process(items ...any) error {
	return o.Save(items...)
}

func (o *Output) BeginGroup(name string, kind GroupKind) (Group, error) {
	if err := o.check(); err != nil {
		return Group{}, err
	}
	if err := o.enc.BeginGroup(name, kind); err != nil {
		return Group{}, o.fail(err)
	}
	o.lastID++
	g := Group{id: o.lastID, kind: kind}
	o.stack = append(o.stack, g)
	return g, nil
}

// EndGroup closes g, which must be the most recently opened group.
func (o *Output) EndGroup(g Group) error {
	if err := o.check(); err != nil {
		return err
	}
	stack, err := popGroup(o.stack, g)
	if err != nil {
		return o.fail(err)
	}
	o.stack = stack
	if err := o.enc.EndGroup(); err != nil {
		return o.fail(err)
	}
	return nil
}

func (o *Output) Group(name string, fn func() error) error {
	g, err := o.BeginGroup(name, ObjectGroup)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return o.fail(err)
	}
	return o.EndGroup(g)
}

// Close flushes the document. It fails if a group is still open.
func (o *Output) Close() error {
	if o.closed {
		return o.err
	}
	if o.err != nil {
		return o.err
	}
	if len(o.stack) > 0 {
		return o.fail(merr.WrapErrStructure("incomplete document", "groups left open: "+strconv.Itoa(len(o.stack))))
	}
	o.closed = true
	if err := o.enc.Flush(); err != nil {
		return o.fail(err)
	}
	return nil
}

func (o *Output) check() error {
	if o.err != nil {
		return o.err
	}
	if o.closed {
		return merr.WrapErrStructure("archive already closed")
	}
	return nil
}

func (o *Output) fail(err error) error {
	if o.err == nil {
		o.err = err
	}
	return o.err
}

func (o *Output) writeValue(name string, s Scalar) error {
	if o.err != nil {
		return o.err
	}
	if err := o.enc.WriteValue(name, s); err != nil {
		return o.fail(err)
	}
	return nil
}

type saveStep struct {
	name  string
	value reflect.Value
	plan  *plan
	size  bool
}

func (s saveStep) run(o *Output) error {
	if s.size {
		n, err := sizeOf(s.value)
		if err != nil {
			return err
		}
		if err := o.enc.WriteSize(n); err != nil {
			return o.fail(err)
		}
		return nil
	}
	return s.plan.save(o, s.name, s.value)
}

func prepareSave(item any) (saveStep, error) {
	var (
		name  string
		value any
	)
	switch it := item.(type) {
	case sizeTag:
		v, err := sizeRef(it.ref, Saving)
		if err != nil {
			return saveStep{}, err
		}
		return saveStep{value: v, size: true}, nil
	case NamedValue:
		name, value = it.Name, it.Value
	default:
		value = item
	}
	if value == nil {
		return saveStep{}, merr.WrapErrParameterInvalidMsg("nil value for %q", name)
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return saveStep{}, merr.WrapErrParameterInvalidMsg("nil reference for %q", name)
		}
		rv = rv.Elem()
	} else {
		rv = addressable(rv)
	}
	p, err := defaultRegistry.plan(rv.Type(), Saving)
	if err != nil {
		return saveStep{}, err
	}
	return saveStep{name: name, value: rv, plan: p}, nil
}

// sizeRef validates the target of a SizeTag.
func sizeRef(ref any, d Direction) (reflect.Value, error) {
	if ref == nil {
		return reflect.Value{}, merr.WrapErrParameterInvalidMsg("nil size reference")
	}
	rv := reflect.ValueOf(ref)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, merr.WrapErrParameterInvalidMsg("nil size reference")
		}
		rv = rv.Elem()
	} else if d == Loading {
		return reflect.Value{}, merr.WrapErrParameterInvalid("pointer", rv.Type().String(), "size tag")
	}
	k, ok := leafKind(rv.Type())
	if !ok || !(k.IsSigned() || k.IsUnsigned()) {
		return reflect.Value{}, merr.WrapErrParameterInvalid("integer", rv.Type().String(), "size tag")
	}
	return rv, nil
}

func sizeOf(v reflect.Value) (uint64, error) {
	if v.CanInt() {
		n := v.Int()
		if n < 0 {
			return 0, merr.WrapErrParameterInvalidMsg("negative size %d", n)
		}
		return uint64(n), nil
	}
	return v.Uint(), nil
}

func popGroup(stack []Group, g Group) ([]Group, error) {
	if len(stack) == 0 {
		return stack, merr.WrapErrGroupMismatch("none", g.id)
	}
	top := stack[len(stack)-1]
	if top.id != g.id {
		return stack, merr.WrapErrGroupMismatch(top.id, g.id)
	}
	return stack[:len(stack)-1], nil
}

// addressable returns an addressable copy of v so that pointer receiver
// methods can be called on it.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}
