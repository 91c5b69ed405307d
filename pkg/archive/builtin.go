package archive

import (
	"encoding"
	"reflect"
	"sort"
	"strconv"
	"unsafe"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

const (
	// ptrFirstBit marks the first occurrence of a pointer; the pointee
	// follows as "data".
	ptrFirstBit uint32 = 0x80000000

	ptrWrapperName = "ptr_wrapper"
	ptrIDName      = "id"
	ptrDataName    = "data"
	mapKeyName     = "key"
	mapValueName   = "value"

	// maxWidthlessElements caps sequences whose elements consume no input.
	maxWidthlessElements = 1 << 20
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

type ptrKey struct {
	typ  reflect.Type
	addr uintptr
}

// ptrEntry keeps the pointee reachable until the Output is dropped, so its
// address cannot be reused by another value saved later.
type ptrEntry struct {
	id  uint32
	ref unsafe.Pointer
}

// builtin compiles the strategies the engine ships for types without a
// user strategy.
func (c *compiler) builtin(t reflect.Type, d Direction) (*candidate, error) {
	cand := &candidate{strategy: StrategyBuiltin, origin: "builtin"}
	pt := reflect.PointerTo(t)
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		pt.Implements(textMarshalerType) && pt.Implements(textUnmarshalerType) {
		cand.origin = "text"
		cand.save, cand.load = textSave(), textLoad(t)
		return cand, nil
	}
	if kind, ok := leafKind(t); ok {
		cand.origin = "leaf"
		cand.save, cand.load = leafSave(kind), leafLoad(kind)
		return cand, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, err := c.compile(t.Elem(), d)
		if err != nil {
			return nil, err
		}
		cand.origin = "slice"
		cand.save, cand.load = sliceSave(elem), sliceLoad(t, elem)
	case reflect.Array:
		elem, err := c.compile(t.Elem(), d)
		if err != nil {
			return nil, err
		}
		cand.origin = "array"
		cand.save, cand.load = arraySave(elem), arrayLoad(elem)
	case reflect.Map:
		key, err := c.compile(t.Key(), d)
		if err != nil {
			return nil, err
		}
		elem, err := c.compile(t.Elem(), d)
		if err != nil {
			return nil, err
		}
		cand.origin = "map"
		cand.save, cand.load = mapSave(key, elem), mapLoad(t, key, elem)
	case reflect.Pointer:
		elem, err := c.compile(t.Elem(), d)
		if err != nil {
			return nil, err
		}
		cand.origin = "pointer"
		cand.save, cand.load = pointerSave(elem), pointerLoad(t, elem)
	default:
		return nil, merr.WrapErrResolutionConflict(t, d.String(), "no serialization strategy")
	}
	return cand, nil
}

func leafSave(kind Kind) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		return o.writeValue(name, scalarOf(v, kind))
	}
}

func leafLoad(kind Kind) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		s, err := in.readValue(name, kind)
		if err != nil {
			return err
		}
		return s.assign(v, kind)
	}
}

func textSave() saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		b, err := v.Addr().Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return err
		}
		return o.writeValue(name, StringScalar(string(b)))
	}
}

func textLoad(t reflect.Type) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		s, err := in.readValue(name, KindString)
		if err != nil {
			return err
		}
		if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s.Str)); err != nil {
			return merr.WrapErrFormat(t.String(), strconv.Quote(s.Str), err.Error())
		}
		return nil
	}
}

func sliceSave(elem *plan) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		g, err := o.BeginGroup(name, SequenceGroup)
		if err != nil {
			return err
		}
		n := v.Len()
		if err := o.writeSize(uint64(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem.save(o, "", v.Index(i)); err != nil {
				return err
			}
		}
		return o.EndGroup(g)
	}
}

// sliceLoad grows the slice one element at a time, so a corrupt size runs
// into the end of the input instead of a huge allocation. Elements that
// occupy no input are bounded by maxWidthlessElements. Empty sequences load
// as nil.
func sliceLoad(t reflect.Type, elem *plan) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		g, err := in.BeginGroup(name, SequenceGroup)
		if err != nil {
			return err
		}
		n, err := in.readSize()
		if err != nil {
			return err
		}
		start, tracked := in.offset()
		out := reflect.Zero(t)
		zero := reflect.Zero(t.Elem())
		for i := uint64(0); i < n; i++ {
			out = reflect.Append(out, zero)
			if err := elem.load(in, "", out.Index(out.Len()-1)); err != nil {
				return err
			}
			if i == 0 && tracked {
				if err := in.checkCount(n, start); err != nil {
					return err
				}
			}
		}
		v.Set(out)
		return in.EndGroup(g)
	}
}

func arraySave(elem *plan) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		g, err := o.BeginGroup(name, SequenceGroup)
		if err != nil {
			return err
		}
		for i := 0; i < v.Len(); i++ {
			if err := elem.save(o, "", v.Index(i)); err != nil {
				return err
			}
		}
		return o.EndGroup(g)
	}
}

func arrayLoad(elem *plan) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		g, err := in.BeginGroup(name, SequenceGroup)
		if err != nil {
			return err
		}
		for i := 0; i < v.Len(); i++ {
			if err := elem.load(in, "", v.Index(i)); err != nil {
				return err
			}
		}
		return in.EndGroup(g)
	}
}

// mapSave writes a sequence of {key, value} groups. Keys of ordered kinds
// are sorted so that output is deterministic.
func mapSave(key, elem *plan) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		g, err := o.BeginGroup(name, SequenceGroup)
		if err != nil {
			return err
		}
		if err := o.writeSize(uint64(v.Len())); err != nil {
			return err
		}
		keys := v.MapKeys()
		sortKeys(keys)
		for _, k := range keys {
			entry, err := o.BeginGroup("", ObjectGroup)
			if err != nil {
				return err
			}
			if err := key.save(o, mapKeyName, addressable(k)); err != nil {
				return err
			}
			if err := elem.save(o, mapValueName, addressable(v.MapIndex(k))); err != nil {
				return err
			}
			if err := o.EndGroup(entry); err != nil {
				return err
			}
		}
		return o.EndGroup(g)
	}
}

func mapLoad(t reflect.Type, key, elem *plan) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		g, err := in.BeginGroup(name, SequenceGroup)
		if err != nil {
			return err
		}
		n, err := in.readSize()
		if err != nil {
			return err
		}
		start, tracked := in.offset()
		out := reflect.Zero(t)
		if n > 0 {
			out = reflect.MakeMap(t)
		}
		for i := uint64(0); i < n; i++ {
			if i == 1 && tracked {
				if err := in.checkCount(n, start); err != nil {
					return err
				}
			}
			entry, err := in.BeginGroup("", ObjectGroup)
			if err != nil {
				return err
			}
			k := reflect.New(t.Key()).Elem()
			if err := key.load(in, mapKeyName, k); err != nil {
				return err
			}
			e := reflect.New(t.Elem()).Elem()
			if err := elem.load(in, mapValueName, e); err != nil {
				return err
			}
			if err := in.EndGroup(entry); err != nil {
				return err
			}
			out.SetMapIndex(k, e)
		}
		v.Set(out)
		return in.EndGroup(g)
	}
}

func sortKeys(keys []reflect.Value) {
	if len(keys) < 2 {
		return
	}
	var less func(a, b reflect.Value) bool
	switch keys[0].Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		less = func(a, b reflect.Value) bool { return a.Int() < b.Int() }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		less = func(a, b reflect.Value) bool { return a.Uint() < b.Uint() }
	case reflect.Float32, reflect.Float64:
		less = func(a, b reflect.Value) bool { return a.Float() < b.Float() }
	case reflect.String:
		less = func(a, b reflect.Value) bool { return a.String() < b.String() }
	case reflect.Bool:
		less = func(a, b reflect.Value) bool { return !a.Bool() && b.Bool() }
	default:
		return
	}
	sort.SliceStable(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
}

// pointerSave writes {"ptr_wrapper": {"id": N, "data": ...}}. Id 0 is nil,
// the first occurrence of a pointer carries ptrFirstBit and the pointee,
// later occurrences only the id.
func pointerSave(elem *plan) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		outer, err := o.BeginGroup(name, ObjectGroup)
		if err != nil {
			return err
		}
		wrapper, err := o.BeginGroup(ptrWrapperName, ObjectGroup)
		if err != nil {
			return err
		}
		if v.IsNil() {
			if err := o.writeValue(ptrIDName, UintScalar(KindUint32, 0)); err != nil {
				return err
			}
		} else {
			id, first, err := o.pointerID(v)
			if err != nil {
				return err
			}
			if first {
				if err := o.writeValue(ptrIDName, UintScalar(KindUint32, uint64(id|ptrFirstBit))); err != nil {
					return err
				}
				if err := elem.save(o, ptrDataName, v.Elem()); err != nil {
					return err
				}
			} else if err := o.writeValue(ptrIDName, UintScalar(KindUint32, uint64(id))); err != nil {
				return err
			}
		}
		if err := o.EndGroup(wrapper); err != nil {
			return err
		}
		return o.EndGroup(outer)
	}
}

// pointerLoad allocates a new pointee for every first occurrence and hands
// out the same pointer for later occurrences of its id.
func pointerLoad(t reflect.Type, elem *plan) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		outer, err := in.BeginGroup(name, ObjectGroup)
		if err != nil {
			return err
		}
		wrapper, err := in.BeginGroup(ptrWrapperName, ObjectGroup)
		if err != nil {
			return err
		}
		s, err := in.readValue(ptrIDName, KindUint32)
		if err != nil {
			return err
		}
		id := uint32(s.Uint)
		switch {
		case id == 0:
			v.Set(reflect.Zero(t))
		case id&ptrFirstBit != 0:
			id &^= ptrFirstBit
			if _, ok := in.ptrs[id]; ok {
				return merr.WrapErrFormat("new pointer id", strconv.FormatUint(uint64(id), 10), "pointer id defined twice")
			}
			p := reflect.New(t.Elem())
			if in.ptrs == nil {
				in.ptrs = make(map[uint32]reflect.Value)
			}
			in.ptrs[id] = p
			if err := elem.load(in, ptrDataName, p.Elem()); err != nil {
				return err
			}
			v.Set(p)
		default:
			p, ok := in.ptrs[id]
			if !ok {
				return merr.WrapErrFormat("known pointer id", strconv.FormatUint(uint64(id), 10), "pointer id never defined")
			}
			if p.Type() != t {
				return merr.WrapErrFormat(t.String(), p.Type().String(), "pointer id reused with another type")
			}
			v.Set(p)
		}
		if err := in.EndGroup(wrapper); err != nil {
			return err
		}
		return in.EndGroup(outer)
	}
}

func (o *Output) pointerID(v reflect.Value) (uint32, bool, error) {
	ref := v.UnsafePointer()
	key := ptrKey{typ: v.Type(), addr: uintptr(ref)}
	if e, ok := o.ptrIDs[key]; ok {
		return e.id, false, nil
	}
	if o.lastPtr+1 >= ptrFirstBit {
		return 0, false, merr.WrapErrStructure("too many distinct pointers")
	}
	if o.ptrIDs == nil {
		o.ptrIDs = make(map[ptrKey]ptrEntry)
	}
	o.lastPtr++
	o.ptrIDs[key] = ptrEntry{id: o.lastPtr, ref: ref}
	return o.lastPtr, true, nil
}

func (o *Output) writeSize(n uint64) error {
	if err := o.enc.WriteSize(n); err != nil {
		return o.fail(err)
	}
	return nil
}
