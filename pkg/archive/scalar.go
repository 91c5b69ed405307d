package archive

import (
	"reflect"
	"strconv"

	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// Primitive is the set of types a minimal strategy may degrade to.
type Primitive interface {
	constraints.Signed | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		constraints.Float | ~bool | ~string | ~[]byte
}

// Kind is the wire kind of a leaf value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	// KindInt is the host sized int.
	KindInt
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	// KindUint is the host sized uint.
	KindUint
	KindFloat32
	KindFloat64
	KindString
	KindBytes
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindInt:     "int",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindUint:    "uint",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt
}

func (k Kind) IsUnsigned() bool {
	return k >= KindUint8 && k <= KindUint
}

func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// Bits returns the width of numeric kinds on this host, 0 otherwise.
func (k Kind) Bits() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32, KindFloat32:
		return 32
	case KindInt64, KindUint64, KindFloat64:
		return 64
	case KindInt, KindUint:
		return strconv.IntSize
	}
	return 0
}

// Scalar carries one leaf value. Only the field matching Kind is meaningful:
// Int for signed kinds, Uint for unsigned kinds, Float for floats.
type Scalar struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	Bytes []byte
}

func BoolScalar(v bool) Scalar           { return Scalar{Kind: KindBool, Bool: v} }
func IntScalar(k Kind, v int64) Scalar   { return Scalar{Kind: k, Int: v} }
func UintScalar(k Kind, v uint64) Scalar { return Scalar{Kind: k, Uint: v} }
func FloatScalar(k Kind, v float64) Scalar {
	return Scalar{Kind: k, Float: v}
}
func StringScalar(v string) Scalar { return Scalar{Kind: KindString, Str: v} }
func BytesScalar(v []byte) Scalar  { return Scalar{Kind: KindBytes, Bytes: v} }

// leafKind maps a Go type onto a wire kind.
func leafKind(t reflect.Type) (Kind, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return KindBool, true
	case reflect.Int8:
		return KindInt8, true
	case reflect.Int16:
		return KindInt16, true
	case reflect.Int32:
		return KindInt32, true
	case reflect.Int64:
		return KindInt64, true
	case reflect.Int:
		return KindInt, true
	case reflect.Uint8:
		return KindUint8, true
	case reflect.Uint16:
		return KindUint16, true
	case reflect.Uint32:
		return KindUint32, true
	case reflect.Uint64:
		return KindUint64, true
	case reflect.Uint:
		return KindUint, true
	case reflect.Float32:
		return KindFloat32, true
	case reflect.Float64:
		return KindFloat64, true
	case reflect.String:
		return KindString, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, true
		}
	}
	return KindInvalid, false
}

func scalarOf(v reflect.Value, k Kind) Scalar {
	switch {
	case k == KindBool:
		return BoolScalar(v.Bool())
	case k.IsSigned():
		return IntScalar(k, v.Int())
	case k.IsUnsigned():
		return UintScalar(k, v.Uint())
	case k.IsFloat():
		return FloatScalar(k, v.Float())
	case k == KindString:
		return StringScalar(v.String())
	default:
		return BytesScalar(v.Bytes())
	}
}

// assign stores s into the settable value v of kind k.
func (s Scalar) assign(v reflect.Value, k Kind) error {
	if s.Kind != k {
		return merr.WrapErrFormat(k.String(), s.Kind.String())
	}
	switch {
	case k == KindBool:
		v.SetBool(s.Bool)
	case k.IsSigned():
		if v.OverflowInt(s.Int) {
			return merr.WrapErrFormat(k.String(), strconv.FormatInt(s.Int, 10), "value out of range")
		}
		v.SetInt(s.Int)
	case k.IsUnsigned():
		if v.OverflowUint(s.Uint) {
			return merr.WrapErrFormat(k.String(), strconv.FormatUint(s.Uint, 10), "value out of range")
		}
		v.SetUint(s.Uint)
	case k.IsFloat():
		v.SetFloat(s.Float)
	case k == KindString:
		v.SetString(s.Str)
	default:
		if s.Bytes == nil {
			v.SetBytes([]byte{})
		} else {
			v.SetBytes(s.Bytes)
		}
	}
	return nil
}
