package archive

import (
	"reflect"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// Access carries the unexported serialization methods of T, usually as
// method expressions:
//
//	func init() {
//		archive.Grant(archive.Access[point]{
//			Save: (*point).save,
//			Load: (*point).load,
//		})
//	}
//
// Save and Load form a member split strategy, Serialize a member combined
// one. The functions are kept inside the engine and only the resolver
// calls them.
type Access[T any] struct {
	Serialize func(v *T, ar Archive) error
	Save      func(v *T, out *Output) error
	Load      func(v *T, in *Input) error
}

// Grant lets the engine use the functions in a for T. T must be a named
// type declared in a package, and may be granted only once.
func Grant[T any](a Access[T]) error {
	t := reflect.TypeFor[T]()
	if err := checkGrantable(t); err != nil {
		return err
	}
	if a.Serialize == nil && a.Save == nil && a.Load == nil {
		return merr.WrapErrAccessViolation(t, "grant carries no function")
	}
	f := &memberFuncs{}
	if a.Serialize != nil {
		f.serialize = func(v reflect.Value, ar Archive) error {
			return a.Serialize(v.Addr().Interface().(*T), ar)
		}
	}
	if a.Save != nil {
		f.save = func(v reflect.Value, o *Output) error {
			return a.Save(v.Addr().Interface().(*T), o)
		}
	}
	if a.Load != nil {
		f.load = func(v reflect.Value, in *Input) error {
			return a.Load(v.Addr().Interface().(*T), in)
		}
	}
	return defaultRegistry.update(func() error {
		if _, ok := defaultRegistry.granted[t]; ok {
			return merr.WrapErrAccessViolation(t, "duplicate grant")
		}
		defaultRegistry.granted[t] = f
		return nil
	})
}

// GrantMinimal is Grant for unexported minimal split methods.
func GrantMinimal[T any, S Primitive](save func(v *T) (S, error), load func(v *T, s S) error) error {
	t := reflect.TypeFor[T]()
	if err := checkGrantable(t); err != nil {
		return err
	}
	if save == nil && load == nil {
		return merr.WrapErrAccessViolation(t, "grant carries no function")
	}
	m, err := newMinimalFuncs(t, save, load)
	if err != nil {
		return err
	}
	return defaultRegistry.update(func() error {
		if _, ok := defaultRegistry.grantedMinimal[t]; ok {
			return merr.WrapErrAccessViolation(t, "duplicate minimal grant")
		}
		defaultRegistry.grantedMinimal[t] = m
		return nil
	})
}

func checkGrantable(t reflect.Type) error {
	if t.Name() == "" || t.PkgPath() == "" {
		return merr.WrapErrAccessViolation(t, "grant requires a named type declared in a package")
	}
	return nil
}
