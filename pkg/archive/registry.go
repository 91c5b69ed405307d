package archive

import (
	"reflect"
	"sync"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

type saveFunc func(o *Output, name string, v reflect.Value) error

type loadFunc func(in *Input, name string, v reflect.Value) error

// plan is the compiled strategy of one type in one direction. v is always
// addressable when a plan runs.
type plan struct {
	typ      reflect.Type
	dir      Direction
	strategy Strategy
	save     saveFunc
	load     loadFunc
}

type planKey struct {
	typ reflect.Type
	dir Direction
}

// memberFuncs holds type erased split and combined functions, either handed
// over by Grant or registered as free functions.
type memberFuncs struct {
	serialize func(v reflect.Value, ar Archive) error
	save      func(v reflect.Value, o *Output) error
	load      func(v reflect.Value, in *Input) error
}

type minimalFuncs struct {
	surrogate reflect.Type
	kind      Kind
	save      func(v reflect.Value) (reflect.Value, error)
	load      func(v, s reflect.Value) error
}

type minimalFunc struct {
	surrogate reflect.Type
	kind      Kind
	fn        func(d Direction, v, s reflect.Value) error
}

type registry struct {
	mu sync.RWMutex

	granted        map[reflect.Type]*memberFuncs
	grantedMinimal map[reflect.Type]*minimalFuncs
	free           map[reflect.Type]*memberFuncs
	freeMinimal    map[reflect.Type]*minimalFuncs
	freeMinimalFn  map[reflect.Type]*minimalFunc

	plans map[planKey]*plan
}

func newRegistry() *registry {
	return &registry{
		granted:        make(map[reflect.Type]*memberFuncs),
		grantedMinimal: make(map[reflect.Type]*minimalFuncs),
		free:           make(map[reflect.Type]*memberFuncs),
		freeMinimal:    make(map[reflect.Type]*minimalFuncs),
		freeMinimalFn:  make(map[reflect.Type]*minimalFunc),
		plans:          make(map[planKey]*plan),
	}
}

var defaultRegistry = newRegistry()

// update runs fn under the write lock and drops every cached plan.
func (r *registry) update(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	r.plans = make(map[planKey]*plan)
	return nil
}

func (r *registry) registerFree(t reflect.Type, set func(f *memberFuncs) error) error {
	return r.update(func() error {
		f, ok := r.free[t]
		if !ok {
			f = &memberFuncs{}
		}
		if err := set(f); err != nil {
			return err
		}
		r.free[t] = f
		return nil
	})
}

func errAlreadyRegistered(t reflect.Type, what string) error {
	return merr.WrapErrParameterInvalidMsg("%s already registered for %s", what, t)
}

// RegisterSave registers a free save function for T.
func RegisterSave[T any](fn func(out *Output, v *T) error) error {
	t := reflect.TypeFor[T]()
	if fn == nil {
		return merr.WrapErrParameterInvalidMsg("nil save function for %s", t)
	}
	return defaultRegistry.registerFree(t, func(f *memberFuncs) error {
		if f.save != nil {
			return errAlreadyRegistered(t, "save function")
		}
		f.save = func(v reflect.Value, o *Output) error {
			return fn(o, v.Addr().Interface().(*T))
		}
		return nil
	})
}

// RegisterLoad registers a free load function for T.
func RegisterLoad[T any](fn func(in *Input, v *T) error) error {
	t := reflect.TypeFor[T]()
	if fn == nil {
		return merr.WrapErrParameterInvalidMsg("nil load function for %s", t)
	}
	return defaultRegistry.registerFree(t, func(f *memberFuncs) error {
		if f.load != nil {
			return errAlreadyRegistered(t, "load function")
		}
		f.load = func(v reflect.Value, in *Input) error {
			return fn(in, v.Addr().Interface().(*T))
		}
		return nil
	})
}

// RegisterSerialize registers a free direction agnostic function for T.
func RegisterSerialize[T any](fn func(ar Archive, v *T) error) error {
	t := reflect.TypeFor[T]()
	if fn == nil {
		return merr.WrapErrParameterInvalidMsg("nil serialize function for %s", t)
	}
	return defaultRegistry.registerFree(t, func(f *memberFuncs) error {
		if f.serialize != nil {
			return errAlreadyRegistered(t, "serialize function")
		}
		f.serialize = func(v reflect.Value, ar Archive) error {
			return fn(ar, v.Addr().Interface().(*T))
		}
		return nil
	})
}

// RegisterMinimal registers free functions degrading T to the leaf S.
// Either function may be nil for types that only travel one way.
func RegisterMinimal[T any, S Primitive](save func(v *T) (S, error), load func(v *T, s S) error) error {
	t := reflect.TypeFor[T]()
	m, err := newMinimalFuncs(t, save, load)
	if err != nil {
		return err
	}
	return defaultRegistry.update(func() error {
		if _, ok := defaultRegistry.freeMinimal[t]; ok {
			return errAlreadyRegistered(t, "minimal functions")
		}
		defaultRegistry.freeMinimal[t] = m
		return nil
	})
}

// RegisterMinimalFunc registers one function that converts T to and from
// the leaf S depending on the direction.
func RegisterMinimalFunc[T any, S Primitive](fn func(d Direction, v *T, s *S) error) error {
	t := reflect.TypeFor[T]()
	if fn == nil {
		return merr.WrapErrParameterInvalidMsg("nil minimal function for %s", t)
	}
	st := reflect.TypeFor[S]()
	kind, _ := leafKind(st)
	m := &minimalFunc{
		surrogate: st,
		kind:      kind,
		fn: func(d Direction, v, s reflect.Value) error {
			return fn(d, v.Addr().Interface().(*T), s.Addr().Interface().(*S))
		},
	}
	return defaultRegistry.update(func() error {
		if _, ok := defaultRegistry.freeMinimalFn[t]; ok {
			return errAlreadyRegistered(t, "minimal function")
		}
		defaultRegistry.freeMinimalFn[t] = m
		return nil
	})
}

func newMinimalFuncs[T any, S Primitive](t reflect.Type, save func(v *T) (S, error), load func(v *T, s S) error) (*minimalFuncs, error) {
	if save == nil && load == nil {
		return nil, merr.WrapErrParameterInvalidMsg("no minimal functions for %s", t)
	}
	st := reflect.TypeFor[S]()
	kind, _ := leafKind(st)
	m := &minimalFuncs{surrogate: st, kind: kind}
	if save != nil {
		m.save = func(v reflect.Value) (reflect.Value, error) {
			s, err := save(v.Addr().Interface().(*T))
			return reflect.ValueOf(&s).Elem(), err
		}
	}
	if load != nil {
		m.load = func(v, s reflect.Value) error {
			return load(v.Addr().Interface().(*T), s.Interface().(S))
		}
	}
	return m, nil
}
