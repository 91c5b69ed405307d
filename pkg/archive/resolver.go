package archive

import (
	"reflect"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/archive-go/pkg/log"
	"github.com/lk2023060901/archive-go/pkg/metrics"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

var (
	errorType      = reflect.TypeFor[error]()
	directionType  = reflect.TypeFor[Direction]()
	saverType      = reflect.TypeFor[Saver]()
	loaderType     = reflect.TypeFor[Loader]()
	serializerType = reflect.TypeFor[Serializer]()
)

// Resolve reports the strategy used for t in direction d, compiling and
// caching the plan on first use.
func Resolve(t reflect.Type, d Direction) (Strategy, error) {
	if t == nil {
		return StrategyNone, merr.WrapErrParameterInvalidMsg("nil type")
	}
	p, err := defaultRegistry.plan(t, d)
	if err != nil {
		return StrategyNone, err
	}
	return p.strategy, nil
}

// Check resolves T up front for the given directions, both by default.
// Calling it from an init function or a test surfaces conflicts before
// the first document is written.
func Check[T any](dirs ...Direction) error {
	if len(dirs) == 0 {
		dirs = []Direction{Saving, Loading}
	}
	t := reflect.TypeFor[T]()
	for _, d := range dirs {
		if _, err := Resolve(t, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *registry) plan(t reflect.Type, d Direction) (*plan, error) {
	key := planKey{typ: t, dir: d}
	r.mu.RLock()
	p, ok := r.plans[key]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[key]; ok {
		return p, nil
	}
	c := &compiler{r: r, building: make(map[planKey]*plan)}
	p, err := c.compile(t, d)
	if err != nil {
		log.Debug("archive strategy resolution failed",
			log.FieldType(t.String()), log.FieldDirection(d.String()), zap.Error(err))
		return nil, err
	}
	for k, bp := range c.building {
		r.plans[k] = bp
	}
	return p, nil
}

// compiler builds the plans of a type and of every type it contains.
// Plans under construction are shared through building, which lets
// recursive container types refer to themselves.
type compiler struct {
	r        *registry
	building map[planKey]*plan
}

type candidate struct {
	strategy Strategy
	origin   string
	save     saveFunc
	load     loadFunc
}

func (c candidate) String() string {
	return c.origin + " " + c.strategy.String()
}

func (c *compiler) compile(t reflect.Type, d Direction) (*plan, error) {
	key := planKey{typ: t, dir: d}
	if p, ok := c.r.plans[key]; ok {
		return p, nil
	}
	if p, ok := c.building[key]; ok {
		return p, nil
	}
	p := &plan{typ: t, dir: d}
	c.building[key] = p

	cands, err := c.candidates(t, d)
	if err != nil {
		return nil, err
	}
	chosen, err := choose(t, d, cands)
	if err != nil {
		return nil, err
	}
	if err := c.checkSymmetry(t, d, chosen); err != nil {
		return nil, err
	}
	if chosen == nil {
		chosen, err = c.builtin(t, d)
		if err != nil {
			return nil, err
		}
	}
	p.strategy, p.save, p.load = chosen.strategy, chosen.save, chosen.load

	metrics.ArchiveStrategyResolutions.WithLabelValues(p.strategy.String(), d.String()).Inc()
	log.Debug("archive strategy resolved",
		log.FieldType(t.String()),
		log.FieldDirection(d.String()),
		zap.Stringer("strategy", p.strategy),
		zap.String("origin", chosen.origin))
	return p, nil
}

// choose applies the precedence rule: minimal candidates shadow the others,
// and more than one candidate in the winning tier is a conflict.
func choose(t reflect.Type, d Direction, cands []candidate) (*candidate, error) {
	minimal, regular := lo.FilterReject(cands, func(c candidate, _ int) bool {
		return c.strategy.IsMinimal()
	})
	tier := regular
	if len(minimal) > 0 {
		tier = minimal
	}
	switch len(tier) {
	case 0:
		return nil, nil
	case 1:
		return &tier[0], nil
	default:
		names := lo.Map(tier, func(c candidate, _ int) string { return c.String() })
		return nil, merr.WrapErrResolutionConflict(t, d.String(), "ambiguous strategies: "+strings.Join(names, ", "))
	}
}

// checkSymmetry requires both directions to agree on whether t is a leaf:
// a minimal strategy in one direction and a group in the other cannot read
// back what was written. A direction without any strategy is not checked.
func (c *compiler) checkSymmetry(t reflect.Type, d Direction, chosen *candidate) error {
	if chosen == nil && !hasBuiltin(t) {
		return nil
	}
	other := Saving
	if d == Saving {
		other = Loading
	}
	// errors of the other direction surface when it is resolved
	cands, err := c.candidates(t, other)
	if err != nil {
		return nil
	}
	theirs, err := choose(t, other, cands)
	if err != nil || (theirs == nil && !hasBuiltin(t)) {
		return nil
	}
	mine := chosen != nil && chosen.strategy.IsMinimal()
	if mine == (theirs != nil && theirs.strategy.IsMinimal()) {
		return nil
	}
	minimal, regular := d, other
	if !mine {
		minimal, regular = other, d
	}
	return merr.WrapErrResolutionConflict(t, d.String(),
		"minimal strategy when "+minimal.String()+" but not when "+regular.String())
}

// hasBuiltin reports whether the engine ships a strategy for the shape of
// t. Element types are not inspected.
func hasBuiltin(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		pt.Implements(textMarshalerType) && pt.Implements(textUnmarshalerType) {
		return true
	}
	if _, ok := leafKind(t); ok {
		return true
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Pointer:
		return true
	}
	return false
}

func (c *compiler) candidates(t reflect.Type, d Direction) ([]candidate, error) {
	var cands []candidate
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		member, err := memberCandidates(t, d)
		if err != nil {
			return nil, err
		}
		cands = append(cands, member...)
	}

	if m, ok := c.r.grantedMinimal[t]; ok {
		if cand, ok := minimalSplitCandidate(m, d, "granted"); ok {
			cands = append(cands, cand)
		}
	}
	if m, ok := c.r.freeMinimal[t]; ok {
		if cand, ok := minimalSplitCandidate(m, d, "free"); ok {
			cands = append(cands, cand)
		}
	}
	if m, ok := c.r.freeMinimalFn[t]; ok {
		cands = append(cands, minimalCombinedCandidate(m.surrogate, m.kind, m.fn, "free"))
	}
	if f, ok := c.r.granted[t]; ok {
		cands = append(cands, funcCandidates(f, d, "granted", StrategyMemberSplit, StrategyMemberCombined)...)
	}
	if f, ok := c.r.free[t]; ok {
		cands = append(cands, funcCandidates(f, d, "free", StrategyFreeSplit, StrategyFreeCombined)...)
	}
	return cands, nil
}

// memberCandidates probes the exported method set of *t.
func memberCandidates(t reflect.Type, d Direction) ([]candidate, error) {
	var cands []candidate
	pt := reflect.PointerTo(t)

	saveM, hasSave := pt.MethodByName("SaveMinimal")
	loadM, hasLoad := pt.MethodByName("LoadMinimal")
	var saveS, loadS reflect.Type
	if hasSave {
		mt := saveM.Type
		if mt.NumIn() != 1 || mt.NumOut() != 2 || mt.Out(1) != errorType {
			return nil, malformed(t, d, "SaveMinimal must be func() (S, error)")
		}
		saveS = mt.Out(0)
	}
	if hasLoad {
		mt := loadM.Type
		if mt.NumIn() != 2 || mt.NumOut() != 1 || mt.Out(0) != errorType {
			return nil, malformed(t, d, "LoadMinimal must be func(S) error")
		}
		loadS = mt.In(1)
	}
	if hasSave && hasLoad && saveS != loadS {
		return nil, malformed(t, d, "SaveMinimal returns "+saveS.String()+" but LoadMinimal takes "+loadS.String())
	}
	if d == Saving && hasSave {
		kind, ok := leafKind(saveS)
		if !ok {
			return nil, malformed(t, d, "minimal surrogate "+saveS.String()+" is not a leaf kind")
		}
		fn := saveM.Func
		cands = append(cands, candidate{
			strategy: StrategyMinimalSplit,
			origin:   "member",
			save: minimalSave(kind, func(v reflect.Value) (reflect.Value, error) {
				out := fn.Call([]reflect.Value{v.Addr()})
				return out[0], asError(out[1])
			}),
		})
	}
	if d == Loading && hasLoad {
		kind, ok := leafKind(loadS)
		if !ok {
			return nil, malformed(t, d, "minimal surrogate "+loadS.String()+" is not a leaf kind")
		}
		fn := loadM.Func
		cands = append(cands, candidate{
			strategy: StrategyMinimalSplit,
			origin:   "member",
			load: minimalLoad(loadS, kind, func(v, s reflect.Value) error {
				return asError(fn.Call([]reflect.Value{v.Addr(), s})[0])
			}),
		})
	}

	if m, ok := pt.MethodByName("SerializeMinimal"); ok {
		mt := m.Type
		if mt.NumIn() != 3 || mt.In(1) != directionType || mt.In(2).Kind() != reflect.Pointer ||
			mt.NumOut() != 1 || mt.Out(0) != errorType {
			return nil, malformed(t, d, "SerializeMinimal must be func(archive.Direction, *S) error")
		}
		st := mt.In(2).Elem()
		kind, ok := leafKind(st)
		if !ok {
			return nil, malformed(t, d, "minimal surrogate "+st.String()+" is not a leaf kind")
		}
		fn := m.Func
		cands = append(cands, minimalCombinedCandidate(st, kind, func(d Direction, v, s reflect.Value) error {
			return asError(fn.Call([]reflect.Value{v.Addr(), reflect.ValueOf(d), s.Addr()})[0])
		}, "member"))
	}

	switch {
	case d == Saving && pt.Implements(saverType):
		cands = append(cands, candidate{
			strategy: StrategyMemberSplit,
			origin:   "member",
			save: objectSave(func(o *Output, v reflect.Value) error {
				return v.Addr().Interface().(Saver).Save(o)
			}),
		})
	case d == Loading && pt.Implements(loaderType):
		cands = append(cands, candidate{
			strategy: StrategyMemberSplit,
			origin:   "member",
			load: objectLoad(func(in *Input, v reflect.Value) error {
				return v.Addr().Interface().(Loader).Load(in)
			}),
		})
	}
	if pt.Implements(serializerType) {
		fn := func(ar Archive, v reflect.Value) error {
			return v.Addr().Interface().(Serializer).Serialize(ar)
		}
		cands = append(cands, combinedCandidate(fn, d, "member", StrategyMemberCombined))
	}
	return cands, nil
}

func funcCandidates(f *memberFuncs, d Direction, origin string, split, combined Strategy) []candidate {
	var cands []candidate
	if d == Saving && f.save != nil {
		save := f.save
		cands = append(cands, candidate{
			strategy: split,
			origin:   origin,
			save: objectSave(func(o *Output, v reflect.Value) error {
				return save(v, o)
			}),
		})
	}
	if d == Loading && f.load != nil {
		load := f.load
		cands = append(cands, candidate{
			strategy: split,
			origin:   origin,
			load: objectLoad(func(in *Input, v reflect.Value) error {
				return load(v, in)
			}),
		})
	}
	if f.serialize != nil {
		serialize := f.serialize
		cands = append(cands, combinedCandidate(func(ar Archive, v reflect.Value) error {
			return serialize(v, ar)
		}, d, origin, combined))
	}
	return cands
}

func combinedCandidate(fn func(ar Archive, v reflect.Value) error, d Direction, origin string, strategy Strategy) candidate {
	cand := candidate{strategy: strategy, origin: origin}
	if d == Saving {
		cand.save = objectSave(func(o *Output, v reflect.Value) error { return fn(o, v) })
	} else {
		cand.load = objectLoad(func(in *Input, v reflect.Value) error { return fn(in, v) })
	}
	return cand
}

func minimalSplitCandidate(m *minimalFuncs, d Direction, origin string) (candidate, bool) {
	cand := candidate{strategy: StrategyMinimalSplit, origin: origin}
	switch {
	case d == Saving && m.save != nil:
		cand.save = minimalSave(m.kind, m.save)
	case d == Loading && m.load != nil:
		cand.load = minimalLoad(m.surrogate, m.kind, m.load)
	default:
		return candidate{}, false
	}
	return cand, true
}

func minimalCombinedCandidate(st reflect.Type, kind Kind, fn func(d Direction, v, s reflect.Value) error, origin string) candidate {
	return candidate{
		strategy: StrategyMinimalCombined,
		origin:   origin,
		save: minimalSave(kind, func(v reflect.Value) (reflect.Value, error) {
			s := reflect.New(st).Elem()
			return s, fn(Saving, v, s)
		}),
		load: minimalLoad(st, kind, func(v, s reflect.Value) error {
			return fn(Loading, v, s)
		}),
	}
}

func minimalSave(kind Kind, produce func(v reflect.Value) (reflect.Value, error)) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		s, err := produce(v)
		if err != nil {
			return err
		}
		return o.writeValue(name, scalarOf(s, kind))
	}
}

func minimalLoad(st reflect.Type, kind Kind, consume func(v, s reflect.Value) error) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		sc, err := in.readValue(name, kind)
		if err != nil {
			return err
		}
		s := reflect.New(st).Elem()
		if err := sc.assign(s, kind); err != nil {
			return err
		}
		return consume(v, s)
	}
}

// objectSave wraps a non-minimal strategy in an object group named after
// the value.
func objectSave(fn func(o *Output, v reflect.Value) error) saveFunc {
	return func(o *Output, name string, v reflect.Value) error {
		g, err := o.BeginGroup(name, ObjectGroup)
		if err != nil {
			return err
		}
		if err := fn(o, v); err != nil {
			return err
		}
		return o.EndGroup(g)
	}
}

func objectLoad(fn func(in *Input, v reflect.Value) error) loadFunc {
	return func(in *Input, name string, v reflect.Value) error {
		g, err := in.BeginGroup(name, ObjectGroup)
		if err != nil {
			return err
		}
		if err := fn(in, v); err != nil {
			return err
		}
		return in.EndGroup(g)
	}
}

func malformed(t reflect.Type, d Direction, reason string) error {
	return merr.WrapErrResolutionConflict(t, d.String(), reason)
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
