package archive

// Direction tells whether an archive writes or reads.
type Direction int

const (
	Saving Direction = iota
	Loading
)

func (d Direction) String() string {
	switch d {
	case Saving:
		return "saving"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// GroupKind selects how a backend renders a nested scope.
type GroupKind int

const (
	// ObjectGroup holds named members.
	ObjectGroup GroupKind = iota
	// SequenceGroup holds positional members, names are dropped.
	SequenceGroup
)

func (k GroupKind) String() string {
	if k == SequenceGroup {
		return "sequence"
	}
	return "object"
}

// NamedValue pairs a key with a reference to a value.
// Text formats use the key, binary formats rely on emission order.
type NamedValue struct {
	Name  string
	Value any
}

// NVP builds a NamedValue. value should be a pointer; a plain value is
// accepted when saving.
func NVP(name string, value any) NamedValue {
	return NamedValue{Name: name, Value: value}
}

type sizeTag struct {
	ref any
}

// SizeTag writes *ref as a container size when saving and stores the
// container size into *ref when loading. ref must point to an integer.
// Text formats do not persist sizes; they report the number of children of
// the current group instead.
func SizeTag(ref any) any {
	return sizeTag{ref: ref}
}

// Strategy names the way a type is serialized.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyMinimalSplit
	StrategyMinimalCombined
	StrategyMemberSplit
	StrategyMemberCombined
	StrategyFreeSplit
	StrategyFreeCombined
	StrategyBuiltin
)

var strategyNames = map[Strategy]string{
	StrategyNone:            "none",
	StrategyMinimalSplit:    "minimal_split",
	StrategyMinimalCombined: "minimal_combined",
	StrategyMemberSplit:     "member_split",
	StrategyMemberCombined:  "member_combined",
	StrategyFreeSplit:       "free_split",
	StrategyFreeCombined:    "free_combined",
	StrategyBuiltin:         "builtin",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsMinimal reports whether the strategy writes a single leaf value.
func (s Strategy) IsMinimal() bool {
	return s == StrategyMinimalSplit || s == StrategyMinimalCombined
}
