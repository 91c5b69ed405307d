package archive

// Encoder is implemented by format backends that write documents.
// An Encoder only sees balanced BeginGroup/EndGroup calls; nesting is
// checked by Output before it reaches the backend.
type Encoder interface {
	BeginGroup(name string, kind GroupKind) error
	EndGroup() error
	WriteValue(name string, v Scalar) error
	// WriteSize records a container size. Text formats ignore it.
	WriteSize(n uint64) error
	// Flush emits the finished document to the sink.
	Flush() error
}

// Decoder is implemented by format backends that read documents.
type Decoder interface {
	BeginGroup(name string, kind GroupKind) error
	EndGroup() error
	// ReadValue returns a Scalar of the requested kind, or a format error.
	ReadValue(name string, kind Kind) (Scalar, error)
	// ReadSize returns a stored size, or the number of children of the
	// current group for formats that do not store sizes.
	ReadSize() (uint64, error)
}

// Archive is the direction agnostic view handed to combined strategies.
// Both *Output and *Input implement it.
type Archive interface {
	Direction() Direction
	// Process saves or loads items depending on Direction.
	Process(items ...any) error
	// Group runs fn inside an object group named name.
	Group(name string, fn func() error) error
	BeginGroup(name string, kind GroupKind) (Group, error)
	EndGroup(g Group) error
}

// Group is the handle of an open nested scope. Handles must be closed in
// reverse opening order.
type Group struct {
	id   uint64
	kind GroupKind
}

func (g Group) Kind() GroupKind {
	return g.kind
}

// Saver is the member split strategy for the saving direction.
type Saver interface {
	Save(out *Output) error
}

// Loader is the member split strategy for the loading direction.
type Loader interface {
	Load(in *Input) error
}

// Serializer is the member combined strategy.
type Serializer interface {
	Serialize(ar Archive) error
}

var (
	_ Archive = (*Output)(nil)
	_ Archive = (*Input)(nil)
)
