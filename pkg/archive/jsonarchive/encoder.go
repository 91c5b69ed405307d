// Package jsonarchive stores archives as indented JSON documents.
//
// The root is an object. Object groups become JSON objects and sequence
// groups become arrays, dropping member names. Unnamed members of objects
// get the keys value0, value1 and so on.
package jsonarchive

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/internal/texttree"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

var api = jsoniter.Config{
	IndentionStep: 4,
	EscapeHTML:    false,
}.Froze()

type frame struct {
	kind   archive.GroupKind
	key    string
	opened bool
	count  int
	namer  texttree.Namer
}

// Encoder writes the document into a jsoniter stream. Groups are opened on
// their first member so that empty groups render as {} and [].
type Encoder struct {
	stream *jsoniter.Stream
	stack  []*frame
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		stream: jsoniter.NewStream(api, w, 4096),
		stack:  []*frame{{kind: archive.ObjectGroup}},
	}
}

// NewOutput returns an archive writing JSON to w.
func NewOutput(w io.Writer) *archive.Output {
	return archive.NewOutput(NewEncoder(w))
}

func (e *Encoder) top() *frame {
	return e.stack[len(e.stack)-1]
}

func (e *Encoder) key(f *frame, name string) string {
	if f.kind == archive.SequenceGroup {
		return ""
	}
	return f.namer.Next(name)
}

func (e *Encoder) member(parent *frame, key string) {
	if parent.count > 0 {
		e.stream.WriteMore()
	}
	parent.count++
	if parent.kind == archive.ObjectGroup {
		e.stream.WriteObjectField(key)
	}
}

func (e *Encoder) start(kind archive.GroupKind) {
	if kind == archive.SequenceGroup {
		e.stream.WriteArrayStart()
	} else {
		e.stream.WriteObjectStart()
	}
}

// materialize opens every pending group on the stack.
func (e *Encoder) materialize() {
	for i, f := range e.stack {
		if f.opened {
			continue
		}
		if i > 0 {
			e.member(e.stack[i-1], f.key)
		}
		e.start(f.kind)
		f.opened = true
	}
}

func (e *Encoder) BeginGroup(name string, kind archive.GroupKind) error {
	key := e.key(e.top(), name)
	e.stack = append(e.stack, &frame{kind: kind, key: key})
	return nil
}

func (e *Encoder) EndGroup() error {
	if len(e.stack) == 1 {
		return merr.WrapErrStructure("closing the root object")
	}
	f := e.top()
	e.stack = e.stack[:len(e.stack)-1]
	if f.opened {
		e.end(f.kind)
		return nil
	}
	e.materialize()
	e.member(e.top(), f.key)
	if f.kind == archive.SequenceGroup {
		e.stream.WriteEmptyArray()
	} else {
		e.stream.WriteEmptyObject()
	}
	return nil
}

func (e *Encoder) end(kind archive.GroupKind) {
	if kind == archive.SequenceGroup {
		e.stream.WriteArrayEnd()
	} else {
		e.stream.WriteObjectEnd()
	}
}

func (e *Encoder) WriteValue(name string, s archive.Scalar) error {
	e.materialize()
	f := e.top()
	e.member(f, e.key(f, name))
	text, tok := texttree.FormatScalar(s)
	if tok == texttree.TokenString {
		e.stream.WriteString(text)
	} else {
		e.stream.WriteRaw(text)
	}
	return nil
}

// WriteSize is a no-op, readers count the members of a group instead.
func (e *Encoder) WriteSize(uint64) error {
	return nil
}

func (e *Encoder) Flush() error {
	if len(e.stack) != 1 {
		return merr.WrapErrStructure("incomplete document")
	}
	root := e.top()
	if root.opened {
		e.end(root.kind)
	} else {
		e.stream.WriteEmptyObject()
	}
	if err := e.stream.Flush(); err != nil {
		return merr.WrapErrIoFailed("write", err)
	}
	if e.stream.Error != nil {
		return merr.WrapErrIoFailed("write", e.stream.Error)
	}
	return nil
}

var _ archive.Encoder = (*Encoder)(nil)
