package jsonarchive

import (
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/internal/texttree"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// Decoder reads a whole JSON document up front and serves values from the
// parsed tree.
type Decoder struct {
	cursor *texttree.Cursor
}

func NewDecoder(r io.Reader) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, merr.WrapErrIoFailed("read", err)
	}
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c := texttree.NewCursor(root)
	c.Strict = true
	return &Decoder{cursor: c}, nil
}

// NewInput returns an archive reading the JSON document in r.
func NewInput(r io.Reader) (*archive.Input, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return archive.NewInput(dec), nil
}

func (d *Decoder) BeginGroup(name string, kind archive.GroupKind) error {
	return d.cursor.Enter(name, kind)
}

func (d *Decoder) EndGroup() error {
	return d.cursor.Leave()
}

func (d *Decoder) ReadValue(name string, k archive.Kind) (archive.Scalar, error) {
	return d.cursor.Value(name, k)
}

func (d *Decoder) ReadSize() (uint64, error) {
	return d.cursor.Size(), nil
}

// Parse builds the node tree of a JSON document whose root is an object.
func Parse(data []byte) (*texttree.Node, error) {
	if err := checkComplete(data); err != nil {
		return nil, err
	}
	iter := jsoniter.ParseBytes(api, data)
	if next := iter.WhatIsNext(); next != jsoniter.ObjectValue {
		return nil, merr.WrapErrFormat("object", valueTypeName(next), "reading document root")
	}
	root := parseValue(iter, "")
	if err := iterError(iter); err != nil {
		return nil, err
	}
	// only the end of the input leaves io.EOF behind
	if next := iter.WhatIsNext(); next != jsoniter.InvalidValue || iter.Error == nil {
		return nil, merr.WrapErrFormat("end of document", valueTypeName(next), "trailing data")
	}
	return root, nil
}

func parseValue(iter *jsoniter.Iterator, name string) *texttree.Node {
	n := &texttree.Node{Name: name}
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		n.Kind = texttree.Object
		iter.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
			n.Children = append(n.Children, parseValue(it, key))
			return it.Error == nil
		})
	case jsoniter.ArrayValue:
		n.Kind = texttree.Array
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			n.Children = append(n.Children, parseValue(it, ""))
			return it.Error == nil
		})
	case jsoniter.StringValue:
		n.Token = texttree.TokenString
		n.Text = iter.ReadString()
	case jsoniter.NumberValue:
		n.Token = texttree.TokenNumber
		n.Text = string(iter.ReadNumber())
	case jsoniter.BoolValue:
		n.Token = texttree.TokenBool
		n.Text = strconv.FormatBool(iter.ReadBool())
	case jsoniter.NilValue:
		n.Token = texttree.TokenNull
		iter.ReadNil()
	default:
		iter.ReportError("parse", "unexpected character")
	}
	return n
}

func iterError(iter *jsoniter.Iterator) error {
	if iter.Error == nil {
		return nil
	}
	if errors.Is(iter.Error, io.EOF) {
		return merr.WrapErrTruncated("json document")
	}
	return merr.WrapErrFormat("json", "malformed document", iter.Error.Error())
}

// checkComplete reports documents that stop inside a string or an open
// object or array. The iterator turns those into generic parse errors.
func checkComplete(data []byte) error {
	var (
		depth   int
		inStr   bool
		escaped bool
		seen    bool
	)
	for _, c := range data {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
		seen = true
	}
	if !seen {
		return merr.WrapErrTruncated("json document", "empty input")
	}
	if inStr || depth > 0 {
		return merr.WrapErrTruncated("json document", "input ends inside a value")
	}
	return nil
}

func valueTypeName(t jsoniter.ValueType) string {
	switch t {
	case jsoniter.StringValue:
		return "string"
	case jsoniter.NumberValue:
		return "number"
	case jsoniter.NilValue:
		return "null"
	case jsoniter.BoolValue:
		return "bool"
	case jsoniter.ArrayValue:
		return "array"
	case jsoniter.ObjectValue:
		return "object"
	default:
		return "nothing"
	}
}

var _ archive.Decoder = (*Decoder)(nil)
