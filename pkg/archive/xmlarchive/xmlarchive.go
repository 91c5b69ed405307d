// Package xmlarchive stores archives as indented XML documents under an
// <archive> root. Every value and group is an element named after its key;
// unnamed values use value0, value1 and so on.
//
// Keys must be XML names and leaf text XML characters. Writing anything
// else fails instead of producing a document that reads back differently.
package xmlarchive

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/archive/internal/texttree"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

const rootName = "archive"

type Encoder struct {
	w      io.Writer
	buf    bytes.Buffer
	enc    *xml.Encoder
	opened bool
	names  []xml.Name
	namers []*texttree.Namer
}

func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	e.buf.WriteString(xml.Header)
	e.enc = xml.NewEncoder(&e.buf)
	e.enc.Indent("", "    ")
	e.names = []xml.Name{{Local: rootName}}
	e.namers = []*texttree.Namer{{}}
	return e
}

// NewOutput returns an archive writing XML to w.
func NewOutput(w io.Writer) *archive.Output {
	return archive.NewOutput(NewEncoder(w))
}

func (e *Encoder) encode(tokens ...xml.Token) error {
	if !e.opened {
		e.opened = true
		tokens = append([]xml.Token{xml.StartElement{Name: e.names[0]}}, tokens...)
	}
	for _, tok := range tokens {
		if err := e.enc.EncodeToken(tok); err != nil {
			return merr.WrapErrParameterInvalidMsg("xml: %s", err.Error())
		}
	}
	return nil
}

func (e *Encoder) next(name string) (xml.Name, error) {
	if name != "" && !isName(name) {
		return xml.Name{}, merr.WrapErrParameterInvalid("xml name", strconv.Quote(name), "element name")
	}
	return xml.Name{Local: e.namers[len(e.namers)-1].Next(name)}, nil
}

func (e *Encoder) BeginGroup(name string, _ archive.GroupKind) error {
	n, err := e.next(name)
	if err != nil {
		return err
	}
	if err := e.encode(xml.StartElement{Name: n}); err != nil {
		return err
	}
	e.names = append(e.names, n)
	e.namers = append(e.namers, &texttree.Namer{})
	return nil
}

func (e *Encoder) EndGroup() error {
	if len(e.names) == 1 {
		return merr.WrapErrStructure("closing the root element")
	}
	n := e.names[len(e.names)-1]
	e.names = e.names[:len(e.names)-1]
	e.namers = e.namers[:len(e.namers)-1]
	return e.encode(xml.EndElement{Name: n})
}

func (e *Encoder) WriteValue(name string, s archive.Scalar) error {
	n, err := e.next(name)
	if err != nil {
		return err
	}
	text, _ := texttree.FormatScalar(s)
	if i := invalidChar(text); i >= 0 {
		return merr.WrapErrFormat("xml character data", strconv.Quote(text), "invalid character at byte "+strconv.Itoa(i)+" of "+strconv.Quote(n.Local))
	}
	return e.encode(xml.StartElement{Name: n}, xml.CharData(text), xml.EndElement{Name: n})
}

// WriteSize is a no-op, readers count child elements instead.
func (e *Encoder) WriteSize(uint64) error {
	return nil
}

func (e *Encoder) Flush() error {
	if len(e.names) != 1 {
		return merr.WrapErrStructure("incomplete document")
	}
	if err := e.encode(xml.EndElement{Name: e.names[0]}); err != nil {
		return err
	}
	if err := e.enc.Flush(); err != nil {
		return merr.WrapErrIoFailed("encode", err)
	}
	e.buf.WriteByte('\n')
	if _, err := e.w.Write(e.buf.Bytes()); err != nil {
		return merr.WrapErrIoFailed("write", err)
	}
	return nil
}

// Decoder reads a whole XML document up front. The root element may have
// any name.
type Decoder struct {
	cursor *texttree.Cursor
}

func NewDecoder(r io.Reader) (*Decoder, error) {
	root, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return &Decoder{cursor: texttree.NewCursor(root)}, nil
}

// NewInput returns an archive reading the XML document in r.
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

// isName reports whether s is an XML name without a namespace prefix.
func isName(s string) bool {
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if !isNameStart(r) && (i == 0 || !isNameChar(r)) {
			return false
		}
	}
	return s != ""
}

func isNameStart(r rune) bool {
	switch {
	case r == '_',
		'A' <= r && r <= 'Z', 'a' <= r && r <= 'z',
		0xC0 <= r && r <= 0xD6, 0xD8 <= r && r <= 0xF6, 0xF8 <= r && r <= 0x2FF,
		0x370 <= r && r <= 0x37D, 0x37F <= r && r <= 0x1FFF,
		0x200C <= r && r <= 0x200D, 0x2070 <= r && r <= 0x218F,
		0x2C00 <= r && r <= 0x2FEF, 0x3001 <= r && r <= 0xD7FF,
		0xF900 <= r && r <= 0xFDCF, 0xFDF0 <= r && r <= 0xFFFD,
		0x10000 <= r && r <= 0xEFFFF:
		return true
	}
	return false
}

func isNameChar(r rune) bool {
	switch {
	case r == '-' || r == '.' || r == 0xB7,
		'0' <= r && r <= '9',
		0x300 <= r && r <= 0x36F, 0x203F <= r && r <= 0x2040:
		return true
	}
	return isNameStart(r)
}

// invalidChar returns the byte offset of the first rune of s that is not an
// XML character, or -1.
func invalidChar(s string) int {
	for i, r := range s {
		switch {
		case r == utf8.RuneError:
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return i
			}
		case r == '\t' || r == '\n' || r == '\r',
			0x20 <= r && r <= 0xD7FF,
			0xE000 <= r && r <= 0xFFFD,
			0x10000 <= r && r <= 0x10FFFF:
		default:
			return i
		}
	}
	return -1
}

type building struct {
	node *texttree.Node
	text strings.Builder
}

// Parse builds the node tree of an XML document. Elements with child
// elements become objects, the others leaves holding their character data.
func Parse(r io.Reader) (*texttree.Node, error) {
	dec := xml.NewDecoder(r)
	var (
		stack []*building
		root  *texttree.Node
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if root == nil || len(stack) > 0 {
					return nil, merr.WrapErrTruncated("xml document")
				}
				return root, nil
			}
			var syntax *xml.SyntaxError
			if errors.As(err, &syntax) && strings.Contains(syntax.Msg, "unexpected EOF") {
				return nil, merr.WrapErrTruncated("xml document", syntax.Msg)
			}
			return nil, merr.WrapErrFormat("xml", "malformed document", err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, merr.WrapErrFormat("end of document", t.Name.Local, "second root element")
			}
			n := &texttree.Node{Name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1].node
				parent.Kind = texttree.Object
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, &building{node: n})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if b.node.Kind == texttree.Leaf {
				b.node.Text = b.text.String()
			}
			if len(stack) == 0 {
				b.node.Kind = texttree.Object
				root = b.node
			}
		}
	}
}

var (
	_ archive.Encoder = (*Encoder)(nil)
	_ archive.Decoder = (*Decoder)(nil)
)
