// Package texttree holds the pieces shared by the text backends: an ordered
// node tree built by the readers, a cursor that walks it the way the engine
// asks for values, and the leaf text rules both formats agree on.
package texttree

import (
	"strconv"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

type NodeKind int

const (
	Leaf NodeKind = iota
	Object
	Array
)

func (k NodeKind) String() string {
	switch k {
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "leaf"
	}
}

// Token records how a leaf was spelled in the source document. XML leaves
// are always TokenText.
type Token int

const (
	TokenText Token = iota
	TokenString
	TokenNumber
	TokenBool
	TokenNull
)

// Node is one element of a parsed document. Children keep document order.
type Node struct {
	Name     string
	Kind     NodeKind
	Text     string
	Token    Token
	Children []*Node
}

// UnnamedName is the key given to the n-th unnamed value of a group.
func UnnamedName(n int) string {
	return "value" + strconv.Itoa(n)
}

// Namer hands out keys for the values of one open group.
type Namer struct {
	unnamed int
}

func (n *Namer) Next(name string) string {
	if name != "" {
		return name
	}
	name = UnnamedName(n.unnamed)
	n.unnamed++
	return name
}

type frame struct {
	node *Node
	kind archive.GroupKind
	next int
}

// Cursor walks a Node tree. Named reads inside object groups take the next
// child when its name matches and fall back to a search by name, so members
// may appear in any order. Sequence groups and unnamed reads are positional.
type Cursor struct {
	// Strict requires the node kind to match the requested group kind.
	// XML cannot tell objects and arrays apart and leaves it off.
	Strict bool

	stack []*frame
}

func NewCursor(root *Node) *Cursor {
	return &Cursor{stack: []*frame{{node: root, kind: archive.ObjectGroup}}}
}

func (c *Cursor) top() *frame {
	return c.stack[len(c.stack)-1]
}

// Depth is the number of groups entered below the root.
func (c *Cursor) Depth() int {
	return len(c.stack) - 1
}

func (c *Cursor) child(name string) (*Node, error) {
	f := c.top()
	children := f.node.Children
	if name == "" || f.kind == archive.SequenceGroup {
		if f.next >= len(children) {
			return nil, merr.WrapErrFormat("value", "end of group", "no more values in "+describe(f.node))
		}
		n := children[f.next]
		f.next++
		return n, nil
	}
	if f.next < len(children) && children[f.next].Name == name {
		n := children[f.next]
		f.next++
		return n, nil
	}
	for i, n := range children {
		if n.Name == name {
			f.next = i + 1
			return n, nil
		}
	}
	return nil, merr.WrapErrFormat(strconv.Quote(name), "nothing", "missing key in "+describe(f.node))
}

// Enter moves into the child group name.
func (c *Cursor) Enter(name string, kind archive.GroupKind) error {
	n, err := c.child(name)
	if err != nil {
		return err
	}
	switch {
	case n.Kind == Leaf && n.Token == TokenText && n.Text == "" && !c.Strict:
		// empty element, read back as an empty group
	case n.Kind == Leaf:
		return merr.WrapErrFormat(kind.String(), "value", "entering "+describe(n))
	case c.Strict && kind == archive.ObjectGroup && n.Kind != Object:
		return merr.WrapErrFormat("object", n.Kind.String(), "entering "+describe(n))
	case c.Strict && kind == archive.SequenceGroup && n.Kind != Array:
		return merr.WrapErrFormat("array", n.Kind.String(), "entering "+describe(n))
	}
	c.stack = append(c.stack, &frame{node: n, kind: kind})
	return nil
}

// Leave returns to the parent group.
func (c *Cursor) Leave() error {
	if len(c.stack) == 1 {
		return merr.WrapErrStructure("leaving the root group")
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

// Size is the number of children of the current group.
func (c *Cursor) Size() uint64 {
	return uint64(len(c.top().node.Children))
}

// Value reads the leaf name as kind k.
func (c *Cursor) Value(name string, k archive.Kind) (archive.Scalar, error) {
	n, err := c.child(name)
	if err != nil {
		return archive.Scalar{}, err
	}
	return ParseScalar(n, k)
}

func describe(n *Node) string {
	if n.Name == "" {
		return n.Kind.String()
	}
	return strconv.Quote(n.Name)
}
