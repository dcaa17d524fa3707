// Package richtext implements the chat composer's formatting engine.
//
// A message is authored as an immutable Document tree built from a closed set
// of inline wrappers (bold, italic, underline, strikethrough, colour, spoiler)
// and is transmitted as a FormattedMessageText string. Encode and Decode move
// between the two and never fail.
package richtext

import "strings"

// Kind identifies a document node type
type Kind int

const (
	Root Kind = iota
	Text
	Bold
	Italic
	Underline
	Strike
	Color
	Spoiler
)

var kindNames = map[Kind]string{
	Root:      "root",
	Text:      "text",
	Bold:      "bold",
	Italic:    "italic",
	Underline: "underline",
	Strike:    "strike",
	Color:     "color",
	Spoiler:   "spoiler",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is one element of a document tree. Trees are treated as immutable:
// every editing function returns a new tree and leaves its input alone.
type Node struct {
	Kind     Kind
	Text     string  // Text nodes only
	Color    string  // Color nodes only
	Children []*Node // Wrapper and root nodes only
}

// FormattedMessageText is the wire form of a message body. Spoilers are
// encoded as <spoiler>...</spoiler>.
type FormattedMessageText string

// NewDocument returns a root holding the given children
func NewDocument(children ...*Node) *Node {
	return &Node{Kind: Root, Children: children}
}

// T returns a text node
func T(text string) *Node {
	return &Node{Kind: Text, Text: text}
}

// Wrap returns a wrapper node of the given kind
func Wrap(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// Colored returns a colour span
func Colored(color string, children ...*Node) *Node {
	return &Node{Kind: Color, Color: color, Children: children}
}

// PlainText returns the document's text content with formatting removed.
func PlainText(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == Text {
			b.WriteString(n.Text)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Len returns the number of runes of text in the document
func Len(n *Node) int {
	return len([]rune(PlainText(n)))
}

// Equal reports whether two trees have the same structure and content.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Text != b.Text || a.Color != b.Color || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// clone deep-copies a tree
func clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Text: n.Text, Color: n.Color}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = clone(c)
		}
	}
	return out
}
