package richtext

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Dialect selects how spoilers (and colours) are spelled in markup
type Dialect int

const (
	// DialectWire is the stored and transmitted form: <spoiler>...</spoiler>
	DialectWire Dialect = iota
	// DialectEditor is the live composer markup: a marker span
	DialectEditor
	// DialectMatrix is Matrix formatted_body HTML
	DialectMatrix
)

// droppedTags are removed together with everything inside them
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"noscript": true,
	"noembed":  true,
	"noframes": true,
	"template": true,
	"textarea": true,
	"title":    true,
	"xmp":      true,
	"svg":      true,
	"math":     true,
}

var inlineTags = map[string]Kind{
	"b":      Bold,
	"strong": Bold,
	"i":      Italic,
	"em":     Italic,
	"u":      Underline,
	"s":      Strike,
	"strike": Strike,
	"del":    Strike,
}

// Encode writes a document in wire form
func Encode(root *Node) FormattedMessageText {
	return FormattedMessageText(EncodeDialect(root, DialectWire))
}

// EncodeDialect writes a document as markup in the given dialect.
func EncodeDialect(root *Node, d Dialect) string {
	var b strings.Builder
	encodeNode(&b, root, d)
	return b.String()
}

func encodeNode(b *strings.Builder, n *Node, d Dialect) {
	if n == nil {
		return
	}

	var open, closing string
	switch n.Kind {
	case Text:
		writeText(b, n.Text)
		return
	case Bold:
		open, closing = "<b>", "</b>"
	case Italic:
		open, closing = "<i>", "</i>"
	case Underline:
		open, closing = "<u>", "</u>"
	case Strike:
		open, closing = "<strike>", "</strike>"
	case Color:
		c := html.EscapeString(n.Color)
		if d == DialectMatrix {
			open = `<font color="` + c + `" data-mx-color="` + c + `">`
		} else {
			open = `<font color="` + c + `">`
		}
		closing = "</font>"
	case Spoiler:
		switch d {
		case DialectEditor:
			open, closing = `<span data-spoiler="true" class="spoiler-marker">`, "</span>"
		case DialectMatrix:
			open, closing = "<span data-mx-spoiler>", "</span>"
		default:
			open, closing = "<spoiler>", "</spoiler>"
		}
	}

	b.WriteString(open)
	for _, c := range n.Children {
		encodeNode(b, c, d)
	}
	b.WriteString(closing)
}

func writeText(b *strings.Builder, text string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(html.EscapeString(line))
	}
}

// Serialize converts live composer markup into wire form.
func Serialize(editorMarkup string) FormattedMessageText {
	return Encode(Decode(editorMarkup))
}

// Decode parses markup in any dialect into a document. It never fails:
// unknown tags are kept as literal text, stray end tags are dropped, unclosed
// elements close at the end of input and executable content is discarded.
func Decode[S ~string](markup S) *Node {
	d := &decoder{root: NewDocument()}
	d.stack = []openElem{{tag: "", node: d.root}}

	z := html.NewTokenizer(strings.NewReader(string(markup)))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				d.text(string(z.Raw()))
			}
			break
		}

		switch tt {
		case html.TextToken:
			d.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			// TagName and TagAttr rewrite the token buffer, so copy Raw first
			raw := string(z.Raw())
			name, attrs := tagAttrs(z)
			if droppedTags[name] {
				if tt == html.StartTagToken {
					skipElement(z, name)
				}
				continue
			}
			d.start(name, attrs, tt == html.SelfClosingTagToken, raw)
		case html.EndTagToken:
			raw := string(z.Raw())
			name, _ := z.TagName()
			d.end(string(name), raw)
		}
	}
	return d.root
}

type openElem struct {
	tag  string
	node *Node // nil for transparent elements
}

type decoder struct {
	root    *Node
	stack   []openElem
	hasText bool // Any text emitted so far
}

func (d *decoder) parent() *Node {
	for i := len(d.stack) - 1; i >= 0; i-- {
		if d.stack[i].node != nil {
			return d.stack[i].node
		}
	}
	return d.root
}

// text appends to the current parent, merging with a preceding text node.
func (d *decoder) text(s string) {
	if s == "" {
		return
	}
	d.hasText = true
	p := d.parent()
	if k := len(p.Children); k > 0 && p.Children[k-1].Kind == Text {
		p.Children[k-1].Text += s
		return
	}
	p.Children = append(p.Children, T(s))
}

func (d *decoder) push(tag string, n *Node) {
	if n != nil {
		p := d.parent()
		p.Children = append(p.Children, n)
	}
	d.stack = append(d.stack, openElem{tag: tag, node: n})
}

func (d *decoder) start(name string, attrs map[string]string, selfClosing bool, raw string) {
	if name == "br" {
		d.text("\n")
		return
	}

	var n *Node
	known := true
	switch name {
	case "spoiler":
		n = Wrap(Spoiler)
	case "font":
		c := attrs["color"]
		if c == "" {
			c = attrs["data-mx-color"]
		}
		if ValidColor(c) {
			n = Colored(c)
		}
	case "span":
		if isSpoilerSpan(attrs) {
			n = Wrap(Spoiler)
		} else if c := styleColor(attrs["style"]); ValidColor(c) {
			n = Colored(c)
		}
	case "div", "p":
		if d.hasText {
			d.text("\n")
		}
	default:
		if kind, ok := inlineTags[name]; ok {
			n = Wrap(kind)
		} else {
			known = false
		}
	}

	if !known {
		d.text(raw)
		return
	}
	if selfClosing {
		if n != nil {
			p := d.parent()
			p.Children = append(p.Children, n)
		}
		return
	}
	d.push(name, n)
}

func (d *decoder) end(name string, raw string) {
	if name == "br" {
		d.text("\n")
		return
	}
	for i := len(d.stack) - 1; i > 0; i-- {
		if d.stack[i].tag == name {
			d.stack = d.stack[:i]
			return
		}
	}
	if !isKnownTag(name) {
		d.text(raw)
	}
}

func isKnownTag(name string) bool {
	if _, ok := inlineTags[name]; ok {
		return true
	}
	switch name {
	case "spoiler", "font", "span", "div", "p", "br":
		return true
	}
	return false
}

func isSpoilerSpan(attrs map[string]string) bool {
	if _, ok := attrs["data-mx-spoiler"]; ok {
		return true
	}
	v, ok := attrs["data-spoiler"]
	return ok && v != "false"
}

// styleColor extracts the color declaration from an inline style attribute.
func styleColor(style string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(k)) == "color" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func tagAttrs(z *html.Tokenizer) (string, map[string]string) {
	name, hasAttr := z.TagName()
	attrs := map[string]string{}
	for hasAttr {
		var k, v []byte
		k, v, hasAttr = z.TagAttr()
		attrs[string(k)] = string(v)
	}
	return string(name), attrs
}

// skipElement consumes tokens up to the matching end tag.
func skipElement(z *html.Tokenizer, name string) {
	depth := 1
	for depth > 0 {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken:
			if n, _ := z.TagName(); string(n) == name {
				depth++
			}
		case html.EndTagToken:
			if n, _ := z.TagName(); string(n) == name {
				depth--
			}
		}
	}
}
