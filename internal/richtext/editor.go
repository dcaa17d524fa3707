package richtext

// Editor holds a composer's document and selection. Every mutation swaps in a
// new tree; documents handed out are copies.
//
// An Editor is not safe for concurrent use.
type Editor struct {
	doc *Node
	sel Selection
}

// NewEditor returns an empty editor with the caret at the start.
func NewEditor() *Editor {
	return &Editor{doc: NewDocument()}
}

// Document returns a copy of the current tree
func (e *Editor) Document() *Node {
	return clone(e.doc)
}

// Selection returns the current selection
func (e *Editor) Selection() Selection {
	return e.sel
}

// SetSelection replaces the selection. Paths that do not resolve map to the
// end of the document.
func (e *Editor) SetSelection(sel Selection) {
	e.sel = selectOffsets(e.doc, OffsetOf(e.doc, sel.Anchor), OffsetOf(e.doc, sel.Focus))
}

// Select sets the selection from rune offsets. anchor may be after focus.
func (e *Editor) Select(anchor, focus int) {
	n := Len(e.doc)
	anchor = clampOffset(anchor, n)
	focus = clampOffset(focus, n)
	e.sel = selectOffsets(e.doc, anchor, focus)
}

func clampOffset(o, n int) int {
	if o < 0 {
		return 0
	}
	if o > n {
		return n
	}
	return o
}

// Range returns the selection as ordered rune offsets
func (e *Editor) Range() (start, end int) {
	return e.sel.Range(e.doc)
}

// ApplyFormat runs a toolbar command over the selection.
func (e *Editor) ApplyFormat(f Format, value string) {
	e.doc, e.sel = ApplyFormat(e.doc, e.sel, f, value)
}

// ActiveFormats reports the formatting in effect at the anchor
func (e *Editor) ActiveFormats() ActiveFormats {
	return Active(e.doc, e.sel)
}

// InsertText types text at the caret, replacing any selected text.
func (e *Editor) InsertText(text string) {
	e.doc, e.sel = InsertText(e.doc, e.sel, text)
}

// DeleteBackward behaves like the backspace key
func (e *Editor) DeleteBackward() {
	e.doc, e.sel = DeleteBackward(e.doc, e.sel)
}

// Load replaces the document with decoded markup and puts the caret at the end.
func (e *Editor) Load(markup string) {
	segs, _ := flatten(Decode(markup))
	e.doc = rebuild(normalize(segs))
	end := Len(e.doc)
	e.sel = selectOffsets(e.doc, end, end)
}

// Reset clears the document
func (e *Editor) Reset() {
	e.doc = NewDocument()
	e.sel = Selection{}
}

// Text returns the plain text content
func (e *Editor) Text() string {
	return PlainText(e.doc)
}

// Len returns the document length in runes
func (e *Editor) Len() int {
	return Len(e.doc)
}

// Serialize returns the document in wire form
func (e *Editor) Serialize() FormattedMessageText {
	return Encode(e.doc)
}

// Markup returns the document as live composer markup
func (e *Editor) Markup() string {
	return EncodeDialect(e.doc, DialectEditor)
}
