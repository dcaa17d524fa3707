package richtext

import "sort"

// Format is a toolbar command name
type Format string

const (
	FormatBold      Format = "bold"
	FormatItalic    Format = "italic"
	FormatUnderline Format = "underline"
	FormatStrike    Format = "strikeThrough"
	FormatColor     Format = "foreColor"
	FormatSpoiler   Format = "spoiler"
)

var formatKinds = map[Format]Kind{
	FormatBold:      Bold,
	FormatItalic:    Italic,
	FormatUnderline: Underline,
	FormatStrike:    Strike,
	FormatColor:     Color,
	FormatSpoiler:   Spoiler,
}

var kindFormats = map[Kind]Format{
	Bold:      FormatBold,
	Italic:    FormatItalic,
	Underline: FormatUnderline,
	Strike:    FormatStrike,
	Spoiler:   FormatSpoiler,
}

// ParseFormat maps a command name to a Format
func ParseFormat(name string) (Format, bool) {
	f := Format(name)
	_, ok := formatKinds[f]
	return f, ok
}

// ActiveFormats is the toolbar read-model at the current anchor
type ActiveFormats struct {
	Formats []Format `json:"formats"`
	Color   string   `json:"color"` // Innermost colour, empty when none applies
}

// Has reports whether f is active
func (a ActiveFormats) Has(f Format) bool {
	for _, x := range a.Formats {
		if x == f {
			return true
		}
	}
	return false
}

// ApplyFormat returns a new document with the format applied to the selection,
// plus the selection remapped onto the new tree.
//
// Inline formats toggle: they are removed only when every selected character
// already carries them, so a partially formatted selection gets the format
// applied throughout. Colour always applies. Spoiler unwraps the region around
// the anchor, or wraps a non-empty selection in a new region.
func ApplyFormat(root *Node, sel Selection, f Format, value string) (*Node, Selection) {
	kind, ok := formatKinds[f]
	if !ok {
		return root, sel
	}

	anchor := OffsetOf(root, sel.Anchor)
	focus := OffsetOf(root, sel.Focus)
	start, end := anchor, focus
	if start > end {
		start, end = end, start
	}

	segs, nodeMarks := flatten(root)

	switch kind {
	case Spoiler:
		if region := enclosingSpoiler(root, sel.Anchor); region != nil {
			m := nodeMarks[region]
			for i := range segs {
				segs[i].marks = segs[i].without(func(x *mark) bool { return x == m })
			}
			break
		}
		if start == end {
			return root, sel
		}
		var from, to int
		segs, from, to = isolate(segs, start, end)
		region := &mark{kind: Spoiler}
		for i := from; i < to; i++ {
			segs[i].marks = append([]*mark{region}, segs[i].marks...)
		}

	case Color:
		if start == end || !ValidColor(value) {
			return root, sel
		}
		var from, to int
		segs, from, to = isolate(segs, start, end)
		m := &mark{kind: Color, color: value}
		for i := from; i < to; i++ {
			marks := segs[i].without(func(x *mark) bool { return x.kind == Color })
			segs[i].marks = append(marks, m)
		}

	default:
		if start == end {
			return root, sel
		}
		var from, to int
		segs, from, to = isolate(segs, start, end)
		all := true
		for i := from; i < to; i++ {
			if !segs[i].hasKind(kind) {
				all = false
				break
			}
		}
		if all {
			for i := from; i < to; i++ {
				segs[i].marks = segs[i].without(func(x *mark) bool { return x.kind == kind })
			}
		} else {
			m := &mark{kind: kind}
			for i := from; i < to; i++ {
				if !segs[i].hasKind(kind) {
					segs[i].marks = append(append([]*mark(nil), segs[i].marks...), m)
				}
			}
		}
	}

	doc := rebuild(normalize(segs))
	return doc, selectOffsets(doc, anchor, focus)
}

// enclosingSpoiler returns the nearest spoiler wrapper above the position.
func enclosingSpoiler(root *Node, pos Position) *Node {
	for _, n := range ancestors(root, pos) {
		if n.Kind == Spoiler {
			return n
		}
	}
	return nil
}

// Active derives the toolbar state from the anchor's ancestors.
func Active(root *Node, sel Selection) ActiveFormats {
	seen := map[Format]bool{}
	active := ActiveFormats{Formats: []Format{}}
	for _, n := range ancestors(root, sel.Anchor) {
		if n.Kind == Color {
			if active.Color == "" {
				active.Color = n.Color
			}
			continue
		}
		if f, ok := kindFormats[n.Kind]; ok && !seen[f] {
			seen[f] = true
			active.Formats = append(active.Formats, f)
		}
	}
	sort.Slice(active.Formats, func(i, j int) bool { return active.Formats[i] < active.Formats[j] })
	return active
}

// InsertText replaces the selection with text. Inserted text takes the
// formatting of the character before the caret.
func InsertText(root *Node, sel Selection, text string) (*Node, Selection) {
	start, end := sel.Range(root)
	segs, _ := flatten(root)
	segs = deleteRange(segs, start, end)

	runes := []rune(text)
	if len(runes) == 0 {
		doc := rebuild(normalize(segs))
		return doc, selectOffsets(doc, start, start)
	}

	segs, at := splitAt(segs, start)
	switch {
	case at > 0:
		prev := segs[at-1]
		segs[at-1] = segment{text: append(append([]rune(nil), prev.text...), runes...), marks: prev.marks}
	case len(segs) > 0:
		next := segs[0]
		segs[0] = segment{text: append(append([]rune(nil), runes...), next.text...), marks: next.marks}
	default:
		segs = []segment{{text: runes}}
	}

	doc := rebuild(normalize(segs))
	caret := start + len(runes)
	return doc, selectOffsets(doc, caret, caret)
}

// DeleteBackward removes the selection, or the character before a caret.
func DeleteBackward(root *Node, sel Selection) (*Node, Selection) {
	start, end := sel.Range(root)
	if start == end {
		if start == 0 {
			return root, sel
		}
		start--
	}

	segs, _ := flatten(root)
	doc := rebuild(normalize(deleteRange(segs, start, end)))
	return doc, selectOffsets(doc, start, start)
}

func deleteRange(segs []segment, start, end int) []segment {
	if start >= end {
		return segs
	}
	segs, from, to := isolate(segs, start, end)
	out := make([]segment, 0, len(segs)-(to-from))
	out = append(out, segs[:from]...)
	return append(out, segs[to:]...)
}
