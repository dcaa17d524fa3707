package richtext

// Editing works on a flat view of the document: a run of text segments, each
// carrying the stack of wrappers above it (outermost first). Wrapper identity
// is pointer identity, so two segments under the same *mark at the same depth
// belong to the same node when the tree is rebuilt.

type mark struct {
	kind  Kind
	color string
}

type segment struct {
	text  []rune
	marks []*mark
}

// flatten converts a tree into segments. The returned map links each wrapper
// node to the mark standing for it.
func flatten(root *Node) ([]segment, map[*Node]*mark) {
	var segs []segment
	marks := make(map[*Node]*mark)

	var walk func(n *Node, stack []*mark)
	walk = func(n *Node, stack []*mark) {
		switch n.Kind {
		case Text:
			if n.Text == "" {
				return
			}
			segs = append(segs, segment{
				text:  []rune(n.Text),
				marks: append([]*mark(nil), stack...),
			})
		case Root:
			for _, c := range n.Children {
				walk(c, stack)
			}
		default:
			m := &mark{kind: n.Kind, color: n.Color}
			marks[n] = m
			next := append(append([]*mark(nil), stack...), m)
			for _, c := range n.Children {
				walk(c, next)
			}
		}
	}
	if root != nil {
		walk(root, nil)
	}
	return segs, marks
}

// rebuild turns segments back into a canonical tree.
func rebuild(segs []segment) *Node {
	return NewDocument(buildLevel(segs, 0)...)
}

func buildLevel(segs []segment, depth int) []*Node {
	var out []*Node
	for i := 0; i < len(segs); {
		if len(segs[i].marks) <= depth {
			var text []rune
			j := i
			for j < len(segs) && len(segs[j].marks) <= depth {
				text = append(text, segs[j].text...)
				j++
			}
			if len(text) > 0 {
				out = append(out, T(string(text)))
			}
			i = j
			continue
		}

		m := segs[i].marks[depth]
		j := i + 1
		for j < len(segs) && len(segs[j].marks) > depth && segs[j].marks[depth] == m {
			j++
		}
		n := &Node{Kind: m.kind, Color: m.color}
		n.Children = buildLevel(segs[i:j], depth+1)
		out = append(out, n)
		i = j
	}
	return out
}

// splitAt ensures a segment boundary exists at offset and returns the index of
// the first segment starting at or after it.
func splitAt(segs []segment, offset int) ([]segment, int) {
	pos := 0
	for i := 0; i < len(segs); i++ {
		size := len(segs[i].text)
		if offset == pos {
			return segs, i
		}
		if offset < pos+size {
			cut := offset - pos
			left := segment{text: append([]rune(nil), segs[i].text[:cut]...), marks: segs[i].marks}
			right := segment{text: append([]rune(nil), segs[i].text[cut:]...), marks: append([]*mark(nil), segs[i].marks...)}
			out := make([]segment, 0, len(segs)+1)
			out = append(out, segs[:i]...)
			out = append(out, left, right)
			out = append(out, segs[i+1:]...)
			return out, i + 1
		}
		pos += size
	}
	return segs, len(segs)
}

// isolate splits segments so that [start, end) is covered exactly by
// segs[from:to].
func isolate(segs []segment, start, end int) (out []segment, from, to int) {
	out, from = splitAt(segs, start)
	out, to = splitAt(out, end)
	return out, from, to
}

// hasKind reports whether a segment sits under a wrapper of the given kind.
func (s segment) hasKind(kind Kind) bool {
	for _, m := range s.marks {
		if m.kind == kind {
			return true
		}
	}
	return false
}

// without returns the segment's marks minus those matching drop.
func (s segment) without(drop func(*mark) bool) []*mark {
	out := make([]*mark, 0, len(s.marks))
	for _, m := range s.marks {
		if !drop(m) {
			out = append(out, m)
		}
	}
	return out
}

// spoilersFirst reorders every segment's marks so spoiler regions sit above
// inline formatting. Spoiler regions are contiguous, so this keeps each one a
// single node however the formatting inside it is later split.
func spoilersFirst(segs []segment) {
	for i := range segs {
		var spoilers, rest []*mark
		for _, m := range segs[i].marks {
			if m.kind == Spoiler {
				spoilers = append(spoilers, m)
			} else {
				rest = append(rest, m)
			}
		}
		segs[i].marks = append(spoilers, rest...)
	}
}

// mergeable reports whether two sibling wrappers can become one node.
func mergeable(a, b *mark) bool {
	return a.kind == b.kind && a.kind != Spoiler && a.color == b.color
}

// normalize drops empty segments and merges adjacent sibling wrappers of the
// same kind. Adjacent spoilers stay separate regions.
func normalize(segs []segment) []segment {
	out := segs[:0:0]
	for _, s := range segs {
		if len(s.text) > 0 {
			out = append(out, s)
		}
	}
	spoilersFirst(out)

	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1].marks, out[i].marks
		for d := 0; d < len(prev) && d < len(cur); d++ {
			if prev[d] == cur[d] {
				continue
			}
			if !mergeable(prev[d], cur[d]) {
				break
			}
			old := cur[d]
			for j := i; j < len(out) && d < len(out[j].marks) && out[j].marks[d] == old; j++ {
				out[j].marks[d] = prev[d]
			}
		}
	}
	return out
}
