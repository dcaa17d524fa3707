package richtext

// Position addresses a caret inside a text node: Path holds child indexes
// from the root down to the node and Offset counts runes into its text.
type Position struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

// Selection is an anchor/focus pair. Anchor is where the selection started.
type Selection struct {
	Anchor Position `json:"anchor"`
	Focus  Position `json:"focus"`
}

// nodeAt follows a path from the root and returns the chain of nodes visited,
// root first. ok is false if the path does not end on a text node.
func nodeAt(root *Node, path []int) (chain []*Node, ok bool) {
	if root == nil {
		return nil, false
	}
	chain = []*Node{root}
	n := root
	for _, i := range path {
		if i < 0 || i >= len(n.Children) {
			return chain, false
		}
		n = n.Children[i]
		chain = append(chain, n)
	}
	return chain, n.Kind == Text
}

// OffsetOf converts a position into a rune offset from the start of the
// document. Positions that do not resolve to a text node map to the end.
func OffsetOf(root *Node, pos Position) int {
	if _, ok := nodeAt(root, pos.Path); !ok {
		return Len(root)
	}

	offset := 0
	found := false
	var walk func(n *Node, path []int)
	walk = func(n *Node, path []int) {
		if found {
			return
		}
		if n.Kind == Text {
			if equalPath(path, pos.Path) {
				o := pos.Offset
				size := len([]rune(n.Text))
				if o < 0 {
					o = 0
				}
				if o > size {
					o = size
				}
				offset += o
				found = true
				return
			}
			offset += len([]rune(n.Text))
			return
		}
		for i, c := range n.Children {
			walk(c, append(path, i))
			if found {
				return
			}
		}
	}
	walk(root, nil)
	return offset
}

// PositionAt converts a rune offset into a position. When the offset falls on
// the boundary between two text nodes, forward picks the node after the
// boundary and !forward the node before it, matching how a caret sticks to the
// preceding character while a selection start belongs to the following one.
func PositionAt(root *Node, offset int, forward bool) Position {
	if offset < 0 {
		offset = 0
	}

	var last *Position
	var result *Position
	start := 0
	var walk func(n *Node, path []int)
	walk = func(n *Node, path []int) {
		if result != nil {
			return
		}
		if n.Kind == Text {
			size := len([]rune(n.Text))
			end := start + size
			p := Position{Path: append([]int(nil), path...)}
			hit := offset <= end
			if forward {
				hit = offset < end
			}
			if hit && offset >= start {
				p.Offset = offset - start
				result = &p
				return
			}
			p.Offset = size
			last = &p
			start = end
			return
		}
		for i, c := range n.Children {
			walk(c, append(path, i))
		}
	}
	if root != nil {
		walk(root, nil)
	}

	switch {
	case result != nil:
		return *result
	case last != nil:
		return *last
	default:
		return Position{}
	}
}

// Range returns the selection as ordered rune offsets.
func (s Selection) Range(root *Node) (start, end int) {
	a := OffsetOf(root, s.Anchor)
	f := OffsetOf(root, s.Focus)
	if a > f {
		return f, a
	}
	return a, f
}

// Collapsed reports whether the selection is a bare caret.
func (s Selection) Collapsed(root *Node) bool {
	start, end := s.Range(root)
	return start == end
}

// selectOffsets builds a selection from anchor/focus offsets.
func selectOffsets(root *Node, anchor, focus int) Selection {
	if anchor == focus {
		p := PositionAt(root, anchor, false)
		return Selection{Anchor: p, Focus: p}
	}
	return Selection{
		Anchor: PositionAt(root, anchor, anchor < focus),
		Focus:  PositionAt(root, focus, focus < anchor),
	}
}

// ancestors returns the wrapper nodes above the anchor, innermost first,
// stopping before the root.
func ancestors(root *Node, pos Position) []*Node {
	chain, ok := nodeAt(root, pos.Path)
	if !ok {
		return nil
	}
	var out []*Node
	for i := len(chain) - 2; i > 0; i-- {
		out = append(out, chain[i])
	}
	return out
}

func equalPath(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
