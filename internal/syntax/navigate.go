package syntax

import "fmt"

// encloses treats an empty range as a point p that must satisfy
// Start <= p < End, so a cursor between two nodes belongs to the right one.
func encloses(n *Node, r Range) bool {
	if r.Empty() {
		return n.Range.Start <= r.Start && r.Start < n.Range.End
	}
	return n.Range.Contains(r)
}

// chain returns the nodes from the root down to the innermost node
// enclosing r, with their paths.
func (t *Tree) chain(r Range) ([]*Node, Path) {
	nodes := []*Node{t.root}
	path := Path{}
	n := t.root
	for {
		next := -1
		for i, c := range n.Children {
			if encloses(c, r) {
				next = i
				break
			}
		}
		if next < 0 {
			return nodes, path
		}
		n = n.Children[next]
		nodes = append(nodes, n)
		path = append(path, next)
	}
}

// InnermostEnclosingPath returns the path of the deepest node enclosing r.
// The root is returned when nothing deeper qualifies.
func (t *Tree) InnermostEnclosingPath(r Range) Path {
	_, path := t.chain(r)
	return path
}

// NodeAt resolves a path produced by this tree.
func (t *Tree) NodeAt(path Path) (*Node, error) {
	n := t.root
	for depth, idx := range path {
		if idx < 0 || idx >= len(n.Children) {
			return nil, fmt.Errorf("%w: %v at depth %d", ErrInvalidPath, path, depth)
		}
		n = n.Children[idx]
	}
	return n, nil
}

func (t *Tree) SubtreeRange(path Path) (Range, error) {
	n, err := t.NodeAt(path)
	if err != nil {
		return Range{}, err
	}
	return n.Range, nil
}

func (t *Tree) SubtreeText(path Path) (string, error) {
	n, err := t.NodeAt(path)
	if err != nil {
		return "", err
	}
	return t.Slice(n.Range), nil
}

// ExpandSelection returns the range of the smallest node that contains r
// and is strictly larger than it. It reports false once r covers the root.
func (t *Tree) ExpandSelection(r Range) (Range, bool) {
	nodes, _ := t.chain(r)
	for i := len(nodes) - 1; i >= 0; i-- {
		nr := nodes[i].Range
		if nr != r && nr.Contains(r) {
			return nr, true
		}
	}
	return Range{}, false
}

// MoveCursorToStart returns the start offset of the innermost node
// enclosing r.
func (t *Tree) MoveCursorToStart(r Range) int {
	nodes, _ := t.chain(r)
	return nodes[len(nodes)-1].Range.Start
}
