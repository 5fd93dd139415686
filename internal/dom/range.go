package dom

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ErrInvalidPosition is returned when a boundary point does not exist in the
// tree the selection is bound to.
var ErrInvalidPosition = errors.New("dom: invalid position")

// Position is a boundary point. Inside a text node Offset counts runes,
// inside an element it counts children.
type Position struct {
	Node   *html.Node
	Offset int
}

// Range is a snapshot of a selection. Start is never after End.
type Range struct {
	Start Position
	End   Position
}

// Caret returns a collapsed range at p.
func Caret(p Position) Range {
	return Range{Start: p, End: p}
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// Clone returns an independent copy of the range. Ranges hold no live state,
// so this is a value copy; it exists to mark capture points.
func (r Range) Clone() Range {
	return r
}

// Ordered returns the range with its boundary points swapped if needed.
func (r Range) Ordered() Range {
	if Compare(r.Start, r.End) > 0 {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// Compare orders two boundary points of the same tree: -1 when a is before b,
// 0 when equal and 1 when after.
func Compare(a, b Position) int {
	if a.Node == b.Node {
		return cmpInt(a.Offset, b.Offset)
	}
	pa, pb := ancestry(a.Node), ancestry(b.Node)
	if isPrefix(pa, pb) {
		// a.Node is an ancestor of b.Node.
		if pb[len(pa)] < a.Offset {
			return 1
		}
		return -1
	}
	if isPrefix(pb, pa) {
		if pa[len(pb)] < b.Offset {
			return -1
		}
		return 1
	}
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return cmpInt(pa[i], pb[i])
		}
	}
	return 0
}

// OverlapsText reports whether at least one character of the text node t lies
// inside r.
func (r Range) OverlapsText(t *html.Node) bool {
	n := utf8.RuneCountInString(t.Data)
	if n == 0 {
		return false
	}
	return Compare(Position{t, 0}, r.End) < 0 && Compare(Position{t, n}, r.Start) > 0
}

// CommonAncestor returns the deepest node containing both a and b.
func CommonAncestor(a, b *html.Node) *html.Node {
	seen := make(map[*html.Node]struct{})
	for c := a; c != nil; c = c.Parent {
		seen[c] = struct{}{}
	}
	for c := b; c != nil; c = c.Parent {
		if _, ok := seen[c]; ok {
			return c
		}
	}
	return nil
}

// TextOffset returns the plain-text offset of pos relative to root: the
// number of runes in root's text leaves that precede pos.
func TextOffset(root *html.Node, pos Position) int {
	sum := 0
	for _, leaf := range TextLeaves(root) {
		n := utf8.RuneCountInString(leaf.Data)
		if leaf == pos.Node {
			return sum + min(pos.Offset, n)
		}
		if Compare(Position{leaf, n}, pos) > 0 {
			return sum
		}
		sum += n
	}
	return sum
}

// Selection is the host's selection capability.
type Selection interface {
	// Range returns the active range, if there is one.
	Range() (Range, bool)
	// SetRange replaces the active range. It rejects points outside the
	// bound tree.
	SetRange(r Range) error
}

// SelectionState is an in-memory Selection bound to one document root.
type SelectionState struct {
	root   *html.Node
	r      Range
	active bool
}

// NewSelection creates an empty selection over root.
func NewSelection(root *html.Node) *SelectionState {
	return &SelectionState{root: root}
}

// Range implements Selection. A range whose boundary nodes have been
// removed from the tree is no longer active.
func (s *SelectionState) Range() (Range, bool) {
	if !s.active || !Contains(s.root, s.r.Start.Node) || !Contains(s.root, s.r.End.Node) {
		return Range{}, false
	}
	return s.r, true
}

// SetRange implements Selection.
func (s *SelectionState) SetRange(r Range) error {
	if err := s.check(r.Start); err != nil {
		return err
	}
	if err := s.check(r.End); err != nil {
		return err
	}
	s.r = r.Ordered()
	s.active = true
	return nil
}

// Clear drops the active range.
func (s *SelectionState) Clear() {
	s.r = Range{}
	s.active = false
}

func (s *SelectionState) check(p Position) error {
	if p.Node == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidPosition)
	}
	if !Contains(s.root, p.Node) {
		return fmt.Errorf("%w: node outside document", ErrInvalidPosition)
	}
	if p.Offset < 0 || p.Offset > Len(p.Node) {
		return fmt.Errorf("%w: offset %d out of bounds", ErrInvalidPosition, p.Offset)
	}
	return nil
}

func ancestry(n *html.Node) []int {
	var rev []int
	for c := n; c.Parent != nil; c = c.Parent {
		rev = append(rev, ChildIndex(c))
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

func isPrefix(p, of []int) bool {
	if len(p) >= len(of) {
		return false
	}
	for i := range p {
		if p[i] != of[i] {
			return false
		}
	}
	return true
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
