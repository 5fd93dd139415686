// Package dom is the tree and range adapter the editing core works against.
//
// Documents are golang.org/x/net/html trees. This package adds the handful of
// operations the core needs on top of them: ancestor lookup by tag, text leaf
// enumeration in document order, shallow cloning, structural surgery and
// boundary-point arithmetic for ranges.
package dom

import (
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockTags = map[atom.Atom]struct{}{
	atom.Div: {}, atom.P: {}, atom.Li: {}, atom.Ul: {}, atom.Ol: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Pre: {}, atom.Blockquote: {}, atom.Body: {},
}

// IsElement reports whether n is an element with one of the given tags.
// With no tags it reports whether n is an element at all.
func IsElement(n *html.Node, tags ...atom.Atom) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.DataAtom == t {
			return true
		}
	}
	return false
}

// IsTag returns a predicate matching elements with one of the given tags.
func IsTag(tags ...atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return IsElement(n, tags...) }
}

// IsBlock reports whether n is a block-level container.
func IsBlock(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	_, ok := blockTags[n.DataAtom]
	return ok
}

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// Closest returns the nearest ancestor-or-self of n matching match.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	return ClosestWithin(n, nil, match)
}

// ClosestWithin is Closest bounded by stop: the walk never returns stop or
// anything above it.
func ClosestWithin(n, stop *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n; c != nil && c != stop; c = c.Parent {
		if match(c) {
			return c
		}
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == root {
			return true
		}
	}
	return false
}

// TextLeaves returns the text descendants of root in document order. A text
// root is its own single leaf.
func TextLeaves(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// TextContent concatenates the text of every leaf under n.
func TextContent(n *html.Node) string {
	var b []byte
	for _, leaf := range TextLeaves(n) {
		b = append(b, leaf.Data...)
	}
	return string(b)
}

// Len is the boundary-point length of n: runes for text, children otherwise.
func Len(n *html.Node) int {
	if n.Type == html.TextNode {
		return utf8.RuneCountInString(n.Data)
	}
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// Children returns the child nodes of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// ElementChildren returns the element children of n, skipping text and comments.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ChildIndex returns the index of n among its parent's children, or -1.
func ChildIndex(n *html.Node) int {
	if n.Parent == nil {
		return -1
	}
	i := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return i
		}
		i++
	}
	return -1
}

// ChildAt returns the i-th child of n or nil.
func ChildAt(n *html.Node, i int) *html.Node {
	if i < 0 {
		return nil
	}
	c := n.FirstChild
	for ; c != nil && i > 0; c = c.NextSibling {
		i--
	}
	return c
}

// NewElement creates a detached element.
func NewElement(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// ShallowClone copies n's identity and attributes but none of its children.
func ShallowClone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertBefore inserts n as the previous sibling of ref.
func InsertBefore(ref, n *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref)
}

// InsertAfter inserts n as the next sibling of ref.
func InsertAfter(ref, n *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// Replace puts n where old was and detaches old.
func Replace(old, n *html.Node) {
	InsertBefore(old, n)
	Detach(old)
}

// Append moves each node to the end of parent's children.
func Append(parent *html.Node, nodes ...*html.Node) {
	for _, n := range nodes {
		Detach(n)
		parent.AppendChild(n)
	}
}

// Wrap puts wrapper where n is and makes n its only child.
func Wrap(n, wrapper *html.Node) {
	InsertBefore(n, wrapper)
	Append(wrapper, n)
}

// Unwrap replaces n by its children.
func Unwrap(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		InsertBefore(n, c)
		c = next
	}
	Detach(n)
}

// Path returns the child-index path from root down to n, or nil when n is not
// under root.
func Path(root, n *html.Node) []int {
	var rev []int
	c := n
	for ; c != nil && c != root; c = c.Parent {
		rev = append(rev, ChildIndex(c))
	}
	if c != root {
		return nil
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

// Resolve walks a child-index path from root.
func Resolve(root *html.Node, path []int) *html.Node {
	n := root
	for _, i := range path {
		if n = ChildAt(n, i); n == nil {
			return nil
		}
	}
	return n
}
