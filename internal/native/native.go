// Package native implements the built-in editing commands for a headless
// host, where no browser engine is available to run them.
package native

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/command"
	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/format"
)

var inlineTags = map[string][]atom.Atom{
	command.Bold:          {atom.B, atom.Strong},
	command.Italic:        {atom.I, atom.Em},
	command.Underline:     {atom.U},
	command.StrikeThrough: {atom.S, atom.Strike, atom.Del},
	command.Subscript:     {atom.Sub},
	command.Superscript:   {atom.Sup},
}

// wrapTag is the element a toggle wraps new text in.
var wrapTag = map[string]atom.Atom{
	command.Bold:          atom.B,
	command.Italic:        atom.I,
	command.Underline:     atom.U,
	command.StrikeThrough: atom.S,
	command.Subscript:     atom.Sub,
	command.Superscript:   atom.Sup,
}

var formattingTags = []atom.Atom{
	atom.B, atom.Strong, atom.I, atom.Em, atom.U, atom.S, atom.Strike, atom.Del,
	atom.Sub, atom.Sup, atom.Span, atom.Font,
}

var blockFormats = map[string]atom.Atom{
	"p": atom.P, "div": atom.Div, "pre": atom.Pre, "blockquote": atom.Blockquote,
	"h1": atom.H1, "h2": atom.H2, "h3": atom.H3, "h4": atom.H4, "h5": atom.H5, "h6": atom.H6,
}

// Legacy fontSize values 1-7.
var fontSizes = map[string]string{
	"1": "10px", "2": "13px", "3": "16px", "4": "18px", "5": "24px", "6": "32px", "7": "48px",
}

// Executor runs built-in commands against a document tree and its selection.
type Executor struct {
	root *html.Node
	sel  dom.Selection
	ext  *format.Extractor
}

var _ command.Commander = (*Executor)(nil)

// New creates an executor. A nil extractor uses the default cascade.
func New(root *html.Node, sel dom.Selection, ext *format.Extractor) *Executor {
	if ext == nil {
		ext = format.NewExtractor(nil)
	}
	return &Executor{root: root, sel: sel, ext: ext}
}

// Exec runs the named command with arg against the current selection.
func (e *Executor) Exec(name, arg string) error {
	r, ok := e.sel.Range()
	if !ok {
		return fmt.Errorf("native: %s: %w", name, apperr.ErrNoSelection)
	}
	switch name {
	case command.Bold, command.Italic, command.Underline, command.StrikeThrough,
		command.Subscript, command.Superscript:
		return e.toggleInline(r, name)
	case command.ForeColor:
		return e.styleSpan(r, "color", arg)
	case command.BackColor, command.HiliteColor:
		return e.styleSpan(r, "background-color", arg)
	case command.FontName:
		return e.styleSpan(r, "font-family", arg)
	case command.FontSize:
		if px, ok := fontSizes[strings.TrimSpace(arg)]; ok {
			arg = px
		}
		return e.styleSpan(r, "font-size", arg)
	case command.JustifyLeft:
		return e.justify(r, "")
	case command.JustifyCenter:
		return e.justify(r, "center")
	case command.JustifyRight:
		return e.justify(r, "right")
	case command.JustifyFull:
		return e.justify(r, "justify")
	case command.FormatBlock:
		return e.formatBlock(r, arg)
	case command.CreateLink:
		return e.createLink(r, arg)
	case command.Unlink:
		e.unlink(r)
		return nil
	case command.RemoveFormat:
		e.removeFormat(r)
		return nil
	case command.InsertOrderedList:
		return e.insertList(r, atom.Ol)
	case command.InsertUnorderedList:
		return e.insertList(r, atom.Ul)
	}
	return fmt.Errorf("native: %s: %w", name, apperr.ErrUnsupportedCommand)
}

// QueryState reports whether the named state command applies to the whole
// selection. Unknown commands report false.
func (e *Executor) QueryState(name string) bool {
	leaves := e.targets()
	if len(leaves) == 0 {
		return name == command.JustifyLeft
	}
	for _, leaf := range leaves {
		if !stateOf(e.ext.Describe(leaf), name) {
			return false
		}
	}
	return true
}

func stateOf(a format.Attributes, name string) bool {
	switch name {
	case command.Bold:
		return a.Bold
	case command.Italic:
		return a.Italic
	case command.Underline:
		return a.Underline
	case command.StrikeThrough:
		return a.Strikethrough
	case command.Subscript:
		return a.Subscript
	case command.Superscript:
		return a.Superscript
	case command.InsertOrderedList:
		return a.OrderedList
	case command.InsertUnorderedList:
		return a.UnorderedList
	case command.JustifyLeft:
		return a.Justify == format.JustifyLeft
	case command.JustifyCenter:
		return a.Justify == format.JustifyCenter
	case command.JustifyRight:
		return a.Justify == format.JustifyRight
	case command.JustifyFull:
		return a.Justify == format.JustifyFull
	}
	return false
}

// QueryValue returns the named value at the start of the selection. Unknown
// commands return "".
func (e *Executor) QueryValue(name string) string {
	leaves := e.targets()
	if len(leaves) == 0 {
		return ""
	}
	a := e.ext.Describe(leaves[0])
	switch name {
	case command.FontName:
		return a.FontFamily
	case command.FontSize:
		return a.FontSize
	case command.ForeColor:
		return a.ForeColor
	case command.BackColor, command.HiliteColor:
		return a.BackColor
	case command.FormatBlock:
		return a.BlockType
	}
	return ""
}

// targets returns the leaves a query looks at: the selected leaves of a
// range, or the leaf at a caret.
func (e *Executor) targets() []*html.Node {
	r, ok := e.sel.Range()
	if !ok {
		return nil
	}
	if !r.Collapsed() {
		return selectedLeaves(r)
	}
	if leaf := leafAt(r.Start); leaf != nil {
		return []*html.Node{leaf}
	}
	return nil
}

func selectedLeaves(r dom.Range) []*html.Node {
	scope := dom.CommonAncestor(r.Start.Node, r.End.Node)
	if scope == nil {
		return nil
	}
	var out []*html.Node
	for _, leaf := range dom.TextLeaves(scope) {
		if r.OverlapsText(leaf) {
			out = append(out, leaf)
		}
	}
	return out
}

// leafAt finds the text leaf a caret touches: the caret's own text node, or
// the nearest leaf at the element boundary.
func leafAt(p dom.Position) *html.Node {
	if dom.IsText(p.Node) {
		return p.Node
	}
	if c := dom.ChildAt(p.Node, p.Offset); c != nil {
		if leaves := dom.TextLeaves(c); len(leaves) > 0 {
			return leaves[0]
		}
		if dom.IsText(c) {
			return c
		}
	}
	if c := dom.ChildAt(p.Node, p.Offset-1); c != nil {
		if dom.IsText(c) {
			return c
		}
		if leaves := dom.TextLeaves(c); len(leaves) > 0 {
			return leaves[len(leaves)-1]
		}
	}
	return nil
}

// segments splits the text leaves at the range boundaries so every returned
// node lies entirely inside r.
func segments(r dom.Range) []*html.Node {
	leaves := selectedLeaves(r)
	out := make([]*html.Node, 0, len(leaves))
	for _, leaf := range leaves {
		from, to := 0, utf8.RuneCountInString(leaf.Data)
		if leaf == r.Start.Node {
			from = r.Start.Offset
		}
		if leaf == r.End.Node {
			to = r.End.Offset
		}
		if from >= to {
			continue
		}
		out = append(out, splitText(leaf, from, to))
	}
	return out
}

// splitText narrows leaf to runes [from, to), moving the rest into new
// sibling text nodes. leaf keeps its identity.
func splitText(leaf *html.Node, from, to int) *html.Node {
	runes := []rune(leaf.Data)
	if to < len(runes) {
		dom.InsertAfter(leaf, dom.NewText(string(runes[to:])))
	}
	if from > 0 {
		dom.InsertBefore(leaf, dom.NewText(string(runes[:from])))
	}
	leaf.Data = string(runes[from:to])
	return leaf
}

// reselect spans the given segments after an edit.
func (e *Executor) reselect(segs []*html.Node) error {
	if len(segs) == 0 {
		return nil
	}
	last := segs[len(segs)-1]
	return e.sel.SetRange(dom.Range{
		Start: dom.Position{Node: segs[0], Offset: 0},
		End:   dom.Position{Node: last, Offset: utf8.RuneCountInString(last.Data)},
	})
}

func (e *Executor) toggleInline(r dom.Range, name string) error {
	if r.Collapsed() {
		return nil
	}
	segs := segments(r)
	if len(segs) == 0 {
		return nil
	}
	on := true
	for _, s := range segs {
		if !stateOf(e.ext.Leaf(s), name) {
			on = false
			break
		}
	}
	tags := inlineTags[name]
	for _, s := range segs {
		if on {
			e.strip(s, tags)
			if name == command.Bold && e.ext.Leaf(s).Bold {
				wrapStyled(s, "font-weight", "normal")
			}
			continue
		}
		dom.Wrap(s, dom.NewElement(wrapTag[name]))
	}
	return e.reselect(segs)
}

// strip removes every ancestor of seg, up to its block, that carries one of
// tags, splitting the ancestor so text outside seg keeps the formatting.
func (e *Executor) strip(seg *html.Node, tags []atom.Atom) {
	block := e.blockOf(seg)
	for {
		el := dom.ClosestWithin(seg.Parent, block, dom.IsTag(tags...))
		if el == nil {
			return
		}
		isolate(el, seg)
		dom.Unwrap(el)
	}
}

// isolate splits every element from n's parent up to el so that el contains
// only the path down to n. Siblings go into shallow copies on either side.
func isolate(el, n *html.Node) {
	for c := n; c != el; c = c.Parent {
		p := c.Parent
		if c.PrevSibling != nil {
			before := dom.ShallowClone(p)
			for s := p.FirstChild; s != c; {
				next := s.NextSibling
				dom.Append(before, s)
				s = next
			}
			dom.InsertBefore(p, before)
		}
		if c.NextSibling != nil {
			after := dom.ShallowClone(p)
			for s := c.NextSibling; s != nil; {
				next := s.NextSibling
				dom.Append(after, s)
				s = next
			}
			dom.InsertAfter(p, after)
		}
	}
}

func wrapStyled(n *html.Node, prop, val string) {
	span := dom.NewElement(atom.Span)
	dom.SetStyleProperty(span, prop, val)
	dom.Wrap(n, span)
}

func (e *Executor) styleSpan(r dom.Range, prop, val string) error {
	val = strings.TrimSpace(val)
	if val == "" {
		return fmt.Errorf("native: %s: %w", prop, apperr.ErrInvalidArgument)
	}
	if r.Collapsed() {
		return nil
	}
	segs := segments(r)
	for _, s := range segs {
		if p := s.Parent; dom.IsElement(p, atom.Span) && p.FirstChild == s && p.LastChild == s {
			dom.SetStyleProperty(p, prop, val)
			continue
		}
		wrapStyled(s, prop, val)
	}
	return e.reselect(segs)
}

// blockOf returns the block containing n below the root. Inline content
// sitting directly in the root is first wrapped in a div.
func (e *Executor) blockOf(n *html.Node) *html.Node {
	if b := dom.ClosestWithin(n, e.root, dom.IsBlock); b != nil && b != e.root {
		return b
	}
	top := n
	for top.Parent != nil && top.Parent != e.root {
		top = top.Parent
	}
	if top.Parent != e.root {
		return e.root
	}
	if dom.IsBlock(top) {
		return top
	}
	first, last := top, top
	for first.PrevSibling != nil && !dom.IsBlock(first.PrevSibling) {
		first = first.PrevSibling
	}
	for last.NextSibling != nil && !dom.IsBlock(last.NextSibling) {
		last = last.NextSibling
	}
	div := dom.NewElement(atom.Div)
	dom.InsertBefore(first, div)
	for c := first; ; {
		next := c.NextSibling
		dom.Append(div, c)
		if c == last {
			break
		}
		c = next
	}
	return div
}

// blocks returns the distinct blocks touched by r in document order.
func (e *Executor) blocks(r dom.Range) []*html.Node {
	var nodes []*html.Node
	if r.Collapsed() {
		nodes = []*html.Node{r.Start.Node}
	} else {
		nodes = selectedLeaves(r)
		if len(nodes) == 0 {
			nodes = []*html.Node{r.Start.Node}
		}
	}
	seen := map[*html.Node]bool{}
	var out []*html.Node
	for _, n := range nodes {
		b := e.blockOf(n)
		if b == e.root || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func (e *Executor) justify(r dom.Range, align string) error {
	for _, b := range e.blocks(r) {
		dom.RemoveAttr(b, "align")
		if align == "" {
			dom.RemoveStyleProperty(b, "text-align")
			continue
		}
		dom.SetStyleProperty(b, "text-align", align)
	}
	return nil
}

func (e *Executor) formatBlock(r dom.Range, arg string) error {
	name := strings.Trim(strings.ToLower(strings.TrimSpace(arg)), "<>")
	tag, ok := blockFormats[name]
	if !ok {
		return fmt.Errorf("native: formatBlock %q: %w", arg, apperr.ErrInvalidArgument)
	}
	for _, b := range e.blocks(r) {
		if b.DataAtom == tag {
			continue
		}
		next := dom.NewElement(tag)
		if dom.IsElement(b, atom.Li) {
			dom.Append(next, dom.Children(b)...)
			b.AppendChild(next)
			continue
		}
		next.Attr = b.Attr
		dom.Append(next, dom.Children(b)...)
		dom.Replace(b, next)
	}
	return nil
}

func (e *Executor) createLink(r dom.Range, href string) error {
	href = strings.TrimSpace(href)
	if href == "" {
		return fmt.Errorf("native: createLink: %w", apperr.ErrInvalidArgument)
	}
	if r.Collapsed() {
		return nil
	}
	segs := segments(r)
	for _, s := range segs {
		if a := dom.ClosestWithin(s, e.root, dom.IsTag(atom.A)); a != nil {
			dom.SetAttr(a, "href", href)
			continue
		}
		dom.Wrap(s, dom.NewElement(atom.A, html.Attribute{Key: "href", Val: href}))
	}
	return e.reselect(segs)
}

func (e *Executor) unlink(r dom.Range) {
	var leaves []*html.Node
	if r.Collapsed() {
		if leaf := leafAt(r.Start); leaf != nil {
			leaves = append(leaves, leaf)
		}
	} else {
		leaves = selectedLeaves(r)
	}
	for _, leaf := range leaves {
		if a := dom.ClosestWithin(leaf, e.root, dom.IsTag(atom.A)); a != nil {
			dom.Unwrap(a)
		}
	}
}

func (e *Executor) removeFormat(r dom.Range) {
	if r.Collapsed() {
		return
	}
	segs := segments(r)
	for _, s := range segs {
		e.strip(s, formattingTags)
	}
	_ = e.reselect(segs)
}

// insertList wraps the caret's block in a new single-item list. Inside an
// existing list it retags the list, or dissolves it into plain blocks when
// it already has the requested kind.
func (e *Executor) insertList(r dom.Range, tag atom.Atom) error {
	if item := dom.ClosestWithin(r.Start.Node, e.root, dom.IsTag(atom.Li)); item != nil {
		if list := item.Parent; dom.IsElement(list, atom.Ol, atom.Ul) {
			if list.DataAtom == tag {
				dissolve(list)
				return nil
			}
			next := dom.NewElement(tag)
			next.Attr = list.Attr
			dom.Append(next, dom.Children(list)...)
			dom.Replace(list, next)
			return nil
		}
	}
	for _, b := range e.blocks(r) {
		list := dom.NewElement(tag)
		li := dom.NewElement(atom.Li)
		list.AppendChild(li)
		dom.Append(li, dom.Children(b)...)
		dom.Replace(b, list)
	}
	return nil
}

func dissolve(list *html.Node) {
	for _, item := range dom.ElementChildren(list) {
		div := dom.NewElement(atom.Div)
		dom.Append(div, dom.Children(item)...)
		dom.InsertBefore(list, div)
	}
	dom.Detach(list)
}
