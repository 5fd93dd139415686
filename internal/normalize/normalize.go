// Package normalize rewrites inline markup into a canonical wrapper order.
//
// Every text leaf is re-emitted on its own, wrapped outermost to innermost in
// strong, em, u, s, a color span and a background span, keeping only the
// wrappers whose formatting applies to the leaf. Other structure is dropped.
package normalize

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/format"
)

// Normalizer canonicalises item content.
type Normalizer struct {
	ext *format.Extractor
}

// New creates a normalizer. A nil extractor uses the default cascade.
func New(ext *format.Extractor) *Normalizer {
	if ext == nil {
		ext = format.NewExtractor(nil)
	}
	return &Normalizer{ext: ext}
}

// Normalize returns the canonical form of a markup fragment. Fragments
// without text are returned unchanged.
func (n *Normalizer) Normalize(markup string) (string, error) {
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		return "", err
	}
	container := dom.NewElement(atom.Div)
	dom.Append(container, nodes...)

	out, ok := n.Nodes(container)
	if !ok {
		return markup, nil
	}
	return dom.Render(out...)
}

// Nodes builds detached canonical nodes for the content of container. The
// formatting walk for each leaf stops at container. It reports false when
// container holds no text, in which case the caller keeps the content as is.
// container is not modified.
func (n *Normalizer) Nodes(container *html.Node) ([]*html.Node, bool) {
	var out []*html.Node
	for _, leaf := range dom.TextLeaves(container) {
		if leaf.Data == "" {
			continue
		}
		out = append(out, wrap(leaf.Data, n.ext.Inline(leaf, container)))
	}
	return out, len(out) > 0
}

func wrap(text string, in format.Inline) *html.Node {
	node := dom.NewText(text)
	if in.Background != "" {
		node = enclose(node, atom.Span, "background-color: "+in.Background+";")
	}
	if in.Color != "" {
		node = enclose(node, atom.Span, "color: "+in.Color+";")
	}
	if in.Strikethrough {
		node = enclose(node, atom.S, "")
	}
	if in.Underline {
		node = enclose(node, atom.U, "")
	}
	if in.Italic {
		node = enclose(node, atom.Em, "")
	}
	if in.Bold {
		node = enclose(node, atom.Strong, "")
	}
	return node
}

func enclose(child *html.Node, tag atom.Atom, style string) *html.Node {
	el := dom.NewElement(tag)
	if style != "" {
		dom.SetAttr(el, "style", style)
	}
	el.AppendChild(child)
	return el
}
