package format

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/inkwell/internal/dom"
)

// trait is one inline capability resolved from either a semantic tag or a
// style declaration.
type trait struct {
	tags  []atom.Atom
	style func(dom.Style) bool
}

var (
	boldTrait = trait{
		tags:  []atom.Atom{atom.B, atom.Strong},
		style: func(st dom.Style) bool { return fontWeight(st.Get("font-weight")) >= 600 },
	}
	italicTrait = trait{
		tags: []atom.Atom{atom.I, atom.Em},
		style: func(st dom.Style) bool {
			fs := st.Get("font-style")
			return fs == "italic" || fs == "oblique"
		},
	}
	subTrait = trait{
		tags:  []atom.Atom{atom.Sub},
		style: func(st dom.Style) bool { return st.Get("vertical-align") == "sub" },
	}
	supTrait = trait{
		tags:  []atom.Atom{atom.Sup},
		style: func(st dom.Style) bool { return st.Get("vertical-align") == "super" },
	}
)

// Inline is the subset of formatting the normalizer re-serialises.
type Inline struct {
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Color         string
	Background    string
}

// Extractor derives formatting for text leaves.
type Extractor struct {
	styles dom.StyleResolver
}

// NewExtractor creates an extractor reading computed style from styles.
func NewExtractor(styles dom.StyleResolver) *Extractor {
	if styles == nil {
		styles = dom.Cascade{}
	}
	return &Extractor{styles: styles}
}

// Leaf returns the live formatting of a text leaf: semantic tags on any
// ancestor or the computed style decide each flag, decorations accumulate over
// every ancestor up to the root, and black is reported like any other color.
func (e *Extractor) Leaf(leaf *html.Node) Attributes {
	computed := e.styles.ComputedStyle(leaf)
	deco := e.decorations(leaf.Parent, nil)
	return Attributes{
		Bold:          e.has(leaf, computed, boldTrait),
		Italic:        e.has(leaf, computed, italicTrait),
		Underline:     deco["underline"],
		Strikethrough: deco["line-through"],
		Subscript:     e.hasAlign(leaf, subTrait),
		Superscript:   e.hasAlign(leaf, supTrait),
		FontFamily:    computed.Get("font-family"),
		FontSize:      computed.Get("font-size"),
		ForeColor:     e.foreColor(leaf, computed),
		BackColor:     e.backColor(leaf),
	}
}

// Inline returns the formatting a leaf carries inside boundary, used when
// an item's markup is rebuilt. Only declarations between the leaf and
// boundary count and the one closest to the text wins; decorations still
// accumulate. Black text and transparent backgrounds count as no color.
func (e *Extractor) Inline(leaf, boundary *html.Node) Inline {
	var out Inline
	var boldSet, italicSet, colorSet, backgroundSet bool
	for n := leaf.Parent; n != nil && n != boundary; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		own := dom.InlineStyle(n)
		if !boldSet {
			if v, ok := declared(n, own, boldTrait, "font-weight"); ok {
				out.Bold, boldSet = v, true
			}
		}
		if !italicSet {
			if v, ok := declared(n, own, italicTrait, "font-style"); ok {
				out.Italic, italicSet = v, true
			}
		}
		if !colorSet {
			if c := ownColor(n, own); c != "" && !IsBlack(c) {
				out.Color, colorSet = NormalizeColor(c), true
			}
		}
		if !backgroundSet {
			if c := ownBackground(n, own); !IsTransparent(c) {
				out.Background, backgroundSet = NormalizeColor(c), true
			}
		}
	}
	deco := e.decorations(leaf.Parent, boundary)
	out.Underline = deco["underline"]
	out.Strikethrough = deco["line-through"]
	return out
}

// has resolves a trait from the nearest semantic ancestor or the computed
// style of the leaf.
func (e *Extractor) has(leaf *html.Node, computed dom.Style, t trait) bool {
	if dom.Closest(leaf.Parent, dom.IsTag(t.tags...)) != nil {
		return true
	}
	return t.style(computed)
}

// hasAlign resolves vertical-align traits, which do not inherit, from any
// ancestor's computed style.
func (e *Extractor) hasAlign(leaf *html.Node, t trait) bool {
	for n := leaf.Parent; n != nil; n = n.Parent {
		if dom.IsElement(n, t.tags...) || t.style(e.styles.ComputedStyle(n)) {
			return true
		}
	}
	return false
}

// decorations unions the text-decoration tokens of every element from start
// up to (not including) stop.
func (e *Extractor) decorations(start, stop *html.Node) map[string]bool {
	out := map[string]bool{}
	for n := start; n != nil && n != stop; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, tok := range strings.Fields(e.styles.ComputedStyle(n).Get("text-decoration")) {
			if tok != "none" {
				out[tok] = true
			}
		}
	}
	return out
}

// foreColor applies color precedence for the nearest element that declares
// one: color attribute, then inline style. Without any, the computed color.
func (e *Extractor) foreColor(leaf *html.Node, computed dom.Style) string {
	for n := leaf.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if c := ownColor(n, dom.InlineStyle(n)); c != "" {
			return NormalizeColor(c)
		}
	}
	return NormalizeColor(computed.Get("color"))
}

func (e *Extractor) backColor(leaf *html.Node) string {
	for n := leaf.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if c := ownBackground(n, dom.InlineStyle(n)); !IsTransparent(c) {
			return NormalizeColor(c)
		}
		if c := e.styles.ComputedStyle(n).Get("background-color"); !IsTransparent(c) {
			return NormalizeColor(c)
		}
	}
	return TransparentColor
}

func declared(n *html.Node, own dom.Style, t trait, prop string) (bool, bool) {
	if dom.IsElement(n, t.tags...) {
		return true, true
	}
	if _, ok := own[prop]; ok {
		return t.style(own), true
	}
	return false, false
}

func ownColor(n *html.Node, own dom.Style) string {
	if v, ok := dom.Attr(n, "color"); ok && v != "" {
		return v
	}
	return own.Get("color")
}

func ownBackground(n *html.Node, own dom.Style) string {
	if v := own.Get("background-color"); v != "" {
		return v
	}
	if v := own.Get("background"); v != "" {
		return v
	}
	v, _ := dom.Attr(n, "bgcolor")
	return v
}

func fontWeight(v string) int {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "bold", "bolder":
		return 700
	case "", "normal", "lighter":
		return 400
	}
	w, err := strconv.Atoi(v)
	if err != nil {
		return 400
	}
	return w
}
