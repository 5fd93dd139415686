package dom

import (
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Root values of the cascade.
const (
	DefaultColor      = "rgb(0, 0, 0)"
	DefaultBackground = "rgba(0, 0, 0, 0)"
	DefaultFontFamily = "serif"
	DefaultFontSize   = "16px"
)

// Style is a set of CSS declarations keyed by lower-case property name.
type Style map[string]string

// Get returns the value of prop or "".
func (s Style) Get(prop string) string {
	return s[prop]
}

// String serialises the declarations in property order.
func (s Style) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(s[k])
		b.WriteByte(';')
	}
	return b.String()
}

// ParseInlineStyle parses the contents of a style attribute.
func ParseInlineStyle(decl string) Style {
	st := Style{}
	if strings.TrimSpace(decl) == "" {
		return st
	}
	p := css.NewParser(parse.NewInputString(decl), true)
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			return st
		case css.DeclarationGrammar:
			st[strings.ToLower(string(data))] = joinValues(p.Values())
		}
	}
}

// joinValues rebuilds a declaration value from its tokens, keeping adjacent
// words apart even when the tokenizer dropped the whitespace between them.
func joinValues(vals []css.Token) string {
	var b strings.Builder
	prevWord := false
	for _, v := range vals {
		word := isWordToken(v.TokenType)
		if word && prevWord {
			b.WriteByte(' ')
		}
		b.Write(v.Data)
		prevWord = word
	}
	return strings.TrimSpace(b.String())
}

func isWordToken(tt css.TokenType) bool {
	switch tt {
	case css.IdentToken, css.NumberToken, css.DimensionToken, css.PercentageToken,
		css.HashToken, css.StringToken:
		return true
	}
	return false
}

// InlineStyle returns the parsed style attribute of n.
func InlineStyle(n *html.Node) Style {
	v, _ := Attr(n, "style")
	return ParseInlineStyle(v)
}

// SetStyleProperty sets one declaration in n's style attribute.
func SetStyleProperty(n *html.Node, prop, val string) {
	st := InlineStyle(n)
	st[prop] = val
	SetAttr(n, "style", st.String())
}

// RemoveStyleProperty deletes one declaration from n's style attribute and
// drops the attribute when it becomes empty.
func RemoveStyleProperty(n *html.Node, prop string) {
	st := InlineStyle(n)
	if _, ok := st[prop]; !ok {
		return
	}
	delete(st, prop)
	if len(st) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", st.String())
}

// StyleResolver resolves the computed style of a node.
type StyleResolver interface {
	ComputedStyle(n *html.Node) Style
}

var inherited = []string{"color", "font-family", "font-size", "font-weight", "font-style", "text-align"}

// tagDefaults are the user-agent declarations the cascade applies per tag.
var tagDefaults = map[atom.Atom]Style{
	atom.B:      {"font-weight": "700"},
	atom.Strong: {"font-weight": "700"},
	atom.H1:     {"font-weight": "700", "font-size": "32px"},
	atom.H2:     {"font-weight": "700", "font-size": "24px"},
	atom.H3:     {"font-weight": "700", "font-size": "18.72px"},
	atom.I:      {"font-style": "italic"},
	atom.Em:     {"font-style": "italic"},
	atom.U:      {"text-decoration": "underline"},
	atom.S:      {"text-decoration": "line-through"},
	atom.Strike: {"text-decoration": "line-through"},
	atom.Del:    {"text-decoration": "line-through"},
	atom.Sub:    {"vertical-align": "sub"},
	atom.Sup:    {"vertical-align": "super"},
}

// Cascade resolves computed style from tag defaults, presentational
// attributes and inline style attributes. Inherited properties flow down from
// the parent; text-decoration, background-color and vertical-align stay on the
// element that declares them.
type Cascade struct{}

// ComputedStyle implements StyleResolver. A text node resolves to its parent.
func (c Cascade) ComputedStyle(n *html.Node) Style {
	if n == nil {
		return rootStyle()
	}
	if n.Type != html.ElementNode {
		return c.ComputedStyle(n.Parent)
	}
	parent := c.ComputedStyle(n.Parent)
	st := Style{
		"text-decoration":  "none",
		"background-color": DefaultBackground,
		"vertical-align":   "baseline",
	}
	for _, p := range inherited {
		st[p] = parent[p]
	}
	for k, v := range tagDefaults[n.DataAtom] {
		st[k] = v
	}
	if n.DataAtom == atom.Font {
		if v, ok := Attr(n, "color"); ok {
			st["color"] = v
		}
		if v, ok := Attr(n, "face"); ok {
			st["font-family"] = v
		}
	}
	if v, ok := Attr(n, "align"); ok && IsBlock(n) {
		st["text-align"] = strings.ToLower(v)
	}
	for k, v := range InlineStyle(n) {
		switch k {
		case "background":
			st["background-color"] = v
		case "text-decoration-line":
			st["text-decoration"] = v
		default:
			st[k] = v
		}
	}
	return st
}

func rootStyle() Style {
	return Style{
		"color":       DefaultColor,
		"font-family": DefaultFontFamily,
		"font-size":   DefaultFontSize,
		"font-weight": "400",
		"font-style":  "normal",
		"text-align":  "start",
	}
}
