package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/starford/inkwell/internal/dom"
)

func leavesOf(t *testing.T, markup string) (*html.Node, []*html.Node) {
	t.Helper()
	root, err := dom.NewRoot(markup)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	return root, dom.TextLeaves(root)
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"rgb(255, 0, 0)", "#ff0000"},
		{"RGB(0,128,255)", "#0080ff"},
		{"rgba(10, 20, 30, 0.5)", "#0a141e"},
		{"rgba(0, 0, 0, 0)", TransparentColor},
		{"#ABC", "#aabbcc"},
		{"#00ff00", "#00ff00"},
		{"transparent", TransparentColor},
		{"red", "#ff0000"},
		{" Navy ", "#000080"},
		{"rebeccapurple", "rebeccapurple"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeColor(tc.in); got != tc.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsBlack(t *testing.T) {
	for _, c := range []string{"rgb(0,0,0)", "rgb(0, 0, 0)", "#000000", "#000", "black", "BLACK"} {
		if !IsBlack(c) {
			t.Errorf("IsBlack(%q) = false", c)
		}
	}
	if IsBlack("#010101") {
		t.Error("near-black must not count as black")
	}
}

func TestLeafSemanticAndComputed(t *testing.T) {
	_, leaves := leavesOf(t, `<p><b><i>a</i></b><span style="font-weight: 600; font-style: oblique">b</span><span style="font-weight: 500">c</span></p>`)
	ext := NewExtractor(nil)

	a := ext.Leaf(leaves[0])
	if !a.Bold || !a.Italic {
		t.Errorf("semantic leaf = %+v, want bold and italic", a)
	}
	b := ext.Leaf(leaves[1])
	if !b.Bold || !b.Italic {
		t.Errorf("styled leaf = %+v, want bold and italic", b)
	}
	c := ext.Leaf(leaves[2])
	if c.Bold {
		t.Error("font-weight 500 must not count as bold")
	}
}

func TestLeafDecorationsAccumulate(t *testing.T) {
	_, leaves := leavesOf(t, `<div style="text-decoration: line-through"><span style="text-decoration: none"><u>x</u></span></div>`)
	a := NewExtractor(nil).Leaf(leaves[0])
	if !a.Underline || !a.Strikethrough {
		t.Errorf("leaf = %+v, want underline and strikethrough", a)
	}
}

func TestLeafColorPrecedence(t *testing.T) {
	_, leaves := leavesOf(t, `<div style="color: blue"><font color="#00ff00" style="color: red">x</font></div><p>y</p><p><span style="color: rgb(0, 0, 0)">z</span></p>`)
	ext := NewExtractor(nil)
	if got := ext.Leaf(leaves[0]).ForeColor; got != "#00ff00" {
		t.Errorf("attribute color = %q, want #00ff00", got)
	}
	if got := ext.Leaf(leaves[1]).ForeColor; got != "#000000" {
		t.Errorf("computed default color = %q, want #000000", got)
	}
	// Live reporting keeps explicit black.
	if got := ext.Leaf(leaves[2]).ForeColor; got != "#000000" {
		t.Errorf("explicit black = %q, want #000000", got)
	}
	if got := ext.Leaf(leaves[1]).BackColor; got != TransparentColor {
		t.Errorf("background = %q, want transparent", got)
	}
}

func TestInlineClosestWinsWithinBoundary(t *testing.T) {
	root, leaves := leavesOf(t, `<ul style="color: #ff0000"><li><b><span style="font-weight: normal; color: #0000ff">a</span></b><span style="color: black; background-color: #ffff00"><u>b</u></span></li></ul>`)
	li := root.FirstChild.FirstChild
	ext := NewExtractor(nil)

	got := ext.Inline(leaves[0], li)
	want := Inline{Color: "#0000ff"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaf a (-want +got):\n%s", diff)
	}

	got = ext.Inline(leaves[1], li)
	want = Inline{Underline: true, Background: "#ffff00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaf b (-want +got):\n%s", diff)
	}
}

func TestDescribeAugments(t *testing.T) {
	_, leaves := leavesOf(t, `<ol><li style="text-align: justify"><a href="#x">a</a></li></ol><p style="text-align: start">b</p>`)
	ext := NewExtractor(nil)

	a := ext.Describe(leaves[0])
	if !a.OrderedList || a.UnorderedList || !a.Link || a.BlockType != "li" || a.Justify != JustifyFull {
		t.Errorf("describe = %+v", a)
	}
	b := ext.Describe(leaves[1])
	if b.Justify != JustifyLeft || b.BlockType != "p" || b.Link {
		t.Errorf("describe = %+v", b)
	}
}
