package caret

import (
	"errors"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/loop"
)

func setup(t *testing.T, markup string) (*html.Node, *dom.SelectionState) {
	t.Helper()
	root, err := dom.NewRoot(markup)
	if err != nil {
		t.Fatal(err)
	}
	return root, dom.NewSelection(root)
}

func TestCaptureWithoutSelection(t *testing.T) {
	root, sel := setup(t, "<p>abc</p>")
	tr := NewTracker(sel, &loop.Queue{}, nil)
	if s, ok := tr.Capture(root); ok || s != nil {
		t.Error("capture without an active range must report nothing")
	}
}

func TestCaptureAndRelocateAcrossRebuild(t *testing.T) {
	root, sel := setup(t, "<ul><li>ab<b>cd</b>ef</li></ul>")
	li := root.FirstChild.FirstChild
	cd := dom.TextLeaves(li)[1]
	if err := sel.SetRange(dom.Caret(dom.Position{Node: cd, Offset: 1})); err != nil {
		t.Fatal(err)
	}

	q := &loop.Queue{}
	tr := NewTracker(sel, q, nil)
	snap, ok := tr.Capture(li)
	if !ok || snap.Offset != 3 {
		t.Fatalf("snapshot = %+v, want offset 3", snap)
	}

	// Rebuild the item with different leaf boundaries.
	div := dom.NewElement(atom.Div)
	if err := dom.SetInnerHTML(div, "<strong>abc</strong>def"); err != nil {
		t.Fatal(err)
	}
	dom.Replace(root.FirstChild, div)

	tr.ScheduleRelocate(snap, div)
	if _, ok := sel.Range(); ok {
		t.Fatal("range into removed nodes must not stay active before relocation")
	}
	q.Flush()

	r, ok := sel.Range()
	if !ok || !r.Collapsed() {
		t.Fatalf("range = %+v, want a caret", r)
	}
	if r.Start.Node.Data != "abc" || r.Start.Offset != 3 {
		t.Errorf("caret at %q:%d, want \"abc\":3", r.Start.Node.Data, r.Start.Offset)
	}
}

func TestRelocateFallsBackToEnd(t *testing.T) {
	root, sel := setup(t, "<p>abcdef</p><div>ab</div>")
	p := root.FirstChild
	if err := sel.SetRange(dom.Caret(dom.Position{Node: p.FirstChild, Offset: 5})); err != nil {
		t.Fatal(err)
	}
	tr := NewTracker(sel, &loop.Queue{}, nil)
	snap, _ := tr.Capture(p)

	div := p.NextSibling
	tr.Relocate(snap, div)
	r, _ := sel.Range()
	if r.Start.Node != div || r.Start.Offset != 1 {
		t.Errorf("caret = %+v, want end of the shorter anchor", r.Start)
	}

	empty := dom.NewElement(atom.Div)
	root.AppendChild(empty)
	tr.Relocate(snap, empty)
	r, _ = sel.Range()
	if r.Start.Node != empty || r.Start.Offset != 0 {
		t.Errorf("caret = %+v, want end of empty anchor", r.Start)
	}
}

type rejectingSelection struct {
	calls int
}

func (s *rejectingSelection) Range() (dom.Range, bool) { return dom.Range{}, false }

func (s *rejectingSelection) SetRange(dom.Range) error {
	s.calls++
	return errors.New("rejected")
}

func TestRelocateSwallowsErrors(t *testing.T) {
	sel := &rejectingSelection{}
	tr := NewTracker(sel, &loop.Queue{}, nil)
	tr.Relocate(&Snapshot{Offset: 2}, dom.NewElement(atom.Div))
	if sel.calls != 2 {
		t.Errorf("SetRange calls = %d, want offset attempt plus end fallback", sel.calls)
	}
}

func TestPlaceSetsCaretImmediately(t *testing.T) {
	root, sel := setup(t, "<p>ab<i>cd</i></p><div><b>abcd</b></div>")
	p := root.FirstChild
	cd := dom.TextLeaves(p)[1]
	if err := sel.SetRange(dom.Caret(dom.Position{Node: cd, Offset: 1})); err != nil {
		t.Fatal(err)
	}
	q := &loop.Queue{}
	tr := NewTracker(sel, q, nil)
	snap, _ := tr.Capture(p)

	div := p.NextSibling
	tr.Place(snap, div)
	if q.Pending() != 0 {
		t.Error("Place must not schedule work")
	}
	r, ok := sel.Range()
	if !ok || r.Start.Node.Data != "abcd" || r.Start.Offset != 3 {
		t.Errorf("caret = %+v, want \"abcd\":3", r.Start)
	}
}
