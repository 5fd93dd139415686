package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/inkwell/internal/command"
	"github.com/starford/inkwell/internal/dom"
)

type fakeCommander struct {
	states  map[string]bool
	values  map[string]string
	queried []string
}

func (f *fakeCommander) Exec(string, string) error { return nil }

func (f *fakeCommander) QueryState(name string) bool { return f.states[name] }

func (f *fakeCommander) QueryValue(name string) string {
	f.queried = append(f.queried, name)
	return f.values[name]
}

type recordingSink struct {
	got []Attributes
}

func (s *recordingSink) OnSelectionFormattingChanged(a Attributes) {
	s.got = append(s.got, a)
}

func TestReduceRules(t *testing.T) {
	tests := []struct {
		description string
		leaves      []Attributes
		want        Attributes
	}{
		{
			description: "no leaves",
			want:        Attributes{},
		},
		{
			description: "agreement keeps values",
			leaves: []Attributes{
				{Bold: true, ForeColor: "#ff0000", FontSize: "12px"},
				{Bold: true, ForeColor: "#ff0000", FontSize: "12px"},
			},
			want: Attributes{Bold: true, ForeColor: "#ff0000", FontSize: "12px"},
		},
		{
			description: "boolean disagreement is false",
			leaves:      []Attributes{{Bold: true, Italic: true}, {Bold: false, Italic: true}},
			want:        Attributes{Italic: true},
		},
		{
			description: "color disagreement is neutral",
			leaves: []Attributes{
				{ForeColor: "red", BackColor: "#ffff00"},
				{ForeColor: "blue", BackColor: "#00ffff"},
			},
			want: Attributes{ForeColor: NeutralForeColor, BackColor: TransparentColor},
		},
		{
			description: "other values fall back to the first leaf",
			leaves: []Attributes{
				{FontSize: "12px", FontFamily: "serif", BlockType: "p"},
				{FontSize: "20px", FontFamily: "mono", BlockType: "li"},
				{FontSize: "12px", FontFamily: "serif", BlockType: "p"},
			},
			want: Attributes{FontSize: "12px", FontFamily: "serif", BlockType: "p"},
		},
		{
			description: "fields reduce independently",
			leaves: []Attributes{
				{Bold: true, ForeColor: "red", FontSize: "12px"},
				{Bold: true, ForeColor: "red", FontSize: "14px", Underline: true},
				{Bold: true, ForeColor: "red", FontSize: "16px"},
			},
			want: Attributes{Bold: true, ForeColor: "red", FontSize: "12px"},
		},
	}
	for _, tc := range tests {
		got := Reduce(tc.leaves)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("(%s) mismatch (-want +got):\n%s", tc.description, diff)
		}
	}
}

func TestComputeRangeInsideBoldItalicListItem(t *testing.T) {
	root, leaves := leavesOf(t, `<ul><li>x <b><i>bold italic run</i></b> y</li></ul>`)
	sel := dom.NewSelection(root)
	run := leaves[1]
	if err := sel.SetRange(dom.Range{Start: dom.Position{Node: run, Offset: 2}, End: dom.Position{Node: run, Offset: 8}}); err != nil {
		t.Fatal(err)
	}
	ag := NewAggregator(sel, &fakeCommander{}, NewExtractor(nil), nil)

	got, ok := ag.Compute()
	if !ok {
		t.Fatal("expected an active selection")
	}
	if !got.Bold || !got.Italic || !got.UnorderedList || got.OrderedList {
		t.Errorf("formatting = %+v, want bold, italic, unordered list", got)
	}
	if got.Underline || got.Strikethrough || got.Link {
		t.Errorf("formatting = %+v, unexpected flags", got)
	}
}

func TestComputeRangeSkipsBlankAndOutsideLeaves(t *testing.T) {
	root, leaves := leavesOf(t, `<p><b>bold</b> <span style="color: #ff0000">red</span></p><p><i>outside</i></p>`)
	sel := dom.NewSelection(root)
	// From inside "bold" to the end of "red": the blank leaf between them
	// and the italic leaf after must not contribute.
	r := dom.Range{Start: dom.Position{Node: leaves[0], Offset: 1}, End: dom.Position{Node: leaves[2], Offset: 3}}
	if err := sel.SetRange(r); err != nil {
		t.Fatal(err)
	}
	got, _ := NewAggregator(sel, &fakeCommander{}, NewExtractor(nil), nil).Compute()
	if got.Bold {
		t.Error("bold must not be uniform across bold and plain leaves")
	}
	if got.Italic {
		t.Error("leaf outside the range contributed")
	}
	if got.ForeColor != NeutralForeColor {
		t.Errorf("foreColor = %q, want %q", got.ForeColor, NeutralForeColor)
	}
}

func TestComputeCaretUsesPointQueries(t *testing.T) {
	root, leaves := leavesOf(t, `<p><a href="#">link</a></p>`)
	sel := dom.NewSelection(root)
	if err := sel.SetRange(dom.Caret(dom.Position{Node: leaves[0], Offset: 2})); err != nil {
		t.Fatal(err)
	}
	cmd := &fakeCommander{
		states: map[string]bool{
			command.Bold:          true,
			command.JustifyCenter: true,
			command.JustifyRight:  true,
		},
		values: map[string]string{
			command.FontName:    "serif",
			command.FormatBlock: "p",
		},
	}
	got, _ := NewAggregator(sel, cmd, NewExtractor(nil), nil).Compute()
	want := Attributes{Bold: true, Link: true, FontFamily: "serif", BlockType: "p", Justify: JustifyCenter}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("point query mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(command.ValueCommands, cmd.queried); diff != "" {
		t.Errorf("value queries mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeRangeNamedAndHexColorsAgree(t *testing.T) {
	root, leaves := leavesOf(t, `<p><span style="color: red">a</span><span style="color: #f00">b</span><font color="rgb(255, 0, 0)">c</font></p>`)
	sel := dom.NewSelection(root)
	r := dom.Range{Start: dom.Position{Node: leaves[0], Offset: 0}, End: dom.Position{Node: leaves[2], Offset: 1}}
	if err := sel.SetRange(r); err != nil {
		t.Fatal(err)
	}
	got, _ := NewAggregator(sel, &fakeCommander{}, NewExtractor(nil), nil).Compute()
	if got.ForeColor != "#ff0000" {
		t.Errorf("foreColor = %q, want #ff0000", got.ForeColor)
	}
}

func TestReportIfChangedSuppressesRepeats(t *testing.T) {
	root, leaves := leavesOf(t, `<p><b>a</b>b</p>`)
	sel := dom.NewSelection(root)
	sink := &recordingSink{}
	ag := NewAggregator(sel, &fakeCommander{}, NewExtractor(nil), sink)

	if ag.ReportIfChanged() {
		t.Fatal("no selection must not report")
	}

	_ = sel.SetRange(dom.Range{Start: dom.Position{Node: leaves[0], Offset: 0}, End: dom.Position{Node: leaves[0], Offset: 1}})
	ag.ReportIfChanged()
	ag.ReportIfChanged()
	if len(sink.got) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(sink.got))
	}

	_ = sel.SetRange(dom.Range{Start: dom.Position{Node: leaves[1], Offset: 0}, End: dom.Position{Node: leaves[1], Offset: 1}})
	ag.ReportIfChanged()
	if len(sink.got) != 2 || sink.got[1].Bold {
		t.Fatalf("sink = %+v, want a second non-bold report", sink.got)
	}

	ag.Reset()
	ag.ReportIfChanged()
	if len(sink.got) != 3 {
		t.Errorf("sink calls after reset = %d, want 3", len(sink.got))
	}
}

func TestWithInitialSuppressesFirstReport(t *testing.T) {
	root, leaves := leavesOf(t, `<p>a</p>`)
	sel := dom.NewSelection(root)
	_ = sel.SetRange(dom.Range{Start: dom.Position{Node: leaves[0], Offset: 0}, End: dom.Position{Node: leaves[0], Offset: 1}})
	ext := NewExtractor(nil)

	initial, _ := NewAggregator(sel, &fakeCommander{}, ext, nil).Compute()
	sink := &recordingSink{}
	ag := NewAggregator(sel, &fakeCommander{}, ext, sink, WithInitial(initial))
	if ag.ReportIfChanged() || len(sink.got) != 0 {
		t.Error("snapshot equal to the injected state must not be reported")
	}
}
