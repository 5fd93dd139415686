package format

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/inkwell/internal/command"
	"github.com/starford/inkwell/internal/dom"
)

// Sink receives formatting snapshots that differ from the last one reported.
type Sink interface {
	OnSelectionFormattingChanged(Attributes)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Attributes)

// OnSelectionFormattingChanged implements Sink.
func (f SinkFunc) OnSelectionFormattingChanged(a Attributes) { f(a) }

// Describe returns the full per-leaf formatting used for range queries: the
// extractor's inline formatting plus block type, list membership, link
// membership and justification.
func (e *Extractor) Describe(leaf *html.Node) Attributes {
	a := e.Leaf(leaf)
	if block := dom.Closest(leaf.Parent, dom.IsBlock); block != nil {
		a.BlockType = block.Data
	}
	if list := dom.Closest(leaf.Parent, dom.IsTag(atom.Ol, atom.Ul)); list != nil {
		a.OrderedList = list.DataAtom == atom.Ol
		a.UnorderedList = list.DataAtom == atom.Ul
	}
	a.Link = dom.Closest(leaf.Parent, dom.IsTag(atom.A)) != nil
	a.Justify = justificationOf(e.styles.ComputedStyle(leaf).Get("text-align"))
	return a
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInitial seeds the last reported snapshot, so an identical first
// computation is not reported again.
func WithInitial(a Attributes) Option {
	return func(ag *Aggregator) {
		ag.last = a
		ag.reported = true
	}
}

// WithLogger sets the aggregator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(ag *Aggregator) { ag.logger = l }
}

// Aggregator computes the formatting of the current selection and reports it
// to a Sink when it changes. It lives as long as the editing session.
type Aggregator struct {
	sel      dom.Selection
	cmd      command.Commander
	ext      *Extractor
	sink     Sink
	logger   *slog.Logger
	last     Attributes
	reported bool
}

// NewAggregator creates an aggregator. Point queries go through cmd.
func NewAggregator(sel dom.Selection, cmd command.Commander, ext *Extractor, sink Sink, opts ...Option) *Aggregator {
	ag := &Aggregator{
		sel:    sel,
		cmd:    cmd,
		ext:    ext,
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ag)
	}
	return ag
}

// Last returns the last reported snapshot.
func (ag *Aggregator) Last() (Attributes, bool) {
	return ag.last, ag.reported
}

// Reset forgets the last reported snapshot.
func (ag *Aggregator) Reset() {
	ag.last = Attributes{}
	ag.reported = false
}

// ReportIfChanged computes the current formatting and hands it to the sink
// when it differs from the last report. It returns whether the sink ran.
func (ag *Aggregator) ReportIfChanged() bool {
	cur, ok := ag.Compute()
	if !ok {
		return false
	}
	if ag.reported && cur.Equal(ag.last) {
		return false
	}
	ag.last = cur
	ag.reported = true
	ag.logger.Debug("formatting changed",
		slog.Bool("bold", cur.Bold),
		slog.Bool("italic", cur.Italic),
		slog.String("block", cur.BlockType))
	if ag.sink != nil {
		ag.sink.OnSelectionFormattingChanged(cur)
	}
	return true
}

// Compute returns the formatting of the current selection. ok is false when
// there is no active selection.
func (ag *Aggregator) Compute() (a Attributes, ok bool) {
	r, ok := ag.sel.Range()
	if !ok {
		return Attributes{}, false
	}
	if r.Collapsed() {
		return ag.point(r.Start), true
	}
	return ag.span(r), true
}

// point answers a caret query from the host's command state.
func (ag *Aggregator) point(p dom.Position) Attributes {
	state := make(map[string]bool, len(command.StateCommands))
	for _, name := range command.StateCommands {
		state[name] = ag.cmd.QueryState(name)
	}
	value := make(map[string]string, len(command.ValueCommands))
	for _, name := range command.ValueCommands {
		value[name] = ag.cmd.QueryValue(name)
	}
	a := Attributes{
		Bold:          state[command.Bold],
		Italic:        state[command.Italic],
		Underline:     state[command.Underline],
		Strikethrough: state[command.StrikeThrough],
		Subscript:     state[command.Subscript],
		Superscript:   state[command.Superscript],
		OrderedList:   state[command.InsertOrderedList],
		UnorderedList: state[command.InsertUnorderedList],
		FontFamily:    value[command.FontName],
		FontSize:      value[command.FontSize],
		ForeColor:     value[command.ForeColor],
		BackColor:     value[command.BackColor],
		BlockType:     value[command.FormatBlock],
		Link:          dom.Closest(p.Node, dom.IsTag(atom.A)) != nil,
	}
	for i, name := range command.JustifyCommands {
		if ag.cmd.QueryState(name) {
			a.Justify = []Justification{JustifyLeft, JustifyCenter, JustifyRight, JustifyFull}[i]
			break
		}
	}
	return a
}

// span reduces the formatting of every non-blank leaf the range touches.
func (ag *Aggregator) span(r dom.Range) Attributes {
	common := dom.CommonAncestor(r.Start.Node, r.End.Node)
	var leaves []Attributes
	for _, leaf := range dom.TextLeaves(common) {
		if strings.TrimSpace(leaf.Data) == "" || !r.OverlapsText(leaf) {
			continue
		}
		leaves = append(leaves, ag.ext.Describe(leaf))
	}
	return Reduce(leaves)
}
