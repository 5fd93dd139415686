// Package editor is the outbound surface of the editing core: list
// conversion, command execution with a trailing formatting report, and
// selection tracking over one document tree.
//
// An Editor is not safe for concurrent use. Hosts serialise calls on one
// goroutine (see internal/loop) and hand the same loop in as the Scheduler.
package editor

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/starford/inkwell/internal/caret"
	"github.com/starford/inkwell/internal/command"
	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/format"
	"github.com/starford/inkwell/internal/lists"
	"github.com/starford/inkwell/internal/loop"
	"github.com/starford/inkwell/internal/native"
	"github.com/starford/inkwell/internal/normalize"
)

// Editor edits one document.
type Editor struct {
	root   *html.Node
	sel    *trackedSelection
	queue  *loop.Queue
	cmd    command.Commander
	ext    *format.Extractor
	agg    *format.Aggregator
	lists  *lists.Transformer
	logger *slog.Logger
}

// New parses markup into a fresh document and wires the editing core.
func New(markup string, opts ...Option) (*Editor, error) {
	root, err := dom.NewRoot(markup)
	if err != nil {
		return nil, err
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Editor{root: root, logger: o.logger}
	e.sel = &trackedSelection{SelectionState: dom.NewSelection(root)}
	e.ext = format.NewExtractor(o.styles)

	sched := o.sched
	if sched == nil {
		e.queue = &loop.Queue{}
		sched = e.queue
	}

	e.cmd = native.New(root, e.sel, e.ext)
	if o.commander != nil {
		e.cmd = o.commander(root, e.sel)
	}

	aggOpts := []format.Option{format.WithLogger(o.logger)}
	if o.initial != nil {
		aggOpts = append(aggOpts, format.WithInitial(*o.initial))
	}
	e.agg = format.NewAggregator(e.sel, e.cmd, e.ext, o.sink, aggOpts...)

	tracker := caret.NewTracker(e.sel, sched, o.logger)
	e.lists = lists.New(root, e.sel, e.cmd, tracker, normalize.New(e.ext), o.logger)

	e.sel.changed = func() { e.agg.ReportIfChanged() }
	return e, nil
}

// Root returns the document root. Its children are the document content.
func (e *Editor) Root() *html.Node {
	return e.root
}

// HTML serialises the document content.
func (e *Editor) HTML() (string, error) {
	return dom.InnerHTML(e.root)
}

// SetHTML replaces the document content. The selection is cleared and the
// formatting history forgotten.
func (e *Editor) SetHTML(markup string) error {
	if err := dom.SetInnerHTML(e.root, markup); err != nil {
		return err
	}
	e.sel.Clear()
	e.agg.Reset()
	return nil
}

// Selection returns the active range.
func (e *Editor) Selection() (dom.Range, bool) {
	return e.sel.Range()
}

// SetSelection replaces the active range and reports the formatting under it
// if that changed.
func (e *Editor) SetSelection(r dom.Range) error {
	return e.sel.SetRange(r)
}

// PositionAt resolves a child-index path below the root and an offset into a
// boundary point.
func (e *Editor) PositionAt(path []int, offset int) (dom.Position, error) {
	n := dom.Resolve(e.root, path)
	if n == nil {
		return dom.Position{}, fmt.Errorf("editor: path %v: %w", path, dom.ErrInvalidPosition)
	}
	return dom.Position{Node: n, Offset: offset}, nil
}

// PathOf is the inverse of PositionAt's path lookup.
func (e *Editor) PathOf(n *html.Node) []int {
	return dom.Path(e.root, n)
}

// ClearSelection drops the active range.
func (e *Editor) ClearSelection() {
	e.sel.Clear()
}

// ConvertSelectionToOrderedList toggles the item under the selection into or
// out of an ordered list.
func (e *Editor) ConvertSelectionToOrderedList() error {
	return e.toggle(lists.Ordered)
}

// ConvertSelectionToUnorderedList toggles the item under the selection into
// or out of an unordered list.
func (e *Editor) ConvertSelectionToUnorderedList() error {
	return e.toggle(lists.Unordered)
}

// ToggleList toggles the item under the selection for kind.
func (e *Editor) ToggleList(kind lists.Kind) error {
	return e.toggle(kind)
}

func (e *Editor) toggle(kind lists.Kind) error {
	var err error
	e.sel.quietly(func() { err = e.lists.Toggle(kind) })
	e.agg.ReportIfChanged()
	return err
}

// ExecCommandAndReport runs a built-in command and then reports the
// formatting once.
func (e *Editor) ExecCommandAndReport(name, arg string) error {
	var err error
	e.sel.quietly(func() { err = e.cmd.Exec(name, arg) })
	e.agg.ReportIfChanged()
	if err != nil {
		e.logger.Debug("editor: command failed",
			slog.String("command", name),
			slog.String("error", err.Error()))
	}
	return err
}

// SelectionFormatting computes the formatting of the current selection
// without reporting it.
func (e *Editor) SelectionFormatting() (format.Attributes, bool) {
	return e.agg.Compute()
}

// ReportFormatting reports the current formatting if it changed.
func (e *Editor) ReportFormatting() bool {
	return e.agg.ReportIfChanged()
}

// LastReported returns the last formatting handed to the sink.
func (e *Editor) LastReported() (format.Attributes, bool) {
	return e.agg.Last()
}

// ResetFormatting forgets the last reported formatting so the next report
// always reaches the sink.
func (e *Editor) ResetFormatting() {
	e.agg.Reset()
}

// Flush runs deferred work queued on the built-in scheduler. Editors created
// with WithScheduler leave deferred work to that scheduler and Flush does
// nothing.
func (e *Editor) Flush() {
	if e.queue != nil {
		e.queue.Flush()
	}
}

// trackedSelection reports selection changes the way a host reports
// selectionchange events, except while an editing operation is running.
type trackedSelection struct {
	*dom.SelectionState
	quiet   int
	changed func()
}

func (s *trackedSelection) SetRange(r dom.Range) error {
	if err := s.SelectionState.SetRange(r); err != nil {
		return err
	}
	if s.quiet == 0 && s.changed != nil {
		s.changed()
	}
	return nil
}

func (s *trackedSelection) quietly(fn func()) {
	s.quiet++
	defer func() { s.quiet-- }()
	fn()
}
