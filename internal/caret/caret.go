// Package caret captures a caret as a plain-text offset within an anchor
// element and places an equivalent caret after the anchor's content has been
// rebuilt.
package caret

import (
	"log/slog"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/starford/inkwell/internal/dom"
)

// Scheduler runs tasks on a later turn of the editing loop.
type Scheduler interface {
	Defer(task func())
}

// Snapshot is a caret captured relative to an anchor's text content.
type Snapshot struct {
	Anchor *html.Node
	Offset int
	Range  dom.Range
}

// Tracker captures and relocates carets for one selection.
type Tracker struct {
	sel    dom.Selection
	sched  Scheduler
	logger *slog.Logger
}

// NewTracker creates a tracker.
func NewTracker(sel dom.Selection, sched Scheduler, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{sel: sel, sched: sched, logger: logger}
}

// Capture records the end of the active range as an offset into anchor's
// text. It returns false when there is no active range.
func (t *Tracker) Capture(anchor *html.Node) (*Snapshot, bool) {
	r, ok := t.sel.Range()
	if !ok {
		return nil, false
	}
	return &Snapshot{
		Anchor: anchor,
		Offset: dom.TextOffset(anchor, r.End),
		Range:  r.Clone(),
	}, true
}

// Relocate places a collapsed caret in anchor at the snapshot's offset. When
// anchor has too little text the caret goes to the end of anchor. Failures
// are logged and dropped: caret placement is best-effort.
func (t *Tracker) Relocate(s *Snapshot, anchor *html.Node) {
	if s == nil || anchor == nil {
		return
	}
	err := t.sel.SetRange(dom.Caret(locate(anchor, s.Offset)))
	if err == nil {
		return
	}
	t.logger.Debug("caret: relocate failed, placing at end",
		slog.Int("offset", s.Offset),
		slog.String("error", err.Error()))
	end := dom.Position{Node: anchor, Offset: dom.Len(anchor)}
	if err := t.sel.SetRange(dom.Caret(end)); err != nil {
		t.logger.Debug("caret: end placement failed", slog.String("error", err.Error()))
	}
}

// Place sets a provisional caret in anchor at the snapshot's offset right
// away, so the selection stays in the live tree until a scheduled relocation
// runs. Failures are logged and dropped.
func (t *Tracker) Place(s *Snapshot, anchor *html.Node) {
	if s == nil || anchor == nil {
		return
	}
	if err := t.sel.SetRange(dom.Caret(locate(anchor, s.Offset))); err != nil {
		t.logger.Debug("caret: provisional placement failed", slog.String("error", err.Error()))
	}
}

// ScheduleRelocate defers Relocate to the scheduler's next turn. The task
// cannot be cancelled; a stale anchor falls through to end placement.
func (t *Tracker) ScheduleRelocate(s *Snapshot, anchor *html.Node) {
	if s == nil {
		return
	}
	t.sched.Defer(func() { t.Relocate(s, anchor) })
}

func locate(anchor *html.Node, offset int) dom.Position {
	cum := 0
	for _, leaf := range dom.TextLeaves(anchor) {
		n := utf8.RuneCountInString(leaf.Data)
		if offset <= cum+n {
			return dom.Position{Node: leaf, Offset: min(max(offset-cum, 0), n)}
		}
		cum += n
	}
	return dom.Position{Node: anchor, Offset: dom.Len(anchor)}
}
