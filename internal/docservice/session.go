package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/editor"
	"github.com/starford/inkwell/internal/format"
	"github.com/starford/inkwell/internal/lists"
	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/storage"
)

// Point addresses a boundary point by child-index path below the document
// root and an offset into the addressed node.
type Point struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

// Selection is a range of two points. A nil End is a caret at Start.
type Selection struct {
	Start Point  `json:"start"`
	End   *Point `json:"end,omitempty"`
}

// FormattingState is the formatting of a document's selection. Live is false
// when no selection is active and the last reported snapshot is returned.
type FormattingState struct {
	Formatting format.Attributes `json:"formatting"`
	Live       bool              `json:"live"`
}

// EditResult describes a document after an editing operation.
type EditResult struct {
	Path       string             `json:"path"`
	Checksum   string             `json:"checksum"`
	Content    string             `json:"content"`
	Selection  *Selection         `json:"selection,omitempty"`
	Formatting *format.Attributes `json:"formatting,omitempty"`
}

// session is an open document held by one editor. Only the loop touches it.
type session struct {
	path     string
	header   string
	editor   *editor.Editor
	checksum string
	lastUsed time.Time
}

// SetSelection places the selection in a document and returns the
// formatting under it.
func (s *Service) SetSelection(ctx context.Context, path string, sel Selection) (*FormattingState, error) {
	var st *FormattingState
	err := s.withSession(ctx, path, func(sess *session) error {
		r, err := toRange(sess.editor, sel)
		if err != nil {
			return err
		}
		if err := sess.editor.SetSelection(r); err != nil {
			return fmt.Errorf("docservice: %w: %w", apperr.ErrInvalidArgument, err)
		}
		st, err = s.formatting(sess)
		return err
	})
	return st, err
}

// GetSelection returns the active selection of a document.
func (s *Service) GetSelection(ctx context.Context, path string) (*Selection, error) {
	var out *Selection
	err := s.withSession(ctx, path, func(sess *session) error {
		out = fromEditor(sess.editor)
		if out == nil {
			return apperr.ErrNoSelection
		}
		return nil
	})
	return out, err
}

// ClearSelection drops the selection of a document.
func (s *Service) ClearSelection(ctx context.Context, path string) error {
	return s.withSession(ctx, path, func(sess *session) error {
		sess.editor.ClearSelection()
		return nil
	})
}

// Formatting returns the formatting of the document's selection, or the
// last reported snapshot when no selection is active.
func (s *Service) Formatting(ctx context.Context, path string) (*FormattingState, error) {
	var st *FormattingState
	err := s.withSession(ctx, path, func(sess *session) error {
		var err error
		st, err = s.formatting(sess)
		return err
	})
	return st, err
}

// ExecCommand runs a built-in editing command on the document's selection,
// then stores the document.
func (s *Service) ExecCommand(ctx context.Context, path, name, arg string) (*EditResult, error) {
	err := s.withSession(ctx, path, func(sess *session) error {
		if err := sess.editor.ExecCommandAndReport(name, arg); err != nil {
			return err
		}
		return s.persist(sess)
	})
	if err != nil {
		return nil, err
	}
	return s.result(ctx, path)
}

// ToggleList converts the list item under the selection into or out of a
// list of kind, then stores the document. The returned selection is the
// caret after relocation.
func (s *Service) ToggleList(ctx context.Context, path string, kind lists.Kind) (*EditResult, error) {
	err := s.withSession(ctx, path, func(sess *session) error {
		if _, ok := sess.editor.Selection(); !ok {
			return apperr.ErrNoSelection
		}
		if err := sess.editor.ToggleList(kind); err != nil {
			return err
		}
		return s.persist(sess)
	})
	if err != nil {
		return nil, err
	}
	// Relocation is deferred to the turn after the toggle, so the result is
	// read on a later turn.
	return s.result(ctx, path)
}

// Invalidate discards the session of a document whose stored content no
// longer matches what the session last wrote.
func (s *Service) Invalidate(ctx context.Context, path string) error {
	return s.onLoop(ctx, func() error {
		sess, ok := s.sessions[path]
		if !ok {
			return nil
		}
		data, err := s.store.Read(path)
		if err != nil || storage.Checksum(data) != sess.checksum {
			s.closeSession(path, "changed on disk")
		}
		return nil
	})
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many it closed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	closed := 0
	err := s.onLoop(ctx, func() error {
		cutoff := s.now().Add(-s.idle)
		for path, sess := range s.sessions {
			if sess.lastUsed.Before(cutoff) {
				s.closeSession(path, "idle")
				closed++
			}
		}
		return nil
	})
	return closed, err
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n, err := s.Sweep(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Warn("docservice: sweep failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.logger.Debug("docservice: swept sessions", slog.Int("closed", n))
			}
		}
	}
}

// Sessions returns the number of open sessions.
func (s *Service) Sessions(ctx context.Context) (int, error) {
	n := 0
	err := s.onLoop(ctx, func() error {
		n = len(s.sessions)
		return nil
	})
	return n, err
}

func (s *Service) withSession(ctx context.Context, path string, fn func(*session) error) error {
	return s.onLoop(ctx, func() error {
		sess, err := s.session(path)
		if err != nil {
			return err
		}
		sess.lastUsed = s.now()
		return fn(sess)
	})
}

// session returns the open session for path, opening one if needed.
func (s *Service) session(path string) (*session, error) {
	if sess, ok := s.sessions[path]; ok {
		return sess, nil
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(data); err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(slog.String("document", path))
	opts := []editor.Option{
		editor.WithScheduler(s.loop),
		editor.WithSink(s.sink(path)),
		editor.WithLogger(logger),
	}
	initial, ok, err := s.db.GetFormatting(path)
	if err != nil {
		logger.Warn("docservice: load formatting failed", slog.String("error", err.Error()))
	} else if ok {
		opts = append(opts, editor.WithInitialFormatting(initial))
	}

	ed, err := editor.New(res.Body, opts...)
	if err != nil {
		return nil, err
	}
	sess := &session{
		path:     path,
		header:   res.Header,
		editor:   ed,
		checksum: storage.Checksum(data),
		lastUsed: s.now(),
	}
	s.sessions[path] = sess
	logger.Debug("docservice: session opened")
	return sess, nil
}

func (s *Service) closeSession(path, reason string) {
	if _, ok := s.sessions[path]; !ok {
		return
	}
	delete(s.sessions, path)
	s.logger.Debug("docservice: session closed",
		slog.String("document", path),
		slog.String("reason", reason))
}

// sink stores each reported snapshot and pushes it to subscribers.
func (s *Service) sink(path string) format.Sink {
	return format.SinkFunc(func(a format.Attributes) {
		if err := s.db.SaveFormatting(path, a); err != nil {
			s.logger.Warn("docservice: save formatting failed",
				slog.String("document", path),
				slog.String("error", err.Error()))
		}
		s.pub.PublishFormatting(path, a)
	})
}

func (s *Service) persist(sess *session) error {
	body, err := sess.editor.HTML()
	if err != nil {
		return err
	}
	data := parser.Compose(sess.header, body)
	if err := s.checkSize(data); err != nil {
		return err
	}
	if err := s.write(sess.path, data, "updated"); err != nil {
		return err
	}
	sess.checksum = storage.Checksum(data)
	return nil
}

func (s *Service) formatting(sess *session) (*FormattingState, error) {
	if a, ok := sess.editor.SelectionFormatting(); ok {
		return &FormattingState{Formatting: a, Live: true}, nil
	}
	if a, ok := sess.editor.LastReported(); ok {
		return &FormattingState{Formatting: a}, nil
	}
	return nil, apperr.ErrNoSelection
}

func (s *Service) result(ctx context.Context, path string) (*EditResult, error) {
	var out *EditResult
	err := s.withSession(ctx, path, func(sess *session) error {
		body, err := sess.editor.HTML()
		if err != nil {
			return err
		}
		out = &EditResult{
			Path:      path,
			Checksum:  sess.checksum,
			Content:   string(parser.Compose(sess.header, body)),
			Selection: fromEditor(sess.editor),
		}
		if a, ok := sess.editor.SelectionFormatting(); ok {
			out.Formatting = &a
		}
		return nil
	})
	return out, err
}

func toRange(e *editor.Editor, sel Selection) (dom.Range, error) {
	start, err := e.PositionAt(sel.Start.Path, sel.Start.Offset)
	if err != nil {
		return dom.Range{}, fmt.Errorf("docservice: start: %w: %w", apperr.ErrInvalidArgument, err)
	}
	if sel.End == nil {
		return dom.Caret(start), nil
	}
	end, err := e.PositionAt(sel.End.Path, sel.End.Offset)
	if err != nil {
		return dom.Range{}, fmt.Errorf("docservice: end: %w: %w", apperr.ErrInvalidArgument, err)
	}
	return dom.Range{Start: start, End: end}, nil
}

func fromEditor(e *editor.Editor) *Selection {
	r, ok := e.Selection()
	if !ok {
		return nil
	}
	out := &Selection{Start: Point{Path: e.PathOf(r.Start.Node), Offset: r.Start.Offset}}
	if !r.Collapsed() {
		out.End = &Point{Path: e.PathOf(r.End.Node), Offset: r.End.Offset}
	}
	return out
}
