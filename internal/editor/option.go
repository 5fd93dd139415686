package editor

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/starford/inkwell/internal/caret"
	"github.com/starford/inkwell/internal/command"
	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/format"
)

// CommanderFactory builds the built-in command capability for a document.
type CommanderFactory func(root *html.Node, sel dom.Selection) command.Commander

type options struct {
	sched     caret.Scheduler
	sink      format.Sink
	initial   *format.Attributes
	logger    *slog.Logger
	commander CommanderFactory
	styles    dom.StyleResolver
}

// Option configures an Editor.
type Option func(*options)

// WithScheduler runs deferred caret relocation on s instead of the built-in
// queue.
func WithScheduler(s caret.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithSink receives formatting changes.
func WithSink(s format.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithInitialFormatting seeds the last reported formatting.
func WithInitialFormatting(a format.Attributes) Option {
	return func(o *options) { o.initial = &a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCommander replaces the headless built-in commands.
func WithCommander(f CommanderFactory) Option {
	return func(o *options) { o.commander = f }
}

// WithStyles replaces the default style cascade.
func WithStyles(r dom.StyleResolver) Option {
	return func(o *options) { o.styles = r }
}
