// Package lists converts a single list item between plain, ordered and
// unordered representations without disturbing its siblings.
package lists

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/inkwell/internal/caret"
	"github.com/starford/inkwell/internal/command"
	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/normalize"
)

// Kind is a list representation.
type Kind int

const (
	Unordered Kind = iota
	Ordered
)

func (k Kind) String() string {
	if k == Ordered {
		return "ordered"
	}
	return "unordered"
}

// Tag returns the list element for k.
func (k Kind) Tag() atom.Atom {
	if k == Ordered {
		return atom.Ol
	}
	return atom.Ul
}

// Command returns the built-in command that inserts a list of kind k.
func (k Kind) Command() string {
	if k == Ordered {
		return command.InsertOrderedList
	}
	return command.InsertUnorderedList
}

// ParseKind maps "ordered"/"ol" and "unordered"/"ul" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ordered", "ol":
		return Ordered, nil
	case "unordered", "ul":
		return Unordered, nil
	}
	return 0, fmt.Errorf("lists: unknown kind %q", s)
}

// KindOf reports the kind of a list element.
func KindOf(list *html.Node) (Kind, bool) {
	switch {
	case dom.IsElement(list, atom.Ol):
		return Ordered, true
	case dom.IsElement(list, atom.Ul):
		return Unordered, true
	}
	return 0, false
}

// Class is where an item sits among its list's children.
type Class int

const (
	Sole Class = iota
	First
	Last
	Middle
)

func (c Class) String() string {
	switch c {
	case Sole:
		return "sole"
	case First:
		return "first"
	case Last:
		return "last"
	}
	return "middle"
}

// Classify places item among the element children of its parent.
func Classify(item *html.Node) Class {
	items := dom.ElementChildren(item.Parent)
	idx := 0
	for i, c := range items {
		if c == item {
			idx = i
			break
		}
	}
	switch {
	case len(items) <= 1:
		return Sole
	case idx == 0:
		return First
	case idx == len(items)-1:
		return Last
	}
	return Middle
}

// Transformer applies list toggles to the item under the selection.
type Transformer struct {
	root    *html.Node
	sel     dom.Selection
	cmd     command.Commander
	tracker *caret.Tracker
	norm    *normalize.Normalizer
	logger  *slog.Logger
}

// New creates a transformer over root.
func New(root *html.Node, sel dom.Selection, cmd command.Commander, tracker *caret.Tracker, norm *normalize.Normalizer, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	if norm == nil {
		norm = normalize.New(nil)
	}
	return &Transformer{root: root, sel: sel, cmd: cmd, tracker: tracker, norm: norm, logger: logger}
}

// Toggle moves the item under the selection into a list of kind, or out of
// its list when it already is one. Without an enclosing item in a known list
// the native insert-list command is used instead. A missing selection is a
// no-op.
func (t *Transformer) Toggle(kind Kind) error {
	r, ok := t.sel.Range()
	if !ok {
		return nil
	}
	item := dom.ClosestWithin(r.Start.Node, t.root, dom.IsTag(atom.Li))
	if item == nil {
		return t.native(kind)
	}
	current, ok := KindOf(item.Parent)
	if !ok {
		return t.native(kind)
	}

	snap, _ := t.tracker.Capture(item)

	var target, content *html.Node
	if current == kind {
		target = dom.NewElement(atom.Div)
		content = target
	} else {
		target = dom.NewElement(kind.Tag())
		content = dom.ShallowClone(item)
		target.AppendChild(content)
	}

	nodes, ok := t.norm.Nodes(item)
	if !ok {
		nodes = dom.Children(item)
	}
	dom.Append(content, nodes...)

	class := Classify(item)
	Split(item, target)
	t.logger.Debug("lists: toggled item",
		slog.String("kind", kind.String()),
		slog.String("position", class.String()),
		slog.Bool("removed", current == kind))

	t.tracker.Place(snap, content)
	t.tracker.ScheduleRelocate(snap, content)
	return nil
}

func (t *Transformer) native(kind Kind) error {
	if err := t.cmd.Exec(kind.Command(), ""); err != nil {
		return fmt.Errorf("lists: %s: %w", kind.Command(), err)
	}
	return nil
}

// Split puts target where item stands in its list. Siblings before and after
// the item stay in shallow copies of the list; copies that would be empty are
// left out. item is detached.
func Split(item, target *html.Node) {
	list := item.Parent
	switch Classify(item) {
	case Sole:
		dom.Replace(list, target)
		dom.Detach(item)
	case First:
		dom.Detach(item)
		dom.InsertBefore(list, target)
	case Last:
		dom.Detach(item)
		dom.InsertAfter(list, target)
	default:
		before, after := dom.ShallowClone(list), dom.ShallowClone(list)
		for c := list.FirstChild; c != item; {
			next := c.NextSibling
			dom.Append(before, c)
			c = next
		}
		for c := item.NextSibling; c != nil; {
			next := c.NextSibling
			dom.Append(after, c)
			c = next
		}
		dom.Detach(item)
		if len(dom.ElementChildren(before)) > 0 {
			dom.InsertBefore(list, before)
		}
		dom.InsertBefore(list, target)
		if len(dom.ElementChildren(after)) > 0 {
			dom.InsertBefore(list, after)
		}
		dom.Detach(list)
	}
}
