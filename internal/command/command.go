// Package command names the built-in rich-text editing primitives and the
// capability interface that executes and queries them.
package command

// Built-in command names.
const (
	Bold                = "bold"
	Italic              = "italic"
	Underline           = "underline"
	StrikeThrough       = "strikeThrough"
	Subscript           = "subscript"
	Superscript         = "superscript"
	InsertOrderedList   = "insertOrderedList"
	InsertUnorderedList = "insertUnorderedList"
	FontName            = "fontName"
	FontSize            = "fontSize"
	ForeColor           = "foreColor"
	BackColor           = "backColor"
	HiliteColor         = "hiliteColor"
	FormatBlock         = "formatBlock"
	JustifyLeft         = "justifyLeft"
	JustifyCenter       = "justifyCenter"
	JustifyRight        = "justifyRight"
	JustifyFull         = "justifyFull"
	CreateLink          = "createLink"
	Unlink              = "unlink"
	RemoveFormat        = "removeFormat"
)

// StateCommands are the commands whose state is part of a point query.
var StateCommands = []string{
	Bold, Italic, Underline, StrikeThrough, Subscript, Superscript,
	InsertOrderedList, InsertUnorderedList,
}

// ValueCommands are the commands whose value is part of a point query.
var ValueCommands = []string{FontName, FontSize, ForeColor, BackColor, FormatBlock}

// JustifyCommands lists the justification state queries in priority order.
var JustifyCommands = []string{JustifyLeft, JustifyCenter, JustifyRight, JustifyFull}

// Commander executes and queries built-in commands against the current
// selection.
type Commander interface {
	Exec(name, arg string) error
	QueryState(name string) bool
	QueryValue(name string) string
}
