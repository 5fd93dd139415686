// Package format derives inline formatting from the document tree and reduces
// a selection's formatting to one canonical snapshot.
package format

// Justification is the horizontal alignment of a block.
type Justification string

// Justification values. JustifyUnset means no justify state was set.
const (
	JustifyUnset  Justification = ""
	JustifyLeft   Justification = "left"
	JustifyCenter Justification = "center"
	JustifyRight  Justification = "right"
	JustifyFull   Justification = "full"
)

// Values reported for color fields the contributing leaves disagree on.
const (
	NeutralForeColor = "rgb(0,0,0)"
	TransparentColor = "rgba(0,0,0,0)"
)

// Attributes is the formatting of a leaf or of a whole selection.
type Attributes struct {
	Bold          bool          `json:"hasBold"`
	Italic        bool          `json:"hasItalic"`
	Underline     bool          `json:"hasUnderline"`
	Strikethrough bool          `json:"hasStrikethrough"`
	Subscript     bool          `json:"hasSubscript"`
	Superscript   bool          `json:"hasSuperscript"`
	OrderedList   bool          `json:"hasOrderedList"`
	UnorderedList bool          `json:"hasUnorderedList"`
	Link          bool          `json:"hasLink"`
	FontFamily    string        `json:"fontName"`
	FontSize      string        `json:"fontSize"`
	ForeColor     string        `json:"foreColor"`
	BackColor     string        `json:"backColor"`
	BlockType     string        `json:"blockType"`
	Justify       Justification `json:"justify"`
}

// Equal compares two snapshots field by field.
func (a Attributes) Equal(b Attributes) bool {
	return a == b
}

// Reduce folds per-leaf formatting into one snapshot. Fields are reduced
// independently: agreement keeps the value; disagreement yields false for
// booleans, NeutralForeColor and TransparentColor for the colors, and the
// first leaf's value for every other field.
func Reduce(leaves []Attributes) Attributes {
	if len(leaves) == 0 {
		return Attributes{}
	}
	out := leaves[0]
	first := leaves[0]
	for _, l := range leaves[1:] {
		out.Bold = out.Bold && l.Bold
		out.Italic = out.Italic && l.Italic
		out.Underline = out.Underline && l.Underline
		out.Strikethrough = out.Strikethrough && l.Strikethrough
		out.Subscript = out.Subscript && l.Subscript
		out.Superscript = out.Superscript && l.Superscript
		out.OrderedList = out.OrderedList && l.OrderedList
		out.UnorderedList = out.UnorderedList && l.UnorderedList
		out.Link = out.Link && l.Link
		if l.ForeColor != first.ForeColor {
			out.ForeColor = NeutralForeColor
		}
		if l.BackColor != first.BackColor {
			out.BackColor = TransparentColor
		}
	}
	return out
}

// justificationOf maps a computed text-align value.
func justificationOf(textAlign string) Justification {
	switch textAlign {
	case "justify":
		return JustifyFull
	case "center":
		return JustifyCenter
	case "right":
		return JustifyRight
	}
	return JustifyLeft
}
