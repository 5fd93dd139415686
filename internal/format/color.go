package format

import (
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// namedColors maps the CSS basic color keywords to hex.
var namedColors = map[string]string{
	"black": "#000000", "silver": "#c0c0c0", "gray": "#808080", "grey": "#808080",
	"white": "#ffffff", "maroon": "#800000", "red": "#ff0000", "purple": "#800080",
	"fuchsia": "#ff00ff", "magenta": "#ff00ff", "green": "#008000", "lime": "#00ff00",
	"olive": "#808000", "yellow": "#ffff00", "navy": "#000080", "blue": "#0000ff",
	"teal": "#008080", "aqua": "#00ffff", "cyan": "#00ffff", "orange": "#ffa500",
}

// NormalizeColor converts rgb()/rgba() notation, short hex and basic color
// keywords to lower-case #rrggbb. Fully transparent colors become
// TransparentColor; anything it cannot parse is returned trimmed and
// lower-cased.
func NormalizeColor(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	switch {
	case s == "":
		return ""
	case s == "transparent":
		return TransparentColor
	case strings.HasPrefix(s, "rgb"):
		return normalizeRGB(s)
	case strings.HasPrefix(s, "#"):
		if c, err := colorful.Hex(s); err == nil {
			return c.Hex()
		}
	}
	return s
}

func normalizeRGB(s string) string {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return s
	}
	parts := strings.FieldsFunc(s[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) < 3 {
		return s
	}
	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, err := channel(parts[i])
		if err != nil {
			return s
		}
		ch[i] = v
	}
	if len(parts) > 3 {
		if a, err := alpha(parts[3]); err == nil && a == 0 {
			return TransparentColor
		}
	}
	return colorful.Color{R: ch[0] / 255, G: ch[1] / 255, B: ch[2] / 255}.Clamped().Hex()
}

func channel(p string) (float64, error) {
	if strings.HasSuffix(p, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		return v * 255 / 100, err
	}
	return strconv.ParseFloat(p, 64)
}

func alpha(p string) (float64, error) {
	if strings.HasSuffix(p, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		return v / 100, err
	}
	return strconv.ParseFloat(p, 64)
}

// IsBlack reports whether raw denotes pure black in any common notation.
func IsBlack(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	return s == "black" || NormalizeColor(s) == "#000000"
}

// IsTransparent reports whether raw denotes no background.
func IsTransparent(raw string) bool {
	s := NormalizeColor(raw)
	return s == "" || s == TransparentColor || s == "initial" || s == "inherit" || s == "none"
}
