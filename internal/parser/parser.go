// Package parser splits stored documents into an optional YAML frontmatter
// header and an HTML body, and extracts what the index needs from the body.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	"github.com/starford/inkwell/internal/dom"
	"github.com/starford/inkwell/internal/lists"
	"github.com/starford/inkwell/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

const delim = "---"

// Result holds the output of parsing a document.
type Result struct {
	Frontmatter map[string]any
	// Header is the raw frontmatter block, delimiters included, so a new
	// body can be recomposed with it.
	Header string
	Body   string
	Text   string
	Links  []string
	Tags   []string
	Title  string
	Lists  models.ListStats
}

// Parse extracts frontmatter, title, links, tags, text and list statistics
// from raw document bytes.
func Parse(data []byte) (*Result, error) {
	fm, header, body := splitFrontmatter(data)

	root, err := dom.NewRoot(body)
	if err != nil {
		return nil, err
	}

	text := extractText(root)
	return &Result{
		Frontmatter: fm,
		Header:      header,
		Body:        body,
		Text:        text,
		Links:       extractLinks(root),
		Tags:        extractTags(text, fm),
		Title:       deriveTitle(fm, root),
		Lists:       listStats(root),
	}, nil
}

// Compose joins a header returned by Parse with a new body.
func Compose(header, body string) []byte {
	return []byte(header + body)
}

// splitFrontmatter separates a leading YAML block from the HTML body. A
// missing closing delimiter or invalid YAML leaves everything as body.
func splitFrontmatter(data []byte) (map[string]any, string, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", string(data)
	}

	yamlBlock := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, "", string(data)
	}
	header := string(data[:len(data)-len(body)])
	return fm, header, body
}

// extractText joins visible text, separating blocks with a space.
func extractText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			return
		case dom.IsElement(n, atom.Script, atom.Style, atom.Title):
			return
		case dom.IsElement(n, atom.Br):
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n != root && dom.IsBlock(n) {
			b.WriteByte(' ')
		}
	}
	walk(root)
	return strings.Join(strings.Fields(b.String()), " ")
}

// extractLinks returns deduplicated href targets of anchors.
func extractLinks(root *html.Node) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if dom.IsElement(n, atom.A) {
			if href, ok := dom.Attr(n, "href"); ok {
				href = strings.TrimSpace(href)
				if _, dup := seen[href]; href != "" && !strings.HasPrefix(href, "#") && !dup {
					seen[href] = struct{}{}
					out = append(out, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// extractTags collects the frontmatter "tags" list, then #tags from text.
func extractTags(text string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	if raw, ok := fm["tags"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle prefers the frontmatter title, then the first h1, then a
// title element.
func deriveTitle(fm map[string]any, root *html.Node) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, tag := range []atom.Atom{atom.H1, atom.Title} {
		if n := first(root, tag); n != nil {
			if s := strings.Join(strings.Fields(dom.TextContent(n)), " "); s != "" {
				return s
			}
		}
	}
	return ""
}

func first(root *html.Node, tag atom.Atom) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsElement(c, tag) {
			return c
		}
		if n := first(c, tag); n != nil {
			return n
		}
	}
	return nil
}

// listStats counts items directly owned by ordered and unordered lists.
func listStats(root *html.Node) models.ListStats {
	var st models.ListStats
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if dom.IsElement(n, atom.Li) {
			if kind, ok := lists.KindOf(n.Parent); ok {
				if kind == lists.Ordered {
					st.OrderedItems++
				} else {
					st.UnorderedItems++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return st
}
