package mcpserver

// MarkupContract describes the document format and the editing model that
// LLM consumers should follow when creating or editing documents.
const MarkupContract = `# Inkwell Markup Contract

Every document stored in Inkwell is an HTML fragment with an optional YAML
frontmatter block.

## Structure

` + "```" + `html
---
title: Human-readable title        # OPTIONAL, falls back to the first <h1>
tags:                               # OPTIONAL, YAML list used for filtering
  - tag-one
---
<h1>Heading</h1>
<p>Body text with <b>bold</b> and <a href="other.html">links</a>.</p>
<ul><li>First item</li><li>Second item</li></ul>
` + "```" + `

## Rules

1. **File paths** end with ` + "`" + `.html` + "`" + ` and use forward slashes.
2. **The body is a fragment.** Do not wrap it in <html>, <head> or <body>.
3. **Lists** use <ul>/<ol> with <li> children. Nesting is allowed.
4. **Links** between documents use relative hrefs to the target path.
5. **Tags** come from frontmatter and from #hashtags in the text.
6. **Encoding** is UTF-8.

## Editing model

Editing works on the document's selection. Boundary points are written as
child indexes from the body root followed by an offset, for example
` + "`" + `0/1/0:1` + "`" + ` is the first child of the second child of the first
top-level node, one character in.

- ` + "`" + `set_selection` + "`" + ` places a caret (start only) or a range (start and end)
  and returns the formatting under it.
- ` + "`" + `toggle_list` + "`" + ` converts the list item under the caret into a list of the
  requested kind, splitting the surrounding list. Toggling to the kind the
  item already has turns it into plain content.
- ` + "`" + `exec_command` + "`" + ` runs one of: bold, italic, underline, strikeThrough,
  subscript, superscript, insertOrderedList, insertUnorderedList, fontName,
  fontSize, foreColor, backColor, hiliteColor, formatBlock, justifyLeft,
  justifyCenter, justifyRight, justifyFull, createLink, unlink, removeFormat.
- Every edit is saved immediately. Formatting snapshots use the keys
  hasBold, hasItalic, hasUnderline, hasStrikethrough, hasSubscript,
  hasSuperscript, hasOrderedList, hasUnorderedList, hasLink, fontName,
  fontSize, foreColor, backColor, blockType and justify.
`
