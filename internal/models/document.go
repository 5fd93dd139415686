// Package models defines the domain types for Inkwell.
package models

import "time"

// Document is a parsed HTML document in the workspace.
type Document struct {
	Path        string         `json:"path"`
	Content     []byte         `json:"-"`
	Title       string         `json:"title,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Body        string         `json:"body"`
	Text        string         `json:"text"`
	Links       []string       `json:"links,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Lists       ListStats      `json:"lists"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListStats counts list items by list kind.
type ListStats struct {
	OrderedItems   int `json:"ordered_items"`
	UnorderedItems int `json:"unordered_items"`
}

// Link is a directed edge from a document to an href it references.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
