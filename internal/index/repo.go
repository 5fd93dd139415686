package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/format"
	"github.com/starford/inkwell/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	Lists     models.ListStats
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertDocument inserts or replaces a document, its FTS entry and its links
// within one transaction.
func (db *DB) UpsertDocument(d DocumentRow, text string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(d.Tags))

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, tags, body, ordered_items, unordered_items, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title           = excluded.title,
			checksum        = excluded.checksum,
			tags            = excluded.tags,
			body            = excluded.body,
			ordered_items   = excluded.ordered_items,
			unordered_items = excluded.unordered_items,
			updated_at      = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, string(tagsJSON), text,
		d.Lists.OrderedItems, d.Lists.UnorderedItems, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.Path, d.Title, text, d.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(d.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document with its FTS entry, outgoing links and
// stored formatting.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM links WHERE source = ?`,
		`DELETE FROM formatting WHERE path = ?`,
		`DELETE FROM documents WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return fmt.Errorf("index: delete document: %w", err)
		}
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or an empty string
// if it is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const documentColumns = `path, title, checksum, tags, ordered_items, unordered_items, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (DocumentRow, error) {
	var (
		d    DocumentRow
		tags string
	)
	if err := s.Scan(&d.Path, &d.Title, &d.Checksum, &tags,
		&d.Lists.OrderedItems, &d.Lists.UnorderedItems, &d.UpdatedAt); err != nil {
		return DocumentRow{}, err
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return DocumentRow{}, fmt.Errorf("index: decode tags of %s: %w", d.Path, err)
	}
	return d, nil
}

// GetDocument returns one indexed document.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns one page of documents and the total matching count.
// sort is one of updated_at (newest first, the default), title or path.
func (db *DB) ListDocuments(limit, offset int, tag, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)

	order := "updated_at DESC, path"
	switch sort {
	case "title":
		order = "title, path"
	case "path":
		order = "path"
	}

	where, args := "", []any{}
	if tag != "" {
		tagJSON, _ := json.Marshal(tag)
		where = ` WHERE tags LIKE ?`
		args = append(args, "%"+string(tagJSON)+"%")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+documentColumns+` FROM documents`+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	sums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(sums))
	for p := range sums {
		out[p] = struct{}{}
	}
	return out, nil
}

// AllChecksums maps every indexed path to its stored checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns all document paths that link to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveFormatting stores the last reported selection formatting of a document.
func (db *DB) SaveFormatting(path string, a format.Attributes) error {
	snap, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("index: encode formatting: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO formatting (path, snapshot, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			snapshot   = excluded.snapshot,
			updated_at = excluded.updated_at
	`, path, string(snap), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: save formatting: %w", err)
	}
	return nil
}

// GetFormatting returns the stored formatting of a document. ok is false when
// none was saved.
func (db *DB) GetFormatting(path string) (a format.Attributes, ok bool, err error) {
	var snap string
	err = db.conn.QueryRow(`SELECT snapshot FROM formatting WHERE path = ?`, path).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return format.Attributes{}, false, nil
	}
	if err != nil {
		return format.Attributes{}, false, fmt.Errorf("index: get formatting: %w", err)
	}
	if err := json.Unmarshal([]byte(snap), &a); err != nil {
		return format.Attributes{}, false, fmt.Errorf("index: decode formatting: %w", err)
	}
	return a, true, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
