// Package docservice coordinates storage, the index and live editing
// sessions for workspace documents.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/loop"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/storage"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	Checksum    string           `json:"checksum"`
	Tags        []string         `json:"tags"`
	Frontmatter map[string]any   `json:"frontmatter,omitempty"`
	Links       []string         `json:"links"`
	Backlinks   []string         `json:"backlinks"`
	Lists       models.ListStats `json:"lists"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string           `json:"path"`
	Title     string           `json:"title"`
	Checksum  string           `json:"checksum"`
	Tags      []string         `json:"tags"`
	Lists     models.ListStats `json:"lists"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Publisher receives document and formatting changes.
type Publisher interface {
	PublishDocumentEvent(kind, path string)
	PublishFormatting(path string, formatting any)
}

// Service owns document CRUD and the editing sessions. Every mutation runs
// on the editing loop, so writes to a document never interleave.
type Service struct {
	store  storage.Provider
	db     index.DocumentIndex
	loop   *loop.Loop
	pub    Publisher
	logger *slog.Logger

	maxBytes int64
	idle     time.Duration
	now      func() time.Time

	// sessions is only touched on the loop.
	sessions map[string]*session
}

// NewService creates a document service. Mutations and editing run on l.
func NewService(store storage.Provider, db index.DocumentIndex, l *loop.Loop, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		loop:     l,
		pub:      nopPublisher{},
		logger:   slog.Default(),
		maxBytes: 10 << 20,
		idle:     15 * time.Minute,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDocument reads a document from storage, parses it and adds backlinks.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, data)
}

// CreateDocument writes a new document and indexes it.
func (s *Service) CreateDocument(ctx context.Context, path string, content []byte) (*DocumentDetail, error) {
	if err := s.checkSize(content); err != nil {
		return nil, err
	}
	err := s.onLoop(ctx, func() error {
		if _, err := s.store.Read(path); err == nil {
			return apperr.ErrAlreadyExists
		}
		return s.write(path, content, "created")
	})
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// UpdateDocument replaces a document. A non-empty ifMatch must equal the
// stored checksum. An open editing session on the document is discarded.
func (s *Service) UpdateDocument(ctx context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, error) {
	if err := s.checkSize(content); err != nil {
		return nil, err
	}
	err := s.onLoop(ctx, func() error {
		existing, err := s.read(path)
		if err != nil {
			return err
		}
		if ifMatch != "" && ifMatch != storage.Checksum(existing) {
			return apperr.ErrConflict
		}
		s.closeSession(path, "replaced")
		return s.write(path, content, "updated")
	})
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// DeleteDocument removes a document from storage and the index.
func (s *Service) DeleteDocument(ctx context.Context, path string) error {
	return s.onLoop(ctx, func() error {
		if err := s.store.Delete(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return apperr.ErrNotFound
			}
			return err
		}
		s.closeSession(path, "deleted")
		if err := s.db.DeleteDocument(path); err != nil {
			return err
		}
		s.pub.PublishDocumentEvent("deleted", path)
		return nil
	})
}

// ListDocuments returns one page of indexed documents.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, tag, sort string) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			Lists:     r.Lists,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// Backlinks returns the documents linking to target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	bl, err := s.db.Backlinks(target)
	return nonNilSlice(bl), err
}

func (s *Service) onLoop(ctx context.Context, fn func() error) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = fn() }); doErr != nil {
		return fmt.Errorf("docservice: %w", doErr)
	}
	return err
}

func (s *Service) checkSize(content []byte) error {
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return fmt.Errorf("docservice: %d bytes exceeds %d: %w", len(content), s.maxBytes, apperr.ErrTooLarge)
	}
	return nil
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// write stores content, reindexes it and announces the change.
func (s *Service) write(path string, content []byte, kind string) error {
	if err := s.store.Write(path, content); err != nil {
		return err
	}
	if err := index.IndexDocument(s.db, path, content); err != nil {
		return err
	}
	s.pub.PublishDocumentEvent(kind, path)
	return nil
}

func (s *Service) buildDetail(path string, data []byte) (*DocumentDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	updated := s.now()
	if row, err := s.db.GetDocument(path); err == nil {
		updated = row.UpdatedAt
	}
	return &DocumentDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    storage.Checksum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Links:       nonNilSlice(res.Links),
		Backlinks:   nonNilSlice(bl),
		Lists:       res.Lists,
		UpdatedAt:   updated,
	}, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishDocumentEvent(string, string) {}
func (nopPublisher) PublishFormatting(string, any)       {}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
