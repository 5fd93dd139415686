package index

import "github.com/starford/inkwell/internal/format"

// DocumentIndex defines the document indexing operations consumers depend on.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, text string, links []string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(limit, offset int, tag, sort string) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	SaveFormatting(path string, a format.Attributes) error
	GetFormatting(path string) (format.Attributes, bool, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)
