// Package storage defines the workspace file-system abstraction.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/starford/inkwell/internal/models"
)

// DocumentExt is the file extension of stored documents.
const DocumentExt = ".html"

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns metadata for every document under dir (relative to the workspace root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// IsDocument reports whether name carries the document extension.
func IsDocument(name string) bool {
	return strings.HasSuffix(name, DocumentExt) && len(name) > len(DocumentExt)
}

// Checksum returns the hex SHA-256 of document content. It is the version
// token used for If-Match and for detecting edits made outside the service.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
