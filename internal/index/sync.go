package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/storage"
)

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Sync brings the index in line with the workspace: changed documents are
// parsed and upserted, and entries whose file is gone are deleted.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var st SyncStats
	metas, err := store.List("")
	if err != nil {
		return st, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return st, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err == nil {
			err = IndexDocument(db, m.Path, data)
		}
		if err != nil {
			st.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		st.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			st.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		st.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}
	return st, nil
}

// IndexDocument parses data and upserts it under path.
func IndexDocument(db DocumentIndex, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	return db.UpsertDocument(DocumentRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  storage.Checksum(data),
		Tags:      res.Tags,
		Lists:     res.Lists,
		UpdatedAt: time.Now().UTC(),
	}, res.Text, res.Links)
}
