package index

import (
	"log/slog"

	"github.com/starford/notetags/internal/models"
	"github.com/starford/notetags/internal/parser"
	"github.com/starford/notetags/internal/storage"
)

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	metas, err := store.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if cs, ok := checksums[m.Path]; ok && cs == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			stats.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteFile(p); err != nil {
			stats.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return stats, nil
}

// IndexFile parses data and upserts the file, its node, and its links.
func IndexFile(db NoteIndex, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}

	var node *models.Node
	var links []models.Link
	if res.ID != "" {
		node = &models.Node{ID: res.ID, Title: res.Title, File: path}
		links = make([]models.Link, 0, len(res.Links))
		for _, l := range res.Links {
			links = append(links, models.Link{Source: res.ID, Dest: l.Target, Type: l.Type})
		}
	}

	return db.UpsertFile(FileRow{Path: path, Checksum: storage.Checksum(data)}, node, links)
}
