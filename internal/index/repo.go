package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/notetags/internal/classifier"
	"github.com/starford/notetags/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// UpsertFile records a file and replaces the node and links derived from it
// within a transaction. node may be nil for files without an id.
func (db *DB) UpsertFile(f FileRow, node *models.Node, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO files (path, checksum, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, f.Path, f.Checksum, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	if err := clearFileNodes(tx, f.Path); err != nil {
		return err
	}

	if node != nil {
		_, err = tx.Exec(`
			INSERT INTO notes (id, file, title) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET file = excluded.file, title = excluded.title
		`, node.ID, f.Path, node.Title)
		if err != nil {
			return fmt.Errorf("index: upsert note: %w", err)
		}
		// The id may have moved here from another file; drop its old edges.
		if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, node.ID); err != nil {
			return fmt.Errorf("index: clear links: %w", err)
		}
		if len(links) > 0 {
			stmt, err := tx.Prepare(`INSERT INTO links (source, dest, type, pos) VALUES (?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("index: prepare link insert: %w", err)
			}
			defer stmt.Close()
			for i, l := range links {
				if _, err := stmt.Exec(node.ID, l.Dest, l.Type, i); err != nil {
					return fmt.Errorf("index: insert link: %w", err)
				}
			}
		}
	}

	return tx.Commit()
}

func clearFileNodes(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM links WHERE source IN (SELECT id FROM notes WHERE file = ?)`, path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE file = ?`, path); err != nil {
		return fmt.Errorf("index: clear notes: %w", err)
	}
	return nil
}

// DeleteFile removes a file, its node, and the node's outgoing links.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearFileNodes(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
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

// Titles returns the titles of every note matching the coarse filter, in
// rowid order.
func (db *DB) Titles(filter classifier.CoarseFilter) ([]string, error) {
	where, args := filter.Clause("title")
	rows, err := db.conn.Query(`SELECT title FROM notes WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("index: titles: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// IDsByTitle returns the ids of notes whose title equals title exactly.
func (db *DB) IDsByTitle(title string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM notes WHERE title = ? ORDER BY rowid`, title)
	if err != nil {
		return nil, fmt.Errorf("index: ids by title: %w", err)
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

// Node returns the note with the given id, or nil when absent.
func (db *DB) Node(id string) (*models.Node, error) {
	return db.scanNode(`SELECT id, title, file FROM notes WHERE id = ?`, id)
}

// NodeByFile returns the note backed by path, or nil when the file has no id.
func (db *DB) NodeByFile(path string) (*models.Node, error) {
	return db.scanNode(`SELECT id, title, file FROM notes WHERE file = ? LIMIT 1`, path)
}

func (db *DB) scanNode(query string, arg string) (*models.Node, error) {
	var n models.Node
	err := db.conn.QueryRow(query, arg).Scan(&n.ID, &n.Title, &n.File)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: node: %w", err)
	}
	return &n, nil
}

// Links returns the outgoing links of source in document order.
func (db *DB) Links(source string) ([]models.Link, error) {
	rows, err := db.conn.Query(`SELECT source, dest, type, pos FROM links WHERE source = ? ORDER BY pos`, source)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Source, &l.Dest, &l.Type, &l.Pos); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns every note with an id link to dest, ordered by title.
func (db *DB) Backlinks(dest string) ([]models.Node, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT n.id, n.title, n.file
		FROM links l JOIN notes n ON n.id = l.source
		WHERE l.dest = ? AND l.type = ?
		ORDER BY n.title, n.file
	`, dest, models.LinkID)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []models.Node
	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.ID, &n.Title, &n.File); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
