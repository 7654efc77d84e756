// Package noteservice coordinates vault storage with the note index.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/document"
	"github.com/starford/notetags/internal/index"
	"github.com/starford/notetags/internal/models"
	"github.com/starford/notetags/internal/storage"
)

// BacklinkView is the aggregated view of every note linking to a target.
type BacklinkView struct {
	Target models.Node   `json:"target"`
	Notes  []models.Node `json:"notes"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    index.NoteIndex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex) *Service {
	return &Service{store: store, db: db}
}

// Open loads the file at path into a document buffer.
func (s *Service) Open(_ context.Context, path string) (*document.Buffer, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return document.New(path, string(data)), nil
}

// Save writes the buffer back to its file and re-indexes it.
// Unmodified buffers are left alone. When the file changed on disk since
// the buffer was opened, Save fails with apperr.ErrConflict.
func (s *Service) Save(_ context.Context, buf *document.Buffer) error {
	if !buf.Modified() {
		return nil
	}
	current, err := s.store.Read(buf.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err == nil && storage.Checksum(current) != storage.Checksum([]byte(buf.Original())) {
		return fmt.Errorf("save %s: %w", buf.Path(), apperr.ErrConflict)
	}
	data := buf.Bytes()
	if err := s.store.Write(buf.Path(), data); err != nil {
		return err
	}
	return s.IndexFile(buf.Path(), data)
}

// Create writes a new file without overwriting and indexes it.
func (s *Service) Create(_ context.Context, path string, content []byte) error {
	if err := s.store.Create(path, content); err != nil {
		return err
	}
	return s.IndexFile(path, content)
}

// Exists reports whether a file exists at path.
func (s *Service) Exists(path string) (bool, error) {
	return s.store.Exists(path)
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data)
}

// NodeForFile returns the node backed by path.
func (s *Service) NodeForFile(_ context.Context, path string) (*models.Node, error) {
	n, err := s.db.NodeByFile(path)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

// Backlinks builds the aggregated view for note id.
func (s *Service) Backlinks(_ context.Context, id string) (*BacklinkView, error) {
	target, err := s.db.Node(id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.ErrNotFound
	}
	notes, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return &BacklinkView{Target: *target, Notes: nonNilSlice(notes)}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
