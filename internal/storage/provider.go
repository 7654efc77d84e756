// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/notetags/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Create writes content to a new file at path. It fails with
	// apperr.ErrAlreadyExists when the file is already there.
	Create(path string, content []byte) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
}
