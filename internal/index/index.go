package index

import (
	"github.com/starford/notetags/internal/classifier"
	"github.com/starford/notetags/internal/models"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NoteIndex interface {
	UpsertFile(f FileRow, node *models.Node, links []models.Link) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Titles(filter classifier.CoarseFilter) ([]string, error)
	IDsByTitle(title string) ([]string, error)
	Node(id string) (*models.Node, error)
	NodeByFile(path string) (*models.Node, error)
	Links(source string) ([]models.Link, error)
	Backlinks(dest string) ([]models.Node, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
