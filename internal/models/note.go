// Package models defines the domain types for notetags.
package models

import "time"

// Node is an indexed note with an identity. Files without an id in their
// frontmatter are not nodes.
type Node struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	File  string `json:"file"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link types recognised by the parser.
const (
	LinkID    = "id"
	LinkHTTP  = "http"
	LinkHTTPS = "https"
	LinkFile  = "file"
	LinkFuzzy = "fuzzy" // scheme-less target, e.g. a relative path
)

// Link represents a directed edge between two notes, in document order.
type Link struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
	Type   string `json:"type"`
	Pos    int    `json:"pos"`
}
