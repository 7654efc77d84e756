package api

import "github.com/starford/notetags/internal/noteservice"

// CreateTagRequest is the request body for POST /tags.
type CreateTagRequest struct {
	Tag string `json:"tag" example:"golang"`
}

// TagNoteRequest is the request body for POST /notes/tags. Without Offset
// the tag goes on the file's tag line; with it the link is inserted inline
// at that rune offset. Create answers the create-tag question.
type TagNoteRequest struct {
	Path   string `json:"path" example:"notes/hello.md"`
	Tag    string `json:"tag" example:"golang"`
	Create bool   `json:"create"`
	Offset *int   `json:"offset,omitempty"`
}

// TagNoteResponse reports whether a link was inserted and what the user
// would have been told.
type TagNoteResponse struct {
	Inserted bool     `json:"inserted"`
	Messages []string `json:"messages"`
}

// TagResponse describes one tag.
type TagResponse struct {
	Tag  string `json:"tag"`
	ID   string `json:"id"`
	File string `json:"file"`
}

// TagListResponse wraps the tag list.
type TagListResponse struct {
	Tags []string `json:"tags"`
}

// NoteTagsResponse lists the tags a note links to, in link order.
type NoteTagsResponse struct {
	Path string   `json:"path"`
	Tags []string `json:"tags"`
}

// BacklinkView is the aggregated view of notes linking to a tag.
type BacklinkView = noteservice.BacklinkView
