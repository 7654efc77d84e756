// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotATag       = errors.New("not a tag")
	ErrAborted       = errors.New("aborted")
	ErrInvalidPath   = errors.New("invalid path")
	ErrBadOffset     = errors.New("offset out of range")
	// ErrDanglingTag means a tag that was just ensured can not be resolved
	// to an id. Inserting a link in that state would leave a broken reference.
	ErrDanglingTag = errors.New("dangling tag reference")
)
