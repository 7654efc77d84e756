// Package tagger creates tag notes and inserts tag links into documents.
//
// All new-tag creation from interactive actions goes through
// EnsureTagExists, which asks for confirmation. CreateTag skips the
// question and is meant for programmatic use.
//
// There is no check-and-create atomicity: two writers racing on the same
// new tag both pass the existence check, and the loser gets
// apperr.ErrAlreadyExists from the exclusive file create.
package tagger

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/document"
	"github.com/starford/notetags/internal/noteservice"
	"github.com/starford/notetags/internal/parser"
	"github.com/starford/notetags/internal/prompt"
	"github.com/starford/notetags/internal/tagrepo"
)

// DefaultMarker starts the tag line of a document.
const DefaultMarker = "+ tags ::"

// Config holds the tag line marker and where new tag notes are written.
type Config struct {
	Marker string
	// Directory is relative to the vault root; empty means the root.
	Directory string
}

// CreateFunc is called after a tag note has been created.
type CreateFunc func(tag, id, file string)

// Option configures a Tagger.
type Option func(*Tagger)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tagger) { t.logger = l }
}

// WithOnCreate registers a hook fired after every tag creation.
func WithOnCreate(fn CreateFunc) Option {
	return func(t *Tagger) { t.onCreate = fn }
}

// WithIDFunc replaces the id generator.
func WithIDFunc(fn func() string) Option {
	return func(t *Tagger) { t.newID = fn }
}

// Tagger performs tag write operations.
type Tagger struct {
	cfg      Config
	repo     *tagrepo.Repository
	notes    *noteservice.Service
	notify   prompt.Notifier
	logger   *slog.Logger
	onCreate CreateFunc
	newID    func() string
}

// New creates a Tagger.
func New(cfg Config, repo *tagrepo.Repository, notes *noteservice.Service, notify prompt.Notifier, opts ...Option) *Tagger {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	t := &Tagger{
		cfg:    cfg,
		repo:   repo,
		notes:  notes,
		notify: notify,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithNotifier returns a copy of t that talks to n instead.
func (t *Tagger) WithNotifier(n prompt.Notifier) *Tagger {
	c := *t
	c.notify = n
	return &c
}

// Repository returns the repository the tagger resolves tags with.
func (t *Tagger) Repository() *tagrepo.Repository { return t.repo }

// TagPath returns the vault-relative file a new tag note is written to.
func (t *Tagger) TagPath(tag string) string {
	return path.Join(t.cfg.Directory, tag+".md")
}

// CreateTag writes a new tag note, indexes it, and returns its id.
// It fails with apperr.ErrAlreadyExists when the target file exists.
func (t *Tagger) CreateTag(ctx context.Context, tag string) (string, error) {
	if !t.repo.Classifier().IsTag(tag) {
		return "", fmt.Errorf("create tag %q: %w", tag, apperr.ErrNotATag)
	}
	file := t.TagPath(tag)
	exists, err := t.notes.Exists(file)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("create tag %q: %s: %w", tag, file, apperr.ErrAlreadyExists)
	}

	id := t.newID()
	content, err := parser.NewDocument(id, tag)
	if err != nil {
		return "", err
	}
	if err := t.notes.Create(ctx, file, content); err != nil {
		return "", fmt.Errorf("create tag %q: %w", tag, err)
	}

	t.logger.Info("tag created", slog.String("tag", tag), slog.String("id", id), slog.String("file", file))
	t.notify.Notify(fmt.Sprintf("Created tag «%s»", tag))
	if t.onCreate != nil {
		t.onCreate(tag, id, file)
	}
	return id, nil
}

// EnsureTagExists returns tag when it already exists. Otherwise it asks
// whether to create it; ok is false when the user declines.
func (t *Tagger) EnsureTagExists(ctx context.Context, tag string) (string, bool, error) {
	exists, err := t.repo.TagExists(ctx, tag)
	if err != nil {
		return "", false, err
	}
	if exists {
		return tag, true, nil
	}
	if !t.repo.Classifier().IsTag(tag) {
		return "", false, fmt.Errorf("%q: %w", tag, apperr.ErrNotATag)
	}

	yes, err := t.notify.Confirm(fmt.Sprintf("Create tag «%s»?", tag))
	if err != nil {
		return "", false, err
	}
	if !yes {
		t.notify.Notify("Aborted")
		return "", false, nil
	}
	if _, err := t.CreateTag(ctx, tag); err != nil {
		return "", false, err
	}
	return tag, true, nil
}

// LinkFor renders the link to tag. A tag that does not resolve is
// apperr.ErrDanglingTag.
func (t *Tagger) LinkFor(ctx context.Context, tag string) (string, error) {
	id, ok, err := t.repo.IDForTag(ctx, tag)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("No tag «%s»: %w", tag, apperr.ErrDanglingTag)
	}
	return parser.IDLink(id, tag), nil
}

// FindFileTagsLine moves the point just past the marker of the last tag
// line in buf, appending a new tag line when there is none. The returned
// value is the new point.
func (t *Tagger) FindFileTagsLine(buf *document.Buffer) int {
	if start, ok := buf.SearchLineBackward(t.cfg.Marker); ok {
		buf.Goto(start + utf8.RuneCountInString(t.cfg.Marker))
		return buf.Point()
	}
	buf.GotoEnd()
	buf.Insert("\n\n" + t.cfg.Marker)
	return buf.Point()
}

// ClearFileTagsLine empties the tag line and drops everything after it.
func (t *Tagger) ClearFileTagsLine(buf *document.Buffer) {
	t.FindFileTagsLine(buf)
	buf.Delete(buf.Point(), buf.Len())
}

// InsertFileTag appends a link to tag at the end of the tag line. When the
// user declines to create a new tag nothing is linked; the separating
// space stays.
func (t *Tagger) InsertFileTag(ctx context.Context, buf *document.Buffer, tag string) (bool, error) {
	t.FindFileTagsLine(buf)
	buf.EndOfLine()
	buf.TrimSpaceBackward()
	buf.Insert(" ")
	return t.insertLink(ctx, buf, tag)
}

// InsertInlineTag inserts a link to tag at the point, adding a space on
// either side unless the neighbour is a line boundary, whitespace, or a
// dash.
func (t *Tagger) InsertInlineTag(ctx context.Context, buf *document.Buffer, tag string) (bool, error) {
	if r, ok := buf.CharBefore(); ok && !buf.AtLineStart() && !document.IsSeparator(r) {
		buf.Insert(" ")
	}
	inserted, err := t.insertLink(ctx, buf, tag)
	if err != nil || !inserted {
		return inserted, err
	}
	if r, ok := buf.CharAfter(); ok && !buf.AtLineEnd() && !document.IsSeparator(r) {
		buf.Insert(" ")
	}
	return true, nil
}

func (t *Tagger) insertLink(ctx context.Context, buf *document.Buffer, tag string) (bool, error) {
	tag, ok, err := t.EnsureTagExists(ctx, tag)
	if err != nil || !ok {
		return false, err
	}
	link, err := t.LinkFor(ctx, tag)
	if err != nil {
		return false, err
	}
	buf.Insert(link)
	return true, nil
}
