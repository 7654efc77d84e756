package tagger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/models"
	"github.com/starford/notetags/internal/prompt"
)

// TagFile adds tag to the tag line of the file at path and saves it.
// inserted is false when the user declined to create the tag.
func (t *Tagger) TagFile(ctx context.Context, path, tag string) (inserted bool, err error) {
	buf, err := t.notes.Open(ctx, path)
	if err != nil {
		return false, err
	}
	inserted, err = t.InsertFileTag(ctx, buf, tag)
	if err != nil {
		return false, err
	}
	if err := t.notes.Save(ctx, buf); err != nil {
		return false, err
	}
	t.logger.Debug("file tagged", slog.String("path", path), slog.String("tag", tag), slog.Bool("inserted", inserted))
	return inserted, nil
}

// TagAt inserts an inline link to tag at rune offset in the file at path.
func (t *Tagger) TagAt(ctx context.Context, path string, offset int, tag string) (bool, error) {
	buf, err := t.notes.Open(ctx, path)
	if err != nil {
		return false, err
	}
	if offset < 0 || offset > buf.Len() {
		return false, fmt.Errorf("tag %s at %d of %d: %w", path, offset, buf.Len(), apperr.ErrBadOffset)
	}
	buf.Goto(offset)
	inserted, err := t.InsertInlineTag(ctx, buf, tag)
	if err != nil {
		return false, err
	}
	if err := t.notes.Save(ctx, buf); err != nil {
		return false, err
	}
	return inserted, nil
}

// ClearFile empties the tag line of the file at path.
func (t *Tagger) ClearFile(ctx context.Context, path string) error {
	buf, err := t.notes.Open(ctx, path)
	if err != nil {
		return err
	}
	t.ClearFileTagsLine(buf)
	return t.notes.Save(ctx, buf)
}

// DocumentTags returns the tags the file at path links to, in link order
// and with duplicates. The file content is parsed directly so edits the
// index has not seen yet are included.
func (t *Tagger) DocumentTags(ctx context.Context, path string) ([]string, error) {
	buf, err := t.notes.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := buf.Parse()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, l := range res.Links {
		if l.Type == models.LinkID {
			ids = append(ids, l.Target)
		}
	}
	return t.repo.TagsForIDs(ctx, ids)
}

// PickTag asks picker for a tag among the existing ones. The answer may
// be a tag that does not exist yet.
func (t *Tagger) PickTag(ctx context.Context, picker prompt.Picker, question string) (string, error) {
	tags, err := t.repo.ListTags(ctx)
	if err != nil {
		return "", err
	}
	return picker.Pick(ctx, question, tags)
}
