// Package tagrepo answers read-only tag questions against the note index.
package tagrepo

import (
	"context"
	"sort"

	"github.com/starford/notetags/internal/classifier"
	"github.com/starford/notetags/internal/models"
)

// Querier is the subset of the note index the repository reads from.
type Querier interface {
	Titles(filter classifier.CoarseFilter) ([]string, error)
	IDsByTitle(title string) ([]string, error)
	Node(id string) (*models.Node, error)
	Links(source string) ([]models.Link, error)
}

// Repository combines the classifier with index lookups.
type Repository struct {
	db  Querier
	cls *classifier.Classifier
}

// New creates a Repository.
func New(db Querier, cls *classifier.Classifier) *Repository {
	return &Repository{db: db, cls: cls}
}

// Classifier returns the classifier the repository filters with.
func (r *Repository) Classifier() *classifier.Classifier { return r.cls }

// ListTags returns every tag title, sorted.
func (r *Repository) ListTags(_ context.Context) ([]string, error) {
	titles, err := r.db.Titles(r.cls.Coarse())
	if err != nil {
		return nil, err
	}
	tags := r.cls.FilterTags(titles)
	sort.Strings(tags)
	return tags, nil
}

// IDForTag returns the id of the note titled tag. Strings that are not
// tag-shaped never reach the index. With duplicate titles the first row
// the index returns wins.
func (r *Repository) IDForTag(_ context.Context, tag string) (string, bool, error) {
	if !r.cls.IsTag(tag) {
		return "", false, nil
	}
	ids, err := r.db.IDsByTitle(tag)
	if err != nil {
		return "", false, err
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

// TagForID returns the title of note id when that title is a tag.
func (r *Repository) TagForID(_ context.Context, id string) (string, bool, error) {
	n, err := r.db.Node(id)
	if err != nil || n == nil {
		return "", false, err
	}
	if !r.cls.IsTag(n.Title) {
		return "", false, nil
	}
	return n.Title, true, nil
}

// FileForID returns the vault path backing note id.
func (r *Repository) FileForID(_ context.Context, id string) (string, bool, error) {
	n, err := r.db.Node(id)
	if err != nil || n == nil {
		return "", false, err
	}
	return n.File, true, nil
}

// TagExists reports whether tag resolves to a note.
func (r *Repository) TagExists(ctx context.Context, tag string) (bool, error) {
	_, ok, err := r.IDForTag(ctx, tag)
	return ok, err
}

// TagsForNote resolves the outgoing links of note id to tags, keeping link
// order and duplicates.
func (r *Repository) TagsForNote(ctx context.Context, id string) ([]string, error) {
	links, err := r.db.Links(id)
	if err != nil {
		return nil, err
	}
	dests := make([]string, 0, len(links))
	for _, l := range links {
		if l.Type == models.LinkID {
			dests = append(dests, l.Dest)
		}
	}
	return r.TagsForIDs(ctx, dests)
}

// TagsForIDs maps ids to tags, dropping ids that are not tags.
func (r *Repository) TagsForIDs(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		tag, ok, err := r.TagForID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, tag)
		}
	}
	return out, nil
}
