package linkopen

import "context"

// TagResolver maps a note id to its tag name.
type TagResolver interface {
	TagForID(ctx context.Context, id string) (string, bool, error)
}

// Viewer shows the aggregated view of notes linking to a tag.
type Viewer interface {
	ShowBacklinks(ctx context.Context, tag, id string) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(ctx context.Context, tag, id string) error

// ShowBacklinks calls f.
func (f ViewerFunc) ShowBacklinks(ctx context.Context, tag, id string) error {
	return f(ctx, tag, id)
}

// TagRedirect returns a handler that opens the backlink view for links to
// tags and declines everything else.
func TagRedirect(tags TagResolver, view Viewer) Handler {
	return HandlerFunc(func(ctx context.Context, l Link) (Result, error) {
		if !IsIDLink(l) {
			return Declined, nil
		}
		tag, ok, err := tags.TagForID(ctx, l.Target)
		if err != nil {
			return Declined, err
		}
		if !ok {
			return Declined, nil
		}
		if err := view.ShowBacklinks(ctx, tag, l.Target); err != nil {
			return Declined, err
		}
		return Handled, nil
	})
}

// Tag redirect priority; defaults registered by callers should use a
// larger value.
const (
	PriorityTag     = 10
	PriorityDefault = 100
)

// NewTagChain returns a chain with the tag redirect registered.
func NewTagChain(tags TagResolver, view Viewer) *Chain {
	c := &Chain{}
	c.Register(PriorityTag, IsIDLink, TagRedirect(tags, view))
	return c
}
