// Package linkopen dispatches link-follow events through a prioritized
// chain of handlers. Each handler either handles the link, which stops
// dispatch, or declines and lets the next one try.
package linkopen

import (
	"context"
	"sort"

	"github.com/starford/notetags/internal/models"
	"github.com/starford/notetags/internal/parser"
)

// Result is the outcome of offering a link to a handler.
type Result int

const (
	Declined Result = iota
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "declined"
}

// Link is a followed link.
type Link struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Raw    string `json:"raw"`
}

// ParseLink classifies a raw link destination.
func ParseLink(raw string) Link {
	typ, target := parser.ClassifyLink(raw)
	return Link{Type: typ, Target: target, Raw: raw}
}

// IsIDLink matches identifier-style links.
func IsIDLink(l Link) bool {
	return l.Type == models.LinkID && l.Target != ""
}

// Handler opens a link.
type Handler interface {
	Open(ctx context.Context, l Link) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, l Link) (Result, error)

// Open calls f.
func (f HandlerFunc) Open(ctx context.Context, l Link) (Result, error) {
	return f(ctx, l)
}

// Predicate selects the links an entry is offered.
type Predicate func(Link) bool

type entry struct {
	priority int
	seq      int
	match    Predicate
	handler  Handler
}

// Chain is an ordered handler list. Lower priorities run first; entries
// with equal priority run in registration order.
type Chain struct {
	entries []entry
}

// Register adds handler at priority. A nil predicate matches every link.
func (c *Chain) Register(priority int, match Predicate, h Handler) {
	c.entries = append(c.entries, entry{priority: priority, seq: len(c.entries), match: match, handler: h})
	sort.SliceStable(c.entries, func(i, j int) bool {
		if c.entries[i].priority != c.entries[j].priority {
			return c.entries[i].priority < c.entries[j].priority
		}
		return c.entries[i].seq < c.entries[j].seq
	})
}

// Open offers l to each matching handler until one handles it. An error
// stops dispatch.
func (c *Chain) Open(ctx context.Context, l Link) (Result, error) {
	for _, e := range c.entries {
		if e.match != nil && !e.match(l) {
			continue
		}
		res, err := e.handler.Open(ctx, l)
		if err != nil {
			return Declined, err
		}
		if res == Handled {
			return Handled, nil
		}
	}
	return Declined, nil
}

// Len returns the number of registered handlers.
func (c *Chain) Len() int { return len(c.entries) }
