// Package classifier decides which note titles qualify as tags.
//
// Recognition is a two-stage pipeline. A CoarseFilter is pushed into the
// database query as a cheap pre-filter; the Classifier's regular expression
// is the authoritative test applied locally to whatever the query returns.
package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

// Default patterns.
const (
	DefaultPattern = `^[a-z0-9-]+$`
	ColonPattern   = `^[a-z0-9:-]+$`
)

// CoarseFilter is a LIKE-style predicate over note titles. Empty fields
// impose no constraint.
type CoarseFilter struct {
	Like    string `yaml:"coarse_like"`
	NotLike string `yaml:"coarse_not_like"`
}

// DefaultCoarse excludes titles containing a space.
func DefaultCoarse() CoarseFilter {
	return CoarseFilter{NotLike: "% %"}
}

// Clause renders the filter as a SQL boolean expression over the title
// column together with its bind arguments. A filter with no constraints
// renders as "1".
func (f CoarseFilter) Clause(column string) (string, []any) {
	var parts []string
	var args []any
	if f.Like != "" {
		parts = append(parts, column+" LIKE ?")
		args = append(args, f.Like)
	}
	if f.NotLike != "" {
		parts = append(parts, column+" NOT LIKE ?")
		args = append(args, f.NotLike)
	}
	if len(parts) == 0 {
		return "1", nil
	}
	return strings.Join(parts, " AND "), args
}

// Classifier holds the refined tag pattern and the coarse pre-filter.
type Classifier struct {
	re     *regexp.Regexp
	coarse CoarseFilter
}

// New compiles pattern and returns a Classifier. The pattern is matched
// case-sensitively against the raw title.
func New(pattern string, coarse CoarseFilter) (*Classifier, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("classifier: compile %q: %w", pattern, err)
	}
	return &Classifier{re: re, coarse: coarse}, nil
}

// Default returns a Classifier using DefaultPattern and DefaultCoarse.
func Default() *Classifier {
	c, _ := New(DefaultPattern, DefaultCoarse())
	return c
}

// IsTag reports whether title is a tag. No trimming or case folding.
func (c *Classifier) IsTag(title string) bool {
	return c.re.MatchString(title)
}

// FilterTags returns the titles that are tags, in input order.
func (c *Classifier) FilterTags(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if c.IsTag(t) {
			out = append(out, t)
		}
	}
	return out
}

// Coarse returns the database-side pre-filter.
func (c *Classifier) Coarse() CoarseFilter {
	return c.coarse
}

// Pattern returns the source of the refined pattern.
func (c *Classifier) Pattern() string {
	return c.re.String()
}
