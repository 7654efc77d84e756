package mcpserver

import (
	"fmt"
	"path"
)

// ConventionsURI is the resource describing how tags are written.
const ConventionsURI = "notetags://conventions"

// Conventions renders the tagging conventions for the given tag line
// marker and tag directory.
func Conventions(marker, dir string) string {
	where := "the vault root"
	if dir != "" {
		where = "`" + dir + "/`"
	}
	return fmt.Sprintf(`# Tagging conventions

A tag is a note whose title is tag-shaped: lowercase letters, digits and
dashes, no spaces (for example `+"`go`"+` or `+"`project-x`"+`). Tag notes live in
%s, one file per tag (%s).

## Notes

Every note starts with YAML frontmatter carrying a stable `+"`id`"+` and a
`+"`title`"+`. Files without an id can be tagged but can not be tags.

## Links

Links use the note id, never the path:

    [display text](id:<uuid>)

## Tag line

The document's tags sit on one line starting with the marker:

    %s [go](id:…) [project-x](id:…)

New tags are appended to the end of the last such line. When a document
has no tag line one is added at the end of the file. Tags may also be
linked inline anywhere in the body.

## Tools

Use tag_note to add a tag; set create=true to allow creating a missing
tag. Do not write tag links by hand.
`, where, "`"+path.Join(dir, "<tag>.md")+"`", marker)
}
