// Package document implements an editable text buffer with a cursor.
//
// Positions are rune offsets in the range [0, Len()]. The point is the
// cursor; Insert places text at the point and moves the point past it.
package document

import (
	"strings"
	"unicode"

	"github.com/starford/notetags/internal/parser"
)

// Buffer is an open document.
type Buffer struct {
	path     string
	orig     string
	text     []rune
	point    int
	modified bool
}

// New returns a buffer for path holding content, with the point at the start.
func New(path, content string) *Buffer {
	return &Buffer{path: path, orig: content, text: []rune(content)}
}

// Original returns the content the buffer was created with.
func (b *Buffer) Original() string { return b.orig }

// Path returns the vault-relative path the buffer was loaded from.
func (b *Buffer) Path() string { return b.path }

// String returns the full buffer text.
func (b *Buffer) String() string { return string(b.text) }

// Bytes returns the full buffer text as bytes.
func (b *Buffer) Bytes() []byte { return []byte(string(b.text)) }

// Len returns the buffer length in runes.
func (b *Buffer) Len() int { return len(b.text) }

// Point returns the cursor position.
func (b *Buffer) Point() int { return b.point }

// Modified reports whether the buffer changed since it was created.
func (b *Buffer) Modified() bool { return b.modified }

// Goto moves the point to pos, clamped to the buffer.
func (b *Buffer) Goto(pos int) {
	b.point = b.clamp(pos)
}

// GotoEnd moves the point to the end of the buffer.
func (b *Buffer) GotoEnd() { b.point = len(b.text) }

// Insert inserts s at the point and moves the point past it.
func (b *Buffer) Insert(s string) {
	if s == "" {
		return
	}
	r := []rune(s)
	out := make([]rune, 0, len(b.text)+len(r))
	out = append(out, b.text[:b.point]...)
	out = append(out, r...)
	out = append(out, b.text[b.point:]...)
	b.text = out
	b.point += len(r)
	b.modified = true
}

// Delete removes the text in [from, to). The point is adjusted so that it
// keeps addressing the same surrounding text.
func (b *Buffer) Delete(from, to int) {
	from, to = b.clamp(from), b.clamp(to)
	if from > to {
		from, to = to, from
	}
	if from == to {
		return
	}
	b.text = append(b.text[:from], b.text[to:]...)
	switch {
	case b.point >= to:
		b.point -= to - from
	case b.point > from:
		b.point = from
	}
	b.modified = true
}

// CharBefore returns the rune before the point; ok is false at buffer start.
func (b *Buffer) CharBefore() (r rune, ok bool) {
	if b.point == 0 {
		return 0, false
	}
	return b.text[b.point-1], true
}

// CharAfter returns the rune at the point; ok is false at buffer end.
func (b *Buffer) CharAfter() (r rune, ok bool) {
	if b.point >= len(b.text) {
		return 0, false
	}
	return b.text[b.point], true
}

// AtLineStart reports whether the point is at the start of a line.
func (b *Buffer) AtLineStart() bool {
	r, ok := b.CharBefore()
	return !ok || r == '\n'
}

// AtLineEnd reports whether the point is at the end of a line. A CR that
// starts a CRLF terminator counts as the line end.
func (b *Buffer) AtLineEnd() bool {
	return b.point >= len(b.text) || b.lineBreakAt(b.point)
}

// EndOfLine moves the point to the end of the current line, before its
// terminator.
func (b *Buffer) EndOfLine() {
	for b.point < len(b.text) && !b.lineBreakAt(b.point) {
		b.point++
	}
}

func (b *Buffer) lineBreakAt(i int) bool {
	switch b.text[i] {
	case '\n':
		return true
	case '\r':
		return i+1 < len(b.text) && b.text[i+1] == '\n'
	}
	return false
}

// TrimSpaceBackward deletes spaces and tabs immediately before the point.
func (b *Buffer) TrimSpaceBackward() {
	start := b.point
	for start > 0 && (b.text[start-1] == ' ' || b.text[start-1] == '\t') {
		start--
	}
	b.Delete(start, b.point)
}

// SearchLineBackward scans lines from the end of the buffer towards the
// start and returns the start offset of the first line that begins with
// prefix.
func (b *Buffer) SearchLineBackward(prefix string) (int, bool) {
	p := []rune(prefix)
	end := len(b.text)
	for end >= 0 {
		start := end
		for start > 0 && b.text[start-1] != '\n' {
			start--
		}
		if hasPrefix(b.text[start:end], p) {
			return start, true
		}
		if start == 0 {
			break
		}
		end = start - 1
	}
	return 0, false
}

// Parse parses the current buffer contents.
func (b *Buffer) Parse() (*parser.Result, error) {
	return parser.Parse(b.Bytes())
}

// IsSeparator reports whether r separates inline links from surrounding
// text: whitespace or a dash.
func IsSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '-'
}

func (b *Buffer) clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(b.text) {
		return len(b.text)
	}
	return pos
}

func hasPrefix(line, prefix []rune) bool {
	if len(prefix) > len(line) {
		return false
	}
	return strings.HasPrefix(string(line[:len(prefix)]), string(prefix))
}
