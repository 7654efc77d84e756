// Package parser extracts frontmatter, titles, and links from Markdown content.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/notetags/internal/models"
)

// LinkRef is a link element found in a document, in document order.
type LinkRef struct {
	Type   string
	Target string
	Text   string
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	ID          string
	Title       string
	Links       []LinkRef
}

// Parse extracts frontmatter, body, identity, title, and links from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		ID:          stringField(fm, "id"),
		Title:       deriveTitle(fm, body),
		Links:       ExtractLinks([]byte(body)),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML is treated as plain body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// ExtractLinks walks the Markdown AST and returns every link element in
// document order. Duplicates are kept.
func ExtractLinks(body []byte) []LinkRef {
	doc := goldmark.New().Parser().Parse(text.NewReader(body))

	var out []LinkRef
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch l := n.(type) {
		case *ast.Link:
			typ, target := ClassifyLink(string(l.Destination))
			out = append(out, LinkRef{Type: typ, Target: target, Text: inlineText(l, body)})
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			url := string(l.URL(body))
			typ, target := ClassifyLink(url)
			out = append(out, LinkRef{Type: typ, Target: target, Text: string(l.Label(body))})
		}
		return ast.WalkContinue, nil
	})
	return out
}

// ClassifyLink splits a link destination into its type and target.
// "id:" and "file:" prefixes are stripped from the target; web links keep
// the full URL; scheme-less destinations are "fuzzy".
func ClassifyLink(dest string) (typ, target string) {
	dest = strings.TrimSpace(dest)
	i := strings.Index(dest, ":")
	if i <= 0 || strings.ContainsAny(dest[:i], "/.#?") {
		return models.LinkFuzzy, dest
	}
	scheme := strings.ToLower(dest[:i])
	switch scheme {
	case models.LinkID, models.LinkFile:
		return scheme, dest[i+1:]
	default:
		return scheme, dest
	}
}

// IDLink renders an identifier-style link with the given display text.
func IDLink(id, display string) string {
	return fmt.Sprintf("[%s](%s:%s)", display, models.LinkID, id)
}

type stubFrontmatter struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

// NewDocument renders the minimal document for a note: identity, title,
// and one top-level heading equal to the title.
func NewDocument(id, title string) ([]byte, error) {
	fm, err := yaml.Marshal(stubFrontmatter{ID: id, Title: title})
	if err != nil {
		return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n# ")
	b.WriteString(title)
	b.WriteString("\n")
	return b.Bytes(), nil
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	switch v := fm[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
