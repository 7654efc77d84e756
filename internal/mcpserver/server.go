// Package mcpserver exposes the tag operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/linkopen"
	"github.com/starford/notetags/internal/noteservice"
	"github.com/starford/notetags/internal/prompt"
	"github.com/starford/notetags/internal/tagger"
)

// Server wraps the MCP server with the tag tools.
type Server struct {
	mcp         *server.MCPServer
	tags        *tagger.Tagger
	notes       *noteservice.Service
	logger      *slog.Logger
	conventions string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithConventions replaces the conventions resource text.
func WithConventions(text string) Option {
	return func(s *Server) { s.conventions = text }
}

// New creates an MCP server with all tag tools registered.
func New(tags *tagger.Tagger, notes *noteservice.Service, opts ...Option) *Server {
	s := &Server{
		tags:        tags,
		notes:       notes,
		logger:      slog.Default(),
		conventions: Conventions(tagger.DefaultMarker, ""),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"notetags",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag in the vault, sorted."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("note_tags",
		mcp.WithDescription("List the tags a note links to, in link order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative note path (e.g. folder/note.md)")),
	), s.noteTags)

	s.mcp.AddTool(mcp.NewTool("tag_note",
		mcp.WithDescription("Add a tag to a note. Without offset the tag goes on the note's tag line; "+
			"with offset it is linked inline at that character position. Read "+ConventionsURI+" first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative note path")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
		mcp.WithBoolean("create", mcp.Description("Create the tag when it does not exist yet")),
		mcp.WithNumber("offset", mcp.Description("Character offset for an inline tag")),
	), s.tagNote)

	s.mcp.AddTool(mcp.NewTool("create_tag",
		mcp.WithDescription("Create a new tag note."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name (lowercase, digits, dashes)")),
	), s.createTag)

	s.mcp.AddTool(mcp.NewTool("tag_backlinks",
		mcp.WithDescription("List the notes that link to a tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
	), s.tagBacklinks)

	s.mcp.AddTool(mcp.NewTool("open_link",
		mcp.WithDescription("Follow a link. Links to tags return the tag's backlinks; other links are declined."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Link destination, e.g. id:<uuid>")),
	), s.openLink)

	s.mcp.AddResource(
		mcp.NewResource(ConventionsURI, "Tagging conventions",
			mcp.WithResourceDescription("How tags, tag lines and id links are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventions,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	if !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrNotATag) &&
		!errors.Is(err, apperr.ErrAlreadyExists) && !errors.Is(err, apperr.ErrInvalidPath) &&
		!errors.Is(err, apperr.ErrBadOffset) {
		s.logger.Error("tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.tags.Repository().ListTags(ctx)
	if err != nil {
		return s.toolError("list_tags", err), nil
	}
	return jsonResult(tags), nil
}

func (s *Server) noteTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, err := s.tags.DocumentTags(ctx, path)
	if err != nil {
		return s.toolError("note_tags", err), nil
	}
	return jsonResult(tags), nil
}

type tagNoteResult struct {
	Inserted bool     `json:"inserted"`
	Messages []string `json:"messages"`
}

func (s *Server) tagNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	notify := &prompt.Fixed{Answer: req.GetBool("create", false), Logger: s.logger}
	t := s.tags.WithNotifier(notify)

	var inserted bool
	if _, ok := req.GetArguments()["offset"]; ok {
		offset, convErr := req.RequireInt("offset")
		if convErr != nil {
			return mcp.NewToolResultError(convErr.Error()), nil
		}
		inserted, err = t.TagAt(ctx, path, offset, tag)
	} else {
		inserted, err = t.TagFile(ctx, path, tag)
	}
	if err != nil {
		return s.toolError("tag_note", err), nil
	}
	msgs := notify.Messages
	if msgs == nil {
		msgs = []string{}
	}
	return jsonResult(tagNoteResult{Inserted: inserted, Messages: msgs}), nil
}

func (s *Server) createTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t := s.tags.WithNotifier(&prompt.Fixed{Logger: s.logger})
	id, err := t.CreateTag(ctx, tag)
	if err != nil {
		return s.toolError("create_tag", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s) id:%s", tag, t.TagPath(tag), id)), nil
}

func (s *Server) tagBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, ok, err := s.tags.Repository().IDForTag(ctx, tag)
	if err != nil {
		return s.toolError("tag_backlinks", err), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No tag «%s»", tag)), nil
	}
	view, err := s.notes.Backlinks(ctx, id)
	if err != nil {
		return s.toolError("tag_backlinks", err), nil
	}
	return jsonResult(view), nil
}

func (s *Server) openLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var view *noteservice.BacklinkView
	chain := linkopen.NewTagChain(s.tags.Repository(), linkopen.ViewerFunc(func(ctx context.Context, _, id string) error {
		v, err := s.notes.Backlinks(ctx, id)
		view = v
		return err
	}))
	res, err := chain.Open(ctx, linkopen.ParseLink(raw))
	if err != nil {
		return s.toolError("open_link", err), nil
	}
	if res == linkopen.Declined {
		return mcp.NewToolResultText("declined: not a tag link"), nil
	}
	return jsonResult(view), nil
}

func (s *Server) readConventions(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConventionsURI,
			MIMEType: "text/markdown",
			Text:     s.conventions,
		},
	}, nil
}
