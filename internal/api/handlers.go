package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/linkopen"
	"github.com/starford/notetags/internal/noteservice"
	"github.com/starford/notetags/internal/prompt"
	"github.com/starford/notetags/internal/tagger"
)

// Handler holds API route handlers.
type Handler struct {
	tags   *tagger.Tagger
	notes  *noteservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(tags *tagger.Tagger, notes *noteservice.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{tags: tags, notes: notes, logger: logger}
}

// tagParam returns the {tag} URL parameter, unescaped.
func tagParam(r *http.Request) string {
	raw := chi.URLParam(r, "tag")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// fail maps domain errors to HTTP responses.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNotATag), errors.Is(err, apperr.ErrInvalidPath),
		errors.Is(err, apperr.ErrBadOffset):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrDanglingTag):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListTags handles GET /tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.Repository().ListTags(r.Context())
	if err != nil {
		h.fail(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

func (h *Handler) lookupTag(ctx context.Context, tag string) (*TagResponse, error) {
	repo := h.tags.Repository()
	id, ok, err := repo.IDForTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	file, _, err := repo.FileForID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TagResponse{Tag: tag, ID: id, File: file}, nil
}

// GetTag handles GET /tags/{tag}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag := tagParam(r)
	resp, err := h.lookupTag(r.Context(), tag)
	if err != nil {
		h.fail(w, "get tag", err)
		return
	}
	if resp == nil {
		writeJSON(w, http.StatusNotFound, errorBody(fmt.Sprintf("No tag «%s»", tag)))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// TagBacklinks handles GET /tags/{tag}/backlinks.
func (h *Handler) TagBacklinks(w http.ResponseWriter, r *http.Request) {
	tag := tagParam(r)
	id, ok, err := h.tags.Repository().IDForTag(r.Context(), tag)
	if err != nil {
		h.fail(w, "tag backlinks", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody(fmt.Sprintf("No tag «%s»", tag)))
		return
	}
	view, err := h.notes.Backlinks(r.Context(), id)
	if err != nil {
		h.fail(w, "tag backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CreateTag handles POST /tags. There is no confirmation step.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	t := h.tags.WithNotifier(&prompt.Fixed{Logger: h.logger})
	id, err := t.CreateTag(r.Context(), req.Tag)
	if err != nil {
		h.fail(w, "create tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, TagResponse{Tag: req.Tag, ID: id, File: t.TagPath(req.Tag)})
}

// NoteTags handles GET /notes/tags?path=.
func (h *Handler) NoteTags(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	tags, err := h.tags.DocumentTags(r.Context(), path)
	if err != nil {
		h.fail(w, "note tags", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteTagsResponse{Path: path, Tags: tags})
}

// TagNote handles POST /notes/tags.
func (h *Handler) TagNote(w http.ResponseWriter, r *http.Request) {
	var req TagNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" || req.Tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and tag are required"))
		return
	}

	notify := &prompt.Fixed{Answer: req.Create, Logger: h.logger}
	t := h.tags.WithNotifier(notify)
	var (
		inserted bool
		err      error
	)
	if req.Offset != nil {
		inserted, err = t.TagAt(r.Context(), req.Path, *req.Offset, req.Tag)
	} else {
		inserted, err = t.TagFile(r.Context(), req.Path, req.Tag)
	}
	if err != nil {
		h.fail(w, "tag note", err)
		return
	}
	msgs := notify.Messages
	if msgs == nil {
		msgs = []string{}
	}
	writeJSON(w, http.StatusOK, TagNoteResponse{Inserted: inserted, Messages: msgs})
}

// ClearNoteTags handles DELETE /notes/tags?path=.
func (h *Handler) ClearNoteTags(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	if err := h.tags.ClearFile(r.Context(), path); err != nil {
		h.fail(w, "clear note tags", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenLink handles GET /open?link=. A link to a tag answers with the
// backlink view; anything else is declined with 204 so the client opens
// it itself.
func (h *Handler) OpenLink(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("link")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'link' is required"))
		return
	}
	var view *BacklinkView
	chain := linkopen.NewTagChain(h.tags.Repository(), linkopen.ViewerFunc(func(ctx context.Context, _, id string) error {
		v, err := h.notes.Backlinks(ctx, id)
		view = v
		return err
	}))
	res, err := chain.Open(r.Context(), linkopen.ParseLink(raw))
	if err != nil {
		h.fail(w, "open link", err)
		return
	}
	if res == linkopen.Declined {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
