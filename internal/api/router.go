package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the tag API on a chi router. sseHandler, when non-nil,
// is served at GET /events behind the same auth.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", h.ListTags)
		r.Post("/", h.CreateTag)
		r.Get("/{tag}", h.GetTag)
		r.Get("/{tag}/backlinks", h.TagBacklinks)
	})

	r.Route("/notes/tags", func(r chi.Router) {
		r.Get("/", h.NoteTags)
		r.Post("/", h.TagNote)
		r.Delete("/", h.ClearNoteTags)
	})

	r.Get("/open", h.OpenLink)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
