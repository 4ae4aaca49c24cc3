package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/biolink/internal/linkservice"
	"github.com/starford/biolink/internal/profileservice"
	"github.com/starford/biolink/internal/sse"
)

// NewRouter creates a chi router with all API routes, meant to be mounted at /api.
// events receives change notifications after successful writes and may be nil.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(profiles *profileservice.Service, links *linkservice.Service, events sse.Publisher, sseHandler http.Handler) chi.Router {
	h := NewHandler(profiles, links, events)

	r := chi.NewRouter()
	r.Get("/", h.Root)

	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.ReplaceProfile)

	r.Get("/links", h.ListLinks)
	r.Post("/links", h.CreateLink)
	r.Put("/links/{id}", h.UpdateLink)
	r.Delete("/links/{id}", h.DeleteLink)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
