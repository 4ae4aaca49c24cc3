package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/biolink/internal/apperr"
	"github.com/starford/biolink/internal/linkservice"
	"github.com/starford/biolink/internal/profileservice"
	"github.com/starford/biolink/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	profiles *profileservice.Service
	links    *linkservice.Service
	events   sse.Publisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(profiles *profileservice.Service, links *linkservice.Service, events sse.Publisher) *Handler {
	return &Handler{profiles: profiles, links: links, events: events}
}

func (h *Handler) publish(kind, id string) {
	if h.events != nil {
		h.events.PublishChange(kind, id)
	}
}

// fail maps a service error onto a status code. notFound is the message
// used for apperr.ErrNotFound.
func fail(w http.ResponseWriter, op string, err error, notFound string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(notFound))
	case errors.Is(err, apperr.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid link ID"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Root handles GET /api/.
//
//	@Summary		API identity
//	@Tags			meta
//	@Produce		json
//	@Success		200	{object}	messageResponse
//	@Router			/ [get]
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "ZwQ Bio API"})
}

// GetProfile handles GET /api/profile.
//
//	@Summary		Get the bio profile
//	@Tags			profile
//	@Produce		json
//	@Success		200	{object}	Profile
//	@Failure		404	{object}	errResponse
//	@Router			/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfile(r.Context())
	if err != nil {
		fail(w, "get profile", err, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ReplaceProfile handles PUT /api/profile.
//
//	@Summary		Replace name, description and image of the profile
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReplaceProfileRequest	true	"New profile fields"
//	@Success		200		{object}	Profile
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/profile [put]
func (h *Handler) ReplaceProfile(w http.ResponseWriter, r *http.Request) {
	var req ReplaceProfileRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	p, err := h.profiles.ReplaceProfile(r.Context(), req.Input())
	if err != nil {
		fail(w, "replace profile", err, "Profile not found")
		return
	}
	h.publish(sse.ProfileUpdated, p.ID.Hex())
	writeJSON(w, http.StatusOK, p)
}

// ListLinks handles GET /api/links.
//
//	@Summary		List links ordered by their order field (at most 100)
//	@Tags			links
//	@Produce		json
//	@Success		200	{array}	Link
//	@Router			/links [get]
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.ListLinks(r.Context())
	if err != nil {
		fail(w, "list links", err, "Link not found")
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// CreateLink handles POST /api/links.
//
//	@Summary		Add a link to the profile
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateLinkRequest	true	"Link to create"
//	@Success		201		{object}	Link
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/links [post]
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	link, err := h.links.CreateLink(r.Context(), req.Input())
	if err != nil {
		fail(w, "create link", err, "Profile not found")
		return
	}
	h.publish(sse.LinkCreated, link.ID.Hex())
	writeJSON(w, http.StatusCreated, link)
}

// UpdateLink handles PUT /api/links/{id}.
//
//	@Summary		Partially update a link
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Link id"
//	@Param			body	body		UpdateLinkRequest	true	"Fields to change"
//	@Success		200		{object}	Link
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/links/{id} [put]
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := linkservice.ParseID(id); err != nil {
		fail(w, "update link", err, "Link not found")
		return
	}

	var req UpdateLinkRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	patch := req.Patch()
	link, err := h.links.UpdateLink(r.Context(), id, patch)
	if err != nil {
		fail(w, "update link", err, "Link not found")
		return
	}
	if !patch.Empty() {
		h.publish(sse.LinkUpdated, link.ID.Hex())
	}
	writeJSON(w, http.StatusOK, link)
}

// DeleteLink handles DELETE /api/links/{id}.
//
//	@Summary		Delete a link
//	@Tags			links
//	@Produce		json
//	@Param			id	path		string	true	"Link id"
//	@Success		200	{object}	messageResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/links/{id} [delete]
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.links.DeleteLink(r.Context(), id); err != nil {
		fail(w, "delete link", err, "Link not found")
		return
	}
	h.publish(sse.LinkDeleted, id)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Link deleted successfully"})
}
