package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/biolink/internal/models"
)

// Pointer fields tell a missing key apart from a zero value.

// ReplaceProfileRequest is the request body for PUT /profile. Every field is required.
type ReplaceProfileRequest struct {
	Name         *string `json:"name" example:"ZwQ" validate:"required"`
	Description  *string `json:"description" example:"Bio" validate:"required"`
	ProfileImage *string `json:"profile_image" example:"https://example.com/me.jpg" validate:"required"`
}

// Validate checks that every field is present and the name is not blank.
func (r *ReplaceProfileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.NotNil, validation.Required),
		validation.Field(&r.Description, validation.NotNil),
		validation.Field(&r.ProfileImage, validation.NotNil),
	)
}

// Input converts a validated request into the service input.
func (r *ReplaceProfileRequest) Input() models.ProfileInput {
	return models.ProfileInput{
		Name:         *r.Name,
		Description:  *r.Description,
		ProfileImage: *r.ProfileImage,
	}
}

// CreateLinkRequest is the request body for POST /links. Every field is required.
type CreateLinkRequest struct {
	Title    *string `json:"title" example:"GitHub" validate:"required"`
	URL      *string `json:"url" example:"https://github.com" validate:"required"`
	IconType *string `json:"icon_type" example:"github" validate:"required"`
	Order    *int    `json:"order" example:"4" validate:"required"`
}

// Validate checks that every field is present and the title is not blank.
func (r *CreateLinkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NotNil, validation.Required),
		validation.Field(&r.URL, validation.NotNil),
		validation.Field(&r.IconType, validation.NotNil),
		validation.Field(&r.Order, validation.NotNil),
	)
}

// Input converts a validated request into the service input.
func (r *CreateLinkRequest) Input() models.LinkInput {
	return models.LinkInput{
		Title:    *r.Title,
		URL:      *r.URL,
		IconType: *r.IconType,
		Order:    *r.Order,
	}
}

// UpdateLinkRequest is the request body for PUT /links/{id}.
// Missing and null fields are left unchanged.
type UpdateLinkRequest struct {
	Title    *string `json:"title,omitempty" example:"GitHub"`
	URL      *string `json:"url,omitempty" example:"https://github.com/zwq"`
	IconType *string `json:"icon_type,omitempty" example:"github"`
	Order    *int    `json:"order,omitempty" example:"2"`
}

// Validate rejects a blank title when one is given.
func (r *UpdateLinkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
	)
}

// Patch converts the request into a partial update.
func (r *UpdateLinkRequest) Patch() models.LinkPatch {
	return models.LinkPatch{
		Title:    r.Title,
		URL:      r.URL,
		IconType: r.IconType,
		Order:    r.Order,
	}
}

// Profile is the profile response type.
type Profile = models.Profile

// Link is the link response type.
type Link = models.Link
