// Package profileservice reads and replaces the single bio profile.
package profileservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/biolink/internal/apperr"
	"github.com/starford/biolink/internal/docstore"
	"github.com/starford/biolink/internal/models"
)

// Service coordinates profile reads and writes against the store.
type Service struct {
	profiles docstore.Collection
	now      func() time.Time
}

// NewService creates a profile service over store.
func NewService(store docstore.Store) *Service {
	return &Service{
		profiles: store.Collection(models.ProfilesCollection),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// GetProfile returns the profile or apperr.ErrNotFound when none exists.
func (s *Service) GetProfile(ctx context.Context) (*models.Profile, error) {
	raw, err := s.profiles.FindOne(ctx, nil)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("profile: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return docstore.Decode[models.Profile](raw)
}

// ReplaceProfile overwrites name, description and image of the existing
// profile and bumps updated_at. All three fields are replaced, even when empty.
func (s *Service) ReplaceProfile(ctx context.Context, in models.ProfileInput) (*models.Profile, error) {
	current, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	matched, err := s.profiles.UpdateOne(ctx, docstore.Filter{"_id": current.ID}, docstore.Fields{
		"name":          in.Name,
		"description":   in.Description,
		"profile_image": in.ProfileImage,
		"updated_at":    s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("profile: update: %w", err)
	}
	if matched == 0 {
		return nil, fmt.Errorf("profile %s: %w", current.ID.Hex(), apperr.ErrNotFound)
	}

	raw, err := s.profiles.FindOne(ctx, docstore.Filter{"_id": current.ID})
	if err != nil {
		return nil, err
	}
	return docstore.Decode[models.Profile](raw)
}
