// Package seed creates the default profile and links on an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/biolink/internal/apperr"
	"github.com/starford/biolink/internal/docstore"
	"github.com/starford/biolink/internal/models"
)

const (
	markersCollection = "seed_markers"
	defaultsMarker    = "bio-defaults"
)

// DefaultProfile is the profile written on first start.
var DefaultProfile = models.ProfileInput{
	Name:         "ZwQ",
	Description:  "Bio",
	ProfileImage: "https://i.pinimg.com/736x/1b/a1/3f/1ba13f9e183fb869f3999b954b25d949.jpg",
}

// DefaultLinks are written in this order with order values 1..5.
var DefaultLinks = []models.LinkInput{
	{Title: "Facebook", URL: "https://facebook.com", IconType: "facebook", Order: 1},
	{Title: "Discord", URL: "https://discord.com", IconType: "discord", Order: 2},
	{Title: "Steam", URL: "https://steamcommunity.com", IconType: "steam", Order: 3},
	{Title: "GitHub", URL: "https://github.com", IconType: "github", Order: 4},
	{Title: "YouTube", URL: "https://youtube.com", IconType: "youtube", Order: 5},
}

type marker struct {
	ID       string    `bson:"_id"`
	SeededAt time.Time `bson:"seeded_at"`
}

// Seeder writes the default data at most once per store.
type Seeder struct {
	markers  docstore.Collection
	profiles docstore.Collection
	links    docstore.Collection
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Seeder over store.
func New(store docstore.Store, logger *slog.Logger) *Seeder {
	return &Seeder{
		markers:  store.Collection(markersCollection),
		profiles: store.Collection(models.ProfilesCollection),
		links:    store.Collection(models.LinksCollection),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureDefaults inserts the default profile and links unless the store has
// already been seeded or already holds a profile. It reports whether it wrote
// anything.
//
// The run is claimed by inserting a marker document with a fixed _id, so two
// concurrent startups cannot both seed: the loser gets a duplicate key error.
func (s *Seeder) EnsureDefaults(ctx context.Context) (bool, error) {
	now := s.now()

	err := s.markers.InsertOne(ctx, marker{ID: defaultsMarker, SeededAt: now})
	if errors.Is(err, apperr.ErrAlreadyExists) {
		s.logger.Debug("seed: already claimed", slog.String("marker", defaultsMarker))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed: claim marker: %w", err)
	}

	n, err := s.profiles.Count(ctx, nil)
	if err != nil {
		s.release(ctx)
		return false, fmt.Errorf("seed: count profiles: %w", err)
	}
	if n > 0 {
		s.logger.Info("seed: profile already present, skipping defaults", slog.Int64("profiles", n))
		return false, nil
	}

	if err := s.insertDefaults(ctx, now); err != nil {
		s.release(ctx)
		return false, err
	}

	s.logger.Info("Default data initialized", slog.Int("links", len(DefaultLinks)))
	return true, nil
}

func (s *Seeder) insertDefaults(ctx context.Context, now time.Time) error {
	profile := models.Profile{
		ID:           primitive.NewObjectID(),
		Name:         DefaultProfile.Name,
		Description:  DefaultProfile.Description,
		ProfileImage: DefaultProfile.ProfileImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.InsertOne(ctx, profile); err != nil {
		return fmt.Errorf("seed: insert profile: %w", err)
	}

	docs := make([]any, 0, len(DefaultLinks))
	for _, l := range DefaultLinks {
		docs = append(docs, models.Link{
			ID:        primitive.NewObjectID(),
			ProfileID: profile.ID,
			Title:     l.Title,
			URL:       l.URL,
			IconType:  l.IconType,
			Order:     l.Order,
			CreatedAt: now,
		})
	}
	if err := s.links.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed: insert links: %w", err)
	}
	return nil
}

// release drops the marker after a failed run so the next startup retries.
func (s *Seeder) release(ctx context.Context) {
	if _, err := s.markers.DeleteOne(ctx, docstore.Filter{"_id": defaultsMarker}); err != nil {
		s.logger.Warn("seed: release marker failed", slog.String("error", err.Error()))
	}
}
