// Package linkservice manages the ordered social links of the profile.
package linkservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/biolink/internal/apperr"
	"github.com/starford/biolink/internal/docstore"
	"github.com/starford/biolink/internal/models"
)

// ListCap is the most links ListLinks returns. There is no cursor past it.
const ListCap = 100

// Service coordinates link reads and writes against the store.
type Service struct {
	profiles docstore.Collection
	links    docstore.Collection
	now      func() time.Time
}

// NewService creates a link service over store.
func NewService(store docstore.Store) *Service {
	return &Service{
		profiles: store.Collection(models.ProfilesCollection),
		links:    store.Collection(models.LinksCollection),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// ParseID converts a hex link id into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid link id %q: %w", id, apperr.ErrInvalidArgument)
	}
	return oid, nil
}

// ListLinks returns links sorted by order ascending, at most ListCap of them.
func (s *Service) ListLinks(ctx context.Context) ([]models.Link, error) {
	raws, err := s.links.Find(ctx, nil, docstore.FindOptions{SortKey: "order", Limit: ListCap})
	if err != nil {
		return nil, fmt.Errorf("links: list: %w", err)
	}
	return docstore.DecodeAll[models.Link](raws)
}

// CreateLink stores a new link for the profile. It fails with
// apperr.ErrNotFound and writes nothing when no profile exists.
func (s *Service) CreateLink(ctx context.Context, in models.LinkInput) (*models.Link, error) {
	raw, err := s.profiles.FindOne(ctx, nil)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("profile: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	profile, err := docstore.Decode[models.Profile](raw)
	if err != nil {
		return nil, err
	}

	link := models.Link{
		ID:        primitive.NewObjectID(),
		ProfileID: profile.ID,
		Title:     in.Title,
		URL:       in.URL,
		IconType:  in.IconType,
		Order:     in.Order,
		CreatedAt: s.now(),
	}
	if err := s.links.InsertOne(ctx, link); err != nil {
		return nil, fmt.Errorf("links: insert: %w", err)
	}
	return &link, nil
}

// UpdateLink applies the non-nil fields of patch and returns the link as
// stored afterwards. An empty patch writes nothing.
func (s *Service) UpdateLink(ctx context.Context, id string, patch models.LinkPatch) (*models.Link, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	current, err := s.get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	matched, err := s.links.UpdateOne(ctx, docstore.Filter{"_id": oid}, patch.Fields())
	if err != nil {
		return nil, fmt.Errorf("links: update: %w", err)
	}
	if matched == 0 {
		return nil, fmt.Errorf("link %s: %w", id, apperr.ErrNotFound)
	}
	return s.get(ctx, oid)
}

// DeleteLink removes the link with the given id.
func (s *Service) DeleteLink(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.links.DeleteOne(ctx, docstore.Filter{"_id": oid})
	if err != nil {
		return fmt.Errorf("links: delete: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("link %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) get(ctx context.Context, oid primitive.ObjectID) (*models.Link, error) {
	raw, err := s.links.FindOne(ctx, docstore.Filter{"_id": oid})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("link %s: %w", oid.Hex(), apperr.ErrNotFound)
		}
		return nil, err
	}
	return docstore.Decode[models.Link](raw)
}
