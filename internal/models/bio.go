// Package models defines the domain types for the bio page.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	ProfilesCollection = "profiles"
	LinksCollection    = "social_links"
)

// Profile is the single bio-page identity record.
type Profile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	ProfileImage string             `bson:"profile_image" json:"profile_image"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProfileInput carries the fields replaced by a profile update.
type ProfileInput struct {
	Name         string
	Description  string
	ProfileImage string
}

// Link is one ordered social-platform entry of the profile.
// ProfileID is a lookup field only and is not exposed in responses.
type Link struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProfileID primitive.ObjectID `bson:"profile_id" json:"-"`
	Title     string             `bson:"title" json:"title"`
	URL       string             `bson:"url" json:"url"`
	IconType  string             `bson:"icon_type" json:"icon_type"`
	Order     int                `bson:"order" json:"order"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// LinkInput carries the fields of a new link.
type LinkInput struct {
	Title    string
	URL      string
	IconType string
	Order    int
}

// LinkPatch is a partial link update. Nil fields are left untouched;
// there is no way to clear a field.
type LinkPatch struct {
	Title    *string
	URL      *string
	IconType *string
	Order    *int
}

// Empty reports whether the patch carries no field at all.
func (p LinkPatch) Empty() bool {
	return p.Title == nil && p.URL == nil && p.IconType == nil && p.Order == nil
}

// Fields returns the bson field set the patch applies.
func (p LinkPatch) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.URL != nil {
		fields["url"] = *p.URL
	}
	if p.IconType != nil {
		fields["icon_type"] = *p.IconType
	}
	if p.Order != nil {
		fields["order"] = *p.Order
	}
	return fields
}
