package seed_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/biolink/internal/docstore"
	"github.com/starford/biolink/internal/models"
	"github.com/starford/biolink/internal/seed"
	"github.com/starford/biolink/internal/testutil"
)

func TestEnsureDefaults_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := testutil.TestStore(t)

	seeded, err := seed.New(store, testutil.Logger()).EnsureDefaults(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if !seeded {
		t.Fatal("expected defaults to be written")
	}

	n, _ := store.Collection(models.ProfilesCollection).Count(ctx, nil)
	if n != 1 {
		t.Fatalf("profiles = %d, want 1", n)
	}
	raw, _ := store.Collection(models.ProfilesCollection).FindOne(ctx, nil)
	profile, _ := docstore.Decode[models.Profile](raw)

	raws, err := store.Collection(models.LinksCollection).Find(ctx, nil, docstore.FindOptions{SortKey: "order"})
	if err != nil {
		t.Fatal(err)
	}
	links, _ := docstore.DecodeAll[models.Link](raws)
	wantTitles := []string{"Facebook", "Discord", "Steam", "GitHub", "YouTube"}
	if len(links) != len(wantTitles) {
		t.Fatalf("links = %d, want %d", len(links), len(wantTitles))
	}
	for i, l := range links {
		if l.Title != wantTitles[i] {
			t.Errorf("links[%d].Title = %q, want %q", i, l.Title, wantTitles[i])
		}
		if l.Order != i+1 {
			t.Errorf("links[%d].Order = %d, want %d", i, l.Order, i+1)
		}
		if l.ProfileID != profile.ID {
			t.Errorf("links[%d] references %s, want %s", i, l.ProfileID.Hex(), profile.ID.Hex())
		}
	}
	if links[3].IconType != "github" {
		t.Errorf("icon_type = %q, want github", links[3].IconType)
	}
}

func TestEnsureDefaults_Twice(t *testing.T) {
	ctx := context.Background()
	store := testutil.TestStore(t)
	s := seed.New(store, testutil.Logger())

	if _, err := s.EnsureDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	seeded, err := s.EnsureDefaults(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if seeded {
		t.Error("second run should be a no-op")
	}
	n, _ := store.Collection(models.ProfilesCollection).Count(ctx, nil)
	if n != 1 {
		t.Errorf("profiles = %d, want 1", n)
	}
	n, _ = store.Collection(models.LinksCollection).Count(ctx, nil)
	if n != 5 {
		t.Errorf("links = %d, want 5", n)
	}
}

func TestEnsureDefaults_ExistingProfile(t *testing.T) {
	ctx := context.Background()
	store := testutil.TestStore(t)
	err := store.Collection(models.ProfilesCollection).InsertOne(ctx, models.Profile{
		ID:        primitive.NewObjectID(),
		Name:      "already here",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	seeded, err := seed.New(store, testutil.Logger()).EnsureDefaults(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if seeded {
		t.Error("seeding should be skipped when a profile exists")
	}
	n, _ := store.Collection(models.LinksCollection).Count(ctx, nil)
	if n != 0 {
		t.Errorf("links = %d, want 0", n)
	}
}

func TestEnsureDefaults_ConcurrentRuns(t *testing.T) {
	ctx := context.Background()
	store := testutil.TestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = seed.New(store, testutil.Logger()).EnsureDefaults(ctx)
		}()
	}
	wg.Wait()

	n, _ := store.Collection(models.ProfilesCollection).Count(ctx, nil)
	if n != 1 {
		t.Errorf("profiles = %d after concurrent seeding, want 1", n)
	}
}
