package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/biolink/internal/apperr"
)

// Runs against a real server only when BIOLINK_TEST_MONGO_URI is set.
func testMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("BIOLINK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BIOLINK_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	dbName := fmt.Sprintf("biolink_test_%d", time.Now().UnixNano())
	m, err := OpenMongo(ctx, uri, dbName, 5*time.Second)
	if err != nil {
		t.Fatalf("OpenMongo: %v", err)
	}
	t.Cleanup(func() {
		_ = m.db.Drop(context.Background())
		_ = m.Close(context.Background())
	})
	return m
}

func TestMongo_CRUD(t *testing.T) {
	ctx := context.Background()
	c := testMongo(t).Collection("items")

	for _, it := range []item{{Name: "b", Order: 2}, {Name: "a", Order: 1}} {
		it.ID = primitive.NewObjectID()
		if err := c.InsertOne(ctx, it); err != nil {
			t.Fatalf("InsertOne: %v", err)
		}
	}

	raws, err := c.Find(ctx, nil, FindOptions{SortKey: "order", Limit: 100})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	items, _ := DecodeAll[item](raws)
	if len(items) != 2 || items[0].Name != "a" {
		t.Fatalf("items = %+v", items)
	}

	matched, err := c.UpdateOne(ctx, Filter{"_id": items[0].ID}, Fields{"order": 5})
	if err != nil || matched != 1 {
		t.Fatalf("UpdateOne = %d, %v", matched, err)
	}
	matched, err = c.UpdateOne(ctx, Filter{"_id": items[0].ID}, nil)
	if err != nil || matched != 1 {
		t.Fatalf("empty UpdateOne = %d, %v", matched, err)
	}

	deleted, err := c.DeleteOne(ctx, Filter{"_id": items[1].ID})
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteOne = %d, %v", deleted, err)
	}
	if _, err := c.FindOne(ctx, Filter{"_id": items[1].ID}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("FindOne after delete err = %v", err)
	}
}

func TestMongo_DuplicateID(t *testing.T) {
	ctx := context.Background()
	c := testMongo(t).Collection("markers")
	if err := c.InsertOne(ctx, bson.M{"_id": "fixed"}); err != nil {
		t.Fatal(err)
	}
	if err := c.InsertOne(ctx, bson.M{"_id": "fixed"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}
