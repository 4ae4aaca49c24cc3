package docstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/biolink/internal/apperr"
)

type item struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Order int                `bson:"order"`
}

func testStore(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "biolink-docstore-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := OpenSQLite(f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestSchemaCreation(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestInsertAndFindOne(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")

	id := primitive.NewObjectID()
	if err := c.InsertOne(ctx, item{ID: id, Name: "a", Order: 1}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	raw, err := c.FindOne(ctx, Filter{"_id": id})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	got, err := Decode[item](raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.Name != "a" || got.Order != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestInsertGeneratesID(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")

	if err := c.InsertOne(ctx, item{Name: "no id"}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	raw, err := c.FindOne(ctx, nil)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	got, _ := Decode[item](raw)
	if got.ID.IsZero() {
		t.Error("expected generated _id")
	}
}

func TestFindOne_NotFound(t *testing.T) {
	c := testStore(t).Collection("items")
	_, err := c.FindOne(context.Background(), Filter{"_id": primitive.NewObjectID()})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("markers")

	if err := c.InsertOne(ctx, bson.M{"_id": "fixed"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := c.InsertOne(ctx, bson.M{"_id": "fixed"})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second insert err = %v, want ErrAlreadyExists", err)
	}
}

func TestSameIDInDifferentCollections(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.Collection("a").InsertOne(ctx, bson.M{"_id": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Collection("b").InsertOne(ctx, bson.M{"_id": "x"}); err != nil {
		t.Errorf("insert into other collection: %v", err)
	}
}

func TestInsertManyIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")

	id := primitive.NewObjectID()
	err := c.InsertMany(ctx, []any{
		item{ID: primitive.NewObjectID(), Name: "ok"},
		item{ID: id, Name: "first"},
		item{ID: id, Name: "dup"},
	})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	n, _ := c.Count(ctx, nil)
	if n != 0 {
		t.Errorf("count = %d after failed batch, want 0", n)
	}
}

func TestFindSortsAndLimits(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")

	for _, it := range []item{{Name: "c", Order: 3}, {Name: "a", Order: 1}, {Name: "b1", Order: 2}, {Name: "b2", Order: 2}} {
		if err := c.InsertOne(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	raws, err := c.Find(ctx, nil, FindOptions{SortKey: "order"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	items, _ := DecodeAll[item](raws)
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	want := []string{"a", "b1", "b2", "c"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
			break
		}
	}

	raws, _ = c.Find(ctx, nil, FindOptions{SortKey: "order", Limit: 2})
	if len(raws) != 2 {
		t.Errorf("limited find = %d, want 2", len(raws))
	}
}

func TestFilterMatchesNumbersByValue(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")
	_ = c.InsertOne(ctx, item{Name: "x", Order: 7})

	n, err := c.Count(ctx, Filter{"order": int64(7)})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	n, _ = c.Count(ctx, Filter{"order": "7"})
	if n != 0 {
		t.Errorf("string filter matched a number")
	}
}

func TestUpdateOneSetsOnlyGivenFields(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")
	id := primitive.NewObjectID()
	_ = c.InsertOne(ctx, item{ID: id, Name: "keep", Order: 1})

	matched, err := c.UpdateOne(ctx, Filter{"_id": id}, Fields{"order": 9})
	if err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	if matched != 1 {
		t.Fatalf("matched = %d", matched)
	}
	raw, _ := c.FindOne(ctx, Filter{"_id": id})
	got, _ := Decode[item](raw)
	if got.Name != "keep" || got.Order != 9 {
		t.Errorf("got %+v", got)
	}

	matched, _ = c.UpdateOne(ctx, Filter{"_id": primitive.NewObjectID()}, Fields{"order": 1})
	if matched != 0 {
		t.Errorf("update of missing doc matched %d", matched)
	}
}

func TestDeleteOne(t *testing.T) {
	ctx := context.Background()
	c := testStore(t).Collection("items")
	id := primitive.NewObjectID()
	_ = c.InsertOne(ctx, item{ID: id, Name: "bye"})

	deleted, err := c.DeleteOne(ctx, Filter{"_id": id})
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteOne = %d, %v", deleted, err)
	}
	deleted, _ = c.DeleteOne(ctx, Filter{"_id": id})
	if deleted != 0 {
		t.Errorf("second delete = %d, want 0", deleted)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Options{Driver: "postgres"}); err == nil {
		t.Error("unknown driver accepted")
	}

	s, err := Open(ctx, Options{Driver: DriverSQLite, SQLitePath: t.TempDir() + "/open.db"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(ctx)
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestDecodeAllNeverNil(t *testing.T) {
	items, err := DecodeAll[item](nil)
	if err != nil || items == nil {
		t.Errorf("DecodeAll(nil) = %#v, %v", items, err)
	}
}
