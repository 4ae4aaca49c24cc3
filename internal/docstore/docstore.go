// Package docstore is the document store adapter: collection-scoped CRUD
// primitives over MongoDB or an embedded SQLite file.
package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Filter matches documents whose fields equal the given values.
// A nil or empty Filter matches every document.
type Filter map[string]any

// Fields is a field-to-value set applied by UpdateOne ($set semantics).
type Fields map[string]any

// FindOptions controls Find. SortKey sorts ascending; ties keep insertion
// order. A Limit of zero means no limit.
type FindOptions struct {
	SortKey string
	Limit   int64
}

// Collection is the set of primitives every backend provides.
// Consumers depend on this interface rather than a concrete backend.
type Collection interface {
	Count(ctx context.Context, filter Filter) (int64, error)
	// FindOne returns the first matching document or apperr.ErrNotFound.
	FindOne(ctx context.Context, filter Filter) (bson.Raw, error)
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]bson.Raw, error)
	// InsertOne returns apperr.ErrAlreadyExists when the _id is taken.
	InsertOne(ctx context.Context, doc any) error
	InsertMany(ctx context.Context, docs []any) error
	UpdateOne(ctx context.Context, filter Filter, set Fields) (matched int64, err error)
	DeleteOne(ctx context.Context, filter Filter) (deleted int64, err error)
}

// Store is a connected document database.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options selects and configures a backend.
type Options struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	SQLitePath     string
	ConnectTimeout time.Duration
}

// Open connects to the configured backend. The returned Store has already
// answered a ping; no operation may be issued on a Store that failed to open.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase, opts.ConnectTimeout)
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("docstore: unknown driver %q", opts.Driver)
	}
}

// Decode unmarshals a raw document into a new T.
func Decode[T any](raw bson.Raw) (*T, error) {
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode: %w", err)
	}
	return &out, nil
}

// DecodeAll unmarshals every raw document. The result is never nil.
func DecodeAll[T any](raws []bson.Raw) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
