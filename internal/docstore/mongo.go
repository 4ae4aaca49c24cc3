package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/starford/biolink/internal/apperr"
)

// Mongo is a Store backed by a MongoDB database. The driver keeps its own
// connection pool; a single Mongo is shared by all requests.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and pings the primary before returning.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*Mongo, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetAppName("biolink")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("docstore: mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("docstore: mongo ping: %w", err)
	}

	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Collection returns the named collection.
func (m *Mongo) Collection(name string) Collection {
	return &mongoCollection{coll: m.db.Collection(name)}
}

// Ping checks the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client and drains its pool.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func toBSON(f Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}

func (c *mongoCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, fmt.Errorf("docstore: count %s: %w", c.coll.Name(), err)
	}
	return n, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter) (bson.Raw, error) {
	raw, err := c.coll.FindOne(ctx, toBSON(filter)).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("docstore: find one %s: %w", c.coll.Name(), err)
	}
	return raw, nil
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, opts FindOptions) ([]bson.Raw, error) {
	fo := options.Find()
	if opts.SortKey != "" {
		// _id is monotonic for driver-generated ObjectIDs, which keeps ties in insertion order.
		fo.SetSort(bson.D{{Key: opts.SortKey, Value: 1}, {Key: "_id", Value: 1}})
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}

	cur, err := c.coll.Find(ctx, toBSON(filter), fo)
	if err != nil {
		return nil, fmt.Errorf("docstore: find %s: %w", c.coll.Name(), err)
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		// cur.Current is reused by the next call.
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("docstore: iterate %s: %w", c.coll.Name(), err)
	}
	return out, nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("docstore: insert %s: %w", c.coll.Name(), apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("docstore: insert %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) InsertMany(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("docstore: insert many %s: %w", c.coll.Name(), apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("docstore: insert many %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter Filter, set Fields) (int64, error) {
	if len(set) == 0 {
		// MongoDB rejects an empty $set; report whether the target exists instead.
		n, err := c.coll.CountDocuments(ctx, toBSON(filter), options.Count().SetLimit(1))
		if err != nil {
			return 0, fmt.Errorf("docstore: update %s: %w", c.coll.Name(), err)
		}
		return n, nil
	}
	res, err := c.coll.UpdateOne(ctx, toBSON(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return 0, fmt.Errorf("docstore: update %s: %w", c.coll.Name(), err)
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, toBSON(filter))
	if err != nil {
		return 0, fmt.Errorf("docstore: delete %s: %w", c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}
