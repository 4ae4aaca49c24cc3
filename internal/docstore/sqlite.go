package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/starford/biolink/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	body       BLOB NOT NULL,
	UNIQUE(collection, doc_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq);
`

// SQLite is an embedded Store keeping BSON documents in a single table.
// Filtering and sorting happen in Go over the collection's documents, which
// is fine for the handful of documents a bio page holds.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("docstore: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Collection returns the named collection.
func (s *SQLite) Collection(name string) Collection {
	return &sqliteCollection{conn: s.conn, name: name}
}

// Ping checks the database file is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close(_ context.Context) error {
	return s.conn.Close()
}

type sqliteCollection struct {
	conn *sql.DB
	name string
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type storedDoc struct {
	seq  int64
	body bson.Raw
}

// scan returns the matching documents in insertion order. A filter on _id
// alone uses the doc_id index instead of a collection scan.
func (c *sqliteCollection) scan(ctx context.Context, q querier, filter Filter) ([]storedDoc, error) {
	m, err := newMatcher(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT seq, body FROM documents WHERE collection = ?`
	args := []any{c.name}
	if id, ok := filter["_id"]; ok && len(filter) == 1 {
		rv, err := rawValue(id)
		if err != nil {
			return nil, err
		}
		key, err := docKey(rv)
		if err != nil {
			return nil, err
		}
		query += ` AND doc_id = ?`
		args = append(args, key)
	}
	query += ` ORDER BY seq`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: scan %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []storedDoc
	for rows.Next() {
		var d storedDoc
		var body []byte
		if err := rows.Scan(&d.seq, &body); err != nil {
			return nil, err
		}
		d.body = body
		if m.match(d.body) {
			out = append(out, d)
		}
	}
	return out, rows.Err()
}

func (c *sqliteCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		var n int64
		err := c.conn.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE collection = ?`, c.name).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("docstore: count %s: %w", c.name, err)
		}
		return n, nil
	}
	docs, err := c.scan(ctx, c.conn, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *sqliteCollection) FindOne(ctx context.Context, filter Filter) (bson.Raw, error) {
	docs, err := c.scan(ctx, c.conn, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperr.ErrNotFound
	}
	return docs[0].body, nil
}

func (c *sqliteCollection) Find(ctx context.Context, filter Filter, opts FindOptions) ([]bson.Raw, error) {
	docs, err := c.scan(ctx, c.conn, filter)
	if err != nil {
		return nil, err
	}
	out := make([]bson.Raw, len(docs))
	for i, d := range docs {
		out[i] = d.body
	}
	if opts.SortKey != "" {
		sortByKey(out, opts.SortKey)
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (c *sqliteCollection) InsertOne(ctx context.Context, doc any) error {
	return c.InsertMany(ctx, []any{doc})
}

// InsertMany inserts all documents in one transaction: either every
// document is stored or none is.
func (c *sqliteCollection) InsertMany(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (collection, doc_id, body) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("docstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		raw, key, err := withID(doc)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.name, key, []byte(raw)); err != nil {
			if isConstraint(err) {
				return fmt.Errorf("docstore: insert %s/%s: %w", c.name, key, apperr.ErrAlreadyExists)
			}
			return fmt.Errorf("docstore: insert %s: %w", c.name, err)
		}
	}
	return tx.Commit()
}

func (c *sqliteCollection) UpdateOne(ctx context.Context, filter Filter, set Fields) (int64, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	docs, err := c.scan(ctx, tx, filter)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if len(set) > 0 {
		body, err := applySet(docs[0].body, set)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE seq = ?`, []byte(body), docs[0].seq); err != nil {
			return 0, fmt.Errorf("docstore: update %s: %w", c.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("docstore: commit: %w", err)
	}
	return 1, nil
}

func (c *sqliteCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	docs, err := c.scan(ctx, tx, filter)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE seq = ?`, docs[0].seq); err != nil {
		return 0, fmt.Errorf("docstore: delete %s: %w", c.name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("docstore: commit: %w", err)
	}
	return 1, nil
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
