// Package sqlite implements docstore.Store on an embedded SQLite
// database.
//
// Documents are rows in a single table keyed by (collection, id), with
// the fields serialized as JSON in a data column. Equality queries use
// json_extract over that column. The driver is modernc.org/sqlite, a
// pure-Go port, so the binary needs no cgo and tests can run against
// ":memory:".
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/docstore"
)

var _ docstore.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements docstore.Store.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and prepares the schema.
// Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A single writer connection serializes transactions, which is what
	// makes Update's read-modify-write atomic. SQLite only supports one
	// writer at a time anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Call it on shutdown to flush the WAL
// and release the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_created_at
			ON documents(collection, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// Get returns the document stored under (collection, id).
func (db *DB) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var (
		data               string
		createdAt, updated time.Time
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at FROM documents
		 WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data, &createdAt, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(collection+" document", id)
		}
		return nil, fmt.Errorf("sqlite: getting %s/%s: %w", collection, id, err)
	}

	fields, err := decodeFields(data, createdAt, updated)
	if err != nil {
		return nil, fmt.Errorf("sqlite: decoding %s/%s: %w", collection, id, err)
	}
	return &docstore.Document{ID: id, Fields: fields}, nil
}

// Set upserts the document, replacing its fields. createdAt is stamped
// on first insert only; updatedAt on every write.
func (db *DB) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s/%s: %w", collection, id, err)
	}

	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET
		 	data = excluded.data,
		 	updated_at = excluded.updated_at`,
		collection, id, data, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update applies fn to the current fields inside a transaction. The row
// is read and written without another writer interleaving, so callers
// can safely express set unions and other read-modify-write mutations.
func (db *DB) Update(ctx context.Context, collection, id string, fn func(fields map[string]any) (map[string]any, error)) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update of %s/%s: %w", collection, id, err)
	}
	defer tx.Rollback()

	var (
		data               string
		createdAt, updated time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at FROM documents
		 WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data, &createdAt, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound(collection+" document", id)
		}
		return fmt.Errorf("sqlite: reading %s/%s for update: %w", collection, id, err)
	}

	fields, err := decodeFields(data, createdAt, updated)
	if err != nil {
		return fmt.Errorf("sqlite: decoding %s/%s: %w", collection, id, err)
	}

	next, err := fn(fields)
	if err != nil {
		return err
	}

	encoded, err := encodeFields(next)
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s/%s: %w", collection, id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ?
		 WHERE collection = ? AND id = ?`,
		encoded, time.Now().UTC(), collection, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing %s/%s: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing update of %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query returns documents matching a single equality filter, ordered and
// limited per q.
func (db *DB) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	sqlQuery := `SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?`
	args := []any{collection}

	if q.Field != "" {
		sqlQuery += ` AND json_extract(data, ?) = ?`
		args = append(args, "$."+q.Field, q.Equals)
	}

	switch {
	case q.OrderBy == "" || q.OrderBy == "createdAt":
		sqlQuery += ` ORDER BY created_at`
	case q.OrderBy == "updatedAt":
		sqlQuery += ` ORDER BY updated_at`
	default:
		sqlQuery += ` ORDER BY json_extract(data, ?)`
		args = append(args, "$."+q.OrderBy)
	}
	if q.Desc {
		sqlQuery += ` DESC`
	}

	if q.Limit > 0 {
		sqlQuery += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			id, data           string
			createdAt, updated time.Time
		)
		if err := rows.Scan(&id, &data, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", collection, err)
		}
		fields, err := decodeFields(data, createdAt, updated)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decoding %s/%s: %w", collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s rows: %w", collection, err)
	}

	return docs, nil
}

// Delete removes the document under (collection, id).
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return apperror.NotFound(collection+" document", id)
	}
	return nil
}

// encodeFields serializes fields to JSON. time.Time values become
// ISO-8601 strings through encoding/json's native formatting, which is
// the normalization the callers rely on.
func encodeFields(fields map[string]any) (string, error) {
	// The server timestamps live in their own columns; keeping copies
	// inside the JSON would let them drift out of sync. Copy the map so
	// the caller's view of it is untouched.
	stripped := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "createdAt" || k == "updatedAt" {
			continue
		}
		stripped[k] = v
	}
	data, err := json.Marshal(stripped)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeFields parses the JSON column and surfaces the server timestamps
// as ISO-8601 strings alongside the stored fields.
func decodeFields(data string, createdAt, updatedAt time.Time) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, err
	}
	fields["createdAt"] = createdAt.UTC().Format(time.RFC3339Nano)
	fields["updatedAt"] = updatedAt.UTC().Format(time.RFC3339Nano)
	return fields, nil
}
