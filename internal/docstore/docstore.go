// Package docstore defines the document store boundary.
//
// The application persists schemaless documents addressed by
// (collection, id). Typed parsing happens one layer up, in the
// repository package; this interface only moves maps of JSON-compatible
// values. The Update primitive exists so read-modify-write sequences
// (notably the purchases set union during fulfillment) can be made
// atomic by the backing store instead of racing in application code.
package docstore

import "context"

// Document is one stored record: its id plus its fields.
//
// Fields always include the server-maintained "createdAt" and
// "updatedAt" timestamps, surfaced as ISO-8601 strings.
type Document struct {
	ID     string
	Fields map[string]any
}

// Query selects documents by a single equality filter with optional
// ordering and a limit. A zero Field means no filter; a zero OrderBy
// orders by creation time; a zero Limit means no limit.
type Query struct {
	Field   string
	Equals  any
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the document store consumed by the repositories.
//
// Implementations must treat each call as its own transaction: Set is an
// atomic upsert, and Update runs its callback inside a transaction that
// reads and writes the document without interleaving writers.
type Store interface {
	// Get returns the document, or an error wrapping apperror.ErrNotFound
	// if no document exists under that id.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Set upserts the document, replacing its fields with the provided
	// map. The server stamps createdAt on first write and updatedAt on
	// every write.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Update atomically applies fn to the current fields and persists the
	// result. fn returning an error aborts without writing. Returning the
	// fields unchanged is allowed and still counts as a write.
	Update(ctx context.Context, collection, id string, fn func(fields map[string]any) (map[string]any, error)) error

	// Query returns matching documents with their ids.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// Delete removes the document. Deleting an absent document returns an
	// error wrapping apperror.ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
}
