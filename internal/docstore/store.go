// Package docstore is the document storage the engine persists to. Documents
// are addressed by (collection, id) and every mutation the services perform
// runs inside RunTransaction.
//
// Values passed to Set/Create and decoded by DataTo are plain structs carrying
// both `firestore` and `json` tags: the Firestore driver uses the former, the
// Postgres and in-memory drivers the latter.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrAlreadyExists is returned by Create when the document exists.
	ErrAlreadyExists = errors.New("docstore: document already exists")
	// ErrUnavailable wraps transport and backend failures.
	ErrUnavailable = errors.New("docstore: unavailable")
)

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality Filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Snapshot is a read document.
type Snapshot interface {
	ID() string
	DataTo(dst any) error
}

// Tx is the view of the store inside a transaction. Reads must precede writes.
type Tx interface {
	Get(collection, id string) (Snapshot, error)
	Set(collection, id string, v any) error
	Create(collection, id string, v any) error
}

// Store is the collaborator every service depends on.
type Store interface {
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	Set(ctx context.Context, collection, id string, v any) error
	Create(ctx context.Context, collection, id string, v any) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error)
	// RunTransaction applies fn atomically. Drivers may invoke fn more than once
	// on contention, so fn must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err means the document is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err means a Create lost to an existing document.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
