// Package storage defines the persistence boundary consumed by the
// derivation pipeline: blob storage for binary artifacts (originals and
// compressed tiles) and document storage for metadata records.
//
// Blob ids are content addresses: the SHA-256 of the payload, hex encoded.
// Identical payloads share one stored copy; a per-blob reference count keeps
// deletion safe when two images happen to produce identical tiles. Document
// ids are opaque UUIDs generated at put time.
//
// Two implementations exist: MemoryStore for tests and ephemeral use, and
// BadgerStore for on-disk persistence. Callers treat every method as a
// fallible, possibly blocking boundary and pass a context through.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrNotFound is returned for unknown blob or document ids.
	ErrNotFound = errors.New("not found")

	// ErrStorage wraps failures of the underlying engine. It is not retried
	// here; retry policy belongs to the engine or its operator.
	ErrStorage = errors.New("storage failure")
)

// Document kinds used by the service layer.
const (
	KindImage  = "images"
	KindMatrix = "matrices"
)

// BlobStore stores opaque binary payloads under content-addressed ids.
type BlobStore interface {
	// PutBlob stores data and returns its content address. Storing the same
	// bytes twice returns the same id and bumps a reference count.
	PutBlob(ctx context.Context, data []byte) (string, error)

	// GetBlob returns the payload for id, or ErrNotFound.
	GetBlob(ctx context.Context, id string) ([]byte, error)

	// DeleteBlob drops one reference to id, removing the payload once no
	// references remain. Unknown ids return ErrNotFound.
	DeleteBlob(ctx context.Context, id string) error
}

// DocumentStore stores JSON-compatible metadata records grouped by kind.
type DocumentStore interface {
	// PutDocument stores fields under a fresh id within kind.
	PutDocument(ctx context.Context, kind string, fields map[string]any) (string, error)

	// GetDocument returns the fields of (kind, id), or ErrNotFound.
	GetDocument(ctx context.Context, kind, id string) (map[string]any, error)

	// UpdateDocument replaces the fields of an existing document. The
	// replacement is atomic: readers see either the old or new fields.
	UpdateDocument(ctx context.Context, kind, id string, fields map[string]any) error

	// DeleteDocument removes (kind, id), or returns ErrNotFound.
	DeleteDocument(ctx context.Context, kind, id string) error
}

// Store combines both halves of the persistence boundary.
type Store interface {
	BlobStore
	DocumentStore

	// Close releases the underlying engine.
	Close() error
}

// BlobID computes the content address for a payload.
func BlobID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
