package repository

import (
	"context"
	"errors"
)

var (
	ErrDocumentExists   = errors.New("document already exists")
	ErrDocumentNotFound = errors.New("document not found")
)

// Document is a flat field mapping. A key that is missing from the map is
// "absent", which is distinct from a key holding a zero value.
type Document map[string]any

// DocumentStore is a keyed mapping from identity to a field document.
// Merge is atomic per document: either every given field lands or none do.
// There are no multi-document transactions.
type DocumentStore interface {
	// Get returns the document and whether it exists.
	Get(ctx context.Context, key string) (Document, bool, error)
	// Create writes a new document; ErrDocumentExists if the key is taken.
	Create(ctx context.Context, key string, fields Document) error
	// Merge sets the given fields on an existing document; ErrDocumentNotFound otherwise.
	Merge(ctx context.Context, key string, fields Document) error
}
