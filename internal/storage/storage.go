package storage

import (
	"context"
	"errors"

	"github.com/papyrus-app/papyrus/internal/document"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("storage: document not found")

// Reader is the read surface the resolver depends on. GetBatch must issue a
// single backend lookup for the whole identifier set; absent identifiers
// are simply missing from the returned map, they are not errors.
type Reader interface {
	GetByID(ctx context.Context, collection, id string) (document.Document, error)
	GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error)
}

// Storage is the full collaborator interface used by the transport layer.
// Implementations assign identifiers on insert and treat them as immutable.
type Storage interface {
	Reader
	Insert(ctx context.Context, collection string, doc document.Document) (string, error)
	Update(ctx context.Context, collection, id string, set document.Document) error
	Delete(ctx context.Context, collection, id string) error
}
