package driven

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// DocumentStore persists document identity, hash and lifecycle status.
// Backed by SQLite for durable deployments.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// FindByContentHash retrieves the document holding the given hash,
	// regardless of collection. Returns domain.ErrNotFound when absent.
	FindByContentHash(ctx context.Context, hash string) (*domain.Document, error)

	// FindByExternalID retrieves the document identified by
	// (sourceID, externalID). Returns domain.ErrNotFound when absent.
	FindByExternalID(ctx context.Context, sourceID, externalID string) (*domain.Document, error)

	// ListDocuments returns documents for a collection.
	ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error)

	// DeleteDocument removes a document. Chunk and embedding removal is
	// the VectorStore's cascade; callers delete chunks first.
	DeleteDocument(ctx context.Context, id string) error

	// Stats reports document and chunk counts grouped by status.
	Stats(ctx context.Context) (*domain.Stats, error)
}
