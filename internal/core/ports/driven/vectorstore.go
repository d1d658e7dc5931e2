package driven

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// VectorStore persists chunk+vector pairs and ranks them by similarity.
//
// Search is an exhaustive cosine-similarity scan by design; no
// approximate index is built. Vectors are serialized to a fixed-width
// binary representation for storage and must round-trip losslessly at
// single-precision accuracy.
type VectorStore interface {
	// Upsert inserts or replaces the chunk with the given ID.
	Upsert(ctx context.Context, chunk domain.Chunk) error

	// UpsertBatch inserts or replaces multiple chunks atomically.
	UpsertBatch(ctx context.Context, chunks []domain.Chunk) error

	// Search scans every stored vector, scores it against query by
	// cosine similarity, and returns up to opts.TopK results at or above
	// opts.MinScore, best first. A stored vector whose length differs
	// from the query scores 0 rather than aborting the scan.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]VectorHit, error)

	// Get retrieves a chunk by ID. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Chunk, error)

	// Delete removes a chunk and its embedding. Deleting a missing ID is
	// a no-op, not an error.
	Delete(ctx context.Context, id string) error

	// DeleteBatch removes multiple chunks.
	DeleteBatch(ctx context.Context, ids []string) error

	// DeleteByDocument removes every chunk of a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// ListByDocument returns a document's chunks ordered by position.
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// SearchOptions configures a similarity scan.
type SearchOptions struct {
	// TopK is the maximum number of hits to return.
	TopK int

	// MinScore discards hits scoring below this similarity.
	MinScore float64

	// Filter keeps only chunks whose metadata matches every given
	// key/value pair exactly.
	Filter map[string]any
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk, embedding included.
	Chunk domain.Chunk

	// Score is the cosine similarity against the query vector.
	Score float64
}
