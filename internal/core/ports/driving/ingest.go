// Package driving provides interfaces exposed to external actors (primary/inbound ports).
package driving

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// IngestRequest describes one piece of content to ingest.
type IngestRequest struct {
	// Content is the raw text.
	Content string

	// SourceID identifies the owning collection.
	SourceID string

	// ExternalID is the caller's identifier for this content within the
	// collection. Optional; derived from the content hash when empty.
	ExternalID string

	// Title is an optional display title.
	Title string

	// Metadata is propagated onto every chunk.
	Metadata map[string]any
}

// Ingestor turns raw text into indexed, searchable chunks.
type Ingestor interface {
	// Ingest runs the idempotent ingestion pipeline for one request.
	// Pipeline failures are reported inside the result, not returned.
	Ingest(ctx context.Context, req IngestRequest) domain.IngestResult

	// IngestBatch processes requests sequentially, continuing past
	// individual failures.
	IngestBatch(ctx context.Context, reqs []IngestRequest) []domain.IngestResult

	// Reindex deletes the document identified by (sourceID, externalID)
	// and re-ingests the given content from scratch, regardless of hash
	// equality.
	Reindex(ctx context.Context, sourceID, externalID string, req IngestRequest) domain.IngestResult

	// GetStats reports document and chunk counts by status.
	GetStats(ctx context.Context) (*domain.Stats, error)
}
