package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nimbus-labs/corpus/internal/chunker"
	"github.com/nimbus-labs/corpus/internal/contenthash"
	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService runs the idempotent ingestion pipeline: hash, duplicate
// detection, chunking, embedding, and vector storage.
type IngestService struct {
	docStore  driven.DocumentStore
	vectors   driven.VectorStore
	embedding driven.EmbeddingService
	chunker   *chunker.Chunker
	retrier   *retrier
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithChunker overrides the default chunker.
func WithChunker(c *chunker.Chunker) IngestOption {
	return func(s *IngestService) {
		if c != nil {
			s.chunker = c
		}
	}
}

// WithIngestRetry overrides the default retry policy for embedding calls.
func WithIngestRetry(cfg RetryConfig, limiter *rate.Limiter) IngestOption {
	return func(s *IngestService) {
		s.retrier = newRetrier(cfg, limiter)
	}
}

// NewIngestService creates an ingestion orchestrator.
func NewIngestService(
	docStore driven.DocumentStore,
	vectors driven.VectorStore,
	embedding driven.EmbeddingService,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docStore:  docStore,
		vectors:   vectors,
		embedding: embedding,
		chunker:   chunker.New(),
		retrier:   newRetrier(DefaultRetryConfig(), nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest runs the pipeline for one request. Pipeline failures after the
// document row exists are reported inside the result with the document
// left pending, so a later ingest can pick it up again.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) domain.IngestResult {
	hash := contenthash.Sum(req.Content)
	result := domain.IngestResult{ContentHash: hash}

	if req.Content == "" || req.SourceID == "" {
		result.Error = "content and source id are required"
		return result
	}

	// Identical content anywhere in the store is never ingested twice.
	if existing, err := s.docStore.FindByContentHash(ctx, hash); err == nil {
		logger.Debug("content hash %s already ingested as document %s", hash, existing.ID)
		result.Success = true
		result.Skipped = true
		result.SkipReason = domain.SkipDuplicateHash
		result.DocumentID = existing.ID
		return result
	} else if !errors.Is(err, domain.ErrNotFound) {
		result.Error = fmt.Sprintf("looking up content hash: %v", err)
		return result
	}

	externalID := req.ExternalID
	if externalID == "" {
		externalID = hash
	}

	doc, unchanged, err := s.resolveDocument(ctx, req, externalID, hash)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.DocumentID = doc.ID
	if unchanged {
		// Same external id already holds this exact content.
		result.Success = true
		result.Skipped = true
		result.SkipReason = domain.SkipUnchanged
		return result
	}

	chunksCreated, err := s.index(ctx, doc, req.Content, req.Metadata)
	if err != nil {
		logger.Warn("indexing document %s failed: %v", doc.ID, err)
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.ChunksCreated = chunksCreated
	return result
}

// resolveDocument finds or creates the pending document for a request.
// The second return value is true when the stored hash already matches,
// meaning the ingest should be skipped as unchanged.
func (s *IngestService) resolveDocument(ctx context.Context, req driving.IngestRequest, externalID, hash string) (*domain.Document, bool, error) {
	doc, err := s.docStore.FindByExternalID(ctx, req.SourceID, externalID)
	switch {
	case err == nil:
		if doc.ContentHash == hash {
			return doc, true, nil
		}
		// Content changed: purge old chunks, reuse the document id.
		if err := s.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
			return nil, false, fmt.Errorf("deleting stale chunks: %w", err)
		}
		doc.ContentHash = hash
		doc.Status = domain.StatusPending
		if req.Title != "" {
			doc.Title = req.Title
		}
		doc.Metadata = req.Metadata
		if err := s.docStore.SaveDocument(ctx, doc); err != nil {
			return nil, false, fmt.Errorf("updating document: %w", err)
		}
		return doc, false, nil

	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Document{
			ID:          uuid.NewString(),
			SourceID:    req.SourceID,
			ExternalID:  externalID,
			Title:       req.Title,
			ContentHash: hash,
			Status:      domain.StatusPending,
			Metadata:    req.Metadata,
		}
		if err := s.docStore.SaveDocument(ctx, doc); err != nil {
			return nil, false, fmt.Errorf("creating document: %w", err)
		}
		return doc, false, nil

	default:
		return nil, false, fmt.Errorf("looking up document: %w", err)
	}
}

// index chunks the content, embeds every fragment, stores the vectors,
// and marks the document indexed. Any failure leaves it pending.
func (s *IngestService) index(ctx context.Context, doc *domain.Document, content string, metadata map[string]any) (int, error) {
	fragments := s.chunker.Split(content)
	if len(fragments) == 0 {
		return 0, fmt.Errorf("content produced no chunks")
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Content
	}

	var embeddings [][]float32
	err := s.retrier.do(ctx, "embedding batch", func(ctx context.Context) error {
		var embErr error
		embeddings, embErr = s.embedding.EmbedBatch(ctx, texts)
		return embErr
	})
	if err != nil {
		return 0, err
	}
	if len(embeddings) != len(fragments) {
		return 0, fmt.Errorf("embedding count %d does not match chunk count %d", len(embeddings), len(fragments))
	}

	chunks := make([]domain.Chunk, len(fragments))
	for i, f := range fragments {
		chunkMeta := make(map[string]any, len(metadata)+3)
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		chunkMeta["source_id"] = doc.SourceID
		chunkMeta["chunk_index"] = f.Position
		chunkMeta["chunk_total"] = f.TotalChunks

		chunks[i] = domain.Chunk{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			Content:        f.Content,
			Position:       f.Position,
			Embedding:      embeddings[i],
			EmbeddingModel: s.embedding.ModelName(),
			Metadata:       chunkMeta,
		}
	}

	if err := s.vectors.UpsertBatch(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	doc.Status = domain.StatusIndexed
	doc.IndexedAt = time.Now().UTC()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("marking document indexed: %w", err)
	}

	logger.Debug("indexed document %s with %d chunk(s)", doc.ID, len(chunks))
	return len(chunks), nil
}

// IngestBatch processes requests sequentially, continuing past failures.
func (s *IngestService) IngestBatch(ctx context.Context, reqs []driving.IngestRequest) []domain.IngestResult {
	results := make([]domain.IngestResult, len(reqs))
	for i, req := range reqs {
		results[i] = s.Ingest(ctx, req)
	}
	return results
}

// Reindex deletes the document identified by (sourceID, externalID) and
// re-ingests the given content from scratch, regardless of hash equality.
func (s *IngestService) Reindex(ctx context.Context, sourceID, externalID string, req driving.IngestRequest) domain.IngestResult {
	doc, err := s.docStore.FindByExternalID(ctx, sourceID, externalID)
	switch {
	case err == nil:
		if err := s.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
			return domain.IngestResult{Error: fmt.Sprintf("deleting chunks: %v", err)}
		}
		if err := s.docStore.DeleteDocument(ctx, doc.ID); err != nil {
			return domain.IngestResult{Error: fmt.Sprintf("deleting document: %v", err)}
		}
	case errors.Is(err, domain.ErrNotFound):
		// Nothing to remove; fall through to a fresh ingest.
	default:
		return domain.IngestResult{Error: fmt.Sprintf("looking up document: %v", err)}
	}

	req.SourceID = sourceID
	req.ExternalID = externalID
	return s.Ingest(ctx, req)
}

// GetStats reports document and chunk counts by status.
func (s *IngestService) GetStats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.docStore.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	if stats.Chunks == 0 {
		count, err := s.vectors.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting chunks: %w", err)
		}
		stats.Chunks = count
	}
	return stats, nil
}
