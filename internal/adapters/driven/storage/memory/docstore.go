package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps documents in process memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	s.mu.Lock()
	s.docs[doc.ID] = *doc
	s.mu.Unlock()
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByContentHash retrieves the document holding the given hash.
func (s *DocumentStore) FindByContentHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.ContentHash == hash {
			result := doc
			return &result, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindByExternalID retrieves the document identified by (sourceID, externalID).
func (s *DocumentStore) FindByExternalID(_ context.Context, sourceID, externalID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.SourceID == sourceID && doc.ExternalID == externalID {
			result := doc
			return &result, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns documents for a collection.
func (s *DocumentStore) ListDocuments(_ context.Context, sourceID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range s.docs {
		if doc.SourceID == sourceID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// DeleteDocument removes a document.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
	return nil
}

// Stats reports document counts grouped by status. Chunk counts live in
// the vector store, so Chunks is zero here; callers overlay it.
func (s *DocumentStore) Stats(_ context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Stats{ByStatus: make(map[domain.DocumentStatus]int)}
	for _, doc := range s.docs {
		stats.ByStatus[doc.Status]++
		stats.Documents++
	}
	return stats, nil
}
