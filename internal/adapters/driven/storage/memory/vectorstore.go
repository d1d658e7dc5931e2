package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore keeps chunks and their embeddings in process memory and
// searches them with an exhaustive cosine similarity scan.
type VectorStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{chunks: make(map[string]domain.Chunk)}
}

// Upsert inserts or replaces a chunk.
func (s *VectorStore) Upsert(_ context.Context, chunk domain.Chunk) error {
	s.mu.Lock()
	s.chunks[chunk.ID] = chunk
	s.mu.Unlock()
	return nil
}

// UpsertBatch inserts or replaces multiple chunks.
func (s *VectorStore) UpsertBatch(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	s.mu.Unlock()
	return nil
}

// Search scans every stored chunk and returns the topK most similar.
func (s *VectorStore) Search(_ context.Context, query []float32, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.VectorHit
	for _, chunk := range s.chunks {
		if !matchesFilter(chunk.Metadata, opts.Filter) {
			continue
		}
		score := cosineSimilarity(query, chunk.Embedding)
		if score < opts.MinScore {
			continue
		}
		hits = append(hits, driven.VectorHit{Chunk: chunk, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

// Get retrieves a chunk by ID.
func (s *VectorStore) Get(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// Delete removes a chunk by ID.
func (s *VectorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.chunks, id)
	s.mu.Unlock()
	return nil
}

// DeleteBatch removes multiple chunks.
func (s *VectorStore) DeleteBatch(_ context.Context, ids []string) error {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.chunks, id)
	}
	s.mu.Unlock()
	return nil
}

// DeleteByDocument removes every chunk of a document.
func (s *VectorStore) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	for id, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
	s.mu.Unlock()
	return nil
}

// ListByDocument returns a document's chunks ordered by position.
func (s *VectorStore) ListByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close releases resources. No-op for the in-memory store.
func (s *VectorStore) Close() error { return nil }

// matchesFilter reports whether metadata satisfies every filter entry.
func matchesFilter(metadata map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched dimensions or zero-magnitude vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
