package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore implements driven.VectorStore with an exhaustive cosine
// similarity scan over the chunks table. Embeddings are stored as
// little-endian float32 BLOBs.
type VectorStore struct {
	store *Store
}

const chunkColumns = `id, document_id, content, position, embedding, embedding_model, metadata`

// Upsert stores a single chunk with its embedding.
func (s *VectorStore) Upsert(ctx context.Context, chunk domain.Chunk) error {
	return s.UpsertBatch(ctx, []domain.Chunk{chunk})
}

// UpsertBatch stores chunks atomically. Either all chunks are written or
// none. A chunk whose document has no row yet gets a placeholder pending
// parent created in the same transaction, with an ID generated when the
// chunk supplies none.
func (s *VectorStore) UpsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, embedding, embedding_model, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			position = excluded.position,
			embedding = excluded.embedding,
			embedding_model = excluded.embedding_model,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ensured := make(map[string]bool, 1)
	for _, chunk := range chunks {
		if chunk.DocumentID == "" {
			chunk.DocumentID = uuid.NewString()
		}
		if !ensured[chunk.DocumentID] {
			// The document ID doubles as external ID and content hash so
			// the placeholder satisfies both uniqueness constraints.
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO documents (id, source_id, external_id, content_hash, status, created_at, updated_at)
				VALUES (?, '', ?, ?, ?, ?, ?)
			`, chunk.DocumentID, chunk.DocumentID, chunk.DocumentID,
				string(domain.StatusPending), now, now); err != nil {
				return fmt.Errorf("ensuring parent document %s: %w", chunk.DocumentID, err)
			}
			ensured[chunk.DocumentID] = true
		}

		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.Position, float32SliceToBytes(chunk.Embedding),
			chunk.EmbeddingModel, string(metadataJSON)); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Search scans every stored chunk and returns the topK most similar to
// the query vector, ordered by descending cosine similarity. Chunks
// whose embedding dimensions differ from the query score zero rather
// than failing the search.
func (s *VectorStore) Search(ctx context.Context, query []float32, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	rows, err := s.store.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if !matchesFilter(chunk.Metadata, opts.Filter) {
			continue
		}
		score := cosineSimilarity(query, chunk.Embedding)
		if score < opts.MinScore {
			continue
		}
		hits = append(hits, driven.VectorHit{Chunk: *chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
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
func (s *VectorStore) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying chunk: %w", err)
		}
		return nil, domain.ErrNotFound
	}
	return scanChunk(rows)
}

// Delete removes a chunk by ID.
func (s *VectorStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return nil
}

// DeleteBatch removes multiple chunks atomically.
func (s *VectorStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletes: %w", err)
	}
	return nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (s *VectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting document chunks: %w", err)
	}
	return nil
}

// ListByDocument returns a document's chunks ordered by position.
func (s *VectorStore) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = ? ORDER BY position`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("querying document chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document chunks: %w", err)
	}

	return chunks, nil
}

// Count returns the total number of stored chunks.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Close is a no-op; the underlying connection belongs to the parent Store.
func (s *VectorStore) Close() error { return nil }

// scanChunk scans a chunk row, decoding the embedding blob and metadata.
func scanChunk(rows interface {
	Scan(dest ...any) error
}) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embedding []byte
	var metadataJSON string

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &embedding, &chunk.EmbeddingModel, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embedding)
	if metadataJSON != "" && metadataJSON != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}

// matchesFilter reports whether metadata satisfies every filter entry.
// Values are compared by their string form since metadata round-trips
// through JSON.
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

// float32SliceToBytes encodes a vector as a little-endian float32 blob.
func float32SliceToBytes(floats []float32) []byte {
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(f))
	}
	return bytes
}

// bytesToFloat32Slice decodes a little-endian float32 blob.
func bytesToFloat32Slice(bytes []byte) []float32 {
	if len(bytes)%4 != 0 {
		return nil
	}
	floats := make([]float32, len(bytes)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(bytes[i*4:]))
	}
	return floats
}
