package domain

import "time"

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus string

// Document lifecycle states.
const (
	// StatusPending means the document row exists but chunks are not yet
	// (or not completely) indexed. Pending documents are safe to re-ingest.
	StatusPending DocumentStatus = "pending"

	// StatusIndexed means all chunks and their embeddings are persisted.
	StatusIndexed DocumentStatus = "indexed"

	// StatusFailed means ingestion hit an unrecoverable error.
	StatusFailed DocumentStatus = "failed"

	// StatusOutdated marks a document whose source content is known to
	// have changed but which has not been re-ingested yet.
	StatusOutdated DocumentStatus = "outdated"
)

// Document represents a unit of ingested knowledge.
// It is the parent of the chunks produced from its text.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceID identifies the collection this document belongs to.
	SourceID string

	// ExternalID is the caller-supplied identifier, unique within SourceID.
	ExternalID string

	// Title is the human-readable title.
	Title string

	// ContentHash is the digest of the text last ingested for this document.
	// It is unique across all collections; identical content is never
	// ingested twice.
	ContentHash string

	// Status is the current lifecycle state.
	Status DocumentStatus

	// Metadata contains arbitrary key-value pairs supplied at ingestion.
	Metadata map[string]any

	// IndexedAt is when the document last reached StatusIndexed.
	IndexedAt time.Time

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document row was last modified.
	UpdatedAt time.Time
}

// Chunk is a bounded fragment of a document's text, the unit of retrieval.
// Its embedding is owned by the chunk row and is destroyed with it.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the zero-based ordinal within the document.
	// Positions for a document are contiguous integers starting at 0.
	Position int

	// Embedding is the vector representation used for similarity search.
	Embedding []float32

	// EmbeddingModel names the model that produced the embedding.
	EmbeddingModel string

	// Metadata contains the document metadata plus chunk_index/chunk_total.
	Metadata map[string]any
}

// IngestResult is the structured outcome of a single ingest call.
// Failures are reported here rather than as returned errors so that a
// batch can continue past one bad entry.
type IngestResult struct {
	Success       bool
	DocumentID    string
	ContentHash   string
	ChunksCreated int
	Skipped       bool
	SkipReason    string
	Error         string
}

// Skip reasons reported by IngestResult.
const (
	// SkipDuplicateHash means identical content already exists somewhere.
	SkipDuplicateHash = "duplicate_content_hash"

	// SkipUnchanged means the (source, external id) pair already holds
	// this exact content.
	SkipUnchanged = "content_unchanged"
)

// Stats summarises the state of the knowledge store.
type Stats struct {
	Documents int
	Chunks    int
	ByStatus  map[DocumentStatus]int
}
