package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewStore_RunsMigrations(t *testing.T) {
	store := newTestStore(t)

	for _, table := range []string{"documents", "chunks", "conversations", "messages"} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestDocumentStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	docs := newTestStore(t).DocumentStore()

	doc := &domain.Document{
		ID:          "doc-1",
		SourceID:    "manuals",
		ExternalID:  "intro.md",
		Title:       "Introduction",
		ContentHash: "abc123",
		Status:      domain.StatusPending,
		Metadata:    map[string]any{"lang": "en"},
	}
	require.NoError(t, docs.SaveDocument(ctx, doc))

	byID, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Introduction", byID.Title)
	assert.Equal(t, domain.StatusPending, byID.Status)
	assert.Equal(t, "en", byID.Metadata["lang"])

	byHash, err := docs.FindByContentHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", byHash.ID)

	byExternal, err := docs.FindByExternalID(ctx, "manuals", "intro.md")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", byExternal.ID)
}

func TestDocumentStore_NotFound(t *testing.T) {
	ctx := context.Background()
	docs := newTestStore(t).DocumentStore()

	_, err := docs.GetDocument(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = docs.FindByContentHash(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = docs.FindByExternalID(ctx, "src", "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	docs := newTestStore(t).DocumentStore()

	doc := &domain.Document{
		ID: "doc-1", SourceID: "s", ExternalID: "e",
		ContentHash: "hash-1", Status: domain.StatusPending,
	}
	require.NoError(t, docs.SaveDocument(ctx, doc))

	doc.ContentHash = "hash-2"
	doc.Status = domain.StatusIndexed
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.ContentHash)
	assert.Equal(t, domain.StatusIndexed, got.Status)

	list, err := docs.ListDocuments(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDocumentStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docs := store.DocumentStore()

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: "a", SourceID: "s", ExternalID: "1", ContentHash: "h1", Status: domain.StatusIndexed,
	}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: "b", SourceID: "s", ExternalID: "2", ContentHash: "h2", Status: domain.StatusPending,
	}))

	stats, err := docs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 1, stats.ByStatus[domain.StatusIndexed])
	assert.Equal(t, 1, stats.ByStatus[domain.StatusPending])
}

func seedDocument(t *testing.T, store *Store, id string) {
	t.Helper()
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), &domain.Document{
		ID: id, SourceID: "s", ExternalID: id, ContentHash: "hash-" + id,
		Status: domain.StatusIndexed,
	}))
}

func TestVectorStore_BlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDocument(t, store, "d1")
	vectors := store.VectorStore()

	embedding := []float32{0.25, -1.5, 3.14159, 0, 1e-7}
	require.NoError(t, vectors.Upsert(ctx, domain.Chunk{
		ID: "c1", DocumentID: "d1", Content: "hello", Position: 0,
		Embedding: embedding, EmbeddingModel: "test-model",
		Metadata: map[string]any{"source_id": "s"},
	}))

	got, err := vectors.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, embedding, got.Embedding)
	assert.Equal(t, "test-model", got.EmbeddingModel)
	assert.Equal(t, "s", got.Metadata["source_id"])
}

func TestVectorStore_SearchSelfMatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDocument(t, store, "d1")
	vectors := store.VectorStore()

	v := []float32{0.2, 0.7, 0.1}
	require.NoError(t, vectors.UpsertBatch(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "d1", Content: "a", Position: 0, Embedding: v},
		{ID: "c2", DocumentID: "d1", Content: "b", Position: 1, Embedding: []float32{-0.5, 0.1, 0.9}},
	}))

	hits, err := vectors.Search(ctx, v, driven.SearchOptions{TopK: 5, MinScore: 0})
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Greater(t, hits[0].Score, 0.9)
}

func TestVectorStore_SearchSkipsMismatchedDimensions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDocument(t, store, "d1")
	vectors := store.VectorStore()

	require.NoError(t, vectors.UpsertBatch(ctx, []domain.Chunk{
		{ID: "short", DocumentID: "d1", Content: "a", Position: 0, Embedding: []float32{1, 0}},
		{ID: "match", DocumentID: "d1", Content: "b", Position: 1, Embedding: []float32{1, 0, 0}},
	}))

	hits, err := vectors.Search(ctx, []float32{1, 0, 0}, driven.SearchOptions{TopK: 5, MinScore: 0.5})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "match", hits[0].Chunk.ID)
}

func TestVectorStore_CascadeIntegrity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDocument(t, store, "d1")
	vectors := store.VectorStore()

	require.NoError(t, vectors.UpsertBatch(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "d1", Content: "a", Position: 0, Embedding: []float32{1, 0}},
		{ID: "c2", DocumentID: "d1", Content: "b", Position: 1, Embedding: []float32{0, 1}},
	}))

	require.NoError(t, vectors.DeleteByDocument(ctx, "d1"))
	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, "d1"))

	_, err := vectors.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestVectorStore_DeleteMissingIsNoOp(t *testing.T) {
	ctx := context.Background()
	vectors := newTestStore(t).VectorStore()

	assert.NoError(t, vectors.Delete(ctx, "absent"))
}

func TestVectorStore_UpsertCreatesParentOnDemand(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	vectors := store.VectorStore()

	require.NoError(t, vectors.Upsert(ctx, domain.Chunk{
		ID: "orphan", DocumentID: "ghost-doc", Content: "standalone",
		Embedding: []float32{1, 0, 0},
	}))

	chunks, err := vectors.ListByDocument(ctx, "ghost-doc")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "orphan", chunks[0].ID)

	doc, err := store.DocumentStore().GetDocument(ctx, "ghost-doc")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, doc.Status)
}

func TestVectorStore_UpsertGeneratesDocumentID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	vectors := store.VectorStore()

	require.NoError(t, vectors.Upsert(ctx, domain.Chunk{
		ID: "c1", Content: "no parent supplied", Embedding: []float32{1, 0, 0},
	}))

	got, err := vectors.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotEmpty(t, got.DocumentID)

	_, err = store.DocumentStore().GetDocument(ctx, got.DocumentID)
	assert.NoError(t, err)
}

func TestVectorStore_UpsertKeepsExistingParentIntact(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDocument(t, store, "d1")
	vectors := store.VectorStore()

	before, err := store.DocumentStore().GetDocument(ctx, "d1")
	require.NoError(t, err)

	require.NoError(t, vectors.Upsert(ctx, domain.Chunk{
		ID: "c1", DocumentID: "d1", Content: "a", Embedding: []float32{1, 0},
	}))

	after, err := store.DocumentStore().GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, before.ContentHash, after.ContentHash)
	assert.Equal(t, before.Status, after.Status)
}

func TestConversationStore_MessageRoundTripDurable(t *testing.T) {
	ctx := context.Background()
	convs := newTestStore(t).ConversationStore()

	conv, err := convs.CreateConversation(ctx, "user-1", "support")
	require.NoError(t, err)

	require.NoError(t, convs.AddMessage(ctx, &domain.Message{
		ConversationID: conv.ID, Role: domain.RoleUser, Content: "question",
	}))
	require.NoError(t, convs.AddMessage(ctx, &domain.Message{
		ConversationID: conv.ID, Role: domain.RoleAssistant, Content: "answer",
		Sources: []domain.Source{{Excerpt: "doc text", Origin: "handbook", Score: 0.8}},
	}))

	msgs, err := convs.GetMessages(ctx, conv.ID)
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "answer", msgs[1].Content)
	require.Len(t, msgs[1].Sources, 1)
	assert.Equal(t, "handbook", msgs[1].Sources[0].Origin)
}

func TestConversationStore_AppendOrderWithEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	convs := newTestStore(t).ConversationStore()

	conv, err := convs.CreateConversation(ctx, "user-1", "")
	require.NoError(t, err)

	// Identical created_at on every message: ordering must come from
	// the append sequence, not the timestamp.
	stamp := time.Now().UTC().Truncate(time.Second)
	contents := []string{"first", "second", "third", "fourth", "fifth"}
	for _, content := range contents {
		require.NoError(t, convs.AddMessage(ctx, &domain.Message{
			ConversationID: conv.ID, Role: domain.RoleUser,
			Content: content, CreatedAt: stamp,
		}))
	}

	msgs, err := convs.GetMessages(ctx, conv.ID)
	require.NoError(t, err)

	require.Len(t, msgs, len(contents))
	for i, content := range contents {
		assert.Equal(t, content, msgs[i].Content)
	}
}

func TestConversationStore_AddMessageToMissingDurable(t *testing.T) {
	ctx := context.Background()
	convs := newTestStore(t).ConversationStore()

	err := convs.AddMessage(ctx, &domain.Message{ConversationID: "absent", Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_FindByUserIDOrdering(t *testing.T) {
	ctx := context.Background()
	convs := newTestStore(t).ConversationStore()

	older, err := convs.CreateConversation(ctx, "user-1", "older")
	require.NoError(t, err)
	newer, err := convs.CreateConversation(ctx, "user-1", "newer")
	require.NoError(t, err)

	// Touch the newer conversation so its updated_at moves forward.
	require.NoError(t, convs.UpdateTitle(ctx, newer.ID, "newer again"))

	list, err := convs.FindByUserID(ctx, "user-1")
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestConversationStore_DeleteRemovesMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	convs := store.ConversationStore()

	conv, err := convs.CreateConversation(ctx, "", "")
	require.NoError(t, err)
	require.NoError(t, convs.AddMessage(ctx, &domain.Message{
		ConversationID: conv.ID, Role: domain.RoleUser, Content: "hello",
	}))

	require.NoError(t, convs.DeleteConversation(ctx, conv.ID))

	_, err = convs.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var count int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conv.ID).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestFloat32BlobCodec(t *testing.T) {
	tests := []struct {
		name   string
		floats []float32
	}{
		{name: "empty", floats: []float32{}},
		{name: "single", floats: []float32{1.5}},
		{name: "mixed", floats: []float32{0, -0.001, 3.4e38, -3.4e38, 1e-45}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.floats, bytesToFloat32Slice(float32SliceToBytes(tt.floats)))
		})
	}
}
