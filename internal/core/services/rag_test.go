package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-labs/corpus/internal/adapters/driven/storage/memory"
	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
)

type ragFixture struct {
	docs    *memory.DocumentStore
	vectors *memory.VectorStore
	embed   *mockEmbedding
	gen     *mockGeneration
	service *RAGService
}

func newRAGFixture(opts ...RAGOption) *ragFixture {
	f := &ragFixture{
		docs:    memory.NewDocumentStore(),
		vectors: memory.NewVectorStore(),
		embed:   &mockEmbedding{},
		gen:     &mockGeneration{},
	}
	f.service = NewRAGService(f.docs, f.vectors, f.embed, f.gen, opts...)
	return f
}

// seed ingests content through the real pipeline so chunks carry the
// metadata retrieval depends on.
func (f *ragFixture) seed(t *testing.T, sourceID, title, content string) string {
	t.Helper()
	ingest := NewIngestService(f.docs, f.vectors, f.embed)
	result := ingest.Ingest(context.Background(), driving.IngestRequest{
		Content: content, SourceID: sourceID, Title: title,
	})
	require.True(t, result.Success, result.Error)
	return result.DocumentID
}

func TestRetrieve_EmptyQuestion(t *testing.T) {
	f := newRAGFixture()

	_, err := f.service.Retrieve(context.Background(), "   ", domain.RetrieveOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_ExactContentRanksFirst(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	f.seed(t, "docs", "Gophers", "gophers are burrowing rodents")
	f.seed(t, "docs", "Weather", "ZZZZZZZZZZZZZZZZ")

	result, err := f.service.Retrieve(ctx, "gophers are burrowing rodents", domain.RetrieveOptions{})
	require.NoError(t, err)

	require.NotEmpty(t, result.Chunks)
	top := result.Chunks[0]
	assert.Equal(t, "gophers are burrowing rodents", top.Chunk.Content)
	assert.InDelta(t, 1.0, top.Score, 1e-6)
	assert.Equal(t, "Gophers", top.DocumentTitle)
	assert.Greater(t, result.EstimatedTokens, 0)
}

func TestRetrieve_SourceFilter(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	f.seed(t, "manuals", "Manual", "how to operate the machine")
	f.seed(t, "faq", "FAQ", "how to operate the machine safely")

	result, err := f.service.Retrieve(ctx, "how to operate the machine", domain.RetrieveOptions{SourceID: "faq"})
	require.NoError(t, err)

	require.NotEmpty(t, result.Chunks)
	for _, c := range result.Chunks {
		assert.Equal(t, "faq", c.Chunk.Metadata["source_id"])
	}
}

func TestRetrieve_TopKLimit(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	f.seed(t, "docs", "", "alpha topic text")
	f.seed(t, "docs", "", "alpha topic text two")
	f.seed(t, "docs", "", "alpha topic text three")

	result, err := f.service.Retrieve(ctx, "alpha topic text", domain.RetrieveOptions{TopK: 2})
	require.NoError(t, err)

	assert.Len(t, result.Chunks, 2)
}

func TestQuery_NoChunksYieldsFixedAnswerWithoutGeneration(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()

	answer, err := f.service.Query(ctx, "anything at all", domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.NoInformationAnswer, answer.Content)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, f.gen.generateCalls)
}

func TestQuery_BuildsNumberedContextPrompt(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	f.seed(t, "docs", "Gophers", "gophers are burrowing rodents")

	answer, err := f.service.Query(ctx, "gophers are burrowing rodents", domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, "mock answer", answer.Content)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "Gophers", answer.Sources[0].Origin)

	require.NotEmpty(t, f.gen.lastMessages)
	system := f.gen.lastMessages[0]
	assert.Equal(t, domain.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Context:")
	assert.Contains(t, system.Content, "[1] gophers are burrowing rodents")

	last := f.gen.lastMessages[len(f.gen.lastMessages)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	assert.Equal(t, "gophers are burrowing rodents", last.Content)
}

func TestQuery_IncludesHistoryBetweenSystemAndQuestion(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	f.seed(t, "docs", "", "gophers are burrowing rodents")

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	}
	_, err := f.service.Query(ctx, "gophers are burrowing rodents", domain.QueryOptions{History: history})
	require.NoError(t, err)

	require.Len(t, f.gen.lastMessages, 4)
	assert.Equal(t, domain.RoleSystem, f.gen.lastMessages[0].Role)
	assert.Equal(t, "earlier question", f.gen.lastMessages[1].Content)
	assert.Equal(t, "earlier answer", f.gen.lastMessages[2].Content)
	assert.Equal(t, domain.RoleUser, f.gen.lastMessages[3].Role)
}

func TestQuery_NilGeneration(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	f.service = NewRAGService(f.docs, f.vectors, f.embed, nil)
	f.seed(t, "docs", "", "gophers are burrowing rodents")

	_, err := f.service.Query(ctx, "gophers are burrowing rodents", domain.QueryOptions{})

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestDeleteBySource_RemovesOnlyThatCollection(t *testing.T) {
	ctx := context.Background()
	f := newRAGFixture()
	keptID := f.seed(t, "keep", "", "content that stays")
	f.seed(t, "drop", "", "content that goes")

	require.NoError(t, f.service.DeleteBySource(ctx, "drop"))

	dropped, err := f.docs.ListDocuments(ctx, "drop")
	require.NoError(t, err)
	assert.Empty(t, dropped)

	kept, err := f.vectors.ListByDocument(ctx, keptID)
	require.NoError(t, err)
	assert.NotEmpty(t, kept)

	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(kept), count)
}

func TestSourcesFrom_TruncatesExcerpt(t *testing.T) {
	long := strings.Repeat("x", sourceExcerptLen+50)
	chunks := []domain.RetrievedChunk{
		{Chunk: domain.Chunk{Content: long, DocumentID: "doc-1"}, Score: 0.9},
	}

	sources := sourcesFrom(chunks)

	require.Len(t, sources, 1)
	assert.Len(t, sources[0].Excerpt, sourceExcerptLen+3)
	assert.True(t, strings.HasSuffix(sources[0].Excerpt, "..."))
	assert.Equal(t, "doc-1", sources[0].Origin)
	assert.Equal(t, 0.9, sources[0].Score)
}
