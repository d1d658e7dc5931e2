package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// Ensure RAGService implements the interface.
var _ driving.AnswerService = (*RAGService)(nil)

// DefaultSystemPrompt instructs the model to answer from the supplied
// context only.
const DefaultSystemPrompt = `You are a helpful assistant. Answer the question using only the provided context. If the context does not contain the answer, say you do not know. Cite the context fragments you used.`

// sourceExcerptLen bounds the excerpt carried on each cited source.
const sourceExcerptLen = 200

// RAGService retrieves relevant chunks and synthesises answers.
type RAGService struct {
	docStore     driven.DocumentStore
	vectors      driven.VectorStore
	embedding    driven.EmbeddingService
	generation   driven.GenerationService
	retrier      *retrier
	systemPrompt string
}

// RAGOption configures a RAGService.
type RAGOption func(*RAGService)

// WithSystemPrompt overrides the default system instruction.
func WithSystemPrompt(prompt string) RAGOption {
	return func(s *RAGService) {
		if prompt != "" {
			s.systemPrompt = prompt
		}
	}
}

// WithRAGRetry overrides the default retry policy for provider calls.
func WithRAGRetry(cfg RetryConfig, limiter *rate.Limiter) RAGOption {
	return func(s *RAGService) {
		s.retrier = newRetrier(cfg, limiter)
	}
}

// NewRAGService creates a retrieval-augmented answering orchestrator.
// generation may be nil, in which case Query returns
// domain.ErrGenerationUnavailable while Retrieve keeps working.
func NewRAGService(
	docStore driven.DocumentStore,
	vectors driven.VectorStore,
	embedding driven.EmbeddingService,
	generation driven.GenerationService,
	opts ...RAGOption,
) *RAGService {
	s := &RAGService{
		docStore:     docStore,
		vectors:      vectors,
		embedding:    embedding,
		generation:   generation,
		retrier:      newRetrier(DefaultRetryConfig(), nil),
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve embeds the question and returns the most similar chunks.
func (s *RAGService) Retrieve(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.RetrieveResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	minScore := opts.MinScore
	if minScore == 0 {
		minScore = domain.DefaultMinScore
	}

	var queryVector []float32
	err := s.retrier.do(ctx, "embedding question", func(ctx context.Context) error {
		var embErr error
		queryVector, embErr = s.embedding.Embed(ctx, question)
		return embErr
	})
	if err != nil {
		return nil, err
	}

	searchOpts := driven.SearchOptions{TopK: topK, MinScore: minScore}
	if opts.SourceID != "" {
		searchOpts.Filter = map[string]any{"source_id": opts.SourceID}
	}

	hits, err := s.vectors.Search(ctx, queryVector, searchOpts)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	result := &domain.RetrieveResult{}
	for _, hit := range hits {
		retrieved := domain.RetrievedChunk{
			Chunk: hit.Chunk,
			Score: hit.Score,
		}
		if doc, err := s.docStore.GetDocument(ctx, hit.Chunk.DocumentID); err == nil {
			retrieved.DocumentTitle = doc.Title
		}
		result.Chunks = append(result.Chunks, retrieved)
		result.EstimatedTokens += len(hit.Chunk.Content) / 4
	}

	logger.Debug("retrieved %d chunk(s) for question (~%d tokens)", len(result.Chunks), result.EstimatedTokens)
	return result, nil
}

// Query retrieves relevant chunks and asks the generation provider for
// an answer grounded in them. Zero retrieved chunks yields the fixed
// no-information answer without any generation call.
func (s *RAGService) Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	retrieved, err := s.Retrieve(ctx, question, opts.RetrieveOptions)
	if err != nil {
		return nil, err
	}

	if len(retrieved.Chunks) == 0 {
		return &domain.Answer{Content: domain.NoInformationAnswer}, nil
	}

	if s.generation == nil {
		return nil, domain.ErrGenerationUnavailable
	}

	messages := s.buildMessages(question, retrieved.Chunks, opts)

	var gen *driven.Generation
	err = s.retrier.do(ctx, "generating answer", func(ctx context.Context) error {
		var genErr error
		gen, genErr = s.generation.Generate(ctx, messages, driven.GenerateOptions{})
		return genErr
	})
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Content:          gen.Content,
		Sources:          sourcesFrom(retrieved.Chunks),
		PromptTokens:     gen.PromptTokens,
		CompletionTokens: gen.CompletionTokens,
	}, nil
}

// DeleteBySource removes all indexed material of a collection, chunks
// before documents.
func (s *RAGService) DeleteBySource(ctx context.Context, sourceID string) error {
	docs, err := s.docStore.ListDocuments(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	for _, doc := range docs {
		if err := s.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("deleting chunks of %s: %w", doc.ID, err)
		}
		if err := s.docStore.DeleteDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("deleting document %s: %w", doc.ID, err)
		}
	}

	logger.Info("deleted %d document(s) from collection %s", len(docs), sourceID)
	return nil
}

// buildMessages assembles the augmented prompt: system instruction with
// the numbered context block, then history, then the question.
func (s *RAGService) buildMessages(question string, chunks []domain.RetrievedChunk, opts domain.QueryOptions) []driven.ChatMessage {
	systemPrompt := s.systemPrompt
	if opts.SystemPrompt != "" {
		systemPrompt = opts.SystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nContext:\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, c.Chunk.Content)
	}

	messages := []driven.ChatMessage{
		{Role: domain.RoleSystem, Content: sb.String()},
	}
	for _, msg := range opts.History {
		messages = append(messages, driven.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: question})

	return messages
}

// sourcesFrom maps retrieved chunks into citation entries.
func sourcesFrom(chunks []domain.RetrievedChunk) []domain.Source {
	sources := make([]domain.Source, len(chunks))
	for i, c := range chunks {
		excerpt := c.Chunk.Content
		if len(excerpt) > sourceExcerptLen {
			excerpt = excerpt[:sourceExcerptLen] + "..."
		}
		origin := c.DocumentTitle
		if origin == "" {
			origin = c.Chunk.DocumentID
		}
		sources[i] = domain.Source{
			Excerpt: excerpt,
			Origin:  origin,
			Score:   c.Score,
		}
	}
	return sources
}
