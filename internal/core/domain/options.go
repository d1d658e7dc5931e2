package domain

// Defaults for retrieval behaviour.
const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5

	// DefaultMinScore discards weakly related chunks.
	DefaultMinScore = 0.3
)

// RetrieveOptions configures a retrieval call.
type RetrieveOptions struct {
	// TopK is the maximum number of chunks to return (default 5).
	TopK int

	// MinScore is the minimum cosine similarity to keep (default 0.3).
	MinScore float64

	// SourceID restricts retrieval to one collection when non-empty.
	SourceID string
}

// QueryOptions configures an answer-synthesis call.
type QueryOptions struct {
	RetrieveOptions

	// SystemPrompt overrides the configured system instruction.
	SystemPrompt string

	// History is prior conversation turns to include before the question.
	History []Message
}

// RetrievedChunk is a chunk with its retrieval score.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64

	// DocumentTitle is the parent document's title, for citation.
	DocumentTitle string
}

// RetrieveResult is the outcome of a retrieval call.
type RetrieveResult struct {
	Chunks []RetrievedChunk

	// EstimatedTokens approximates the token cost of the retrieved
	// context (chars/4 heuristic).
	EstimatedTokens int
}

// Answer is the outcome of a query call.
type Answer struct {
	Content string
	Sources []Source

	// PromptTokens and CompletionTokens are provider-reported usage,
	// zero when the provider does not report them.
	PromptTokens     int
	CompletionTokens int
}

// NoInformationAnswer is returned when retrieval finds nothing relevant.
// No generation call is made in that case.
const NoInformationAnswer = "I could not find any relevant information in the knowledge base to answer your question."
