package driven

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// GenerationService produces text completions from a message history.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Ollama (local models)
//   - Compatible inference servers
type GenerationService interface {
	// Generate produces a complete response for the given messages.
	Generate(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (*Generation, error)

	// GenerateStream produces the response incrementally. The returned
	// channel yields fragments until the response is complete or an error
	// occurs; it is closed when the stream ends. The stream is finite,
	// single-consumer and non-restartable; cancelling ctx stops it.
	GenerateStream(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (<-chan StreamChunk, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role domain.Role

	// Content is the message text.
	Content string
}

// GenerateOptions configures generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// Generation is a complete (non-streaming) response.
type Generation struct {
	// Content is the generated text.
	Content string

	// FinishReason is the provider's reason for ending generation
	// ("stop", "length", "content_filter", ...).
	FinishReason string

	// PromptTokens and CompletionTokens are provider-reported usage,
	// zero when not reported.
	PromptTokens     int
	CompletionTokens int
}

// StreamChunk is one fragment of a streaming response.
type StreamChunk struct {
	// Content is the text fragment. Empty on the final chunk.
	Content string

	// Done marks the final chunk of the stream.
	Done bool

	// Err carries a mid-stream provider failure. When set the chunk is
	// terminal regardless of Done.
	Err error
}
