package services

import (
	"context"
	"fmt"

	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
)

// mockEmbedding is a deterministic embedding service for tests. Unless
// embedFunc is set, every text maps to a fixed-dimension vector derived
// from its bytes, so identical texts always land on the same vector.
type mockEmbedding struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     int
}

func (m *mockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return deterministicVector(text), nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (m *mockEmbedding) Dimensions() int            { return 8 }
func (m *mockEmbedding) ModelName() string          { return "mock-embed" }
func (m *mockEmbedding) Ping(context.Context) error { return nil }
func (m *mockEmbedding) Close() error               { return nil }

// deterministicVector spreads the text's bytes over 8 dimensions.
func deterministicVector(text string) []float32 {
	v := make([]float32, 8)
	for i, b := range []byte(text) {
		v[i%8] += float32(b) / 255
	}
	return v
}

// mockGeneration is a scriptable generation service for tests.
type mockGeneration struct {
	generateFunc func(ctx context.Context, messages []driven.ChatMessage) (*driven.Generation, error)
	streamChunks []driven.StreamChunk
	streamErr    error

	generateCalls int
	streamCalls   int
	lastMessages  []driven.ChatMessage
}

func (m *mockGeneration) Generate(ctx context.Context, messages []driven.ChatMessage, _ driven.GenerateOptions) (*driven.Generation, error) {
	m.generateCalls++
	m.lastMessages = messages
	if m.generateFunc != nil {
		return m.generateFunc(ctx, messages)
	}
	return &driven.Generation{Content: "mock answer", FinishReason: "stop"}, nil
}

func (m *mockGeneration) GenerateStream(ctx context.Context, messages []driven.ChatMessage, _ driven.GenerateOptions) (<-chan driven.StreamChunk, error) {
	m.streamCalls++
	m.lastMessages = messages
	if m.streamErr != nil {
		return nil, m.streamErr
	}

	chunks := make(chan driven.StreamChunk)
	go func() {
		defer close(chunks)
		for _, chunk := range m.streamChunks {
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, nil
}

func (m *mockGeneration) ModelName() string          { return "mock-llm" }
func (m *mockGeneration) Ping(context.Context) error { return nil }
func (m *mockGeneration) Close() error               { return nil }

// contentStream builds a chunk sequence ending with a done marker.
func contentStream(fragments ...string) []driven.StreamChunk {
	chunks := make([]driven.StreamChunk, 0, len(fragments)+1)
	for _, f := range fragments {
		chunks = append(chunks, driven.StreamChunk{Content: f})
	}
	return append(chunks, driven.StreamChunk{Done: true})
}

// failingEmbedding always errors, optionally with a retryable message.
func failingEmbedding(msg string) *mockEmbedding {
	return &mockEmbedding{
		embedFunc: func(context.Context, string) ([]float32, error) {
			return nil, fmt.Errorf("%s", msg)
		},
	}
}
