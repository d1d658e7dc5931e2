package driving

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// AnswerService answers questions over the indexed knowledge.
type AnswerService interface {
	// Retrieve returns the chunks most relevant to the question.
	Retrieve(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.RetrieveResult, error)

	// Query retrieves relevant chunks and synthesises an answer from
	// them. When retrieval finds nothing it returns a fixed
	// no-information answer without calling the generation provider.
	Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)

	// DeleteBySource removes all indexed material of a collection.
	DeleteBySource(ctx context.Context, sourceID string) error
}
