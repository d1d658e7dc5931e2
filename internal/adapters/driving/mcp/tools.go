package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Question string  `json:"question" jsonschema:"the question to answer from the knowledge store"`
	TopK     int     `json:"top_k,omitempty" jsonschema:"maximum number of chunks to retrieve (default 5)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score (default 0.3)"`
	SourceID string  `json:"source_id,omitempty" jsonschema:"restrict retrieval to one collection"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources,omitempty"`
}

// SourceOutput cites one retrieved chunk.
type SourceOutput struct {
	Excerpt string  `json:"excerpt"`
	Origin  string  `json:"origin"`
	Score   float64 `json:"score"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Content    string `json:"content" jsonschema:"the raw text to ingest"`
	SourceID   string `json:"source_id" jsonschema:"the collection the content belongs to"`
	ExternalID string `json:"external_id,omitempty" jsonschema:"caller identifier for this content within the collection"`
	Title      string `json:"title,omitempty" jsonschema:"display title for the document"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Success       bool   `json:"success"`
	DocumentID    string `json:"document_id,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	Skipped       bool   `json:"skipped"`
	SkipReason    string `json:"skip_reason,omitempty"`
	Error         string `json:"error,omitempty"`
}

// StatsInput is the input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	Documents int            `json:"documents"`
	Chunks    int            `json:"chunks"`
	ByStatus  map[string]int `json:"by_status"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question using the indexed knowledge",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest text content into the knowledge store",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Report document and chunk counts",
	}, s.handleStats)
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := domain.QueryOptions{
		RetrieveOptions: domain.RetrieveOptions{
			TopK:     input.TopK,
			MinScore: input.MinScore,
			SourceID: input.SourceID,
		},
	}

	answer, err := s.ports.Answer.Query(ctx, input.Question, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{Answer: answer.Content}
	for _, src := range answer.Sources {
		output.Sources = append(output.Sources, SourceOutput{
			Excerpt: src.Excerpt,
			Origin:  src.Origin,
			Score:   src.Score,
		})
	}

	return nil, output, nil
}

// handleIngest handles the ingest tool invocation. Pipeline failures
// come back inside the output, matching the structured-result contract.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	result := s.ports.Ingest.Ingest(ctx, driving.IngestRequest{
		Content:    input.Content,
		SourceID:   input.SourceID,
		ExternalID: input.ExternalID,
		Title:      input.Title,
	})

	return nil, IngestOutput{
		Success:       result.Success,
		DocumentID:    result.DocumentID,
		ChunksCreated: result.ChunksCreated,
		Skipped:       result.Skipped,
		SkipReason:    result.SkipReason,
		Error:         result.Error,
	}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Ingest.GetStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	output := StatsOutput{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
		ByStatus:  make(map[string]int, len(stats.ByStatus)),
	}
	for status, count := range stats.ByStatus {
		output.ByStatus[string(status)] = count
	}

	return nil, output, nil
}
