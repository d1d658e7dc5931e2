// Package mcp provides a Model Context Protocol server adapter so AI
// assistants can query and feed the knowledge store.
package mcp

import (
	"errors"

	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
)

// Missing-port errors.
var (
	ErrMissingAnswerService = errors.New("mcp: answer service is required")
	ErrMissingIngestor      = errors.New("mcp: ingestor is required")
)

// Ports aggregates the driving port interfaces the MCP server exposes.
type Ports struct {
	// Answer answers questions over the indexed knowledge.
	Answer driving.AnswerService

	// Ingest adds content to the knowledge store.
	Ingest driving.Ingestor
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Ingest == nil {
		return ErrMissingIngestor
	}
	return nil
}
