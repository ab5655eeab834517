package mcp

import (
	"fmt"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
)

// Ports aggregates what the MCP server needs.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Knowledge builds and queries knowledge.
	Knowledge driving.KnowledgeService

	// Scope is the knowledge every tool call works on: a user's stored
	// knowledge, or a session that lives as long as the server.
	Scope domain.Scope
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	if err := p.Scope.Validate(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
