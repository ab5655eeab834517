// Package mcp provides an MCP (Model Context Protocol) server adapter for ragify.
// It lets AI assistants add files to a knowledge scope, ask questions about
// it and manage the files behind it.
package mcp

import (
	"errors"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")

// toolError presents err by its user-facing message while keeping it for errors.Is.
type toolError struct {
	err error
}

func (e toolError) Error() string { return domain.UserMessage(e.err) }

func (e toolError) Unwrap() error { return e.err }

func wrapToolError(err error) error {
	if err == nil {
		return nil
	}
	return toolError{err: err}
}
