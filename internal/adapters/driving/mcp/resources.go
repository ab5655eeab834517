package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for ragify resources.
	uriScheme = "ragify://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Files the knowledge was built from",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "The conversation so far",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

// handleFilesResource returns the retained files.
func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	files, err := s.ports.Knowledge.ListFiles(ctx, s.ports.Scope)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return jsonResource(req.Params.URI, fileOutputs(files))
}

// handleHistoryResource returns the conversation. An empty scope reads as [].
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	history, err := s.ports.Knowledge.History(ctx, s.ports.Scope)
	if err != nil && !errors.Is(err, domain.ErrNoKnowledge) {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return jsonResource(req.Params.URI, turnOutputs(history))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
