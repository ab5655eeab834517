package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
)

// ProcessFilesInput is the input schema for the process_files tool.
type ProcessFilesInput struct {
	Paths     []string        `json:"paths,omitempty" jsonschema:"local file paths to read and add"`
	Documents []DocumentInput `json:"documents,omitempty" jsonschema:"inline documents to add"`
}

// DocumentInput is an inline document.
type DocumentInput struct {
	Name     string `json:"name" jsonschema:"file name including extension, which selects the extractor"`
	Content  string `json:"content" jsonschema:"file content"`
	Encoding string `json:"encoding,omitempty" jsonschema:"base64 for binary content, empty for plain text"`
}

// ProcessFilesOutput is the output schema for the process_files tool.
type ProcessFilesOutput struct {
	Files   []FileReportOutput `json:"files"`
	Chunks  int                `json:"chunks"`
	Entries int                `json:"entries"`
}

// FileReportOutput is the extraction outcome for one file.
type FileReportOutput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Chars  int    `json:"chars"`
	Error  string `json:"error,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the knowledge"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources,omitempty"`
}

// SourceOutput is a passage an answer was built from.
type SourceOutput struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct{}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// FileOutput describes a retained file.
type FileOutput struct {
	Ref    string `json:"ref"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// RemoveFileInput is the input schema for the remove_file tool.
type RemoveFileInput struct {
	Ref string `json:"ref" jsonschema:"the ref returned by list_files"`
}

// RemoveFileOutput is the output schema for the remove_file tool.
type RemoveFileOutput struct {
	Removed   string `json:"removed"`
	Remaining int    `json:"remaining"`
	Entries   int    `json:"entries"`
}

// ReprocessInput is the input schema for the reprocess tool.
type ReprocessInput struct{}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct{}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	Turns []TurnOutput `json:"turns"`
}

// TurnOutput is one question and its answer.
type TurnOutput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_files",
		Description: "Extract, chunk and index files into the knowledge, keeping what is already there",
	}, s.handleProcessFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List the files the knowledge was built from",
	}, s.handleListFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_file",
		Description: "Remove a file and rebuild the knowledge from the remaining files",
	}, s.handleRemoveFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reprocess",
		Description: "Rebuild the knowledge from every retained file, replacing an index that can no longer be read",
	}, s.handleReprocess)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "Show the conversation so far",
	}, s.handleHistory)
}

// handleProcessFiles handles the process_files tool invocation.
func (s *Server) handleProcessFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessFilesInput,
) (*mcp.CallToolResult, ProcessFilesOutput, error) {
	blobs, err := loadDocuments(input)
	if err != nil {
		return nil, ProcessFilesOutput{}, err
	}

	result, err := s.ports.Knowledge.ProcessFiles(ctx, s.ports.Scope, blobs)
	if err != nil {
		return nil, ProcessFilesOutput{}, wrapToolError(err)
	}

	return nil, processOutput(result), nil
}

// handleReprocess handles the reprocess tool invocation.
func (s *Server) handleReprocess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ReprocessInput,
) (*mcp.CallToolResult, ProcessFilesOutput, error) {
	result, err := s.ports.Knowledge.Reprocess(ctx, s.ports.Scope)
	if err != nil {
		return nil, ProcessFilesOutput{}, wrapToolError(err)
	}
	return nil, processOutput(result), nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.ports.Knowledge.Ask(ctx, s.ports.Scope, input.Question)
	if err != nil {
		return nil, AskOutput{}, wrapToolError(err)
	}

	output := AskOutput{Answer: result.Answer}
	for _, src := range result.Sources {
		output.Sources = append(output.Sources, SourceOutput{Content: src.Content, Score: src.Score})
	}
	return nil, output, nil
}

// handleListFiles handles the list_files tool invocation.
func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	files, err := s.ports.Knowledge.ListFiles(ctx, s.ports.Scope)
	if err != nil {
		return nil, ListFilesOutput{}, wrapToolError(err)
	}
	return nil, ListFilesOutput{Files: fileOutputs(files), Count: len(files)}, nil
}

// handleRemoveFile handles the remove_file tool invocation.
func (s *Server) handleRemoveFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveFileInput,
) (*mcp.CallToolResult, RemoveFileOutput, error) {
	result, err := s.ports.Knowledge.RemoveFile(ctx, s.ports.Scope, input.Ref)
	if err != nil {
		return nil, RemoveFileOutput{}, wrapToolError(err)
	}
	return nil, RemoveFileOutput{
		Removed:   result.Removed,
		Remaining: result.Remaining,
		Entries:   result.Entries,
	}, nil
}

// handleHistory handles the history tool invocation.
func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	history, err := s.ports.Knowledge.History(ctx, s.ports.Scope)
	if err != nil {
		return nil, HistoryOutput{}, wrapToolError(err)
	}
	return nil, HistoryOutput{Turns: turnOutputs(history)}, nil
}

// loadDocuments turns tool input into blobs, paths first.
func loadDocuments(input ProcessFilesInput) ([]domain.DocumentBlob, error) {
	if len(input.Paths) == 0 && len(input.Documents) == 0 {
		return nil, errors.New("provide at least one path or document")
	}

	blobs := make([]domain.DocumentBlob, 0, len(input.Paths)+len(input.Documents))
	for _, p := range input.Paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		blobs = append(blobs, domain.DocumentBlob{Name: filepath.Base(p), Content: data})
	}

	for i, doc := range input.Documents {
		if doc.Name == "" {
			return nil, fmt.Errorf("document %d has no name", i+1)
		}
		var content []byte
		switch doc.Encoding {
		case "":
			content = []byte(doc.Content)
		case "base64":
			decoded, err := base64.StdEncoding.DecodeString(doc.Content)
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", doc.Name, err)
			}
			content = decoded
		default:
			return nil, fmt.Errorf("unknown encoding %q for %s", doc.Encoding, doc.Name)
		}
		blobs = append(blobs, domain.DocumentBlob{Name: doc.Name, Content: content})
	}
	return blobs, nil
}

func processOutput(result *driving.ProcessResult) ProcessFilesOutput {
	output := ProcessFilesOutput{
		Files:   make([]FileReportOutput, len(result.Files)),
		Chunks:  result.Chunks,
		Entries: result.Entries,
	}
	for i, r := range result.Files {
		output.Files[i] = FileReportOutput{
			Name:   r.Name,
			Status: string(r.Status),
			Chars:  r.Chars,
			Error:  r.Err,
		}
	}
	return output
}

func fileOutputs(files []domain.FileInfo) []FileOutput {
	out := make([]FileOutput, len(files))
	for i, f := range files {
		out[i] = FileOutput{Ref: f.Ref, Name: f.Name, Source: string(f.Source)}
	}
	return out
}

func turnOutputs(history domain.History) []TurnOutput {
	out := make([]TurnOutput, len(history))
	for i, t := range history {
		out[i] = TurnOutput{Question: t.Question, Answer: t.Answer}
	}
	return out
}
