package driving

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// KnowledgeService is the entry point for building, querying and pruning
// the knowledge held under a scope. It is used by the CLI, watch and MCP adapters.
type KnowledgeService interface {
	// ProcessFiles extracts, chunks and indexes the blobs into the scope's
	// knowledge, merging with what is already there.
	// Returns domain.ErrEmptyInput if the blobs yield no text.
	ProcessFiles(ctx context.Context, scope domain.Scope, blobs []domain.DocumentBlob) (*ProcessResult, error)

	// Open loads the scope's knowledge and history.
	// Returns domain.ErrNoKnowledge if the scope has no index.
	Open(ctx context.Context, scope domain.Scope) (*Knowledge, error)

	// Ask answers a question from the scope's knowledge and records the turn.
	Ask(ctx context.Context, scope domain.Scope, question string) (*AskResult, error)

	// RemoveFile drops one retained file and rebuilds the index from the rest.
	// The ref is a record id for durable scopes and a file name for sessions.
	RemoveFile(ctx context.Context, scope domain.Scope, ref string) (*RemoveResult, error)

	// Reprocess rebuilds the scope's index from every retained file without
	// reading the current index. It recovers a scope whose index fails to
	// load with domain.ErrIndexCorrupt.
	// Returns domain.ErrNoKnowledge if no files are retained.
	Reprocess(ctx context.Context, scope domain.Scope) (*ProcessResult, error)

	// ListFiles returns the files retained for the scope.
	ListFiles(ctx context.Context, scope domain.Scope) ([]domain.FileInfo, error)

	// History returns the scope's conversation.
	History(ctx context.Context, scope domain.Scope) (domain.History, error)

	// ResetSession drops all state held for a session.
	ResetSession(ctx context.Context, sessionID string) error
}

// ProcessResult summarises a ProcessFiles or Reprocess call.
type ProcessResult struct {
	// Files reports the extraction outcome per blob, in input order.
	Files []domain.FileReport

	// Chunks is the number of chunks produced from the new text.
	Chunks int

	// Entries is the size of the index after processing.
	Entries int
}

// Knowledge describes an opened scope.
type Knowledge struct {
	Scope   domain.Scope
	Entries int
	Files   []domain.FileInfo
	History domain.History
}

// AskResult is the outcome of a question.
type AskResult struct {
	Answer string

	// Sources are the retrieved chunks the answer was built from.
	Sources []domain.RetrievedChunk

	// History is the conversation including the new turn.
	History domain.History
}

// RemoveResult summarises a RemoveFile call.
type RemoveResult struct {
	// Removed is the name of the dropped file.
	Removed string

	// Remaining is the number of files still retained.
	Remaining int

	// Entries is the size of the rebuilt index, zero if it was destroyed.
	Entries int
}
