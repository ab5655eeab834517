package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials indicates a username/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Extraction Errors.

	// ErrUnsupportedFormat indicates no extractor handles a file's extension.
	// It is never fatal; the file is replaced by an inline marker.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed indicates a supported file could not be read.
	// The file contributes no text; the rest of the batch continues.
	ErrExtractionFailed = errors.New("extraction failed")

	// Index Errors.

	// ErrEmptyInput indicates an index build was requested with zero chunks.
	ErrEmptyInput = errors.New("empty input")

	// ErrIndexNotFound indicates no persisted index exists at a path.
	// Callers treat this as first-time use, not as a failure.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates a persisted index exists but cannot be decoded.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrConcurrentWrite indicates the per-scope write lock is held elsewhere.
	ErrConcurrentWrite = errors.New("concurrent write in progress")

	// ErrRebuildFailed indicates a full rebuild after file removal failed.
	ErrRebuildFailed = errors.New("rebuild failed")

	// ErrNoKnowledge indicates a scope has no index to answer from.
	ErrNoKnowledge = errors.New("no knowledge available")

	// AI Service Errors.

	// ErrAnswerFailed indicates the answering capability returned an error.
	// Conversation state is left unchanged so the question can be retried.
	ErrAnswerFailed = errors.New("failed to answer")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or failed while embedding.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// userMessages maps errors to the text shown to a person.
// Order matters: the first match wins.
var userMessages = []struct {
	err error
	msg string
}{
	{ErrEmptyInput, "No text extracted from the uploaded files."},
	{ErrNoKnowledge, "No previous knowledge found. Please process some files first."},
	{ErrIndexNotFound, "No previous knowledge found. Please process some files first."},
	{ErrIndexCorrupt, "Knowledge base unreadable, please reprocess your files."},
	{ErrRebuildFailed, "Failed to rebuild knowledge."},
	{ErrConcurrentWrite, "Your knowledge base is being updated, try again shortly."},
	{ErrAnswerFailed, "Failed to answer the question, please try again."},
	{ErrEmbeddingUnavailable, "Embedding service unavailable, check your settings."},
	{ErrLLMUnavailable, "Language model unavailable, check your settings."},
	{ErrInvalidCredentials, "Invalid username or password."},
	{ErrAlreadyExists, "Already exists."},
	{ErrNotFound, "Not found."},
	{ErrInvalidInput, "Invalid input."},
}

// UserMessage returns an actionable message for err.
// Unknown errors fall back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}
