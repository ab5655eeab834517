package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidCredentials", ErrInvalidCredentials},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat},
		{"ErrExtractionFailed", ErrExtractionFailed},
		{"ErrEmptyInput", ErrEmptyInput},
		{"ErrIndexNotFound", ErrIndexNotFound},
		{"ErrIndexCorrupt", ErrIndexCorrupt},
		{"ErrConcurrentWrite", ErrConcurrentWrite},
		{"ErrRebuildFailed", ErrRebuildFailed},
		{"ErrNoKnowledge", ErrNoKnowledge},
		{"ErrAnswerFailed", ErrAnswerFailed},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrIndexNotFound_DistinctFromCorrupt(t *testing.T) {
	assert.False(t, errors.Is(ErrIndexNotFound, ErrIndexCorrupt))
	assert.False(t, errors.Is(ErrIndexCorrupt, ErrIndexNotFound))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"empty input", ErrEmptyInput, "No text extracted from the uploaded files."},
		{"wrapped no knowledge", fmt.Errorf("open: %w", ErrNoKnowledge), "No previous knowledge found. Please process some files first."},
		{"index not found", ErrIndexNotFound, "No previous knowledge found. Please process some files first."},
		{"corrupt", fmt.Errorf("load: %w", ErrIndexCorrupt), "Knowledge base unreadable, please reprocess your files."},
		{"rebuild", fmt.Errorf("%w: %w", ErrRebuildFailed, ErrEmbeddingUnavailable), "Failed to rebuild knowledge."},
		{"concurrent", ErrConcurrentWrite, "Your knowledge base is being updated, try again shortly."},
		{"answer", fmt.Errorf("%w: timeout", ErrAnswerFailed), "Failed to answer the question, please try again."},
		{"unknown", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
