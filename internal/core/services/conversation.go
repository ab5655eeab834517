package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/logger"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 4

// Reply is the outcome of one conversation turn.
type Reply struct {
	Answer  string
	History domain.History
	Sources []domain.RetrievedChunk
}

// ConversationService answers questions against an index. It holds no
// conversation state: history goes in with each question and comes back
// with the new turn appended.
type ConversationService struct {
	index    *IndexService
	answerer driven.Answerer
	topK     int
	now      func() time.Time
}

// NewConversationService creates a conversation service.
// The answerer may be nil when no language model is configured; Ask then
// fails with domain.ErrLLMUnavailable.
func NewConversationService(index *IndexService, answerer driven.Answerer, topK int) *ConversationService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ConversationService{
		index:    index,
		answerer: answerer,
		topK:     topK,
		now:      time.Now,
	}
}

// Ask answers question from idx and returns the answer with the updated history.
func (s *ConversationService) Ask(
	ctx context.Context, question string, idx driven.VectorIndex, history domain.History,
) (string, domain.History, error) {
	reply, err := s.Answer(ctx, question, idx, history)
	if err != nil {
		return "", history, err
	}
	return reply.Answer, reply.History, nil
}

// Answer is Ask with the retrieved sources included.
// On failure the returned history is the one passed in.
func (s *ConversationService) Answer(
	ctx context.Context, question string, idx driven.VectorIndex, history domain.History,
) (*Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if idx == nil {
		return nil, domain.ErrNoKnowledge
	}
	if s.answerer == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Ask")
	logger.Debug("Question: %q (top %d, %d prior turns)", question, s.topK, len(history))

	chunks, err := s.index.Retrieve(ctx, idx, question, s.topK)
	if err != nil {
		return nil, err
	}
	logger.Debug("Retrieved %d chunks", len(chunks))

	answer, err := s.answerer.Answer(ctx, question, history, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAnswerFailed, err)
	}

	return &Reply{
		Answer: answer,
		History: history.Append(domain.Turn{
			Question: question,
			Answer:   answer,
			At:       s.now(),
		}),
		Sources: chunks,
	}, nil
}
