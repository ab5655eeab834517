// Package llm holds the answering contract shared by every language model adapter.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Answerer implements the interface.
var _ driven.Answerer = (*Answerer)(nil)

// Defaults for the answering contract.
const (
	DefaultLanguage    = "English"
	DefaultTemperature = 0.1
)

// Answerer answers questions from retrieved chunks using a chat model.
type Answerer struct {
	llm         driven.LLMService
	prompts     driven.PromptStore
	language    string
	temperature float64
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithLanguage sets the language every answer is written in.
func WithLanguage(language string) AnswererOption {
	return func(a *Answerer) {
		if language != "" {
			a.language = language
		}
	}
}

// WithTemperature sets the model temperature.
func WithTemperature(t float64) AnswererOption {
	return func(a *Answerer) {
		a.temperature = t
	}
}

// NewAnswerer creates an answerer. prompts may be nil, in which case the
// built-in templates are used.
func NewAnswerer(llm driven.LLMService, prompts driven.PromptStore, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		llm:         llm,
		prompts:     prompts,
		language:    DefaultLanguage,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer builds the conversation and asks the model.
func (a *Answerer) Answer(
	ctx context.Context,
	question string,
	history domain.History,
	chunks []domain.RetrievedChunk,
) (string, error) {
	if a.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	messages, err := a.Messages(question, history, chunks)
	if err != nil {
		return "", err
	}

	answer, err := a.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: a.temperature})
	if err != nil {
		return "", fmt.Errorf("chat with %s: %w", a.llm.ModelName(), err)
	}
	return answer, nil
}

// Messages returns the chat messages sent for a question: the system
// contract, the prior turns, then the question with its numbered context.
func (a *Answerer) Messages(
	question string,
	history domain.History,
	chunks []domain.RetrievedChunk,
) ([]driven.ChatMessage, error) {
	system, err := a.template(driven.PromptAnswerSystem)
	if err != nil {
		return nil, err
	}
	wrap, err := a.template(driven.PromptAnswerContext)
	if err != nil {
		return nil, err
	}

	messages := make([]driven.ChatMessage, 0, len(history)*2+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: fmt.Sprintf(system, a.language)})
	for _, m := range history.Messages() {
		messages = append(messages, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, driven.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf(wrap, FormatContext(chunks), question),
	})
	return messages, nil
}

func (a *Answerer) template(name string) (string, error) {
	if a.prompts != nil {
		tmpl, err := a.prompts.Load(name)
		if err == nil {
			return tmpl, nil
		}
	}
	tmpl, ok := DefaultPrompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return tmpl, nil
}

// FormatContext numbers the chunks from 1 in retrieval order.
func FormatContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return "(no document context)"
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(c.Content))
	}
	return b.String()
}

// DefaultPrompts are the built-in answering templates.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `You are an assistant that answers questions using only the documents the user has provided.
Give accurate, clear answers based strictly on the document context.
If the answer is not in the context, say that you do not know. Never invent an answer.
You may combine information from several context passages. If passages are unrelated to each other, say so.
Always respond in %s, even if the documents or the question are in another language.`,

	driven.PromptAnswerContext: `Document context:
%s

Question:
%s`,
}
