package mcp

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
)

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	processResult *driving.ProcessResult
	askResult     *driving.AskResult
	removeResult  *driving.RemoveResult
	files         []domain.FileInfo
	history       domain.History
	err           error

	// recorded inputs
	scope       domain.Scope
	blobs       []domain.DocumentBlob
	question    string
	ref         string
	reprocessed bool
}

func (m *mockKnowledgeService) ProcessFiles(
	_ context.Context, scope domain.Scope, blobs []domain.DocumentBlob,
) (*driving.ProcessResult, error) {
	m.scope, m.blobs = scope, blobs
	return m.processResult, m.err
}

func (m *mockKnowledgeService) Open(_ context.Context, scope domain.Scope) (*driving.Knowledge, error) {
	m.scope = scope
	return &driving.Knowledge{Scope: scope, Files: m.files, History: m.history}, m.err
}

func (m *mockKnowledgeService) Ask(_ context.Context, scope domain.Scope, question string) (*driving.AskResult, error) {
	m.scope, m.question = scope, question
	return m.askResult, m.err
}

func (m *mockKnowledgeService) RemoveFile(_ context.Context, scope domain.Scope, ref string) (*driving.RemoveResult, error) {
	m.scope, m.ref = scope, ref
	return m.removeResult, m.err
}

func (m *mockKnowledgeService) Reprocess(_ context.Context, scope domain.Scope) (*driving.ProcessResult, error) {
	m.scope = scope
	m.reprocessed = true
	return m.processResult, m.err
}

func (m *mockKnowledgeService) ListFiles(_ context.Context, scope domain.Scope) ([]domain.FileInfo, error) {
	m.scope = scope
	return m.files, m.err
}

func (m *mockKnowledgeService) History(_ context.Context, scope domain.Scope) (domain.History, error) {
	m.scope = scope
	return m.history, m.err
}

func (m *mockKnowledgeService) ResetSession(_ context.Context, _ string) error {
	return m.err
}
