package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
	"github.com/custodia-labs/ragify/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// KnowledgeService runs the knowledge lifecycle for durable and session scopes.
type KnowledgeService struct {
	extractors   driven.ExtractorRegistry
	chunker      driven.Chunker
	manager      *KnowledgeManager
	conversation *ConversationService
	records      driven.RecordStore
	blobs        driven.BlobStore
	sessions     driven.SessionStore
}

// NewKnowledgeService creates a knowledge service.
func NewKnowledgeService(
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	manager *KnowledgeManager,
	conversation *ConversationService,
	records driven.RecordStore,
	blobs driven.BlobStore,
	sessions driven.SessionStore,
) *KnowledgeService {
	return &KnowledgeService{
		extractors:   extractors,
		chunker:      chunker,
		manager:      manager,
		conversation: conversation,
		records:      records,
		blobs:        blobs,
		sessions:     sessions,
	}
}

// ProcessFiles extracts, chunks and indexes blobs into the scope's knowledge.
func (s *KnowledgeService) ProcessFiles(
	ctx context.Context, scope domain.Scope, blobs []domain.DocumentBlob,
) (*driving.ProcessResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("%w: no files given", domain.ErrEmptyInput)
	}

	logger.Section("Process Files")
	logger.Debug("Scope: %s, files: %d", scope, len(blobs))

	text, reports, err := s.extractors.Extract(ctx, blobs)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return &driving.ProcessResult{Files: reports}, fmt.Errorf("%w: no text extracted", domain.ErrEmptyInput)
	}
	chunks, err := s.chunker.Chunk(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		return &driving.ProcessResult{Files: reports}, fmt.Errorf("%w: no text extracted", domain.ErrEmptyInput)
	}
	logger.Debug("Extracted %d chars into %d chunks", len(text), len(chunks))

	result := &driving.ProcessResult{Files: reports, Chunks: len(chunks)}
	var recordErr error
	if scope.IsDurable() {
		err = s.manager.WithLock(ctx, scope, func(ctx context.Context) error {
			entries, rerr, err := s.processDurable(ctx, scope, blobs, chunks)
			result.Entries = entries
			recordErr = rerr
			return err
		})
	} else {
		err = s.sessions.Update(ctx, scope.SessionID(), func(st *driven.SessionState) error {
			idx, err := s.manager.GetVectorstore(ctx, chunks, scope, st.Index)
			if err != nil {
				return err
			}
			st.Index = idx
			for _, b := range blobs {
				st.Files = append(st.Files, domain.DocumentBlob{Name: b.Name, Content: bytes.Clone(b.Content)})
			}
			result.Entries = idx.Len()
			return nil
		})
	}
	if err != nil {
		return nil, err
	}
	if recordErr != nil {
		return result, recordErr
	}

	logger.Info("Processed %d files into %d chunks for %s", len(blobs), len(chunks), scope)
	return result, nil
}

// processDurable stores the blobs, updates the persisted index and only
// then records the files. Blobs are removed again if indexing fails.
//
// A file whose record cannot be written loses its blob, and the index is
// rebuilt from the recorded files so it holds no chunks without a record.
// Such failures come back as recordErr alongside the index size.
func (s *KnowledgeService) processDurable(
	ctx context.Context, scope domain.Scope, blobs []domain.DocumentBlob, chunks []domain.Chunk,
) (entries int, recordErr, err error) {
	userID := scope.UserID()

	paths := make([]string, 0, len(blobs))
	cleanup := func(paths ...string) {
		for _, p := range paths {
			if err := s.blobs.Delete(context.WithoutCancel(ctx), p); err != nil {
				logger.Warn("remove blob %s: %v", p, err)
			}
		}
	}
	for _, b := range blobs {
		p, err := s.blobs.Put(ctx, userID, b.Name, b.Content)
		if err != nil {
			cleanup(paths...)
			return 0, nil, fmt.Errorf("store %s: %w", b.Name, err)
		}
		paths = append(paths, p)
	}

	idx, err := s.manager.GetVectorstore(ctx, chunks, scope, nil)
	if err != nil {
		cleanup(paths...)
		return 0, nil, err
	}

	var errs []error
	for i, b := range blobs {
		if _, err := s.records.AddUserFileRecord(ctx, userID, b.Name, paths[i]); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", b.Name, err))
			cleanup(paths[i])
		}
	}
	if len(errs) == 0 {
		return idx.Len(), nil, nil
	}

	recordErr = errors.Join(errs...)
	logger.Warn("%s: %d of %d files not recorded, rebuilding index from recorded files", scope, len(errs), len(blobs))
	repaired, err := s.reprocessDurable(ctx, scope)
	if err != nil {
		logger.Warn("%s: index holds chunks of unrecorded files until reprocessed: %v", scope, err)
		return idx.Len(), recordErr, nil
	}
	return repaired.Entries, recordErr, nil
}

// Open loads the scope's index and conversation.
func (s *KnowledgeService) Open(ctx context.Context, scope domain.Scope) (*driving.Knowledge, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	if !scope.IsDurable() {
		st, err := s.sessions.Get(ctx, scope.SessionID())
		if err != nil {
			return nil, err
		}
		if st.Index == nil {
			return nil, domain.ErrNoKnowledge
		}
		return &driving.Knowledge{
			Scope:   scope,
			Entries: st.Index.Len(),
			Files:   sessionFiles(st.Files),
			History: st.History,
		}, nil
	}

	idx, err := s.manager.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, domain.ErrNoKnowledge
	}
	history, err := s.History(ctx, scope)
	if err != nil {
		return nil, err
	}
	files, err := s.ListFiles(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &driving.Knowledge{
		Scope:   scope,
		Entries: idx.Len(),
		Files:   files,
		History: history,
	}, nil
}

// Ask answers a question and records the turn in the scope's history.
func (s *KnowledgeService) Ask(ctx context.Context, scope domain.Scope, question string) (*driving.AskResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	if !scope.IsDurable() {
		var result *driving.AskResult
		err := s.sessions.Update(ctx, scope.SessionID(), func(st *driven.SessionState) error {
			if st.Index == nil {
				return domain.ErrNoKnowledge
			}
			reply, err := s.conversation.Answer(ctx, question, st.Index, st.History)
			if err != nil {
				return err
			}
			st.History = reply.History
			result = askResult(reply)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	idx, err := s.manager.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, domain.ErrNoKnowledge
	}
	history, err := s.History(ctx, scope)
	if err != nil {
		return nil, err
	}
	reply, err := s.conversation.Answer(ctx, question, idx, history)
	if err != nil {
		return nil, err
	}

	turn := reply.History[len(reply.History)-1]
	if err := s.records.SaveChatMessage(ctx, scope.UserID(), turn); err != nil {
		return nil, fmt.Errorf("save turn: %w", err)
	}
	return askResult(reply), nil
}

// RemoveFile drops one file and rebuilds the index from the files left.
// The index format keeps no per-file provenance, so every removal is a
// full rebuild.
func (s *KnowledgeService) RemoveFile(
	ctx context.Context, scope domain.Scope, ref string,
) (*driving.RemoveResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	logger.Section("Remove File")
	logger.Debug("Scope: %s, ref: %q", scope, ref)

	if scope.IsDurable() {
		fileID, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: file id %q", domain.ErrInvalidInput, ref)
		}
		var result *driving.RemoveResult
		err = s.manager.WithLock(ctx, scope, func(ctx context.Context) error {
			var err error
			result, err = s.removeDurable(ctx, scope, fileID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	var result *driving.RemoveResult
	err := s.sessions.Update(ctx, scope.SessionID(), func(st *driven.SessionState) error {
		pos := -1
		for i, f := range st.Files {
			if f.Name == ref {
				pos = i
				break
			}
		}
		if pos < 0 {
			return fmt.Errorf("%w: file %q", domain.ErrNotFound, ref)
		}
		remaining := make([]domain.DocumentBlob, 0, len(st.Files)-1)
		remaining = append(remaining, st.Files[:pos]...)
		remaining = append(remaining, st.Files[pos+1:]...)

		result = &driving.RemoveResult{Removed: ref, Remaining: len(remaining)}
		if len(remaining) == 0 {
			st.Files = nil
			st.Index = nil
			st.History = nil
			return nil
		}

		idx, _, err := s.rebuild(ctx, scope, remaining)
		if err != nil {
			return err
		}
		st.Files = remaining
		st.Index = idx
		if idx != nil {
			result.Entries = idx.Len()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Removed %s from %s, %d files remain", result.Removed, scope, result.Remaining)
	return result, nil
}

func (s *KnowledgeService) removeDurable(
	ctx context.Context, scope domain.Scope, fileID int64,
) (*driving.RemoveResult, error) {
	userID := scope.UserID()
	rec, err := s.records.GetUserFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	all, err := s.records.GetUserFiles(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]domain.FileRecord, 0, len(all))
	for _, f := range all {
		if f.ID != fileID {
			kept = append(kept, f)
		}
	}
	remaining, err := s.readRetained(ctx, kept)
	if err != nil {
		return nil, err
	}

	idx, _, err := s.rebuild(ctx, scope, remaining)
	if err != nil {
		return nil, err
	}

	if err := s.records.DeleteUserFile(ctx, userID, fileID); err != nil {
		return nil, err
	}
	if err := s.blobs.Delete(ctx, rec.StoragePath); err != nil {
		logger.Warn("remove blob %s: %v", rec.StoragePath, err)
	}

	result := &driving.RemoveResult{Removed: rec.Filename, Remaining: len(remaining)}
	if idx != nil {
		result.Entries = idx.Len()
	}
	logger.Info("Removed %s from %s, %d files remain", rec.Filename, scope, len(remaining))
	return result, nil
}

// Reprocess rebuilds the scope's index from every retained file. The
// current index is never read, so one that no longer loads, for example
// after an embedding model change, is replaced.
func (s *KnowledgeService) Reprocess(ctx context.Context, scope domain.Scope) (*driving.ProcessResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	logger.Section("Reprocess Files")
	logger.Debug("Scope: %s", scope)

	var result *driving.ProcessResult
	var err error
	if scope.IsDurable() {
		err = s.manager.WithLock(ctx, scope, func(ctx context.Context) error {
			var err error
			result, err = s.reprocessDurable(ctx, scope)
			if err == nil && len(result.Files) == 0 {
				return fmt.Errorf("%w: no files retained", domain.ErrNoKnowledge)
			}
			return err
		})
	} else {
		err = s.sessions.Update(ctx, scope.SessionID(), func(st *driven.SessionState) error {
			if len(st.Files) == 0 {
				return fmt.Errorf("%w: no files retained", domain.ErrNoKnowledge)
			}
			idx, res, err := s.rebuild(ctx, scope, st.Files)
			if err != nil {
				return err
			}
			st.Index = idx
			result = res
			return nil
		})
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Reprocessed %d files into %d entries for %s", len(result.Files), result.Entries, scope)
	return result, nil
}

// reprocessDurable rebuilds a durable index from the recorded files.
// The caller holds the scope's lock.
func (s *KnowledgeService) reprocessDurable(ctx context.Context, scope domain.Scope) (*driving.ProcessResult, error) {
	records, err := s.records.GetUserFiles(ctx, scope.UserID())
	if err != nil {
		return nil, err
	}
	files, err := s.readRetained(ctx, records)
	if err != nil {
		return nil, err
	}
	_, result, err := s.rebuild(ctx, scope, files)
	return result, err
}

// readRetained loads the stored content of each record.
func (s *KnowledgeService) readRetained(ctx context.Context, records []domain.FileRecord) ([]domain.DocumentBlob, error) {
	files := make([]domain.DocumentBlob, 0, len(records))
	for _, f := range records {
		content, err := s.blobs.Get(ctx, f.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrRebuildFailed, f.Filename, err)
		}
		files = append(files, domain.DocumentBlob{Name: f.Filename, Content: content})
	}
	return files, nil
}

// rebuild re-extracts and re-chunks files, then replaces the scope's index.
// Files that yield no text leave the scope without an index.
func (s *KnowledgeService) rebuild(
	ctx context.Context, scope domain.Scope, files []domain.DocumentBlob,
) (driven.VectorIndex, *driving.ProcessResult, error) {
	result := &driving.ProcessResult{}
	var chunks []domain.Chunk
	if len(files) > 0 {
		text, reports, err := s.extractors.Extract(ctx, files)
		if err != nil {
			return nil, nil, err
		}
		result.Files = reports
		chunks, err = s.chunker.Chunk(ctx, text)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrRebuildFailed, err)
		}
	}
	idx, err := s.manager.Rebuild(ctx, scope, chunks)
	if err != nil {
		return nil, nil, err
	}
	result.Chunks = len(chunks)
	if idx != nil {
		result.Entries = idx.Len()
	}
	return idx, result, nil
}

// ListFiles returns the files retained for the scope.
func (s *KnowledgeService) ListFiles(ctx context.Context, scope domain.Scope) ([]domain.FileInfo, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.IsDurable() {
		st, err := s.sessions.Get(ctx, scope.SessionID())
		if err != nil {
			return nil, err
		}
		return sessionFiles(st.Files), nil
	}

	records, err := s.records.GetUserFiles(ctx, scope.UserID())
	if err != nil {
		return nil, err
	}
	files := make([]domain.FileInfo, 0, len(records))
	for _, r := range records {
		files = append(files, domain.FileInfo{
			Ref:    strconv.FormatInt(r.ID, 10),
			Name:   r.Filename,
			Source: domain.FileSourceDB,
		})
	}
	return files, nil
}

// History returns the scope's conversation.
func (s *KnowledgeService) History(ctx context.Context, scope domain.Scope) (domain.History, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.IsDurable() {
		st, err := s.sessions.Get(ctx, scope.SessionID())
		if err != nil {
			return nil, err
		}
		return st.History, nil
	}
	msgs, err := s.records.LoadChatHistory(ctx, scope.UserID())
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return domain.PairMessages(msgs), nil
}

// ResetSession drops everything held for a session.
func (s *KnowledgeService) ResetSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func sessionFiles(blobs []domain.DocumentBlob) []domain.FileInfo {
	files := make([]domain.FileInfo, 0, len(blobs))
	for _, b := range blobs {
		files = append(files, domain.FileInfo{Ref: b.Name, Name: b.Name, Source: domain.FileSourceSession})
	}
	return files
}

func askResult(r *Reply) *driving.AskResult {
	return &driving.AskResult{Answer: r.Answer, Sources: r.Sources, History: r.History}
}
