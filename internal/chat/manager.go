// Package chat manages conversation threads over query engines: an
// append-only turn history per thread and single-flight retrieval-augmented
// generation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/llm"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

// Manager implements the chat service over thread storage, the query
// dispatcher and the LLM provider factory
type Manager struct {
	storage  interfaces.StorageManager
	searcher interfaces.SearchService
	llms     *llm.Factory
	logger   arbor.ILogger

	mu       sync.Mutex
	inflight map[string]bool
}

var _ interfaces.ChatService = (*Manager)(nil)

// NewManager creates a chat session manager
func NewManager(
	storage interfaces.StorageManager,
	searcher interfaces.SearchService,
	llms *llm.Factory,
	logger arbor.ILogger,
) *Manager {
	return &Manager{
		storage:  storage,
		searcher: searcher,
		llms:     llms,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// CreateThread opens a conversation over an engine. The engine must be live;
// the welcome turn is synthesized locally, no provider call happens here.
func (m *Manager) CreateThread(ctx context.Context, engineID, userID, llmType string, attachments []models.SourceDocument) (*models.UserQuery, error) {
	engine, err := m.storage.EngineStorage().GetEngine(ctx, engineID)
	if err != nil {
		return nil, err
	}

	thread := models.NewThread(common.NewThreadID(), engine.ID, userID, llmType, engine.Name)
	thread.Attachments = attachments
	if err := m.storage.ThreadStorage().SaveThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to save thread: %w", err)
	}

	m.logger.Info().
		Str("thread_id", thread.ID).
		Str("engine_id", engine.ID).
		Str("llm_type", llmType).
		Msg("Thread created")
	return thread, nil
}

func (m *Manager) GetThread(ctx context.Context, threadID string) (*models.UserQuery, error) {
	return m.storage.ThreadStorage().GetThread(ctx, threadID)
}

func (m *Manager) ListThreads(ctx context.Context, userID string, limit, offset int) ([]*models.UserQuery, error) {
	return m.storage.ThreadStorage().ListThreads(ctx, userID, limit, offset)
}

// ArchiveThread moves a thread to its terminal state. Archived threads stay
// readable but reject new turns.
func (m *Manager) ArchiveThread(ctx context.Context, threadID string) error {
	thread, err := m.storage.ThreadStorage().GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	thread.Archive()
	return m.storage.ThreadStorage().SaveThread(ctx, thread)
}

func (m *Manager) DeleteThread(ctx context.Context, threadID string) error {
	return m.storage.ThreadStorage().SoftDeleteThread(ctx, threadID)
}

// Generate runs one retrieval-augmented turn. Exactly one generation can be
// in flight per thread; the history gains the human turn immediately and the
// answer (or an error turn) when the stream ends. Partial output is never
// persisted.
func (m *Manager) Generate(ctx context.Context, threadID string, req *interfaces.TurnRequest) (<-chan interfaces.StreamEvent, error) {
	thread, err := m.storage.ThreadStorage().GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.State == models.ThreadStateArchived {
		return nil, fmt.Errorf("thread %s is archived", threadID)
	}

	m.mu.Lock()
	if m.inflight[threadID] {
		m.mu.Unlock()
		return nil, fmt.Errorf("thread %s already has a generation in flight", threadID)
	}
	m.inflight[threadID] = true
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.inflight, threadID)
		m.mu.Unlock()
	}

	out, err := m.generate(ctx, thread, req, release)
	if err != nil {
		release()
		return nil, err
	}
	return out, nil
}

func (m *Manager) generate(
	ctx context.Context,
	thread *models.UserQuery,
	req *interfaces.TurnRequest,
	release func(),
) (<-chan interfaces.StreamEvent, error) {
	llmType := thread.LLMType
	if req.LLMType != "" {
		llmType = req.LLMType
	}
	service, err := m.llms.ForModel(llmType)
	if err != nil {
		return nil, err
	}

	references, err := m.retrieve(ctx, thread.QueryEngineID, req.Prompt, req.Filter)
	if err != nil {
		return nil, err
	}

	engineName := ""
	if engine, err := m.storage.EngineStorage().GetEngine(ctx, thread.QueryEngineID); err == nil {
		engineName = engine.Name
	}

	// Attachments accumulate: once supplied they ground every later turn
	thread.Attachments = append(thread.Attachments, req.Attachments...)
	thread.Append(models.Turn{Type: models.TurnHumanInput, Content: req.Prompt})
	thread.State = models.ThreadStateGenerating
	if err := m.storage.ThreadStorage().SaveThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to save thread: %w", err)
	}

	messages := buildMessages(buildSystemPrompt(engineName, references, thread.Attachments), thread.History)
	stream, err := service.ChatStream(ctx, messages)
	if err != nil {
		m.finishWithError(thread, err)
		return nil, err
	}

	out := make(chan interfaces.StreamEvent, 16)
	common.SafeGo(m.logger, "chat-generate-"+thread.ID, func() {
		defer close(out)
		defer release()

		var answer []byte
		for event := range stream {
			switch event.Type {
			case interfaces.StreamEventDelta:
				answer = append(answer, event.Delta...)
				out <- event
			case interfaces.StreamEventDone:
				m.finishWithAnswer(thread, string(answer), references)
				out <- event
				return
			case interfaces.StreamEventError:
				m.finishWithError(thread, event.Err)
				out <- event
				return
			}
		}

		// Provider closed the stream without a terminal event
		err := fmt.Errorf("stream ended without completion")
		m.finishWithError(thread, err)
		out <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: err}
	})
	return out, nil
}

// retrieve runs the retrieval step. A thread over an unbuilt or empty engine
// still chats, just without grounding; a malformed filter rejects the turn
// before any history mutation.
func (m *Manager) retrieve(ctx context.Context, engineID, prompt, filter string) ([]models.QueryReference, error) {
	result, err := m.searcher.Query(ctx, engineID, &models.QueryRequest{Text: prompt, Filter: filter})
	if err != nil {
		var syntaxErr *models.FilterSyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, err
		}
		if _, empty := err.(*models.NoDocumentsIndexedError); !empty {
			m.logger.Warn().Err(err).Str("engine_id", engineID).Msg("Retrieval failed, generating without context")
		}
		return nil, nil
	}
	return result.References, nil
}

// finishWithAnswer appends the answer and its references as immutable turns.
// Persistence uses a background context so a cancelled request cannot lose
// the completed turn.
func (m *Manager) finishWithAnswer(thread *models.UserQuery, answer string, references []models.QueryReference) {
	thread.Append(models.Turn{Type: models.TurnAIOutput, Content: answer})
	if len(references) > 0 {
		thread.Append(models.Turn{Type: models.TurnAIReferences, References: references})
	}
	thread.State = models.ThreadStateAwaitingTurn
	if err := m.storage.ThreadStorage().SaveThread(context.Background(), thread); err != nil {
		m.logger.Error().Err(err).Str("thread_id", thread.ID).Msg("Failed to persist completed turn")
	}
}

// finishWithError discards any partial output and records an error turn
func (m *Manager) finishWithError(thread *models.UserQuery, cause error) {
	message := "generation failed"
	if cause != nil {
		message = cause.Error()
	}
	thread.Append(models.Turn{Type: models.TurnError, Content: message})
	thread.State = models.ThreadStateAwaitingTurn
	if err := m.storage.ThreadStorage().SaveThread(context.Background(), thread); err != nil {
		m.logger.Error().Err(err).Str("thread_id", thread.ID).Msg("Failed to persist error turn")
	}
}
