package models

import (
	"time"
)

// ThreadState tracks where a conversation thread sits in its lifecycle
type ThreadState string

const (
	ThreadStateNew          ThreadState = "new"
	ThreadStateAwaitingTurn ThreadState = "awaiting-turn"
	ThreadStateGenerating   ThreadState = "generating"
	ThreadStateArchived     ThreadState = "archived"
)

// TurnType identifies what a turn contributes to the history
type TurnType string

const (
	TurnHumanInput   TurnType = "human-input"
	TurnAIOutput     TurnType = "ai-output"
	TurnAIReferences TurnType = "ai-references"
	TurnError        TurnType = "error"
)

// Turn is one atomic addition to a thread's history. Turns are never edited
// or removed once appended.
type Turn struct {
	Type       TurnType         `json:"type"`
	Content    string           `json:"content,omitempty"`
	References []QueryReference `json:"references,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// UserQuery is a conversation thread: an append-only ordered history of
// turns over one engine. Created on first turn, appended to afterwards; the
// thread (not its turns) can be archived or soft-deleted.
type UserQuery struct {
	ID            string      `json:"id" badgerhold:"key"`
	QueryEngineID string      `json:"query_engine_id" badgerhold:"index"`
	UserID        string      `json:"user_id"`
	LLMType       string      `json:"llm_type"`
	State         ThreadState `json:"state"`
	History       []Turn      `json:"history"`
	// Attachments are caller-supplied documents that ground every turn of
	// this thread in addition to retrieved references
	Attachments []SourceDocument `json:"attachments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

// NewThread creates a thread with a synthesized welcome turn. The welcome is
// generated locally so thread creation never depends on a provider call.
func NewThread(id, engineID, userID, llmType, engineName string) *UserQuery {
	now := time.Now()
	welcome := "Hello! Ask me anything about " + engineName + "."
	if engineName == "" {
		welcome = "Hello! Ask me anything about this knowledge base."
	}

	return &UserQuery{
		ID:            id,
		QueryEngineID: engineID,
		UserID:        userID,
		LLMType:       llmType,
		State:         ThreadStateAwaitingTurn,
		History: []Turn{
			{Type: TurnAIOutput, Content: welcome, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn to the history
func (t *UserQuery) Append(turn Turn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	t.History = append(t.History, turn)
	t.UpdatedAt = time.Now()
}

// LastAnswer returns the content of the most recent ai-output turn
func (t *UserQuery) LastAnswer() string {
	for i := len(t.History) - 1; i >= 0; i-- {
		if t.History[i].Type == TurnAIOutput {
			return t.History[i].Content
		}
	}
	return ""
}

// Archive moves the thread to its terminal state
func (t *UserQuery) Archive() {
	t.State = ThreadStateArchived
	t.UpdatedAt = time.Now()
}

// IsDeleted reports whether the thread has been soft-deleted
func (t *UserQuery) IsDeleted() bool {
	return t.DeletedAt != nil
}
