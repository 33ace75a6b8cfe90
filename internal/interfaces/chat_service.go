package interfaces

import (
	"context"

	"github.com/harborlight/inquiro/internal/models"
)

// TurnRequest carries the input for one conversational turn. LLMType, when
// set, overrides the thread's provider for this turn; Filter narrows the
// retrieval step using the JSON predicate grammar; Attachments become part of
// the thread's context from this turn onward.
type TurnRequest struct {
	Prompt      string
	LLMType     string
	Filter      string
	Attachments []models.SourceDocument
}

// ChatService manages conversation threads bound to a query engine. A thread
// holds an append-only turn history; generation runs one turn at a time.
type ChatService interface {
	// CreateThread creates a thread in awaiting-turn state with a synthesized
	// welcome turn. llmType picks the provider model for the thread's turns;
	// attachments seed the thread's context.
	CreateThread(ctx context.Context, engineID, userID, llmType string, attachments []models.SourceDocument) (*models.UserQuery, error)

	GetThread(ctx context.Context, threadID string) (*models.UserQuery, error)
	ListThreads(ctx context.Context, userID string, limit, offset int) ([]*models.UserQuery, error)
	ArchiveThread(ctx context.Context, threadID string) error
	DeleteThread(ctx context.Context, threadID string) error

	// Generate runs one retrieval-augmented turn. The stream yields Delta
	// events as text arrives; on Done the full answer and its references have
	// been appended to the thread as immutable turns. On Error or cancel the
	// partial output is discarded and an error turn is appended instead.
	Generate(ctx context.Context, threadID string, req *TurnRequest) (<-chan StreamEvent, error)
}
