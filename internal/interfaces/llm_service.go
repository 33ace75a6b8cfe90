package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// StreamEventType discriminates streaming chat events
type StreamEventType string

const (
	// StreamEventDelta carries one incremental text fragment
	StreamEventDelta StreamEventType = "delta"

	// StreamEventDone terminates a successful stream
	StreamEventDone StreamEventType = "done"

	// StreamEventError terminates a failed stream
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one event on a chat stream. Every stream ends with exactly
// one Done or Error event, after which the channel is closed.
type StreamEvent struct {
	Type  StreamEventType
	Delta string
	Err   error
}

// LLMService defines the interface for chat completion providers. The chat
// session manager consumes it for both buffered and streaming generation.
type LLMService interface {
	// Chat generates a completion for the conversation history. The messages
	// slice contains the full context in chronological order, including any
	// system prompt.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream generates a completion incrementally. The returned channel
	// yields zero or more Delta events followed by exactly one Done or Error
	// event, then closes. Cancelling the context ends the stream with Error.
	ChatStream(ctx context.Context, messages []Message) (<-chan StreamEvent, error)

	// HealthCheck verifies the provider is reachable and authenticated
	HealthCheck(ctx context.Context) error

	// ProviderName returns the provider identifier ("gemini", "claude", "mock")
	ProviderName() string

	// Close releases provider resources
	Close() error
}
