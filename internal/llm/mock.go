package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/harborlight/inquiro/internal/interfaces"
)

// MockService is a deterministic offline provider for tests and local
// development. Answers are derived from the last user message so assertions
// are stable across runs.
type MockService struct {
	// FailWith, when set, makes every call fail with this message
	FailWith string
}

// NewMockService creates a deterministic offline chat service
func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) answer(messages []interfaces.Message) (string, error) {
	if s.FailWith != "" {
		return "", fmt.Errorf("%s", s.FailWith)
	}

	var lastUser string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = messages[i].Content
			break
		}
	}
	if lastUser == "" {
		return "", fmt.Errorf("at least one message must have role 'user'")
	}

	return "mock answer: " + strings.TrimSpace(lastUser), nil
}

func (s *MockService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return s.answer(messages)
}

// ChatStream emits the answer word by word followed by a Done event
func (s *MockService) ChatStream(ctx context.Context, messages []interfaces.Message) (<-chan interfaces.StreamEvent, error) {
	answer, err := s.answer(messages)

	events := make(chan interfaces.StreamEvent, 16)
	go func() {
		defer close(events)

		if err != nil {
			events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: err}
			return
		}

		for _, word := range strings.SplitAfter(answer, " ") {
			select {
			case events <- interfaces.StreamEvent{Type: interfaces.StreamEventDelta, Delta: word}:
			case <-ctx.Done():
				events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: ctx.Err()}
				return
			}
		}
		events <- interfaces.StreamEvent{Type: interfaces.StreamEventDone}
	}()

	return events, nil
}

func (s *MockService) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *MockService) ProviderName() string {
	return string(ProviderMock)
}

func (s *MockService) Close() error {
	return nil
}
