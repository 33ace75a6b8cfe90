package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/harborlight/inquiro/internal/interfaces"
)

func TestMockService_StreamTerminatesOnce(t *testing.T) {
	service := NewMockService()

	events, err := service.ChatStream(context.Background(), []interfaces.Message{
		{Role: "user", Content: "what is chunking"},
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	var deltas strings.Builder
	terminal := 0
	for event := range events {
		switch event.Type {
		case interfaces.StreamEventDelta:
			deltas.WriteString(event.Delta)
		case interfaces.StreamEventDone, interfaces.StreamEventError:
			terminal++
		}
	}

	if terminal != 1 {
		t.Errorf("Expected exactly one terminal event, got %d", terminal)
	}
	if !strings.Contains(deltas.String(), "what is chunking") {
		t.Errorf("Expected deterministic echo answer, got %q", deltas.String())
	}
}

func TestMockService_StreamError(t *testing.T) {
	service := NewMockService()
	service.FailWith = "provider unavailable"

	events, err := service.ChatStream(context.Background(), []interfaces.Message{
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	var sawError bool
	for event := range events {
		if event.Type == interfaces.StreamEventError {
			sawError = true
			if event.Err == nil {
				t.Error("Expected error event to carry an error")
			}
		}
		if event.Type == interfaces.StreamEventDone {
			t.Error("Expected no Done event on failure")
		}
	}
	if !sawError {
		t.Error("Expected an error event")
	}
}
