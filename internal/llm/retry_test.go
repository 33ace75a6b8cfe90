package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Error 429, Message: quota exceeded"), true},
		{errors.New("Status: RESOURCE_EXHAUSTED"), true},
		{errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsRateLimitError(tc.err); got != tc.want {
			t.Errorf("IsRateLimitError(%v) = %v, expected %v", tc.err, got, tc.want)
		}
	}
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	if delay < 45*time.Second || delay > 46*time.Second {
		t.Errorf("Expected ~45s delay, got %v", delay)
	}

	if delay := ExtractRetryDelay(errors.New("no delay here")); delay != 0 {
		t.Errorf("Expected zero delay, got %v", delay)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	first := cfg.CalculateBackoff(0, 0)
	if first != cfg.InitialBackoff {
		t.Errorf("Expected initial backoff %v, got %v", cfg.InitialBackoff, first)
	}

	second := cfg.CalculateBackoff(1, 0)
	if second <= first {
		t.Errorf("Expected growing backoff, got %v then %v", first, second)
	}

	capped := cfg.CalculateBackoff(10, 0)
	if capped != cfg.MaxBackoff {
		t.Errorf("Expected backoff capped at %v, got %v", cfg.MaxBackoff, capped)
	}

	apiDriven := cfg.CalculateBackoff(0, 30*time.Second)
	if apiDriven != 35*time.Second {
		t.Errorf("Expected API delay plus buffer, got %v", apiDriven)
	}
}

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		model string
		want  ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku", ProviderClaude},
		{"gemini-3-flash-preview", ProviderGemini},
		{"google/gemini-3-flash", ProviderGemini},
		{"mock", ProviderMock},
		{"", ProviderGemini},
		{"unknown-model", ProviderGemini},
	}
	for _, tc := range cases {
		if got := DetectProvider(tc.model, "gemini"); got != tc.want {
			t.Errorf("DetectProvider(%q) = %s, expected %s", tc.model, got, tc.want)
		}
	}
}

func TestNormalizeModel(t *testing.T) {
	if got := NormalizeModel("claude/claude-haiku"); got != "claude-haiku" {
		t.Errorf("Expected prefix stripped, got %q", got)
	}
	if got := NormalizeModel("gemini-3-flash"); got != "gemini-3-flash" {
		t.Errorf("Expected unprefixed model unchanged, got %q", got)
	}
}
