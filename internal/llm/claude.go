package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// ClaudeService implements the LLMService interface using the Anthropic API.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
	retry     *RetryConfig
}

// NewClaudeService creates a new Claude chat service instance
func NewClaudeService(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}
	if config.Model == "" {
		config.Model = "claude-haiku-3-5-20241022"
	}

	timeout := 60 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
		}
		timeout = parsed
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	service := &ClaudeService{
		config:    config,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
		retry:     NewDefaultRetryConfig(),
	}

	logger.Info().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude chat service initialized")

	return service, nil
}

// convertMessagesToClaude converts []interfaces.Message to Claude
// MessageParam format. System messages are extracted for the System
// parameter; remaining messages keep chronological order.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

func (s *ClaudeService) buildParams(messages []interfaces.Message) (anthropic.MessageNewParams, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}
	return params, nil
}

// Chat generates a buffered completion with rate limit retry
func (s *ClaudeService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	params, err := s.buildParams(messages)
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp *anthropic.Message
	var apiErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = s.client.Messages.New(timeoutCtx, params)
		if apiErr == nil {
			break
		}
		if !IsRateLimitError(apiErr) || attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Claude rate limited, retrying")

		select {
		case <-timeoutCtx.Done():
			return "", timeoutCtx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", fmt.Errorf("Claude API call failed: %w", apiErr)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}

// ChatStream generates a completion incrementally over the Anthropic SSE
// stream. The returned channel yields Delta events followed by exactly one
// terminal event, then closes.
func (s *ClaudeService) ChatStream(ctx context.Context, messages []interfaces.Message) (<-chan interfaces.StreamEvent, error) {
	params, err := s.buildParams(messages)
	if err != nil {
		return nil, err
	}

	events := make(chan interfaces.StreamEvent, 16)

	go func() {
		defer close(events)

		streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		stream := s.client.Messages.NewStreaming(streamCtx, params)
		emitted := false
		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					emitted = true
					select {
					case events <- interfaces.StreamEvent{Type: interfaces.StreamEventDelta, Delta: deltaVariant.Text}:
					case <-streamCtx.Done():
						events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: streamCtx.Err()}
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: fmt.Errorf("stream failed: %w", err)}
			return
		}
		if !emitted {
			events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: fmt.Errorf("no response generated from Claude API")}
			return
		}
		events <- interfaces.StreamEvent{Type: interfaces.StreamEventDone}
	}()

	return events, nil
}

// HealthCheck verifies the Anthropic API is reachable with a minimal probe
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Chat(probeCtx, []interfaces.Message{{Role: "user", Content: "ping"}})
	if err != nil {
		return fmt.Errorf("Claude probe failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("Claude probe returned empty response")
	}
	return nil
}

// ProviderName returns the provider identifier
func (s *ClaudeService) ProviderName() string {
	return string(ProviderClaude)
}

// Close releases resources; the Anthropic client needs no explicit cleanup
func (s *ClaudeService) Close() error {
	return nil
}
