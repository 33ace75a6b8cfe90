package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiService implements the LLMService interface using the Google genai
// SDK.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	retry   *RetryConfig
}

// NewGeminiService creates a new Gemini chat service instance
func NewGeminiService(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}
	if config.Model == "" {
		config.Model = "gemini-3-flash-preview"
	}

	timeout := 60 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
		}
		timeout = parsed
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
		retry:   NewDefaultRetryConfig(),
	}

	logger.Info().
		Str("chat_model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini chat service initialized")

	return service, nil
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted for SystemInstruction; remaining
// messages keep chronological order.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
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

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

func (s *GeminiService) buildConfig(systemText string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if s.config.Temperature > 0 {
		config.Temperature = genai.Ptr(s.config.Temperature)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	return config
}

// Chat generates a buffered completion with rate limit retry
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := s.buildConfig(systemText)

	var resp *genai.GenerateContentResponse
	var apiErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
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
			Msg("Gemini rate limited, retrying")

		select {
		case <-timeoutCtx.Done():
			return "", timeoutCtx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", fmt.Errorf("chat generation failed: %w", apiErr)
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from chat model")
	}

	return response.String(), nil
}

// ChatStream generates a completion incrementally. The returned channel
// yields Delta events followed by exactly one terminal event, then closes.
func (s *GeminiService) ChatStream(ctx context.Context, messages []interfaces.Message) (<-chan interfaces.StreamEvent, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, err
	}

	config := s.buildConfig(systemText)
	events := make(chan interfaces.StreamEvent, 16)

	go func() {
		defer close(events)

		streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		emitted := false
		for resp, err := range s.client.Models.GenerateContentStream(streamCtx, s.config.Model, contents, config) {
			if err != nil {
				events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: fmt.Errorf("stream failed: %w", err)}
				return
			}
			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}
					emitted = true
					select {
					case events <- interfaces.StreamEvent{Type: interfaces.StreamEventDelta, Delta: part.Text}:
					case <-streamCtx.Done():
						events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: streamCtx.Err()}
						return
					}
				}
			}
		}

		if !emitted {
			events <- interfaces.StreamEvent{Type: interfaces.StreamEventError, Err: fmt.Errorf("no response generated from chat model")}
			return
		}
		events <- interfaces.StreamEvent{Type: interfaces.StreamEventDone}
	}()

	return events, nil
}

// HealthCheck verifies the Gemini API is reachable with a minimal probe
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response, err := s.Chat(probeCtx, []interfaces.Message{{Role: "user", Content: "ping"}})
	if err != nil {
		return fmt.Errorf("Gemini probe failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("Gemini probe returned empty response")
	}
	return nil
}

// ProviderName returns the provider identifier
func (s *GeminiService) ProviderName() string {
	return string(ProviderGemini)
}

// Close releases the client reference; genai.Client has no explicit Close
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}
