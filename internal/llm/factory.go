package llm

import (
	"fmt"
	"sync"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Factory creates chat services per provider, caching one instance each.
// Safe for concurrent use; ForModel is called per request.
type Factory struct {
	config *common.Config
	logger arbor.ILogger

	mu     sync.Mutex
	gemini interfaces.LLMService
	claude interfaces.LLMService
	mock   interfaces.LLMService
}

// NewFactory creates a provider factory
func NewFactory(config *common.Config, logger arbor.ILogger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// ForModel returns the chat service for a thread's model string, falling
// back to the configured default provider.
func (f *Factory) ForModel(model string) (interfaces.LLMService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch DetectProvider(model, f.config.LLM.DefaultProvider) {
	case ProviderClaude:
		if f.claude == nil {
			service, err := NewClaudeService(&f.config.Claude, f.logger)
			if err != nil {
				return nil, err
			}
			f.claude = service
		}
		return f.claude, nil
	case ProviderMock:
		if f.mock == nil {
			f.mock = NewMockService()
		}
		return f.mock, nil
	case ProviderGemini:
		if f.gemini == nil {
			service, err := NewGeminiService(&f.config.Gemini, f.logger)
			if err != nil {
				return nil, err
			}
			f.gemini = service
		}
		return f.gemini, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider for model %q", model)
	}
}

// Close closes every instantiated provider
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, service := range []interfaces.LLMService{f.gemini, f.claude, f.mock} {
		if service == nil {
			continue
		}
		if err := service.Close(); err != nil {
			return err
		}
	}
	return nil
}
