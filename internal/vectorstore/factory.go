package vectorstore

import (
	"fmt"
	"time"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/httpclient"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// Provider resolves the vector store for an engine by its configured backend
// kind. Stores are shared, namespacing keeps engines isolated.
type Provider struct {
	embedded interfaces.VectorStore
	remote   interfaces.VectorStore
	logger   arbor.ILogger
}

// NewProvider creates both backends. The remote backend is nil when no
// vector_url is configured; engines created with kind remote then fail fast.
func NewProvider(store *badgerhold.Store, cfg *common.RemoteConfig, logger arbor.ILogger) *Provider {
	provider := &Provider{
		embedded: NewEmbeddedStore(store, logger),
		logger:   logger,
	}

	if cfg != nil && cfg.VectorURL != "" {
		timeout := 30 * time.Second
		if cfg.Timeout != "" {
			if parsed, err := time.ParseDuration(cfg.Timeout); err == nil {
				timeout = parsed
			}
		}
		client := httpclient.NewBearerHTTPClient(timeout, cfg.APIKey)
		provider.remote = NewRemoteStore(cfg.VectorURL, client, logger)
		logger.Info().Str("vector_url", cfg.VectorURL).Msg("Remote vector backend configured")
	}

	return provider
}

// ForKind returns the store for the given backend kind
func (p *Provider) ForKind(kind models.VectorStoreKind) (interfaces.VectorStore, error) {
	switch kind {
	case models.VectorStoreRemote:
		if p.remote == nil {
			return nil, fmt.Errorf("remote vector backend is not configured")
		}
		return p.remote, nil
	case models.VectorStoreEmbedded, "":
		return p.embedded, nil
	default:
		return nil, fmt.Errorf("unknown vector store kind %q", kind)
	}
}

// Close closes both backends
func (p *Provider) Close() error {
	if p.remote != nil {
		if err := p.remote.Close(); err != nil {
			return err
		}
	}
	return p.embedded.Close()
}
