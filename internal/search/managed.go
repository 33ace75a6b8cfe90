// Package search talks to the managed search backend. Engines of type
// managed-search delegate the whole retrieval pipeline (embedding, ranking,
// thresholding) to a remote service and only relay its references.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/httpclient"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

// ManagedClient queries a managed search backend over HTTP
type ManagedClient struct {
	httpClient *http.Client
	baseURL    string
	logger     arbor.ILogger
}

type managedQueryRequest struct {
	Text       string  `json:"text"`
	Filter     string  `json:"filter,omitempty"`
	MaxResults int     `json:"max_results,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

type managedQueryResponse struct {
	References []models.QueryReference `json:"references"`
}

// NewManagedClient creates a client for the configured managed backend.
// Returns an error when no search URL is configured so engine creation can
// reject managed-search engines up front.
func NewManagedClient(cfg *common.RemoteConfig, logger arbor.ILogger) (*ManagedClient, error) {
	if cfg == nil || cfg.SearchURL == "" {
		return nil, fmt.Errorf("managed search backend is not configured (set remote.search_url)")
	}

	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		if parsed, err := time.ParseDuration(cfg.Timeout); err == nil {
			timeout = parsed
		}
	}

	return &ManagedClient{
		httpClient: httpclient.NewBearerHTTPClient(timeout, cfg.APIKey),
		baseURL:    strings.TrimRight(cfg.SearchURL, "/"),
		logger:     logger,
	}, nil
}

// Query runs one retrieval request against the managed backend. The backend
// applies its own thresholding and capping; references come back already
// ranked.
func (c *ManagedClient) Query(ctx context.Context, engineID string, req *models.QueryRequest) (*models.QueryResult, error) {
	payload, err := json.Marshal(managedQueryRequest{
		Text:       req.Text,
		Filter:     req.Filter,
		MaxResults: req.MaxResults,
		Threshold:  req.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	url := fmt.Sprintf("%s/v1/engines/%s/query", c.baseURL, engineID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("managed search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("managed search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded managedQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode managed search response: %w", err)
	}

	c.logger.Debug().
		Str("engine_id", engineID).
		Int("references", len(decoded.References)).
		Dur("elapsed", time.Since(start)).
		Msg("Managed search query complete")

	return &models.QueryResult{
		EngineID:   engineID,
		References: models.DedupeReferences(decoded.References),
	}, nil
}
