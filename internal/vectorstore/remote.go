package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/harborlight/inquiro/internal/filter"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

// RemoteStore implements VectorStore against a managed vector index over
// HTTP. The wire contract mirrors the VectorStore interface: namespaced
// upsert, search and delete, with filters sent in canonical form.
type RemoteStore struct {
	baseURL string
	client  *http.Client
	logger  arbor.ILogger
}

// NewRemoteStore creates a vector store client for the managed backend
func NewRemoteStore(baseURL string, client *http.Client, logger arbor.ILogger) interfaces.VectorStore {
	return &RemoteStore{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

type upsertRequest struct {
	Records []*models.VectorRecord `json:"records"`
}

type searchRequest struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Filter string    `json:"filter,omitempty"`
}

type searchResponse struct {
	Matches []*models.VectorMatch `json:"matches"`
}

type trimRequest struct {
	FromIndex int `json:"from_index"`
}

func (s *RemoteStore) namespaceURL(engineID, suffix string) string {
	u := s.baseURL + "/v1/namespaces/" + url.PathEscape(engineID)
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (s *RemoteStore) Upsert(ctx context.Context, engineID string, records []*models.VectorRecord) error {
	body, err := json.Marshal(upsertRequest{Records: records})
	if err != nil {
		return fmt.Errorf("failed to encode upsert request: %w", err)
	}

	return s.do(ctx, http.MethodPost, s.namespaceURL(engineID, "upsert"), body, nil)
}

func (s *RemoteStore) Search(ctx context.Context, engineID string, vector []float32, k int, expr filter.Expr) ([]*models.VectorMatch, error) {
	if k <= 0 {
		k = models.DefaultMaxResults
	}

	canonical, err := filter.Canonical(expr)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{Vector: vector, K: k, Filter: canonical})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	var resp searchResponse
	if err := s.do(ctx, http.MethodPost, s.namespaceURL(engineID, "search"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (s *RemoteStore) DeleteFrom(ctx context.Context, engineID string, fromIndex int) error {
	body, err := json.Marshal(trimRequest{FromIndex: fromIndex})
	if err != nil {
		return fmt.Errorf("failed to encode trim request: %w", err)
	}

	return s.do(ctx, http.MethodPost, s.namespaceURL(engineID, "trim"), body, nil)
}

func (s *RemoteStore) Delete(ctx context.Context, engineID string) error {
	return s.do(ctx, http.MethodDelete, s.namespaceURL(engineID, ""), nil, nil)
}

func (s *RemoteStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *RemoteStore) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("vector backend returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode vector backend response: %w", err)
		}
	}
	return nil
}
