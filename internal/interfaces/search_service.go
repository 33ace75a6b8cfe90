package interfaces

import (
	"context"

	"github.com/harborlight/inquiro/internal/models"
)

// SearchService dispatches a query to an engine by type: direct-vector
// engines search their own namespace, managed-search engines delegate to the
// managed backend, integrated engines fan out to live children and merge.
type SearchService interface {
	Query(ctx context.Context, engineID string, req *models.QueryRequest) (*models.QueryResult, error)
}
