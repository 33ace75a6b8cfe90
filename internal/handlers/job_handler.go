package handlers

import (
	"net/http"
	"strings"

	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

// JobHandler serves batch job status
type JobHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewJobHandler(storage interfaces.StorageManager, logger arbor.ILogger) *JobHandler {
	return &JobHandler{storage: storage, logger: logger}
}

// HandleJobs serves GET /api/jobs with optional engine_id and status filters
func (h *JobHandler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var jobs []*models.BatchJob
	var err error
	switch {
	case r.URL.Query().Get("engine_id") != "":
		jobs, err = h.storage.JobStorage().ListJobsByEngine(r.Context(), r.URL.Query().Get("engine_id"))
	case r.URL.Query().Get("status") != "":
		jobs, err = h.storage.JobStorage().ListJobsByStatus(r.Context(), models.JobStatus(r.URL.Query().Get("status")))
	default:
		limit, offset := GetPaginationParams(r)
		jobs, err = h.storage.JobStorage().ListJobs(r.Context(), limit, offset)
	}
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleJobByID serves GET /api/jobs/{id}
func (h *JobHandler) HandleJobByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.storage.JobStorage().GetJob(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"job": job})
}
