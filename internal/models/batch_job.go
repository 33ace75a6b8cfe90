package models

import (
	"fmt"
	"time"
)

// JobStatus tracks batch job lifecycle
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobType identifies what kind of work a batch job performs
type JobType string

const (
	JobTypeBuild JobType = "build"
)

// BatchJob tracks one asynchronous build invocation. It transitions exactly
// once from pending to active and then once more to a terminal state, and is
// never reused; re-submitting a build creates a new job.
type BatchJob struct {
	ID            string     `json:"id" badgerhold:"key"`
	QueryEngineID string     `json:"query_engine_id" badgerhold:"index"`
	Type          JobType    `json:"type"`
	Status        JobStatus  `json:"status" badgerhold:"index"`
	Error         string     `json:"error,omitempty"`
	DocsProcessed int        `json:"docs_processed"`
	DocsFailed    int        `json:"docs_failed"`
	ChunksIndexed int        `json:"chunks_indexed"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Heartbeat     *time.Time `json:"heartbeat,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// NewBatchJob creates a pending build job for an engine
func NewBatchJob(id, engineID string) *BatchJob {
	return &BatchJob{
		ID:            id,
		QueryEngineID: engineID,
		Type:          JobTypeBuild,
		Status:        JobStatusPending,
		CreatedAt:     time.Now(),
	}
}

// MarkActive transitions pending -> active when a worker claims the job
func (j *BatchJob) MarkActive() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("cannot activate job in status %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusActive
	j.StartedAt = &now
	j.Heartbeat = &now
	return nil
}

// MarkSucceeded transitions active -> succeeded
func (j *BatchJob) MarkSucceeded() error {
	if j.Status != JobStatusActive {
		return fmt.Errorf("cannot complete job in status %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.CompletedAt = &now
	return nil
}

// MarkFailed transitions pending or active -> failed with a reason
func (j *BatchJob) MarkFailed(reason string) error {
	if j.IsTerminal() {
		return fmt.Errorf("cannot fail job in status %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = reason
	j.CompletedAt = &now
	return nil
}

// Beat refreshes the heartbeat timestamp
func (j *BatchJob) Beat() {
	now := time.Now()
	j.Heartbeat = &now
}

// IsTerminal reports whether the job has reached a terminal state
func (j *BatchJob) IsTerminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// IsStale reports whether an active job has missed heartbeats for longer
// than the given window. Used by the sweep to surface crashed workers.
func (j *BatchJob) IsStale(window time.Duration) bool {
	if j.Status != JobStatusActive || j.Heartbeat == nil {
		return false
	}
	return time.Since(*j.Heartbeat) > window
}
