package models

import "time"

// Modality identifies the content kind of a chunk
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// QueryDocument is one source file or page ingested into an engine. It is
// immutable once created and owns a contiguous index range into the engine's
// chunk sequence.
type QueryDocument struct {
	ID            string                 `json:"id" badgerhold:"key"`
	QueryEngineID string                 `json:"query_engine_id" badgerhold:"index"`
	DocURL        string                 `json:"doc_url"`
	Title         string                 `json:"title"`
	FirstIndex    int                    `json:"first_index"`
	LastIndex     int                    `json:"last_index"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	DeletedAt     *time.Time             `json:"deleted_at,omitempty"`
}

// ChunkCount returns the number of chunks this document owns
func (d *QueryDocument) ChunkCount() int {
	if d.LastIndex < d.FirstIndex {
		return 0
	}
	return d.LastIndex - d.FirstIndex + 1
}

// QueryDocumentChunk is the atomic retrieval unit. Index is a within-engine
// monotonically increasing integer assigned in emission order; it is the
// vector store's native row key, so a search result index maps back to
// exactly one chunk.
type QueryDocumentChunk struct {
	ID              string     `json:"id" badgerhold:"key"`
	QueryEngineID   string     `json:"query_engine_id" badgerhold:"index"`
	QueryDocumentID string     `json:"query_document_id" badgerhold:"index"`
	Index           int        `json:"index"`
	Modality        Modality   `json:"modality"`
	Text            string     `json:"text,omitempty"`
	ChunkURL        string     `json:"chunk_url,omitempty"`
	Page            int        `json:"page,omitempty"`
	TimestampStart  float64    `json:"timestamp_start,omitempty"`
	TimestampStop   float64    `json:"timestamp_stop,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Excerpt returns the display text for the chunk: body text for text chunks,
// media pointer for image chunks.
func (c *QueryDocumentChunk) Excerpt() string {
	if c.Modality == ModalityImage {
		return c.ChunkURL
	}
	return c.Text
}
