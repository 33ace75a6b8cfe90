package models

// VectorRecord is one embedded chunk as stored in a vector backend. Metadata
// carries the chunk attributes that query filters evaluate against.
type VectorRecord struct {
	ChunkID  string                 `json:"chunk_id"`
	EngineID string                 `json:"engine_id"`
	Index    int                    `json:"index"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// VectorMatch is one search hit. Distance is cosine distance, lower is more
// similar.
type VectorMatch struct {
	ChunkID  string                 `json:"chunk_id"`
	Index    int                    `json:"index"`
	Distance float64                `json:"distance"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
