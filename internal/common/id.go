package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewEngineID generates a unique query engine ID
func NewEngineID() string {
	return "eng_" + uuid.New().String()
}

// NewDocumentID generates a unique query document ID
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewChunkID generates a unique document chunk ID
func NewChunkID() string {
	return "chk_" + uuid.New().String()
}

// ChunkIDAt derives the chunk ID for an engine's index slot. The ID is
// deterministic so a rebuild writes over the slot instead of appending a
// duplicate.
func ChunkIDAt(engineID string, index int) string {
	return fmt.Sprintf("chk_%s_%06d", strings.TrimPrefix(engineID, "eng_"), index)
}

// NewThreadID generates a unique conversation thread ID
func NewThreadID() string {
	return "qry_" + uuid.New().String()
}

// NewJobID generates a unique batch job ID
func NewJobID() string {
	return "job_" + uuid.New().String()
}
