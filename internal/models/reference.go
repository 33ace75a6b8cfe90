package models

import (
	"sort"
	"time"
)

// QueryReference points from a generated answer back to the chunk that
// justified it. Produced per query and deduplicated by chunk id before
// display.
type QueryReference struct {
	ID            string     `json:"id,omitempty" badgerhold:"key"`
	QueryEngineID string     `json:"query_engine_id,omitempty" badgerhold:"index"`
	DocumentID    string     `json:"document_id"`
	DocumentURL   string     `json:"document_url"`
	ChunkID       string     `json:"chunk_id"`
	ChunkIndex    int        `json:"chunk_index"`
	Modality      Modality   `json:"modality"`
	Page          int        `json:"page,omitempty"`
	Excerpt       string     `json:"excerpt"`
	Score         float64    `json:"score"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// DedupeReferences removes duplicate references by chunk id, keeping the
// best (lowest distance) score for each chunk, and returns the survivors
// ordered by ascending score with chunk index as the tie break. Applying it
// twice equals applying it once.
func DedupeReferences(refs []QueryReference) []QueryReference {
	if len(refs) == 0 {
		return []QueryReference{}
	}

	best := make(map[string]QueryReference, len(refs))
	for _, ref := range refs {
		existing, ok := best[ref.ChunkID]
		if !ok || ref.Score < existing.Score {
			best[ref.ChunkID] = ref
		}
	}

	result := make([]QueryReference, 0, len(best))
	for _, ref := range best {
		result = append(result, ref)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score < result[j].Score
		}
		return result[i].ChunkIndex < result[j].ChunkIndex
	})

	return result
}
