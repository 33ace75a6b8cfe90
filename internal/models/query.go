package models

// QueryRequest carries one retrieval request against an engine. Zero values
// for MaxResults and Threshold fall back to the engine's configured params.
type QueryRequest struct {
	Text       string  `json:"text"`
	Filter     string  `json:"filter,omitempty"`
	MaxResults int     `json:"max_results,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// QueryResult is the outcome of dispatching one query. References are in
// ascending distance order and contain no duplicate chunk ids. For integrated
// engines SkippedChildren lists child ids that were configured but not live
// at query time.
type QueryResult struct {
	EngineID        string           `json:"engine_id"`
	References      []QueryReference `json:"references"`
	SkippedChildren []string         `json:"skipped_children,omitempty"`
}
