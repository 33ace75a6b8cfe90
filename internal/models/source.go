package models

// SourceDocument is one discovered document before chunking. Segments keep
// page and modality attribution so chunks can point back into the source.
type SourceDocument struct {
	URL      string                 `json:"url"`
	Title    string                 `json:"title,omitempty"`
	MimeType string                 `json:"mime_type,omitempty"`
	Segments []SourceSegment        `json:"segments"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SourceSegment is a contiguous run of extracted content. Text segments are
// windowed by the chunker; image segments become single image chunks.
type SourceSegment struct {
	Text     string   `json:"text,omitempty"`
	Modality Modality `json:"modality"`
	Page     int      `json:"page,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// SourceFailure records one document that could not be fetched or parsed.
// A failed document never aborts the build.
type SourceFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// DiscoveryResult is the outcome of crawling one doc_url. Documents and
// Failures are disjoint; an empty Documents slice with a populated Failures
// slice means the build found nothing indexable.
type DiscoveryResult struct {
	Documents []*SourceDocument `json:"documents"`
	Failures  []SourceFailure   `json:"failures,omitempty"`
}
