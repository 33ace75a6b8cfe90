// Package chunking turns source locators into chunk-sized pieces of content.
// It covers discovery (web crawl, directory walk, single files), extraction
// (HTML, Markdown, PDF, CSV, XLSX, plain text) and windowing.
package chunking

import (
	"strings"

	"github.com/harborlight/inquiro/internal/models"
)

// SplitText windows text into rune windows of at most chunkSize. Every rune
// lands in exactly one chunk; a text of length n yields ceil(n/chunkSize)
// chunks and the final chunk may be short. Empty text yields no chunks.
func SplitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ChunkDraft is one chunk before persistence: the ingest pipeline assigns
// ids and the within-engine index.
type ChunkDraft struct {
	Text     string
	IsImage  bool
	ImageURL string
	Page     int
}

// BuildDrafts windows a source document's segments into chunk drafts,
// preserving segment order. Text segments are windowed; image segments each
// become a single image chunk and are dropped unless multimodal is set.
func BuildDrafts(segments []models.SourceSegment, chunkSize int, multimodal bool) []ChunkDraft {
	drafts := make([]ChunkDraft, 0)
	for _, segment := range segments {
		if segment.Modality == models.ModalityImage {
			if !multimodal || segment.ImageURL == "" {
				continue
			}
			drafts = append(drafts, ChunkDraft{
				IsImage:  true,
				ImageURL: segment.ImageURL,
				Page:     segment.Page,
			})
			continue
		}
		for _, text := range SplitText(segment.Text, chunkSize) {
			drafts = append(drafts, ChunkDraft{
				Text: text,
				Page: segment.Page,
			})
		}
	}
	return drafts
}
