package chunking

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Extractor turns raw document bytes into source segments. HTML pages keep
// image references as separate image segments so multimodal engines can index
// them; every other format extracts text only.
type Extractor struct {
	markdown goldmark.Markdown
}

// NewExtractor creates an extractor with table and strikethrough support for
// Markdown sources
func NewExtractor() *Extractor {
	return &Extractor{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
	}
}

// ExtractedDoc is the result of extracting one source document
type ExtractedDoc struct {
	Title    string
	Segments []models.SourceSegment
	Metadata map[string]interface{}
}

// Extract dispatches on the file extension of sourceURL. Unknown extensions
// are treated as plain text, matching how most crawled corpora behave.
func (e *Extractor) Extract(sourceURL string, content []byte, multimodal bool) (*ExtractedDoc, error) {
	ext := strings.ToLower(filepath.Ext(stripQuery(sourceURL)))
	switch ext {
	case ".html", ".htm":
		return e.extractHTML(sourceURL, content, multimodal)
	case ".md", ".markdown":
		return e.extractMarkdown(content)
	case ".pdf":
		return extractPDF(content)
	case ".csv":
		return extractCSV(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

// ExtractHTML parses an HTML page regardless of extension. The crawler uses
// this for pages served with an HTML content type but an extensionless URL.
func (e *Extractor) ExtractHTML(sourceURL string, content []byte, multimodal bool) (*ExtractedDoc, error) {
	return e.extractHTML(sourceURL, content, multimodal)
}

func (e *Extractor) extractHTML(sourceURL string, content []byte, multimodal bool) (*ExtractedDoc, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Scripts, styles and navigation chrome carry no indexable content
	doc.Find("script, style, nav, footer, noscript").Remove()

	body := doc.Find("body")
	bodyHTML, err := body.Html()
	if err != nil || strings.TrimSpace(bodyHTML) == "" {
		bodyHTML, _ = doc.Html()
	}

	converter := md.NewConverter(baseDomain(sourceURL), true, nil)
	markdown, err := converter.ConvertString(bodyHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	segments := []models.SourceSegment{}
	if text := strings.TrimSpace(markdown); text != "" {
		segments = append(segments, models.SourceSegment{
			Text:     text,
			Modality: models.ModalityText,
		})
	}

	if multimodal {
		seen := map[string]bool{}
		doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			src = strings.TrimSpace(src)
			if src == "" || strings.HasPrefix(src, "data:") || seen[src] {
				return
			}
			seen[src] = true
			segments = append(segments, models.SourceSegment{
				Modality: models.ModalityImage,
				ImageURL: src,
			})
		})
	}

	return &ExtractedDoc{Title: title, Segments: segments}, nil
}

// extractMarkdown strips an optional YAML front matter block, renders the
// body to HTML and flattens it to plain text. Front matter keys become
// document metadata; a "title" key becomes the document title.
func (e *Extractor) extractMarkdown(content []byte) (*ExtractedDoc, error) {
	body, frontMatter := splitFrontMatter(content)

	var buf bytes.Buffer
	if err := e.markdown.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered markdown: %w", err)
	}

	result := &ExtractedDoc{Metadata: frontMatter}
	if frontMatter != nil {
		if title, ok := frontMatter["title"].(string); ok {
			result.Title = title
		}
	}
	if result.Title == "" {
		result.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	if text := strings.TrimSpace(doc.Text()); text != "" {
		result.Segments = []models.SourceSegment{{
			Text:     text,
			Modality: models.ModalityText,
		}}
	}
	return result, nil
}

func extractCSV(content []byte) (*ExtractedDoc, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var buf strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		buf.WriteString(strings.Join(record, "\t"))
		buf.WriteByte('\n')
	}

	return textDoc(buf.String()), nil
}

func extractExcel(content []byte) (*ExtractedDoc, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
	}

	return textDoc(buf.String()), nil
}

func extractPlain(content []byte) (*ExtractedDoc, error) {
	return textDoc(string(content)), nil
}

func textDoc(text string) *ExtractedDoc {
	doc := &ExtractedDoc{}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		doc.Segments = []models.SourceSegment{{
			Text:     trimmed,
			Modality: models.ModalityText,
		}}
	}
	return doc
}

// splitFrontMatter peels a leading "---" delimited YAML block off markdown
// content. Malformed front matter is left in the body untouched.
func splitFrontMatter(content []byte) ([]byte, map[string]interface{}) {
	trimmed := bytes.TrimLeft(content, "\uFEFF\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) && !bytes.HasPrefix(trimmed, []byte("---\r\n")) {
		return content, nil
	}

	rest := trimmed[bytes.IndexByte(trimmed, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return content, nil
	}

	var frontMatter map[string]interface{}
	if err := yaml.Unmarshal(rest[:end], &frontMatter); err != nil {
		return content, nil
	}

	body := rest[end+len("\n---"):]
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = nil
	}
	return body, frontMatter
}

func stripQuery(sourceURL string) string {
	if idx := strings.IndexAny(sourceURL, "?#"); idx >= 0 {
		return sourceURL[:idx]
	}
	return sourceURL
}

func baseDomain(sourceURL string) string {
	if idx := strings.Index(sourceURL, "://"); idx >= 0 {
		rest := sourceURL[idx+len("://"):]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			return sourceURL[:idx+len("://")+slash]
		}
	}
	return sourceURL
}
