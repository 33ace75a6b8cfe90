package chunking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/httpclient"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// Crawler discovers documents from a doc_url. HTTP(S) seeds are crawled
// breadth-first within the seed's host up to the depth limit; filesystem
// seeds walk a directory or load a single file. A per-document failure is
// recorded, never fatal.
type Crawler struct {
	httpClient *http.Client
	extractor  *Extractor
	limiter    *rate.Limiter
	config     *common.CrawlerConfig
	logger     arbor.ILogger
}

var _ interfaces.CrawlerService = (*Crawler)(nil)

// Link prefixes that never lead to indexable documents
var skipLinkPrefixes = []string{
	"javascript:", "mailto:", "tel:", "sms:", "ftp:", "#", "data:",
}

// Extensions the extractor understands besides HTML
var crawlableExtensions = map[string]bool{
	".pdf": true, ".md": true, ".markdown": true,
	".csv": true, ".xlsx": true, ".txt": true,
}

// NewCrawler creates a document crawler
func NewCrawler(cfg *common.CrawlerConfig, logger arbor.ILogger) *Crawler {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Crawler{
		httpClient: httpclient.NewDefaultHTTPClient(cfg.RequestTimeout),
		extractor:  NewExtractor(),
		limiter:    rate.NewLimiter(limit, 1),
		config:     cfg,
		logger:     logger,
	}
}

// Discover resolves seedURL into source documents. depthLimit 0 fetches only
// the seed; each extra level follows same-host links one hop further.
func (c *Crawler) Discover(ctx context.Context, seedURL string, depthLimit int, multimodal bool) (*models.DiscoveryResult, error) {
	if strings.HasPrefix(seedURL, "http://") || strings.HasPrefix(seedURL, "https://") {
		return c.discoverWeb(ctx, seedURL, depthLimit, multimodal)
	}
	return c.discoverLocal(ctx, strings.TrimPrefix(seedURL, "file://"), multimodal)
}

type crawlTarget struct {
	url   string
	depth int
}

func (c *Crawler) discoverWeb(ctx context.Context, seedURL string, depthLimit int, multimodal bool) (*models.DiscoveryResult, error) {
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		return nil, fmt.Errorf("invalid seed URL %q", seedURL)
	}

	result := &models.DiscoveryResult{}
	visited := map[string]bool{seedURL: true}
	queue := []crawlTarget{{url: seedURL, depth: 0}}
	fetched := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.config.MaxPages > 0 && fetched >= c.config.MaxPages {
			c.logger.Warn().
				Int("max_pages", c.config.MaxPages).
				Str("seed", seedURL).
				Msg("Crawl page limit reached, stopping discovery")
			break
		}

		target := queue[0]
		queue = queue[1:]
		fetched++

		body, contentType, err := c.fetch(ctx, target.url)
		if err != nil {
			result.Failures = append(result.Failures, models.SourceFailure{
				URL:    target.url,
				Reason: err.Error(),
			})
			c.logger.Warn().Err(err).Str("url", target.url).Msg("Failed to fetch document")
			continue
		}

		doc, links, err := c.parse(target.url, body, contentType, multimodal)
		if err != nil {
			result.Failures = append(result.Failures, models.SourceFailure{
				URL:    target.url,
				Reason: err.Error(),
			})
			c.logger.Warn().Err(err).Str("url", target.url).Msg("Failed to parse document")
			continue
		}
		if doc != nil {
			result.Documents = append(result.Documents, doc)
		}

		if target.depth >= depthLimit {
			continue
		}
		for _, link := range links {
			resolved, ok := c.resolveLink(seed, target.url, link)
			if !ok || visited[resolved] {
				continue
			}
			visited[resolved] = true
			queue = append(queue, crawlTarget{url: resolved, depth: target.depth + 1})
		}
	}

	c.logger.Info().
		Str("seed", seedURL).
		Int("documents", len(result.Documents)).
		Int("failures", len(result.Failures)).
		Msg("Web discovery complete")
	return result, nil
}

func (c *Crawler) fetch(ctx context.Context, targetURL string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if c.config.MaxBodySize > 0 {
		reader = io.LimitReader(resp.Body, int64(c.config.MaxBodySize))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// parse extracts a source document and, for HTML pages, its outbound links
func (c *Crawler) parse(sourceURL string, body []byte, contentType string, multimodal bool) (*models.SourceDocument, []string, error) {
	isHTML := strings.Contains(contentType, "text/html") ||
		strings.HasSuffix(strings.ToLower(stripQuery(sourceURL)), ".html") ||
		strings.HasSuffix(strings.ToLower(stripQuery(sourceURL)), ".htm")

	var extracted *ExtractedDoc
	var links []string
	var err error
	if isHTML {
		extracted, err = c.extractor.ExtractHTML(sourceURL, body, multimodal)
		if err == nil {
			links = extractLinks(body)
		}
	} else {
		extracted, err = c.extractor.Extract(sourceURL, body, multimodal)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(extracted.Segments) == 0 {
		return nil, links, nil
	}

	title := extracted.Title
	if title == "" {
		title = filepath.Base(stripQuery(sourceURL))
	}
	return &models.SourceDocument{
		URL:      sourceURL,
		Title:    title,
		MimeType: contentType,
		Segments: extracted.Segments,
		Metadata: extracted.Metadata,
	}, links, nil
}

// resolveLink makes a link absolute and keeps only same-host pages the
// extractor can handle
func (c *Crawler) resolveLink(seed *url.URL, pageURL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range skipLinkPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	resolved.Fragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host != seed.Host {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(resolved.Path))
	if ext != "" && ext != ".html" && ext != ".htm" && !crawlableExtensions[ext] {
		return "", false
	}
	return resolved.String(), true
}

func extractLinks(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links
}

func (c *Crawler) discoverLocal(ctx context.Context, path string, multimodal bool) (*models.DiscoveryResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	result := &models.DiscoveryResult{}
	if !info.IsDir() {
		c.loadLocalFile(result, path, multimodal)
		return result, nil
	}

	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".html" || ext == ".htm" || crawlableExtensions[ext] {
			c.loadLocalFile(result, p, multimodal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("path", path).
		Int("documents", len(result.Documents)).
		Int("failures", len(result.Failures)).
		Msg("Local discovery complete")
	return result, nil
}

func (c *Crawler) loadLocalFile(result *models.DiscoveryResult, path string, multimodal bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		result.Failures = append(result.Failures, models.SourceFailure{URL: path, Reason: err.Error()})
		return
	}
	extracted, err := c.extractor.Extract(path, content, multimodal)
	if err != nil {
		result.Failures = append(result.Failures, models.SourceFailure{URL: path, Reason: err.Error()})
		return
	}
	if len(extracted.Segments) == 0 {
		return
	}

	title := extracted.Title
	if title == "" {
		title = filepath.Base(path)
	}
	result.Documents = append(result.Documents, &models.SourceDocument{
		URL:      path,
		Title:    title,
		Segments: extracted.Segments,
		Metadata: extracted.Metadata,
	})
}
