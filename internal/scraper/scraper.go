package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"github.com/bpskonsel/beritascraper/internal/logger"
	"github.com/bpskonsel/beritascraper/internal/news"
)

// Sentinels stored in Article.Text instead of content.
const (
	ContentEmpty = "[KONTEN KOSONG]"
	FetchFailed  = "[GAGAL MENGAMBIL KONTEN]"
)

// Bodies shorter than this are treated as unusable and trigger the next fallback.
const minUsableChars = 200

const maxBodyBytes = 5 << 20

// Article is the extracted representation of a resolved article URL.
type Article struct {
	URL          string
	SourceDomain string
	Title        string
	Text         string
}

// Extractor turns a resolved article URL into bounded plain text.
// Extract never fails: problems are reported through the sentinels.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) Article
	Close() error
}

// IsSentinel reports whether text is empty or one of the failure sentinels.
func IsSentinel(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || t == ContentEmpty || t == FetchFailed
}

// HTTPExtractor fetches pages with a plain HTTP client.
type HTTPExtractor struct {
	client    *http.Client
	userAgent string
	maxChars  int
}

func NewHTTPExtractor(client *http.Client, userAgent string, maxChars int) *HTTPExtractor {
	return &HTTPExtractor{client: client, userAgent: userAgent, maxChars: maxChars}
}

func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) Article {
	art := Article{URL: pageURL, SourceDomain: news.Domain(pageURL)}

	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		logger.Warn("content fetch failed", "url", pageURL, "error", err)
		art.Text = FetchFailed
		return art
	}

	art.Title, art.Text = extractText(body, pageURL, e.maxChars)
	return art
}

// Close releases idle connections held by the client.
func (e *HTTPExtractor) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *HTTPExtractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return io.ReadAll(reader)
}

// extractText runs the extraction chain on an HTML document:
// readability, then paragraph concatenation, then the meta description.
// A strategy yielding fewer than minUsableChars only moves on to the next one;
// the longest text seen wins, and ContentEmpty means every strategy came up empty.
func extractText(html []byte, pageURL string, maxChars int) (title, text string) {
	if len(bytes.TrimSpace(html)) == 0 {
		return "", ContentEmpty
	}

	var best string
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = &url.URL{}
	}
	if art, err := readability.FromReader(bytes.NewReader(html), parsedURL); err == nil {
		title = strings.TrimSpace(art.Title)
		best = normalizeSpace(art.TextContent)
		if utf8.RuneCountInString(best) >= minUsableChars {
			return title, truncate(best, maxChars)
		}
	} else {
		logger.Debug("readability failed", "url", pageURL, "error", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		logger.Debug("goquery parse failed", "url", pageURL, "error", err)
		return title, orEmpty(best, maxChars)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	t := paragraphText(doc)
	if utf8.RuneCountInString(t) >= minUsableChars {
		return title, truncate(t, maxChars)
	}
	best = longer(best, t)
	best = longer(best, metaDescription(doc))
	return title, orEmpty(best, maxChars)
}

func longer(a, b string) string {
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		return b
	}
	return a
}

func orEmpty(text string, maxChars int) string {
	if strings.TrimSpace(text) == "" {
		return ContentEmpty
	}
	return truncate(text, maxChars)
}

// paragraphText joins paragraph nodes, preferring article containers when they hold enough text.
// When no container reaches minUsableChars the longest join is returned.
func paragraphText(doc *goquery.Document) string {
	selectors := []string{
		"article p",
		".detail-text p",
		".read__content p",
		".post-content p",
		".entry-content p",
		"main p",
		"p",
	}

	var best string
	for n, selector := range selectors {
		// short lines in containers are mostly captions and "baca juga" links
		minLen := 20
		if n == len(selectors)-1 {
			minLen = 0
		}
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			if text := normalizeSpace(s.Text()); len(text) > minLen {
				paragraphs = append(paragraphs, text)
			}
		})
		joined := strings.Join(paragraphs, "\n\n")
		if utf8.RuneCountInString(joined) >= minUsableChars {
			return joined
		}
		best = longer(best, joined)
	}
	return best
}

func metaDescription(doc *goquery.Document) string {
	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if c := normalizeSpace(content); c != "" {
				return c
			}
		}
	}
	return ""
}

func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
