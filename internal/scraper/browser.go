package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/bpskonsel/beritascraper/internal/logger"
	"github.com/bpskonsel/beritascraper/internal/news"
)

// BrowserExtractor renders pages in headless Chromium before extraction, for sites
// that build their article body with JavaScript. One browser serves the whole run.
type BrowserExtractor struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	bctx     playwright.BrowserContext
	timeout  time.Duration
	maxChars int
}

// NewBrowserExtractor starts the Playwright driver and a headless Chromium.
// The caller owns the result and must Close it.
func NewBrowserExtractor(userAgent string, timeout time.Duration, maxChars int) (*BrowserExtractor, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Locale:    playwright.String("id-ID"),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("browser context: %w", err)
	}

	return &BrowserExtractor{
		pw:       pw,
		browser:  browser,
		bctx:     bctx,
		timeout:  timeout,
		maxChars: maxChars,
	}, nil
}

func (b *BrowserExtractor) Extract(ctx context.Context, pageURL string) Article {
	art := Article{URL: pageURL, SourceDomain: news.Domain(pageURL)}
	if ctx.Err() != nil {
		art.Text = FetchFailed
		return art
	}

	html, finalURL, err := b.render(pageURL)
	if err != nil {
		logger.Warn("browser render failed", "url", pageURL, "error", err)
		art.Text = FetchFailed
		return art
	}
	if finalURL != "" {
		art.URL = finalURL
		art.SourceDomain = news.Domain(finalURL)
	}

	art.Title, art.Text = extractText([]byte(html), art.URL, b.maxChars)
	return art
}

func (b *BrowserExtractor) render(pageURL string) (string, string, error) {
	page, err := b.bctx.NewPage()
	if err != nil {
		return "", "", fmt.Errorf("new page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(b.timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", "", fmt.Errorf("goto: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		return "", "", fmt.Errorf("read content: %w", err)
	}
	return html, page.URL(), nil
}

// Close shuts down the browser and the driver process.
func (b *BrowserExtractor) Close() error {
	return errors.Join(b.bctx.Close(), b.browser.Close(), b.pw.Stop())
}
