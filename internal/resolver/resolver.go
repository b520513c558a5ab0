package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/bpskonsel/beritascraper/internal/cache"
	"github.com/bpskonsel/beritascraper/internal/logger"
)

// interstitial pages are small; the body scan never reads past this.
const maxScanBytes = 512 << 10

var redirectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<meta[^>]*http-equiv\s*=\s*["']refresh["'][^>]*content\s*=\s*["'][^;]*;\s*url\s*=\s*([^"'>\s]+)`),
	regexp.MustCompile(`window\.location\.href\s*=\s*['"](https?://[^'"]+)['"]`),
	regexp.MustCompile(`window\.location\s*=\s*['"](https?://[^'"]+)['"]`),
	regexp.MustCompile(`location\.replace\(\s*['"](https?://[^'"]+)['"]`),
	regexp.MustCompile(`data-n-au\s*=\s*["'](https?://[^"']+)["']`),
}

// Resolver follows search-result links to the article's destination URL.
type Resolver struct {
	client        *http.Client
	userAgent     string
	providerHosts []string
	cache         *cache.Cache[string]
}

// New returns a Resolver. The client's Timeout bounds each lookup; c may be nil to disable caching.
func New(client *http.Client, userAgent string, providerHosts []string, c *cache.Cache[string]) *Resolver {
	return &Resolver{
		client:        client,
		userAgent:     userAgent,
		providerHosts: providerHosts,
		cache:         c,
	}
}

// Resolve returns the final URL for link and whether resolution escaped the search provider.
// On any failure the original link is returned with ok == false.
func (r *Resolver) Resolve(ctx context.Context, link string) (string, bool) {
	if r.cache != nil {
		if final, ok := r.cache.Get(link); ok {
			return final, true
		}
	}

	final, err := r.follow(ctx, link)
	if err != nil {
		logger.Warn("resolve failed, keeping original link", "url", link, "error", err)
		return link, false
	}

	if r.cache != nil {
		r.cache.Set(link, final)
	}
	return final, true
}

func (r *Resolver) follow(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if !r.isProvider(final) {
		return final, nil
	}

	// Still on the provider (consent or JS interstitial): look for an embedded target.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScanBytes))
	if err != nil {
		return "", fmt.Errorf("read interstitial: %w", err)
	}
	if target := findRedirect(string(body)); target != "" && !r.isProvider(target) {
		return target, nil
	}
	return "", fmt.Errorf("still on provider host after redirects: %s", final)
}

func (r *Resolver) isProvider(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range r.providerHosts {
		p = strings.ToLower(p)
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}

func findRedirect(body string) string {
	for _, re := range redirectPatterns {
		if m := re.FindStringSubmatch(body); len(m) > 1 {
			target := strings.TrimSpace(m[1])
			if u, err := url.Parse(target); err == nil && u.IsAbs() {
				return target
			}
		}
	}
	return ""
}
