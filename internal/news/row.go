package news

import (
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateUnavailable replaces a published date that could not be parsed.
const DateUnavailable = "N/A"

// Row is one accepted article in the result table.
type Row struct {
	Nomor     int
	Kategori  string
	KataKunci string
	Judul     string
	Link      string
	Tanggal   string
	Sumber    string
	Ringkasan string
}

var publishedLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// FormatDate renders a provider published string as dd-mm-yyyy, or DateUnavailable.
func FormatDate(published string) string {
	published = strings.TrimSpace(published)
	if published == "" {
		return DateUnavailable
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, published); err == nil {
			return t.Format("02-01-2006")
		}
	}
	if t, ok := parseAny(published); ok {
		return t.Format("02-01-2006")
	}
	return DateUnavailable
}

func parseAny(s string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	parsed, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// SplitTitle separates the " - Source" suffix that Google News appends to titles.
// Without the separator the title is kept and the source is the link's domain.
func SplitTitle(title, link string) (judul, sumber string) {
	title = strings.TrimSpace(title)
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		judul = strings.TrimSpace(title[:idx])
		sumber = strings.TrimSpace(title[idx+len(" - "):])
		if judul != "" && sumber != "" {
			return judul, sumber
		}
	}
	return title, Domain(link)
}

// Domain returns the lowercase host of link without a leading "www.".
func Domain(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
