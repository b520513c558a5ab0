package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

const longParagraph = "Badan Pusat Statistik Kabupaten Konawe Selatan mencatat inflasi tahunan sebesar dua koma satu persen, " +
	"dipicu kenaikan harga beras, cabai rawit dan bawang merah di sejumlah pasar tradisional selama triwulan pertama."

func serve(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTPExtractor_ArticleBody(t *testing.T) {
	page := "<html><head><title>Inflasi Konsel</title></head><body><nav>Beranda</nav><article>" +
		"<h1>Inflasi Konsel</h1><p>" + longParagraph + "</p><p>" + longParagraph + "</p><p>" + longParagraph + "</p>" +
		"</article><footer>Hak cipta</footer></body></html>"
	ts := serve(t, 200, "text/html; charset=utf-8", page)

	e := NewHTTPExtractor(ts.Client(), "ua", 4000)
	art := e.Extract(context.Background(), ts.URL+"/berita/1")
	if IsSentinel(art.Text) {
		t.Fatalf("expected content, got sentinel %q", art.Text)
	}
	if !strings.Contains(art.Text, "inflasi tahunan") {
		t.Errorf("body text missing: %q", art.Text)
	}
	if art.SourceDomain != "127.0.0.1" {
		t.Errorf("SourceDomain = %q", art.SourceDomain)
	}
}

func TestHTTPExtractor_TruncatesToMaxChars(t *testing.T) {
	page := "<html><body><article><p>" + strings.Repeat(longParagraph+" ", 30) + "</p></article></body></html>"
	ts := serve(t, 200, "text/html", page)

	e := NewHTTPExtractor(ts.Client(), "ua", 600)
	art := e.Extract(context.Background(), ts.URL)
	if n := utf8.RuneCountInString(art.Text); n > 600 {
		t.Errorf("text has %d runes, want <= 600", n)
	}
}

func TestHTTPExtractor_MetaDescriptionFallback(t *testing.T) {
	page := `<html><head><meta property="og:description" content="Harga beras di Andoolo naik tajam."></head>` +
		`<body><div id="app"></div></body></html>`
	ts := serve(t, 200, "text/html", page)

	e := NewHTTPExtractor(ts.Client(), "ua", 4000)
	art := e.Extract(context.Background(), ts.URL)
	if art.Text != "Harga beras di Andoolo naik tajam." {
		t.Errorf("Text = %q", art.Text)
	}
}

func TestHTTPExtractor_ShortArticleIsKept(t *testing.T) {
	const short = "Inflasi di Konawe Selatan pada Maret 2024 tercatat 2,1 persen, dipicu kenaikan harga beras dan cabai."
	ts := serve(t, 200, "text/html", "<html><body><article><p>"+short+"</p></article></body></html>")

	e := NewHTTPExtractor(ts.Client(), "ua", 4000)
	art := e.Extract(context.Background(), ts.URL)
	if IsSentinel(art.Text) {
		t.Fatalf("short article reported as %q", art.Text)
	}
	if !strings.Contains(art.Text, "tercatat 2,1 persen") {
		t.Errorf("Text = %q", art.Text)
	}
}

func TestExtractText_LongerMetaBeatsShortBody(t *testing.T) {
	meta := "Harga beras di Andoolo naik tajam menjelang Ramadan, menurut pedagang di pasar tradisional setempat."
	page := `<html><head><meta name="description" content="` + meta + `"></head>` +
		`<body><p>Foto: dokumen.</p></body></html>`

	_, text := extractText([]byte(page), "https://example.id/a", 4000)
	if text != meta {
		t.Errorf("text = %q, want meta description", text)
	}
}

func TestHTTPExtractor_EmptyPage(t *testing.T) {
	ts := serve(t, 200, "text/html", "<html><body><div></div></body></html>")

	e := NewHTTPExtractor(ts.Client(), "ua", 4000)
	if art := e.Extract(context.Background(), ts.URL); art.Text != ContentEmpty {
		t.Errorf("Text = %q, want ContentEmpty", art.Text)
	}
}

func TestHTTPExtractor_HTTPErrorIsSentinel(t *testing.T) {
	ts := serve(t, 503, "text/html", "down")

	e := NewHTTPExtractor(ts.Client(), "ua", 4000)
	if art := e.Extract(context.Background(), ts.URL); art.Text != FetchFailed {
		t.Errorf("Text = %q, want FetchFailed", art.Text)
	}
}

func TestHTTPExtractor_TimeoutIsSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	e := NewHTTPExtractor(&http.Client{Timeout: 50 * time.Millisecond}, "ua", 4000)
	if art := e.Extract(context.Background(), ts.URL); art.Text != FetchFailed {
		t.Errorf("Text = %q, want FetchFailed", art.Text)
	}
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{"", "  ", ContentEmpty, FetchFailed} {
		if !IsSentinel(s) {
			t.Errorf("IsSentinel(%q) = false", s)
		}
	}
	if IsSentinel(longParagraph) {
		t.Error("real content reported as sentinel")
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	got := truncate("ééééé", 3)
	if got != "ééé" {
		t.Errorf("truncate = %q", got)
	}
}
