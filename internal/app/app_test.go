package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bpskonsel/beritascraper/internal/news"
	"github.com/bpskonsel/beritascraper/internal/relevance"
	"github.com/bpskonsel/beritascraper/internal/rss"
	"github.com/bpskonsel/beritascraper/internal/scraper"
	"github.com/bpskonsel/beritascraper/internal/sources"
)

type fakeSearcher struct {
	mu      sync.Mutex
	entries map[string][]rss.Entry
	errs    map[string]error
	seen    []string
}

// keywordOf extracts kw from a query built as "kw" "region".
func keywordOf(query string) string {
	parts := strings.Split(query, `"`)
	if len(parts) < 2 {
		return query
	}
	return parts[1]
}

func (f *fakeSearcher) Search(_ context.Context, query string, _, _ time.Time) ([]rss.Entry, error) {
	kw := keywordOf(query)
	f.mu.Lock()
	f.seen = append(f.seen, kw)
	f.mu.Unlock()
	if err := f.errs[kw]; err != nil {
		return nil, err
	}
	return f.entries[kw], nil
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, link string) (string, bool) {
	if u, ok := f[link]; ok {
		return u, true
	}
	return link, false
}

type fakeExtractor struct {
	failing map[string]bool
}

func (f fakeExtractor) Extract(_ context.Context, u string) scraper.Article {
	if f.failing[u] {
		return scraper.Article{URL: u, Text: scraper.FetchFailed}
	}
	return scraper.Article{URL: u, Text: "Isi berita dari " + u}
}

func (fakeExtractor) Close() error { return nil }

type rejectTitles []string

func (r rejectTitles) Classify(_ context.Context, in relevance.Input) relevance.Verdict {
	for _, t := range r {
		if strings.Contains(in.Title, t) {
			return relevance.Verdict{Accept: false, Summary: relevance.NotRelevant}
		}
	}
	return relevance.Verdict{Accept: true, Summary: "ringkasan " + in.Title}
}

func entry(id, title string) rss.Entry {
	return rss.Entry{
		Title:     title,
		Link:      "https://news.google.com/rss/articles/" + id,
		Published: "Mon, 02 Jan 2023 10:00:00 GMT",
	}
}

func params(cats ...sources.Category) Params {
	return Params{
		Categories: cats,
		Region:     "Konawe Selatan",
		Regions:    []string{"Konawe Selatan", "Andoolo"},
		From:       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func checkNumbering(t *testing.T, rows []news.Row) {
	t.Helper()
	links := map[string]bool{}
	for i, r := range rows {
		if r.Nomor != i+1 {
			t.Errorf("row %d has Nomor %d", i, r.Nomor)
		}
		if links[r.Link] {
			t.Errorf("duplicate link %s", r.Link)
		}
		links[r.Link] = true
	}
}

func TestRun_DuplicateResolvedLinkKeptOnce(t *testing.T) {
	p := &Pipeline{
		Searcher: &fakeSearcher{entries: map[string][]rss.Entry{
			"Inflasi": {
				entry("A", "Inflasi Konsel Terkendali - Kendari Pos"),
				entry("B", "Inflasi Konsel Terkendali - Antara"),
				entry("C", "Harga Beras Stabil - Zonasultra"),
			},
		}},
		Resolver: fakeResolver{
			"https://news.google.com/rss/articles/A": "https://kendaripos.co.id/u1",
			"https://news.google.com/rss/articles/B": "https://kendaripos.co.id/u1",
			"https://news.google.com/rss/articles/C": "https://zonasultra.id/u2",
		},
		Extractor:  fakeExtractor{},
		Classifier: relevance.KeepAll{},
	}

	res := p.Run(context.Background(), params(sources.Category{Name: "Ekonomi", Keywords: []string{"Inflasi"}}))

	if res.Cancelled {
		t.Error("run should not be cancelled")
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2: %+v", len(res.Rows), res.Rows)
	}
	checkNumbering(t, res.Rows)

	first := res.Rows[0]
	if first.Link != "https://kendaripos.co.id/u1" || first.Judul != "Inflasi Konsel Terkendali" || first.Sumber != "Kendari Pos" {
		t.Errorf("first row = %+v", first)
	}
	if first.Kategori != "Ekonomi" || first.KataKunci != "Inflasi" || first.Tanggal != "02-01-2023" {
		t.Errorf("first row metadata = %+v", first)
	}
	if got := res.Stats["duplicates_filtered"]; got != int64(1) {
		t.Errorf("duplicates_filtered = %v, want 1", got)
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRun_DuplicatesAcrossKeywords(t *testing.T) {
	p := &Pipeline{
		Searcher: &fakeSearcher{entries: map[string][]rss.Entry{
			"Inflasi":     {entry("A", "Inflasi Konsel - Kendari Pos")},
			"Harga Cabai": {entry("A2", "Inflasi Konsel - Kendari Pos"), entry("D", "Cabai - Sultrakini")},
		}},
		Resolver: fakeResolver{
			"https://news.google.com/rss/articles/A":  "https://kendaripos.co.id/u1",
			"https://news.google.com/rss/articles/A2": "https://kendaripos.co.id/u1",
			"https://news.google.com/rss/articles/D":  "https://sultrakini.com/u3",
		},
		Extractor:  fakeExtractor{},
		Classifier: relevance.KeepAll{},
	}

	res := p.Run(context.Background(), params(sources.Category{Name: "Ekonomi", Keywords: []string{"Inflasi", "Harga Cabai"}}))
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	checkNumbering(t, res.Rows)
	if res.Rows[1].KataKunci != "Harga Cabai" || res.Rows[1].Link != "https://sultrakini.com/u3" {
		t.Errorf("second row = %+v", res.Rows[1])
	}
}

func TestRun_CancelAfterFirstKeywordOfSecondCategory(t *testing.T) {
	s := &fakeSearcher{entries: map[string][]rss.Entry{}}
	resolve := fakeResolver{}
	for i := 1; i <= 5; i++ {
		kw := fmt.Sprintf("k%d", i)
		id := fmt.Sprintf("E%d", i)
		s.entries[kw] = []rss.Entry{entry(id, "Berita "+kw+" - Sumber")}
		resolve["https://news.google.com/rss/articles/"+id] = "https://example.id/" + kw
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var statuses []Status
	p := &Pipeline{
		Searcher:   s,
		Resolver:   resolve,
		Extractor:  fakeExtractor{},
		Classifier: relevance.KeepAll{},
		Progress: func(st Status) {
			statuses = append(statuses, st)
			if st.Category == "Sosial" && st.Keyword == "k3" {
				cancel()
			}
		},
	}

	res := p.Run(ctx, params(
		sources.Category{Name: "Ekonomi", Keywords: []string{"k1", "k2"}},
		sources.Category{Name: "Sosial", Keywords: []string{"k3", "k4"}},
		sources.Category{Name: "Pertanian", Keywords: []string{"k5"}},
	))

	if !res.Cancelled {
		t.Error("expected Cancelled")
	}
	if len(res.Rows) != 3 {
		t.Fatalf("rows = %d, want 3: %+v", len(res.Rows), res.Rows)
	}
	checkNumbering(t, res.Rows)
	for i, kw := range []string{"k1", "k2", "k3"} {
		if res.Rows[i].KataKunci != kw {
			t.Errorf("row %d keyword = %s, want %s", i, res.Rows[i].KataKunci, kw)
		}
	}
	if strings.Join(s.seen, ",") != "k1,k2,k3" {
		t.Errorf("searched %v, want k1..k3 only", s.seen)
	}
	if len(statuses) != 3 || statuses[2].KeywordIndex != 3 || statuses[2].KeywordTotal != 5 {
		t.Errorf("statuses = %+v", statuses)
	}
}

func TestRun_CancelledBeforeStartReturnsEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeSearcher{}
	p := &Pipeline{Searcher: s, Resolver: fakeResolver{}, Extractor: fakeExtractor{}, Classifier: relevance.KeepAll{}}
	res := p.Run(ctx, params(sources.Category{Name: "Ekonomi", Keywords: []string{"Inflasi"}}))

	if !res.Cancelled || len(res.Rows) != 0 || len(s.seen) != 0 {
		t.Errorf("res = %+v, searched %v", res, s.seen)
	}
}

func TestRun_SearchErrorSkipsKeyword(t *testing.T) {
	p := &Pipeline{
		Searcher: &fakeSearcher{
			entries: map[string][]rss.Entry{"Beras": {entry("X", "Stok Beras Aman - Antara")}},
			errs:    map[string]error{"Inflasi": errors.New("HTTP 503")},
		},
		Resolver:   fakeResolver{"https://news.google.com/rss/articles/X": "https://antaranews.com/x"},
		Extractor:  fakeExtractor{},
		Classifier: relevance.KeepAll{},
	}

	res := p.Run(context.Background(), params(sources.Category{Name: "Ekonomi", Keywords: []string{"Inflasi", "Beras"}}))
	if len(res.Rows) != 1 || res.Rows[0].KataKunci != "Beras" || res.Rows[0].Nomor != 1 {
		t.Fatalf("rows = %+v", res.Rows)
	}
	if got := res.Stats["search_errors"]; got != int64(1) {
		t.Errorf("search_errors = %v", got)
	}
	if got := res.Stats["keywords_searched"]; got != int64(2) {
		t.Errorf("keywords_searched = %v", got)
	}
}

func TestRun_RejectedAndUnresolvedEntries(t *testing.T) {
	p := &Pipeline{
		Searcher: &fakeSearcher{entries: map[string][]rss.Entry{
			"Inflasi": {
				entry("A", "Inflasi Jakarta Naik - Kompas"),
				entry("B", "Inflasi Konsel Turun - Kendari Pos"),
			},
		}},
		// B is not resolvable and keeps its provider link.
		Resolver:   fakeResolver{"https://news.google.com/rss/articles/A": "https://kompas.com/a"},
		Extractor:  fakeExtractor{failing: map[string]bool{"https://kompas.com/a": true}},
		Classifier: rejectTitles{"Jakarta"},
	}

	res := p.Run(context.Background(), params(sources.Category{Name: "Ekonomi", Keywords: []string{"Inflasi"}}))
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %+v", res.Rows)
	}
	row := res.Rows[0]
	if row.Link != "https://news.google.com/rss/articles/B" || row.Nomor != 1 {
		t.Errorf("row = %+v", row)
	}
	if row.Ringkasan != "ringkasan Inflasi Konsel Turun" {
		t.Errorf("Ringkasan = %q", row.Ringkasan)
	}
	for key, want := range map[string]int64{"rejected": 1, "accepted": 1, "resolve_failures": 1, "extract_failures": 1} {
		if got := res.Stats[key]; got != want {
			t.Errorf("%s = %v, want %d", key, got, want)
		}
	}
}

type recordingExtractor struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingExtractor) Extract(_ context.Context, u string) scraper.Article {
	r.mu.Lock()
	r.urls = append(r.urls, u)
	r.mu.Unlock()
	return scraper.Article{URL: u, SourceDomain: "zonasultra.id", Title: "Judul Halaman", Text: "Isi berita"}
}

func (*recordingExtractor) Close() error { return nil }

type recordingClassifier struct {
	inputs []relevance.Input
}

func (c *recordingClassifier) Classify(_ context.Context, in relevance.Input) relevance.Verdict {
	c.inputs = append(c.inputs, in)
	return relevance.Verdict{Accept: true}
}

func TestRun_UnresolvedLinkIsNotExtracted(t *testing.T) {
	unresolved := entry("G", "Banjir Rendam Andoolo")
	unresolved.Source = "Sultra Kini"

	ex := &recordingExtractor{}
	cl := &recordingClassifier{}
	p := &Pipeline{
		Searcher: &fakeSearcher{entries: map[string][]rss.Entry{
			"Banjir": {unresolved, {Link: "https://news.google.com/rss/articles/H"}},
		}},
		Resolver:   fakeResolver{"https://news.google.com/rss/articles/H": "https://zonasultra.id/h"},
		Extractor:  ex,
		Classifier: cl,
	}

	res := p.Run(context.Background(), params(sources.Category{Name: "Bencana", Keywords: []string{"Banjir"}}))

	if len(ex.urls) != 1 || ex.urls[0] != "https://zonasultra.id/h" {
		t.Errorf("extracted %v, want only the resolved link", ex.urls)
	}
	if len(cl.inputs) != 2 || cl.inputs[0].Text != scraper.FetchFailed {
		t.Fatalf("classifier inputs = %+v", cl.inputs)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %+v", res.Rows)
	}
	if res.Rows[0].Sumber != "Sultra Kini" || res.Rows[0].Judul != "Banjir Rendam Andoolo" {
		t.Errorf("unresolved row = %+v", res.Rows[0])
	}
	// empty feed title falls back to the page title
	if res.Rows[1].Judul != "Judul Halaman" || res.Rows[1].Sumber != "zonasultra.id" {
		t.Errorf("resolved row = %+v", res.Rows[1])
	}
	if got := res.Stats["extract_failures"]; got != int64(0) {
		t.Errorf("extract_failures = %v", got)
	}
}

func TestRun_ParallelKeepsFeedOrder(t *testing.T) {
	var entries []rss.Entry
	resolve := fakeResolver{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("P%02d", i)
		entries = append(entries, entry(id, "Berita "+id+" - Sumber"))
		// every fifth entry duplicates the previous one
		target := i
		if i%5 == 4 {
			target = i - 1
		}
		resolve["https://news.google.com/rss/articles/"+id] = fmt.Sprintf("https://example.id/%02d", target)
	}

	p := &Pipeline{
		Searcher:    &fakeSearcher{entries: map[string][]rss.Entry{"Inflasi": entries}},
		Resolver:    resolve,
		Extractor:   fakeExtractor{},
		Classifier:  relevance.KeepAll{},
		Concurrency: 4,
	}

	res := p.Run(context.Background(), params(sources.Category{Name: "Ekonomi", Keywords: []string{"Inflasi"}}))
	if len(res.Rows) != 16 {
		t.Fatalf("rows = %d, want 16", len(res.Rows))
	}
	checkNumbering(t, res.Rows)
	prev := ""
	for _, r := range res.Rows {
		if r.Link <= prev {
			t.Errorf("rows out of feed order: %s after %s", r.Link, prev)
		}
		prev = r.Link
	}
}

func TestLatest(t *testing.T) {
	rows := []news.Row{{Nomor: 1}, {Nomor: 2}, {Nomor: 3}}
	if got := latest(rows, 2); len(got) != 2 || got[0].Nomor != 2 {
		t.Errorf("latest(2) = %+v", got)
	}
	if got := latest(rows, 0); len(got) != 3 {
		t.Errorf("latest(0) = %+v", got)
	}
}
