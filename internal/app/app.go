// Package app runs one scraping session: for every keyword it searches the
// news provider, resolves and extracts each entry, classifies it and
// accumulates the accepted rows.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bpskonsel/beritascraper/internal/logger"
	"github.com/bpskonsel/beritascraper/internal/metrics"
	"github.com/bpskonsel/beritascraper/internal/news"
	"github.com/bpskonsel/beritascraper/internal/relevance"
	"github.com/bpskonsel/beritascraper/internal/rss"
	"github.com/bpskonsel/beritascraper/internal/scraper"
	"github.com/bpskonsel/beritascraper/internal/sources"
)

// Searcher returns the provider's entries for one query within [from, to].
type Searcher interface {
	Search(ctx context.Context, query string, from, to time.Time) ([]rss.Entry, error)
}

// Resolver turns a provider redirect link into the publisher URL.
// ok is false when the original link is returned unchanged.
type Resolver interface {
	Resolve(ctx context.Context, link string) (resolved string, ok bool)
}

// Params describes what one run scrapes.
type Params struct {
	Categories []sources.Category
	Region     string
	Regions    []string // known region names, used by the local classifier
	From       time.Time
	To         time.Time
}

// Status is reported after every finished keyword.
type Status struct {
	Category     string
	Keyword      string
	KeywordIndex int // 1-based over the whole run
	KeywordTotal int
	Added        int
	Total        int
	Latest       []news.Row
	Elapsed      time.Duration
}

// Result is what a run produced. Rows is partial when Cancelled is set.
type Result struct {
	RunID     string
	Rows      []news.Row
	Cancelled bool
	Started   time.Time
	Finished  time.Time
	Stats     map[string]interface{}
}

func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

type Pipeline struct {
	Searcher   Searcher
	Resolver   Resolver
	Extractor  scraper.Extractor
	Classifier relevance.Classifier

	// Concurrency > 1 processes a keyword's entries in parallel.
	Concurrency int
	// Progress, when set, is called from the run goroutine after each keyword.
	Progress func(Status)
	// LatestRows limits how many recent rows a Status carries.
	LatestRows int
}

type run struct {
	params  Params
	regions relevance.RegionSet
	acc     *news.Accumulator
	stats   *metrics.Metrics
}

// outcome of one entry; done is false when the entry was interrupted by cancellation.
type outcome struct {
	done      bool
	duplicate bool
	accept    bool
	row       news.Row
}

// Run scrapes every keyword of every category in order. It never fails:
// per-keyword and per-entry errors are logged and skipped, and a cancelled
// ctx stops the run at the next keyword or entry boundary with the rows
// accumulated so far.
func (p *Pipeline) Run(ctx context.Context, params Params) *Result {
	res := &Result{RunID: uuid.NewString(), Started: time.Now()}
	r := &run{
		params:  params,
		regions: relevance.NewRegionSet(params.Regions),
		acc:     news.NewAccumulator(),
		stats:   metrics.New(),
	}

	total := 0
	for _, c := range params.Categories {
		total += len(c.Keywords)
	}
	logger.Info("Scraping started",
		"run", res.RunID,
		"categories", len(params.Categories),
		"keywords", total,
		"region", params.Region,
		"from", params.From.Format("2006-01-02"),
		"to", params.To.Format("2006-01-02"))

	index := 0
loop:
	for _, cat := range params.Categories {
		for _, kw := range cat.Keywords {
			if ctx.Err() != nil {
				break loop
			}
			index++
			start := time.Now()
			added := p.keyword(ctx, r, cat.Name, kw)
			r.stats.RecordKeyword(kw, time.Since(start))

			if p.Progress != nil {
				p.Progress(Status{
					Category:     cat.Name,
					Keyword:      kw,
					KeywordIndex: index,
					KeywordTotal: total,
					Added:        added,
					Total:        r.acc.Len(),
					Latest:       latest(r.acc.Snapshot(), p.LatestRows),
					Elapsed:      time.Since(res.Started),
				})
			}
		}
	}

	res.Cancelled = ctx.Err() != nil
	res.Rows = r.acc.Snapshot()
	res.Finished = time.Now()
	res.Stats = r.stats.GetStats()

	if res.Cancelled {
		logger.Warn("Scraping cancelled, returning partial results", "run", res.RunID, "rows", len(res.Rows), "keywords_done", index)
	} else {
		logger.Info("Scraping finished", "run", res.RunID, "rows", len(res.Rows), "duration", res.Duration().Round(time.Second))
	}
	return res
}

// keyword processes one keyword and returns how many rows it added.
func (p *Pipeline) keyword(ctx context.Context, r *run, category, kw string) int {
	query := rss.BuildQuery(kw, r.params.Region)
	entries, err := p.Searcher.Search(ctx, query, r.params.From, r.params.To)
	if err != nil {
		if ctx.Err() == nil {
			r.stats.IncrementSearchErrors()
			logger.Warn("Search failed, skipping keyword", "keyword", kw, "error", err)
		}
		return 0
	}
	r.stats.AddEntriesFound(len(entries))
	logger.Debug("Search returned entries", "keyword", kw, "entries", len(entries))

	added := 0
	if p.Concurrency <= 1 {
		for _, e := range entries {
			if ctx.Err() != nil {
				break
			}
			added += p.commit(r, p.entry(ctx, r, category, kw, e))
		}
		return added
	}

	// Entries run in parallel but are committed in feed order so numbering
	// matches the sequential mode.
	results := make([]outcome, len(entries))
	var g errgroup.Group
	g.SetLimit(p.Concurrency)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = p.entry(ctx, r, category, kw, e)
			return nil
		})
	}
	_ = g.Wait()
	for _, o := range results {
		added += p.commit(r, o)
	}
	return added
}

func (p *Pipeline) entry(ctx context.Context, r *run, category, kw string, e rss.Entry) outcome {
	link, ok := p.Resolver.Resolve(ctx, e.Link)
	if !ok {
		r.stats.IncrementResolveFailures()
	}
	if r.acc.Contains(link) {
		return outcome{done: true, duplicate: true}
	}

	// An unresolved link points at the provider's interstitial, not the article.
	article := scraper.Article{URL: link, Text: scraper.FetchFailed}
	if ok {
		article = p.Extractor.Extract(ctx, link)
		if article.Text == scraper.FetchFailed {
			r.stats.IncrementExtractFailures()
		}
	}

	judul, sumber := rowTitle(e, article, link, ok)
	verdict := p.Classifier.Classify(ctx, relevance.Input{
		Title:   judul,
		Text:    article.Text,
		Keyword: kw,
		Region:  r.params.Region,
		Regions: r.regions,
	})
	if strings.HasPrefix(verdict.Summary, relevance.SummaryFailedPrefix) {
		r.stats.IncrementSummaryFailures()
	}

	return outcome{
		done:   ctx.Err() == nil,
		accept: verdict.Accept,
		row: news.Row{
			Kategori:  category,
			KataKunci: kw,
			Judul:     judul,
			Link:      link,
			Tanggal:   news.FormatDate(e.Published),
			Sumber:    sumber,
			Ringkasan: verdict.Summary,
		},
	}
}

// commit appends an accepted outcome and reports 1 when a row was added.
func (p *Pipeline) commit(r *run, o outcome) int {
	switch {
	case !o.done:
		return 0
	case o.duplicate:
		r.stats.IncrementDuplicates()
		return 0
	case !o.accept:
		r.stats.IncrementRejected()
		return 0
	}
	if !r.acc.TryAppend(o.row) {
		r.stats.IncrementDuplicates()
		return 0
	}
	r.stats.IncrementAccepted()
	return 1
}

// rowTitle splits the entry title into Judul and Sumber. When the title carries
// no source, the feed's <source> names the publisher of an unresolved link and
// the extracted page's domain names it otherwise.
func rowTitle(e rss.Entry, article scraper.Article, link string, resolved bool) (judul, sumber string) {
	title := e.Title
	if strings.TrimSpace(title) == "" {
		title = article.Title
	}
	judul, sumber = news.SplitTitle(title, link)
	if sumber != news.Domain(link) {
		return judul, sumber
	}
	switch {
	case !resolved && e.Source != "":
		sumber = e.Source
	case resolved && article.SourceDomain != "":
		sumber = article.SourceDomain
	}
	return judul, sumber
}

func latest(rows []news.Row, n int) []news.Row {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
