package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bpskonsel/beritascraper/internal/cache"
	"github.com/bpskonsel/beritascraper/internal/config"
	"github.com/bpskonsel/beritascraper/internal/gemini"
	"github.com/bpskonsel/beritascraper/internal/llm"
	"github.com/bpskonsel/beritascraper/internal/logger"
	"github.com/bpskonsel/beritascraper/internal/relevance"
	"github.com/bpskonsel/beritascraper/internal/resolver"
	"github.com/bpskonsel/beritascraper/internal/rss"
	"github.com/bpskonsel/beritascraper/internal/scraper"
	"github.com/bpskonsel/beritascraper/internal/sources"
)

type generator interface {
	relevance.Generator
	Close() error
}

// Build wires the concrete collaborators described by cfg. The returned
// close function releases the browser, the model client and the caches.
func Build(ctx context.Context, cfg *config.Config) (*Pipeline, func() error, error) {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	var closers []func() error

	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		client.CloseIdleConnections()
		return errors.Join(errs...)
	}

	resolveCache := cache.New[string](cfg.ResolveCacheTTL)
	closers = append(closers, func() error { resolveCache.Close(); return nil })

	var extractor scraper.Extractor
	switch cfg.Extractor {
	case config.BackendBrowser:
		b, err := scraper.NewBrowserExtractor(cfg.UserAgent, cfg.RequestTimeout, cfg.MaxContentChars)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("browser extractor: %w", err)
		}
		extractor = b
	default:
		extractor = scraper.NewHTTPExtractor(client, cfg.UserAgent, cfg.MaxContentChars)
	}
	closers = append(closers, extractor.Close)

	var gen generator
	if cfg.UseAI() {
		var err error
		gen, err = newGenerator(ctx, cfg)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, gen.Close)
	}

	onFailure := relevance.KeepOnFailure
	if cfg.FailurePolicy == config.FailureDrop {
		onFailure = relevance.DropOnFailure
	}
	opts := relevance.Options{
		Summarize: cfg.Summarize,
		Policy:    relevance.Policy(cfg.RelevancePolicy),
		OnFailure: onFailure,
		MaxWords:  cfg.SummaryWords,
	}
	if gen != nil {
		opts.Generator = gen
	}

	logger.Info("Pipeline ready",
		"extractor", cfg.Extractor,
		"summarize", cfg.Summarize,
		"provider", cfg.Provider,
		"policy", cfg.RelevancePolicy,
		"concurrency", cfg.Concurrency)

	return &Pipeline{
		Searcher:    rss.NewClient(client, cfg.SearchBaseURL, cfg.UserAgent, cfg.SearchLanguage, cfg.SearchCountry),
		Resolver:    resolver.New(client, cfg.UserAgent, cfg.ProviderHosts, resolveCache),
		Extractor:   extractor,
		Classifier:  relevance.New(opts),
		Concurrency: cfg.Concurrency,
		LatestRows:  5,
	}, closeAll, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// LoadCategories downloads the keyword workbook and parses the given sheet.
func LoadCategories(ctx context.Context, cfg *config.Config, sheet string) ([]sources.Category, error) {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	r, err := sources.Open(ctx, client, cfg.KeywordSheetURL)
	if err != nil {
		return nil, fmt.Errorf("load keyword workbook: %w", err)
	}
	cats, err := sources.ParseKeywords(r, sheet)
	if err != nil {
		return nil, fmt.Errorf("parse keyword sheet %q: %w", sheet, err)
	}
	return cats, nil
}

// LoadRegions downloads the region workbook and returns the region names.
func LoadRegions(ctx context.Context, cfg *config.Config) ([]string, error) {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	r, err := sources.Open(ctx, client, cfg.RegionSheetURL)
	if err != nil {
		return nil, fmt.Errorf("load region workbook: %w", err)
	}
	regions, err := sources.ParseRegions(r, cfg.RegionSheet, cfg.RegionColumn)
	if err != nil {
		return nil, fmt.Errorf("parse region sheet: %w", err)
	}
	return regions, nil
}
