package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bpskonsel/beritascraper/internal/app"
	"github.com/bpskonsel/beritascraper/internal/config"
	"github.com/bpskonsel/beritascraper/internal/export"
	"github.com/bpskonsel/beritascraper/internal/logger"
	"github.com/bpskonsel/beritascraper/internal/period"
	"github.com/bpskonsel/beritascraper/internal/progress"
	"github.com/bpskonsel/beritascraper/internal/sources"
)

const maxCategories = 3

const (
	modeCategory    = "kategori"
	modeSubCategory = "subkategori"
	modeManual      = "manual"
)

type options struct {
	configPath   string
	mode         string
	categories   []string
	keyword      string
	year         string
	quarter      int
	from, to     string
	summary      string
	relevantOnly bool
	outputDir    string
	topic        string
}

func parseFlags(args []string) (options, error) {
	var o options
	var cats string

	fs := flag.NewFlagSet("beritascraper", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to YAML config")
	fs.StringVar(&o.mode, "mode", modeCategory, "kategori | subkategori | manual")
	fs.StringVar(&cats, "categories", "", "comma separated category names (max 3)")
	fs.StringVar(&o.keyword, "keyword", "", "keyword for manual mode")
	fs.StringVar(&o.year, "year", "", "four digit year")
	fs.IntVar(&o.quarter, "quarter", 0, "triwulan 1-4")
	fs.StringVar(&o.from, "from", "", "custom start date YYYY-MM-DD")
	fs.StringVar(&o.to, "to", "", "custom end date YYYY-MM-DD")
	fs.StringVar(&o.summary, "summary", "", "on | off, overrides SUMMARIZE")
	fs.BoolVar(&o.relevantOnly, "relevant-only", false, "leave rows marked TIDAK RELEVAN out of the export")
	fs.StringVar(&o.outputDir, "output", "", "output directory, overrides OUTPUT_DIR")
	fs.StringVar(&o.topic, "topic", "Neraca", "topic name used in the export filename (Neraca | Lainnya)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.mode = strings.ToLower(o.mode)
	for _, c := range strings.Split(cats, ",") {
		if c = strings.TrimSpace(c); c != "" {
			o.categories = append(o.categories, c)
		}
	}

	switch o.mode {
	case modeCategory, modeSubCategory:
		if len(o.categories) == 0 {
			return o, errors.New("pilih minimal 1 kategori (-categories)")
		}
		if len(o.categories) > maxCategories {
			return o, fmt.Errorf("maksimal %d kategori, dipilih %d", maxCategories, len(o.categories))
		}
	case modeManual:
		if strings.TrimSpace(o.keyword) == "" {
			return o, errors.New("mode manual membutuhkan -keyword")
		}
	default:
		return o, fmt.Errorf("mode tidak dikenal: %q", o.mode)
	}

	switch strings.ToLower(o.summary) {
	case "", "on", "off":
	default:
		return o, fmt.Errorf("-summary harus on atau off, bukan %q", o.summary)
	}
	if o.topic = strings.TrimSpace(o.topic); o.topic == "" {
		return o, errors.New("-topic tidak boleh kosong")
	}
	return o, nil
}

// dateRange picks a custom range when -from/-to are given, otherwise year and quarter.
func (o options) dateRange() (period.Range, error) {
	if o.from != "" || o.to != "" {
		return period.Custom(o.from, o.to)
	}
	year, err := period.ParseYear(o.year)
	if err != nil {
		return period.Range{}, err
	}
	return period.Quarter(year, o.quarter)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment")
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Flags override the environment, which overrides the config file.
	switch strings.ToLower(opts.summary) {
	case "on":
		os.Setenv("SUMMARIZE", "true")
	case "off":
		os.Setenv("SUMMARIZE", "false")
	}
	if opts.outputDir != "" {
		os.Setenv("OUTPUT_DIR", opts.outputDir)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(cfg, opts); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng, err := opts.dateRange()
	if err != nil {
		return err
	}

	cats, err := loadCategories(ctx, cfg, opts)
	if err != nil {
		return err
	}

	var regions []string
	if !cfg.UseAI() && cfg.RelevancePolicy != config.PolicyNone {
		if regions, err = app.LoadRegions(ctx, cfg); err != nil {
			return err
		}
		logger.Info("Regions loaded", "count", len(regions))
	}

	pipeline, closePipeline, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePipeline(); err != nil {
			logger.Warn("Cleanup failed", "error", err)
		}
	}()
	pipeline.Progress = progress.NewConsole(os.Stdout).Update

	res := pipeline.Run(ctx, app.Params{
		Categories: cats,
		Region:     cfg.Region,
		Regions:    regions,
		From:       rng.From,
		To:         rng.To,
	})

	if res.Cancelled {
		fmt.Println("Proses dihentikan, menyimpan hasil sementara.")
	}
	fmt.Printf("Scraping selesai dalam %s. Total %d berita ditemukan.\n", progress.FormatDuration(res.Duration()), len(res.Rows))
	printStats(res.Stats)

	if len(res.Rows) == 0 {
		fmt.Println("Tidak ada berita yang ditemukan.")
		return nil
	}

	name := export.Filename(opts.topic, rng.Label(), sources.Names(cats), time.Now())
	path, err := export.Save(cfg.OutputDir, name, res.Rows, export.Options{
		WithSummary:  cfg.UseAI(),
		RelevantOnly: opts.relevantOnly,
	})
	if err != nil {
		return err
	}
	logger.Info("Results exported", "path", path, "rows", len(res.Rows))
	fmt.Println("Hasil disimpan ke", path)
	return nil
}

func loadCategories(ctx context.Context, cfg *config.Config, opts options) ([]sources.Category, error) {
	if opts.mode == modeManual {
		return sources.Manual(opts.keyword)
	}

	sheet := cfg.CategorySheet
	if opts.mode == modeSubCategory {
		sheet = cfg.SubCategorySheet
	}
	all, err := app.LoadCategories(ctx, cfg, sheet)
	if err != nil {
		return nil, err
	}
	return sources.Select(all, opts.categories)
}

func printStats(stats map[string]interface{}) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-24s %v\n", k, stats[k])
	}
}
