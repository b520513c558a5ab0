// Package config loads run configuration from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendHTTP    = "http"
	BackendBrowser = "browser"

	PolicyFilter   = "filter"
	PolicyAnnotate = "annotate"
	PolicyNone     = "none"

	FailureKeep = "keep"
	FailureDrop = "drop"
)

type Config struct {
	// Keyword and region spreadsheets
	KeywordSheetURL  string   `yaml:"keyword_sheet_url"`
	CategorySheet    string   `yaml:"category_sheet"`
	SubCategorySheet string   `yaml:"sub_category_sheet"`
	RegionSheetURL   string   `yaml:"region_sheet_url"`
	RegionSheet      string   `yaml:"region_sheet"` // empty = first sheet
	RegionColumn     string   `yaml:"region_column"`
	Region           string   `yaml:"region"`
	SearchLanguage   string   `yaml:"search_language"`
	SearchCountry    string   `yaml:"search_country"`
	SearchBaseURL    string   `yaml:"search_base_url"`
	ProviderHosts    []string `yaml:"provider_hosts"`

	// Summarization
	Summarize       bool   `yaml:"summarize"`
	Provider        string `yaml:"provider"` // gemini | openai
	GeminiAPIKey    string `yaml:"-"`
	GeminiModel     string `yaml:"gemini_model"`
	OpenAIAPIKey    string `yaml:"-"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIModel     string `yaml:"openai_model"`
	RelevancePolicy string `yaml:"relevance_policy"` // filter | annotate | none
	FailurePolicy   string `yaml:"failure_policy"`   // keep | drop
	SummaryWords    int    `yaml:"summary_words"`

	// Fetching
	Extractor       string        `yaml:"extractor"` // http | browser
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxContentChars int           `yaml:"max_content_chars"`
	Concurrency     int           `yaml:"concurrency"`
	UserAgent       string        `yaml:"user_agent"`
	ResolveCacheTTL time.Duration `yaml:"resolve_cache_ttl"`

	// App settings
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	OutputDir string `yaml:"output_dir"`
}

// Default returns the configuration used when neither a file nor the environment says otherwise.
func Default() *Config {
	return &Config{
		KeywordSheetURL:  "https://docs.google.com/spreadsheets/d/19FRmYvDvjhCGL3vDuOLJF54u7U7hnfic/export?format=xlsx",
		CategorySheet:    "Sheet1_Kat",
		SubCategorySheet: "Sheet1_SubKat",
		RegionSheetURL:   "https://docs.google.com/spreadsheets/d/1Y2SbHlWBWwcxCdAhHiIkdQmcmq--NkGk/export?format=xlsx",
		RegionColumn:     "Daerah",
		Region:           "Konawe Selatan",
		SearchLanguage:   "id",
		SearchCountry:    "ID",
		SearchBaseURL:    "https://news.google.com",
		ProviderHosts:    []string{"google.com"},
		Provider:         ProviderGemini,
		GeminiModel:      "gemini-1.5-flash",
		OpenAIModel:      "gpt-4o-mini",
		RelevancePolicy:  PolicyFilter,
		FailurePolicy:    FailureKeep,
		SummaryWords:     40,
		Extractor:        BackendHTTP,
		RequestTimeout:   20 * time.Second,
		MaxContentChars:  4000,
		Concurrency:      1,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ResolveCacheTTL:  6 * time.Hour,
		LogLevel:         "info",
		OutputDir:        ".",
	}
}

// Load reads defaults, then the YAML file at path (skipped when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.KeywordSheetURL = getEnvOrDefault("KEYWORD_SHEET_URL", c.KeywordSheetURL)
	c.RegionSheetURL = getEnvOrDefault("REGION_SHEET_URL", c.RegionSheetURL)
	c.RegionColumn = getEnvOrDefault("REGION_COLUMN", c.RegionColumn)
	c.Region = getEnvOrDefault("TARGET_REGION", c.Region)
	c.SearchBaseURL = getEnvOrDefault("SEARCH_BASE_URL", c.SearchBaseURL)

	c.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.GeminiAPIKey)
	c.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.Provider = strings.ToLower(getEnvOrDefault("SUMMARY_PROVIDER", c.Provider))
	c.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", c.OpenAIModel)
	c.RelevancePolicy = strings.ToLower(getEnvOrDefault("RELEVANCE_POLICY", c.RelevancePolicy))
	c.FailurePolicy = strings.ToLower(getEnvOrDefault("SUMMARY_FAILURE_POLICY", c.FailurePolicy))
	c.Extractor = strings.ToLower(getEnvOrDefault("EXTRACTOR_BACKEND", c.Extractor))

	if v := os.Getenv("SUMMARIZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Summarize = b
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	c.MaxContentChars = getEnvIntOrDefault("MAX_CONTENT_CHARS", c.MaxContentChars)
	c.Concurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", c.Concurrency)

	if os.Getenv("DEBUG") == "true" {
		c.LogLevel = "debug"
	}
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvOrDefault("LOG_FILE", c.LogFile)
	c.OutputDir = getEnvOrDefault("OUTPUT_DIR", c.OutputDir)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate reports every problem at once so a run fails before any scraping starts.
func (c *Config) Validate() error {
	var errs []error
	if c.KeywordSheetURL == "" {
		errs = append(errs, errors.New("KEYWORD_SHEET_URL is required"))
	}
	if c.RegionSheetURL == "" {
		errs = append(errs, errors.New("REGION_SHEET_URL is required"))
	}
	if strings.TrimSpace(c.Region) == "" {
		errs = append(errs, errors.New("TARGET_REGION is required"))
	}
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("SUMMARY_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.Provider))
	}
	switch c.RelevancePolicy {
	case PolicyFilter, PolicyAnnotate, PolicyNone:
	default:
		errs = append(errs, fmt.Errorf("RELEVANCE_POLICY must be filter, annotate or none, got %q", c.RelevancePolicy))
	}
	if c.FailurePolicy != FailureKeep && c.FailurePolicy != FailureDrop {
		errs = append(errs, fmt.Errorf("SUMMARY_FAILURE_POLICY must be keep or drop, got %q", c.FailurePolicy))
	}
	if c.Extractor != BackendHTTP && c.Extractor != BackendBrowser {
		errs = append(errs, fmt.Errorf("EXTRACTOR_BACKEND must be http or browser, got %q", c.Extractor))
	}
	if c.RequestTimeout < 10*time.Second || c.RequestTimeout > 25*time.Second {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be between 10s and 25s, got %s", c.RequestTimeout))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("SCRAPE_CONCURRENCY must be at least 1"))
	}
	if c.MaxContentChars < 500 {
		errs = append(errs, errors.New("MAX_CONTENT_CHARS must be at least 500"))
	}
	if c.UseAI() {
		errs = append(errs, c.validateCredentials()...)
	}
	return errors.Join(errs...)
}

func (c *Config) validateCredentials() []error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return []error{errors.New("GEMINI_API_KEY is required when summaries are enabled")}
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return []error{errors.New("OPENAI_API_KEY is required when summaries are enabled")}
		}
	}
	return nil
}

// UseAI reports whether the run calls the generative model at all.
func (c *Config) UseAI() bool {
	return c.Summarize && c.RelevancePolicy != PolicyNone
}
