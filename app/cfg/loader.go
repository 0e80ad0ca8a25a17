package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

// ErrMissingAPIKey aborts the process before any work is done.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY not set")

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Generator configuration
	APIKey         string `long:"api-key" env:"GEMINI_API_KEY" description:"API key for the generative language API (required)"`
	Model          string `long:"model" env:"GEMINI_MODEL" default:"gemini-1.5-flash-latest" description:"Model used for enrichment"`
	Endpoint       string `long:"endpoint" env:"GEMINI_ENDPOINT" default:"https://generativelanguage.googleapis.com/" description:"Base URL of the Gemini API"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Per-request generator timeout in seconds"`
	ThrottleMs     int    `long:"throttle-ms" env:"THROTTLE_MS" default:"200" description:"Pause between consecutive generator calls in milliseconds"`

	// Run limits
	MaxPerFeed      int    `long:"max-per-feed" env:"MAX_PER_FEED" default:"3" description:"Maximum new items taken from one feed per run"`
	MaxTotal        int    `long:"max-total" env:"MAX_TOTAL" default:"30" description:"Maximum new items per run"`
	RecencyDays     int    `long:"recency-days" env:"RECENCY_DAYS" default:"14" description:"Ignore entries older than this many days (0 disables)"`
	RunBudgetSec    int    `long:"run-budget" env:"RUN_BUDGET_SEC" default:"180" description:"Wall-clock budget for enrichment in seconds"`
	FirstRunShallow string `long:"first-run-shallow" env:"FIRST_RUN_SHALLOW" default:"true" description:"On an empty store only look at the newest max-per-feed entries of each feed"`

	// Files
	DataFile   string `long:"data-file" env:"DATA_FILE" default:"data.json" description:"Collection file"`
	FeedsFile  string `long:"feeds-file" env:"FEEDS_FILE" description:"YAML feed table (built-in table when empty)"`
	LedgerPath string `long:"ledger" env:"LEDGER_PATH" default:"ledger.db" description:"SQLite run ledger (disabled when empty)"`

	// Retrieval
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed request timeout in seconds"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"feed-digest/1.0" description:"User agent string for HTTP requests"`

	// Preview server
	Serve   bool   `long:"serve" env:"SERVE" description:"Serve the collection over HTTP instead of running the job"`
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port for --serve"`
	BaseURL string `long:"base-url" env:"BASE_URL" description:"Public base URL used in the digest feed (e.g., https://digest.example.com)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads .env (if present), then flags and environment. It returns nil, nil
// when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		APIKey:          strings.TrimSpace(raw.APIKey),
		Model:           raw.Model,
		Endpoint:        raw.Endpoint,
		RequestTimeout:  time.Duration(raw.RequestTimeout) * time.Second,
		Throttle:        time.Duration(raw.ThrottleMs) * time.Millisecond,
		MaxPerFeed:      raw.MaxPerFeed,
		MaxTotal:        raw.MaxTotal,
		RecencyDays:     raw.RecencyDays,
		RunBudget:       time.Duration(raw.RunBudgetSec) * time.Second,
		FirstRunShallow: strings.ToLower(strings.TrimSpace(raw.FirstRunShallow)) == "true",
		DataFile:        raw.DataFile,
		FeedsFile:       raw.FeedsFile,
		LedgerPath:      raw.LedgerPath,
		FetchTimeout:    time.Duration(raw.FetchTimeout) * time.Second,
		UserAgent:       raw.UserAgent,
		Serve:           raw.Serve,
		Port:            raw.Port,
		BaseURL:         cmp.Or(strings.TrimSuffix(raw.BaseURL, "/"), "http://localhost:"+raw.Port),
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}
}

// Validate checks the settings a run cannot start without. The API key is not
// needed in serve mode.
func (c *Cfg) Validate() error {
	if !c.Serve && c.APIKey == "" {
		return ErrMissingAPIKey
	}

	nonNegative := map[string]int{
		"max-per-feed": c.MaxPerFeed,
		"max-total":    c.MaxTotal,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	if c.DataFile == "" {
		return fmt.Errorf("data-file is required")
	}

	return nil
}
