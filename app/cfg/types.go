package cfg

import "time"

type Cfg struct {
	// Generator
	APIKey         string
	Model          string
	Endpoint       string
	RequestTimeout time.Duration
	Throttle       time.Duration

	// Run limits
	MaxPerFeed      int
	MaxTotal        int
	RecencyDays     int
	RunBudget       time.Duration
	FirstRunShallow bool

	// Files
	DataFile   string
	FeedsFile  string
	LedgerPath string

	// Retrieval
	FetchTimeout time.Duration
	UserAgent    string

	// Preview server
	Serve   bool
	Port    string
	BaseURL string

	Debug   bool
	Version string
}
