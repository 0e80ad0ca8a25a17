package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/feed-digest/app/database"
	"github.com/lysyi3m/feed-digest/app/store"
)

var envKeys = []string{
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_ENDPOINT", "REQUEST_TIMEOUT", "THROTTLE_MS",
	"MAX_PER_FEED", "MAX_TOTAL", "RECENCY_DAYS", "RUN_BUDGET_SEC", "FIRST_RUN_SHALLOW",
	"DATA_FILE", "FEEDS_FILE", "LEDGER_PATH", "FETCH_TIMEOUT", "USER_AGENT",
	"SERVE", "PORT", "BASE_URL", "DEBUG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// jobServers starts a one-entry feed and a generator endpoint.
func jobServers(t *testing.T) (feedURL, generatorURL string) {
	t.Helper()

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><title>Model X Released</title><link>http://example.com/x</link><guid>x-1</guid><description>Body</description><pubDate>%s</pubDate></item>
</channel></rss>`, time.Now().UTC().Format(time.RFC1123Z))
	}))
	t.Cleanup(feedServer.Close)

	generatorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"summary_ai\":\"Kurz.\",\"topics\":[\"a\",\"b\",\"c\"],\"sentiment\":\"neutral\"}"}]},"finishReason":"STOP"}]}`))
	}))
	t.Cleanup(generatorServer.Close)

	return feedServer.URL, generatorServer.URL
}

func jobArgs(t *testing.T, dataFile, ledgerPath string) []string {
	t.Helper()
	feedURL, generatorURL := jobServers(t)

	feedsFile := filepath.Join(t.TempDir(), "feeds.yml")
	table := fmt.Sprintf("feeds:\n  - name: Test\n    url: %s\n    type: article\n", feedURL)
	if err := os.WriteFile(feedsFile, []byte(table), 0644); err != nil {
		t.Fatalf("Failed to write feeds file: %v", err)
	}

	return []string{
		"--api-key", "k",
		"--endpoint", generatorURL,
		"--feeds-file", feedsFile,
		"--data-file", dataFile,
		"--ledger", ledgerPath,
		"--throttle-ms", "0",
	}
}

func TestExecuteHelp(t *testing.T) {
	clearEnv(t)

	if code := execute([]string{"--help"}, &bytes.Buffer{}); code != 0 {
		t.Errorf("Expected exit code 0 for help, got: %d", code)
	}
}

func TestExecuteMissingAPIKey(t *testing.T) {
	clearEnv(t)

	if code := execute([]string{"--data-file", filepath.Join(t.TempDir(), "data.json")}, &bytes.Buffer{}); code != 1 {
		t.Errorf("Expected exit code 1 without API key, got: %d", code)
	}
}

func TestExecuteRun(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data.json")

	var stdout bytes.Buffer
	if code := execute(jobArgs(t, dataFile, filepath.Join(dir, "ledger.db")), &stdout); code != 0 {
		t.Fatalf("Expected exit code 0, got: %d", code)
	}

	collection, err := store.NewJSONStore(dataFile).Read()
	if err != nil {
		t.Fatalf("Failed to read collection: %v", err)
	}
	if len(collection) != 1 {
		t.Errorf("Expected 1 stored item, got: %d", len(collection))
	}
	if !strings.Contains(stdout.String(), "=== Summary ===") {
		t.Errorf("Expected summary on stdout, got: %s", stdout.String())
	}
}

func TestExecuteSaveFailureExitsZero(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "missing", "data.json")
	ledgerPath := filepath.Join(dir, "ledger.db")

	var stdout bytes.Buffer
	if code := execute(jobArgs(t, dataFile, ledgerPath), &stdout); code != 0 {
		t.Errorf("Expected exit code 0 after a failed save, got: %d", code)
	}
	if !strings.Contains(stdout.String(), "=== Summary ===") {
		t.Errorf("Expected summary on stdout, got: %s", stdout.String())
	}

	// the ledger was closed on return, so the finished run is readable
	ledger, err := database.Open(ledgerPath)
	if err != nil {
		t.Fatalf("Failed to reopen ledger: %v", err)
	}
	defer ledger.Close()

	runs, err := ledger.RecentRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].FinishedAt == nil {
		t.Fatalf("Expected one finished run, got: %+v", runs)
	}
	if runs[0].Fetched != 1 {
		t.Errorf("Expected 1 fetched entry, got: %d", runs[0].Fetched)
	}
}
