package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFeedsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write feeds file: %v", err)
	}
	return path
}

func TestLoadSourcesDefault(t *testing.T) {
	sources, err := LoadSources("")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(sources) != len(DefaultSources) {
		t.Fatalf("Expected %d sources, got: %d", len(DefaultSources), len(sources))
	}

	sources[0].Name = "changed"
	if DefaultSources[0].Name == "changed" {
		t.Error("Expected LoadSources to return a copy of the built-in table")
	}

	if err := validateSources(DefaultSources); err != nil {
		t.Errorf("Expected built-in table to be valid, got: %v", err)
	}
}

func TestLoadSourcesFromFile(t *testing.T) {
	path := writeFeedsFile(t, `
feeds:
  - name: Pod
    url: https://example.com/pod.rss
    type: podcast
  - name: News
    url: https://example.com/news.rss
    filters:
      - field: title
        excludes: ["sponsored"]
`)

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got: %d", len(sources))
	}
	if sources[0].Kind != KindPodcast {
		t.Errorf("Expected podcast kind, got: %s", sources[0].Kind)
	}
	if sources[1].Kind != KindArticle {
		t.Errorf("Expected article kind by default, got: %s", sources[1].Kind)
	}
	if len(sources[1].Filters) != 1 || sources[1].Filters[0].Excludes[0] != "sponsored" {
		t.Errorf("Expected one exclude filter, got: %+v", sources[1].Filters)
	}
}

func TestLoadSourcesInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"empty", "feeds: []", "no feeds configured"},
		{"missing url", "feeds:\n  - name: A\n", "feed URL is required"},
		{"bad type", "feeds:\n  - name: A\n    url: u\n    type: video\n", "invalid type"},
		{"duplicate", "feeds:\n  - name: A\n    url: u\n  - name: A\n    url: v\n", "duplicate feed name"},
		{"bad filter", "feeds:\n  - name: A\n    url: u\n    filters:\n      - field: author\n", "invalid filter field"},
		{"bad yaml", "feeds: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSources(writeFeedsFile(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing '%s', got: %v", tt.errText, err)
			}
		})
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	if _, err := LoadSources(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
