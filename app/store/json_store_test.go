package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/feed-digest/app/feed"
)

func item(uid, published string) feed.Item {
	return feed.Item{
		UID:       uid,
		Source:    "Test",
		Title:     "Title " + uid,
		Link:      "http://x/" + uid,
		Published: published,
		Type:      feed.KindArticle,
		SummaryAI: "Kurzfassung.",
		Topics:    []string{"a", "b", "c"},
		Sentiment: feed.SentimentPositive,
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "data.json"))

	collection, err := s.Read()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}
	if len(collection) != 0 {
		t.Errorf("Expected empty collection, got: %d", len(collection))
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	s := NewJSONStore(path)

	if _, err := s.Read(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got: %v", err)
	}
	if collection := s.Load(); len(collection) != 0 {
		t.Errorf("Expected Load to fall back to an empty collection, got: %d", len(collection))
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := NewJSONStore(path)

	collection := Collection{}
	collection.Merge([]feed.Item{
		item("old", "2024-01-01T00:00:00Z"),
		item("new", "2024-01-03T00:00:00Z"),
		item("mid", "2024-01-02T00:00:00Z"),
	})

	if err := s.Save(collection); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 items, got: %d", len(loaded))
	}
	if loaded["new"].Sentiment != feed.SentimentPositive {
		t.Errorf("Expected sentiment to survive, got: %v", loaded["new"].Sentiment)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, "[\n    {\n        \"uid\": \"new\"") {
		t.Errorf("Expected newest item first with 4-space indent, got: %s", text[:min(len(text), 80)])
	}
	if strings.Index(text, `"uid": "mid"`) > strings.Index(text, `"uid": "old"`) {
		t.Error("Expected items sorted by published descending")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestJSONStoreKeepsNonASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := NewJSONStore(path)

	it := item("u", "2024-01-01T00:00:00Z")
	it.Title = "Künstliche Intelligenz & <Zukunft>"
	it.Topics = nil

	collection := Collection{}
	collection.Merge([]feed.Item{it})
	if err := s.Save(collection); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	if !strings.Contains(text, "Künstliche Intelligenz & <Zukunft>") {
		t.Errorf("Expected unescaped non-ASCII and HTML characters, got: %s", text)
	}
	if !strings.Contains(text, `"topics": []`) {
		t.Errorf("Expected empty topics array, got: %s", text)
	}
}

func TestCollectionMerge(t *testing.T) {
	collection := Collection{"a": item("a", "2024-01-01T00:00:00Z")}

	replaced := item("a", "2024-01-01T00:00:00Z")
	replaced.SummaryAI = "Neu"

	added := collection.Merge([]feed.Item{replaced, item("b", "2024-01-02T00:00:00Z"), {}})
	if added != 1 {
		t.Errorf("Expected 1 added key, got: %d", added)
	}
	if len(collection) != 2 {
		t.Errorf("Expected 2 items, got: %d", len(collection))
	}
	if collection["a"].SummaryAI != "Neu" {
		t.Errorf("Expected existing key to be replaced, got: %s", collection["a"].SummaryAI)
	}
}

func TestCollectionSortedTies(t *testing.T) {
	collection := Collection{}
	collection.Merge([]feed.Item{
		item("b", "2024-01-01T00:00:00Z"),
		item("a", "2024-01-01T00:00:00Z"),
		item("c", "2024-01-02T00:00:00Z"),
	})

	sorted := collection.Sorted()
	got := []string{sorted[0].UID, sorted[1].UID, sorted[2].UID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected order %v, got: %v", want, got)
			break
		}
	}
}

func TestCollectionLegacyKeyByLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	legacy := `[{"source":"Old","title":"T","link":"http://x/legacy","published":"2023-01-01T00:00:00Z","type":"article","summary_ai":"S","topics":["a","b","c"],"sentiment":"negativ"}]`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	collection, err := NewJSONStore(path).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, ok := collection.Keys()["http://x/legacy"]; !ok {
		t.Error("Expected legacy record to be keyed by link")
	}
}

func TestJSONStoreSalvagesMismatchedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	data := `[
		{"uid":"u1","source":"Old","title":"T1","link":"http://x/1","published":"2023-01-02T00:00:00Z","type":"article","summary_ai":"S1","topics":"a, b, c","sentiment":"positiv"},
		{"uid":"u2","source":"Old","title":"T2","link":"http://x/2","published":"2023-01-01T00:00:00Z","type":"article","summary_ai":"S2","topics":["x","y","z"],"sentiment":"neutral"},
		42
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	s := NewJSONStore(path)

	collection, err := s.Read()
	if err != nil {
		t.Fatalf("Expected mismatched records not to fail the file, got: %v", err)
	}
	if len(collection) != 2 {
		t.Fatalf("Expected 2 records, got: %d", len(collection))
	}

	salvaged := collection["u1"]
	if strings.Join(salvaged.Topics, "|") != "a|b|c" {
		t.Errorf("Expected topics split from string, got: %q", salvaged.Topics)
	}
	if salvaged.Title != "T1" || salvaged.SummaryAI != "S1" || salvaged.Published != "2023-01-02T00:00:00Z" {
		t.Errorf("Expected other fields to survive, got: %+v", salvaged)
	}
	if salvaged.Sentiment != feed.SentimentPositive {
		t.Errorf("Expected positive sentiment, got: %v", salvaged.Sentiment)
	}
	if len(collection["u2"].Topics) != 3 {
		t.Errorf("Expected intact record unchanged, got: %+v", collection["u2"])
	}

	if err := s.Save(collection); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reread, err := s.Read()
	if err != nil || len(reread) != 2 {
		t.Errorf("Expected history to survive a save, got: %d, %v", len(reread), err)
	}
}

func TestJSONStoreNotAnArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(`{"uid":"u1"}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := NewJSONStore(path).Read(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt for a non-array file, got: %v", err)
	}
}
