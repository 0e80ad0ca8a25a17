package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/lysyi3m/feed-digest/app/feed"
)

var ErrCorrupt = errors.New("collection file unreadable")

// Collection maps item keys to items.
type Collection map[string]feed.Item

// Keys returns the set of known keys for selection.
func (c Collection) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(c))
	for key := range c {
		keys[key] = struct{}{}
	}
	return keys
}

// Merge inserts or replaces items by key and returns how many keys were new.
func (c Collection) Merge(items []feed.Item) int {
	added := 0
	for _, item := range items {
		key := item.Key()
		if key == "" {
			continue
		}
		if _, exists := c[key]; !exists {
			added++
		}
		c[key] = item
	}
	return added
}

// Sorted returns the items newest first; ties are ordered by key.
func (c Collection) Sorted() []feed.Item {
	items := make([]feed.Item, 0, len(c))
	for _, item := range c {
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Published != items[j].Published {
			return items[i].Published > items[j].Published
		}
		return items[i].Key() < items[j].Key()
	})

	return items
}

// JSONStore keeps the collection as one JSON array on disk.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string {
	return s.path
}

// Load never fails the run: a missing file is an empty collection and an
// unreadable one is logged and treated the same way.
func (s *JSONStore) Load() Collection {
	collection, err := s.Read()
	if err != nil {
		slog.Warn("Ignoring existing collection", "path", s.path, "error", err)
		return Collection{}
	}
	return collection
}

// Read is Load with the error exposed. Only a file that is not a JSON array
// is an error; single records that cannot be decoded are skipped.
func (s *JSONStore) Read() (Collection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	collection := make(Collection, len(records))
	for i, raw := range records {
		item, err := decodeRecord(raw)
		if err != nil {
			slog.Warn("Skipping unreadable record", "path", s.path, "index", i, "error", err)
			continue
		}
		if key := item.Key(); key != "" {
			collection[key] = item
		}
	}

	return collection, nil
}

// Save replaces the file with the full sorted collection.
func (s *JSONStore) Save(collection Collection) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")

	items := collection.Sorted()
	for i := range items {
		if items[i].Topics == nil {
			items[i].Topics = []string{}
		}
	}

	if err := encoder.Encode(items); err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace collection: %w", err)
	}

	slog.Debug("Collection saved", "path", s.path, "items", len(items))
	return nil
}
