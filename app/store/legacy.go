package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lysyi3m/feed-digest/app/feed"
)

// decodeRecord decodes one stored record. Records written by older revisions
// may carry fields with other JSON types; those are converted where the
// meaning is clear and left empty otherwise.
func decodeRecord(raw json.RawMessage) (feed.Item, error) {
	var item feed.Item
	if err := json.Unmarshal(raw, &item); err == nil {
		return item, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return feed.Item{}, fmt.Errorf("record is not an object: %w", err)
	}

	item = feed.Item{
		UID:       text(fields["uid"]),
		Source:    text(fields["source"]),
		Title:     text(fields["title"]),
		Link:      text(fields["link"]),
		Published: text(fields["published"]),
		Type:      feed.Kind(text(fields["type"])),
		AudioURL:  text(fields["audio_url"]),
		SummaryAI: text(fields["summary_ai"]),
		Topics:    topics(fields["topics"]),
	}
	item.Sentiment, _ = feed.ParseSentiment(strings.TrimSpace(text(fields["sentiment"])))

	return item, nil
}

func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// topics accepts a list or a comma separated string.
func topics(v any) []string {
	var parts []string
	switch v := v.(type) {
	case []any:
		for _, topic := range v {
			parts = append(parts, text(topic))
		}
	case string:
		parts = strings.Split(v, ",")
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
