package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lysyi3m/feed-digest/app/feed"
)

// SummaryPlaceholder is stored when the model produced no summary.
const SummaryPlaceholder = "Zusammenfassung konnte nicht erstellt werden."

const topicCount = 3

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

type Result struct {
	Summary   string
	Topics    []string
	Sentiment feed.Sentiment
}

func (r Result) Apply(item *feed.Item) {
	item.SummaryAI = r.Summary
	item.Topics = r.Topics
	item.Sentiment = r.Sentiment
	item.ContentRaw = ""
}

// ParseResponse decodes the model output, falling back to the first {...} span.
func ParseResponse(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil && obj != nil {
		return obj, nil
	}

	span := objectPattern.FindString(raw)
	if span == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrResponse)
	}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null object in response", ErrResponse)
	}

	return obj, nil
}

// Coerce always returns a well-formed result, whatever obj contains.
func Coerce(obj map[string]any) Result {
	result := Result{
		Summary:   SummaryPlaceholder,
		Topics:    make([]string, 0, topicCount),
		Sentiment: feed.SentimentNeutral,
	}

	if v, ok := obj["summary_ai"]; ok && v != nil {
		result.Summary = strings.TrimSpace(stringify(v))
	}

	if list, ok := obj["topics"].([]any); ok {
		for _, topic := range list {
			if len(result.Topics) == topicCount {
				break
			}
			result.Topics = append(result.Topics, stringify(topic))
		}
	}
	for len(result.Topics) < topicCount {
		result.Topics = append(result.Topics, "")
	}

	if label, ok := obj["sentiment"].(string); ok {
		if s, valid := feed.ParseSentiment(label); valid {
			result.Sentiment = s
		}
	}

	return result
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		if data, err := json.Marshal(t); err == nil {
			return string(data)
		}
		return fmt.Sprint(t)
	}
}
