package feed

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrFetch = errors.New("feed fetch failed")
	ErrParse = errors.New("feed parse failed")
	ErrEntry = errors.New("feed entry invalid")
)

type Kind string

const (
	KindArticle Kind = "article"
	KindPodcast Kind = "podcast"
)

func (k Kind) Valid() bool {
	return k == KindArticle || k == KindPodcast
}

// Source is one configured feed. Sources are immutable for a run.
type Source struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Kind    Kind     `yaml:"type"`
	Filters []Filter `yaml:"filters"`
}

// Filter keeps or drops entries by case-insensitive substring match on one field.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Retrieval types

// Entry is a feed item as retrieved, with every field optional.
type Entry struct {
	ID         string
	GUID       string
	Link       string
	Title      string
	Summary    string
	Content    []string // content block values, in document order
	Published  *time.Time
	Updated    *time.Time
	Enclosures []Enclosure
	Links      []Link
}

type Enclosure struct {
	Type string
	Href string
}

type Link struct {
	Rel  string
	Type string
	Href string
}

// Canonical types

type Sentiment int

const (
	SentimentNeutral Sentiment = iota
	SentimentPositive
	SentimentNegative
)

var sentimentLabels = map[Sentiment]string{
	SentimentPositive: "positiv",
	SentimentNeutral:  "neutral",
	SentimentNegative: "negativ",
}

// ParseSentiment accepts the localized labels and the English names.
func ParseSentiment(s string) (Sentiment, bool) {
	switch s {
	case "positiv", "positive":
		return SentimentPositive, true
	case "neutral":
		return SentimentNeutral, true
	case "negativ", "negative":
		return SentimentNegative, true
	default:
		return SentimentNeutral, false
	}
}

// Label is the localized form written to the collection file.
func (s Sentiment) Label() string {
	if label, ok := sentimentLabels[s]; ok {
		return label
	}
	return sentimentLabels[SentimentNeutral]
}

func (s Sentiment) String() string {
	switch s {
	case SentimentPositive:
		return "positive"
	case SentimentNegative:
		return "negative"
	default:
		return "neutral"
	}
}

func (s Sentiment) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Label())
}

func (s *Sentiment) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = SentimentNeutral
		return nil
	}
	*s, _ = ParseSentiment(strings.TrimSpace(raw))
	return nil
}

// Item is the unit of storage and enrichment.
type Item struct {
	UID       string `json:"uid"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"` // RFC 3339, UTC
	Type      Kind   `json:"type"`
	AudioURL  string `json:"audio_url"`

	ContentRaw string `json:"-"` // only lives between normalization and enrichment

	SummaryAI string    `json:"summary_ai"`
	Topics    []string  `json:"topics"`
	Sentiment Sentiment `json:"sentiment"`
}

// Key is the collection key: uid, or link for records written before uids existed.
func (i Item) Key() string {
	if i.UID != "" {
		return i.UID
	}
	return i.Link
}

func (i Item) PublishedTime() (time.Time, error) {
	return time.Parse(time.RFC3339, i.Published)
}
