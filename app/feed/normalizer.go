package feed

import (
	"cmp"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxContentRunes bounds the body handed to the prompt.
const MaxContentRunes = 4000

const fallbackTitleRunes = 50

var (
	tagPattern        = regexp.MustCompile(`<[^>]+?>`)
	whitespacePattern = regexp.MustCompile(`[\s\p{Z}\x{85}]+`) // includes &nbsp; after unescaping
)

type Normalizer struct {
	now      func() time.Time
	fallback atomic.Uint64
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Run converts one retrieved entry into a pre-enrichment item.
func (n *Normalizer) Run(entry *Entry, source Source) (Item, error) {
	if entry == nil {
		return Item{}, fmt.Errorf("%w: nil entry from %s", ErrEntry, source.Name)
	}
	if !source.Kind.Valid() {
		return Item{}, fmt.Errorf("%w: unknown content kind %q", ErrEntry, source.Kind)
	}

	item := Item{
		UID:        n.UID(entry),
		Source:     source.Name,
		Title:      strings.TrimSpace(entry.Title),
		Link:       strings.TrimSpace(entry.Link),
		Published:  n.Published(entry).Format(time.RFC3339),
		Type:       source.Kind,
		ContentRaw: CleanText(body(entry), MaxContentRunes),
	}

	if source.Kind == KindPodcast {
		item.AudioURL = AudioURL(entry)
	}

	return item, nil
}

// UID resolves id, guid, link and finally a synthesized value that is unique
// within the process but not across runs.
func (n *Normalizer) UID(entry *Entry) string {
	if uid := cmp.Or(entry.ID, entry.GUID, entry.Link); uid != "" {
		return uid
	}

	seq := n.fallback.Add(1)
	return fmt.Sprintf("no-id::%s::%d.%d", truncateRunes(entry.Title, fallbackTitleRunes), n.now().UnixNano(), seq)
}

func (n *Normalizer) Published(entry *Entry) time.Time {
	switch {
	case entry.Published != nil:
		return entry.Published.UTC()
	case entry.Updated != nil:
		return entry.Updated.UTC()
	default:
		return n.now().UTC()
	}
}

func body(entry *Entry) string {
	if entry.Summary != "" {
		return entry.Summary
	}
	if len(entry.Content) > 0 {
		return entry.Content[0]
	}
	return ""
}

// CleanText strips tags, unescapes entities, collapses whitespace and truncates.
func CleanText(text string, maxRunes int) string {
	if text == "" {
		return ""
	}

	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = norm.NFC.String(strings.TrimSpace(text))

	return truncateRunes(text, maxRunes)
}

// AudioURL returns the first audio enclosure, then the first audio
// rel="enclosure" link, or "".
func AudioURL(entry *Entry) string {
	for _, enc := range entry.Enclosures {
		if strings.Contains(enc.Type, "audio") && enc.Href != "" {
			return enc.Href
		}
	}

	for _, link := range entry.Links {
		if link.Rel == "enclosure" && strings.Contains(link.Type, "audio") {
			return link.Href
		}
	}

	return ""
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
