package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS, Atom or JSON feed data into typed entries in document order.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.toEntry(item))
	}

	return entries, nil
}

func (p *Parser) toEntry(item *gofeed.Item) Entry {
	entry := Entry{
		GUID:      strings.TrimSpace(item.GUID),
		Link:      item.Link,
		Title:     item.Title,
		Summary:   item.Description,
		Published: item.PublishedParsed,
		Updated:   item.UpdatedParsed,
	}

	if item.Content != "" {
		entry.Content = []string{item.Content}
	}

	// gofeed folds Atom rel="enclosure" links into Enclosures already
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, Enclosure{
			Type: enclosure.Type,
			Href: enclosure.URL,
		})
	}

	for _, href := range item.Links {
		if href == "" || href == item.Link {
			continue
		}
		entry.Links = append(entry.Links, Link{Rel: "alternate", Href: href})
	}

	return entry
}
