package feed

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultSources is the built-in feed table, in processing order.
var DefaultSources = []Source{
	// German podcasts
	{Name: "Heise KI Update", URL: "https://kiupdate.podigee.io/feed/mp3", Kind: KindPodcast},
	{Name: "AI First", URL: "https://feeds.captivate.fm/ai-first/", Kind: KindPodcast},
	{Name: "KI Inside", URL: "https://agidomedia.podcaster.de/insideki.rss", Kind: KindPodcast},
	{Name: "KI>Inside", URL: "https://anchor.fm/s/fb4ad23c/podcast/rss", Kind: KindPodcast},

	// English news
	{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/", Kind: KindArticle},

	// German news
	{Name: "t3n (Thema KI)", URL: "https://t3n.de/tag/ki/rss", Kind: KindArticle},
	{Name: "Handelsblatt KI", URL: "https://www.handelsblatt.com/contentexport/feed/schlagworte/10026866", Kind: KindArticle},
	{Name: "Tagesschau (Digitales)", URL: "https://www.tagesschau.de/xml/rss2_-_thema-digitales-101.xml", Kind: KindArticle},
}

type sourcesFile struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads the feed table from a YAML file, or returns the built-in
// table when path is empty.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return append([]Source(nil), DefaultSources...), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Feeds {
		if file.Feeds[i].Kind == "" {
			file.Feeds[i].Kind = KindArticle
		}
	}

	if err := validateSources(file.Feeds); err != nil {
		return nil, fmt.Errorf("invalid feeds file %s: %w", path, err)
	}

	slog.Debug("Feed table loaded", "path", path, "count", len(file.Feeds))

	return file.Feeds, nil
}

func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	names := make(map[string]bool, len(sources))
	for i, source := range sources {
		if source.Name == "" {
			return fmt.Errorf("feed name is required at index %d", i)
		}
		if source.URL == "" {
			return fmt.Errorf("feed URL is required for %s", source.Name)
		}
		if !source.Kind.Valid() {
			return fmt.Errorf("invalid type for %s: %s", source.Name, source.Kind)
		}
		for _, filter := range source.Filters {
			if !slices.Contains(filterFields, filter.Field) {
				return fmt.Errorf("invalid filter field for %s: %q", source.Name, filter.Field)
			}
		}
		if names[source.Name] {
			return fmt.Errorf("duplicate feed name: %s", source.Name)
		}
		names[source.Name] = true
	}

	return nil
}
