package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
)

// Limits bound a single run.
type Limits struct {
	PerFeed         int
	Total           int
	RecencyDays     int
	FirstRunShallow bool
}

type SourceStats struct {
	Source   string
	Fetched  int
	Selected int
	Known    int
	Stale    int
	Invalid  int
	Filtered int
	Err      error
}

type SelectionStats struct {
	FirstRun bool
	Sources  []SourceStats
}

func (s SelectionStats) Selected() int {
	total := 0
	for _, src := range s.Sources {
		total += src.Selected
	}
	return total
}

// Selector walks the configured feeds and picks entries worth enriching.
type Selector struct {
	retriever  Retriever
	normalizer *Normalizer
	filterer   *Filterer
	limits     Limits
	now        func() time.Time
}

func NewSelector(retriever Retriever, normalizer *Normalizer, limits Limits, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	if normalizer == nil {
		normalizer = NewNormalizer(now)
	}
	return &Selector{
		retriever:  retriever,
		normalizer: normalizer,
		filterer:   NewFilterer(),
		limits:     limits,
		now:        now,
	}
}

// Run returns at most Limits.Total new items, at most Limits.PerFeed from each source.
// known is not modified.
func (s *Selector) Run(ctx context.Context, sources []Source, known map[string]struct{}) ([]Item, SelectionStats) {
	stats := SelectionStats{
		FirstRun: len(known) == 0 && s.limits.FirstRunShallow,
	}

	seen := make(map[string]struct{}, len(known))
	for uid := range known {
		seen[uid] = struct{}{}
	}

	var selected []Item

	for _, source := range sources {
		if len(selected) >= s.limits.Total {
			break
		}
		if ctx.Err() != nil {
			slog.Warn("Selection cancelled", "error", ctx.Err())
			break
		}

		srcStats := SourceStats{Source: source.Name}

		entries, err := s.retriever.Fetch(ctx, source.URL)
		if err != nil {
			srcStats.Err = err
			stats.Sources = append(stats.Sources, srcStats)
			slog.Error("Failed to fetch feed", "feed", source.Name, "kind", errorKind(err), "error", err)
			continue
		}
		srcStats.Fetched = len(entries)

		// most feeds list oldest first
		entries = slices.Clone(entries)
		slices.Reverse(entries)

		if stats.FirstRun && len(entries) > s.limits.PerFeed {
			entries = entries[:max(s.limits.PerFeed, 0)]
		}

		for i := range entries {
			if len(selected) >= s.limits.Total || srcStats.Selected >= s.limits.PerFeed {
				break
			}

			entry := &entries[i]

			uid := s.normalizer.UID(entry)
			if _, ok := seen[uid]; ok {
				srcStats.Known++
				continue
			}

			if !IsRecent(s.normalizer.Published(entry), s.limits.RecencyDays, s.now()) {
				srcStats.Stale++
				continue
			}

			item, err := s.normalizer.Run(entry, source)
			if err != nil {
				srcStats.Invalid++
				slog.Warn("Skipping feed entry", "feed", source.Name, "title", entry.Title, "error", err)
				continue
			}
			item.UID = uid

			if dropped, reason := s.filterer.Run(item, source.Filters); dropped {
				srcStats.Filtered++
				slog.Debug("Entry filtered", "feed", source.Name, "title", item.Title, "reason", reason)
				continue
			}

			seen[uid] = struct{}{}
			selected = append(selected, item)
			srcStats.Selected++
			slog.Info("New entry", "feed", source.Name, "title", item.Title)
		}

		stats.Sources = append(stats.Sources, srcStats)
		slog.Debug("Feed scanned",
			"feed", source.Name,
			"fetched", srcStats.Fetched,
			"selected", srcStats.Selected,
			"known", srcStats.Known,
			"stale", srcStats.Stale,
			"filtered", srcStats.Filtered)
	}

	return selected, stats
}

// IsRecent reports whether published lies within the last days days; days <= 0 disables the check.
func IsRecent(published time.Time, days int, now time.Time) bool {
	if days <= 0 {
		return true
	}
	cutoff := now.UTC().Add(-time.Duration(days) * 24 * time.Hour)
	return !published.Before(cutoff)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrEntry):
		return "entry"
	default:
		return "unknown"
	}
}
