package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-digest/app/feed"
)

type Settings struct {
	MaxTotal       int
	Budget         time.Duration
	RequestTimeout time.Duration
	Throttle       time.Duration // pause after one generator call ends and before the next starts
}

type Outcome struct {
	Item feed.Item
	Err  error // nil when the generator result was used
}

type Stats struct {
	Succeeded int
	Failed    int
	Emitted   int
	Outcomes  []Outcome
}

// Enricher adds summary, topics and sentiment to selected items, one at a time.
type Enricher struct {
	generator Generator
	settings  Settings
	now       func() time.Time
}

func NewEnricher(generator Generator, settings Settings, now func() time.Time) *Enricher {
	if now == nil {
		now = time.Now
	}

	return &Enricher{
		generator: generator,
		settings:  settings,
		now:       now,
	}
}

// Run emits every item it gets to before the cap or the time budget runs out;
// items whose generation fails carry the default result.
func (e *Enricher) Run(ctx context.Context, items []feed.Item) ([]feed.Item, Stats) {
	var stats Stats
	if len(items) == 0 {
		return nil, stats
	}

	start := e.now()
	remaining := e.settings.MaxTotal
	processed := make([]feed.Item, 0, min(len(items), max(remaining, 0)))

	slog.Info("Starting enrichment", "items", min(len(items), max(remaining, 0)))

	for _, item := range items {
		if remaining <= 0 {
			slog.Info("Item limit reached", "max_total", e.settings.MaxTotal)
			break
		}
		if e.settings.Budget > 0 && e.now().Sub(start) >= e.settings.Budget {
			slog.Warn("Time budget exhausted", "budget", e.settings.Budget)
			break
		}
		waitErr := ctx.Err()
		if len(processed) > 0 {
			waitErr = e.pause(ctx)
		}
		if waitErr != nil {
			slog.Warn("Enrichment cancelled", "error", waitErr)
			break
		}

		result, err := e.enrichItem(ctx, item)
		result.Apply(&item)

		if err != nil {
			stats.Failed++
			slog.Error("Enrichment failed", "title", item.Title, "source", item.Source, "error", err)
		} else {
			stats.Succeeded++
			slog.Info("Enriched",
				"title", item.Title,
				"sentiment", item.Sentiment.Label(),
				"topics", item.Topics)
		}

		processed = append(processed, item)
		stats.Outcomes = append(stats.Outcomes, Outcome{Item: item, Err: err})
		remaining--
	}

	stats.Emitted = len(processed)

	slog.Info("Enrichment finished",
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"emitted", stats.Emitted,
		"duration", e.now().Sub(start))

	return processed, stats
}

// pause waits Throttle, returning early when ctx is done.
func (e *Enricher) pause(ctx context.Context) error {
	if e.settings.Throttle <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(e.settings.Throttle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Enricher) enrichItem(ctx context.Context, item feed.Item) (Result, error) {
	raw, err := generateWithFallback(ctx, e.generator, BuildPrompt(item), requestOptions(e.settings.RequestTimeout))
	if err != nil {
		return Coerce(nil), err
	}

	obj, err := ParseResponse(raw)
	if err != nil {
		return Coerce(nil), err
	}

	return Coerce(obj), nil
}
