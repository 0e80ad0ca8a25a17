package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-digest/app/database"
	"github.com/lysyi3m/feed-digest/app/enrich"
	"github.com/lysyi3m/feed-digest/app/feed"
	"github.com/lysyi3m/feed-digest/app/store"
)

// DigestTask is one batch run: select new entries, enrich them, merge them
// into the collection and persist it.
type DigestTask struct {
	Task
	sources  []feed.Source
	selector *feed.Selector
	enricher *enrich.Enricher
	store    *store.JSONStore
	ledger   Ledger
	budget   time.Duration
}

func NewDigestTask(sources []feed.Source, selector *feed.Selector, enricher *enrich.Enricher, jsonStore *store.JSONStore, ledger Ledger, budget time.Duration, now func() time.Time) *DigestTask {
	return &DigestTask{
		Task:     NewTask(TaskTypeDigest, now),
		sources:  sources,
		selector: selector,
		enricher: enricher,
		store:    jsonStore,
		ledger:   ledger,
		budget:   budget,
	}
}

// Execute always returns a summary. The error is non-nil only when the
// collection could not be written.
func (t *DigestTask) Execute(ctx context.Context) (Summary, error) {
	t.Start()

	collection := t.store.Load()
	before := len(collection)

	runID := t.startRun(ctx)

	slog.Info("Checking feeds for new entries", "feeds", len(t.sources), "known", before)
	selected, selection := t.selector.Run(ctx, t.sources, collection.Keys())

	summary := Summary{
		Fetched:   len(selected),
		Total:     before,
		Budget:    t.budget,
		Selection: selection,
	}

	if len(selected) == 0 {
		summary.Duration = t.GetDuration()
		t.finishRun(ctx, runID, summary)
		return summary, nil
	}

	processed, stats := t.enricher.Run(ctx, selected)
	summary.Processed = len(processed)
	summary.Succeeded = stats.Succeeded
	summary.Failed = stats.Failed

	t.recordOutcomes(ctx, runID, stats.Outcomes)

	collection.Merge(processed)
	summary.Total = len(collection)
	summary.Added = summary.Total - before

	err := t.store.Save(collection)
	if err != nil {
		err = fmt.Errorf("failed to save collection: %w", err)
	} else {
		summary.Saved = true
		slog.Info("Collection saved", "path", t.store.Path(), "total", summary.Total)
	}

	summary.Duration = t.GetDuration()
	t.finishRun(ctx, runID, summary)

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", summary.Duration,
		"fetched", summary.Fetched,
		"processed", summary.Processed,
		"added", summary.Added,
		"total", summary.Total)

	return summary, err
}

// Ledger writes use a context detached from cancellation so an interrupted
// run is still recorded.
func (t *DigestTask) startRun(ctx context.Context) string {
	if t.ledger == nil {
		return ""
	}
	id, err := t.ledger.StartRun(context.WithoutCancel(ctx), *t.StartedAt)
	if err != nil {
		slog.Warn("Failed to record run start", "error", err)
		return ""
	}
	return id
}

func (t *DigestTask) recordOutcomes(ctx context.Context, runID string, outcomes []enrich.Outcome) {
	if t.ledger == nil || runID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, outcome := range outcomes {
		entry := database.Enrichment{
			UID:    outcome.Item.UID,
			Source: outcome.Item.Source,
			Title:  outcome.Item.Title,
			Status: database.StatusSucceeded,
		}
		if outcome.Err != nil {
			entry.Status = database.StatusFailed
			entry.Error = outcome.Err.Error()
		}
		if err := t.ledger.RecordEnrichment(ctx, runID, entry); err != nil {
			slog.Warn("Failed to record enrichment", "uid", entry.UID, "error", err)
		}
	}
}

func (t *DigestTask) finishRun(ctx context.Context, runID string, summary Summary) {
	if t.ledger == nil || runID == "" {
		return
	}
	finished := t.StartedAt.Add(summary.Duration)
	run := database.Run{
		ID:         runID,
		StartedAt:  *t.StartedAt,
		FinishedAt: &finished,
		Fetched:    summary.Fetched,
		Processed:  summary.Processed,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Added:      summary.Added,
		Total:      summary.Total,
	}
	if err := t.ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("Failed to record run", "id", runID, "error", err)
	}
}
