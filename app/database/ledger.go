// Package database keeps the SQLite run ledger: one row per run and one per
// enrichment attempt. The item collection itself lives in the JSON store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Fetched    int
	Processed  int
	Succeeded  int
	Failed     int
	Added      int
	Total      int
}

type Enrichment struct {
	UID    string
	Source string
	Title  string
	Status string
	Error  string
}

type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger file and brings its schema up to date.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set wal mode: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Ledger ready", "path", path, "schema_version", version, "dirty", dirty)

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun inserts a new run row and returns its id.
func (l *Ledger) StartRun(ctx context.Context, startedAt time.Time) (string, error) {
	id := uuid.NewString()

	_, err := sq.Insert("runs").
		Columns("id", "started_at").
		Values(id, formatTime(startedAt)).
		RunWith(l.db).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	return id, nil
}

func (l *Ledger) RecordEnrichment(ctx context.Context, runID string, e Enrichment) error {
	_, err := sq.Insert("enrichments").
		Columns("run_id", "uid", "source", "title", "status", "error", "created_at").
		Values(runID, e.UID, e.Source, e.Title, e.Status, e.Error, formatTime(time.Now())).
		RunWith(l.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert enrichment: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (l *Ledger) FinishRun(ctx context.Context, run Run) error {
	finishedAt := time.Now()
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	res, err := sq.Update("runs").
		SetMap(map[string]any{
			"finished_at": formatTime(finishedAt),
			"fetched":     run.Fetched,
			"processed":   run.Processed,
			"succeeded":   run.Succeeded,
			"failed":      run.Failed,
			"added":       run.Added,
			"total":       run.Total,
		}).
		Where(sq.Eq{"id": run.ID}).
		RunWith(l.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := sq.Select("id", "started_at", "COALESCE(finished_at, '')",
		"fetched", "processed", "succeeded", "failed", "added", "total").
		From("runs").
		OrderBy("started_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(l.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(&run.ID, &started, &finished,
			&run.Fetched, &run.Processed, &run.Succeeded, &run.Failed, &run.Added, &run.Total); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
				run.FinishedAt = &t
			}
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// Enrichments returns the attempts recorded for one run in insertion order.
func (l *Ledger) Enrichments(ctx context.Context, runID string) ([]Enrichment, error) {
	rows, err := sq.Select("uid", "source", "title", "status", "error").
		From("enrichments").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("id").
		RunWith(l.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrichments: %w", err)
	}
	defer rows.Close()

	var out []Enrichment
	for rows.Next() {
		var e Enrichment
		if err := rows.Scan(&e.UID, &e.Source, &e.Title, &e.Status, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan enrichment row: %w", err)
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// fixed-width so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
