package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/feed-digest/app/database"
)

type TaskType string

const (
	TaskTypeDigest TaskType = "digest"
)

// Ledger records runs; a nil Ledger disables recording.
type Ledger interface {
	StartRun(ctx context.Context, startedAt time.Time) (string, error)
	RecordEnrichment(ctx context.Context, runID string, e database.Enrichment) error
	FinishRun(ctx context.Context, run database.Run) error
}

var _ Ledger = (*database.Ledger)(nil)

type Task struct {
	Type      TaskType
	StartedAt *time.Time
	now       func() time.Time
}

func NewTask(taskType TaskType, now func() time.Time) Task {
	if now == nil {
		now = time.Now
	}
	return Task{Type: taskType, now: now}
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) Start() {
	started := t.now()
	t.StartedAt = &started
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return t.now().Sub(*t.StartedAt)
}
