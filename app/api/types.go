package api

import (
	"context"

	"github.com/lysyi3m/feed-digest/app/database"
	"github.com/lysyi3m/feed-digest/app/feed"
	"github.com/lysyi3m/feed-digest/app/store"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []feed.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type CollectionReader interface {
	Read() (store.Collection, error)
}

var _ CollectionReader = (*store.JSONStore)(nil)

// RunLister is satisfied by the ledger; nil disables /runs.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]database.Run, error)
}

var _ RunLister = (*database.Ledger)(nil)

type Handler struct {
	collection CollectionReader
	runs       RunLister
	generator  GeneratorInterface
	baseURL    string
	version    string
}
