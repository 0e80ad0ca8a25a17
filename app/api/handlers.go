package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feed-digest/app/feed"
)

const (
	defaultItemLimit = 50
	defaultRunLimit  = 20
)

func NewHandler(collection CollectionReader, runs RunLister, generator GeneratorInterface, baseURL, version string) *Handler {
	if generator == nil {
		generator = feed.NewGenerator(nil)
	}
	return &Handler{
		collection: collection,
		runs:       runs,
		generator:  generator,
		baseURL:    baseURL,
		version:    version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"ledger":    h.runs != nil,
	}

	if collection, err := h.collection.Read(); err == nil {
		health["items"] = len(collection)
	} else {
		health["collection_error"] = err.Error()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListItems(c *gin.Context) {
	limit, ok := parseLimit(c, defaultItemLimit)
	if !ok {
		return
	}

	source := c.Query("source")
	kind := feed.Kind(c.Query("type"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown item type"})
		return
	}

	collection, err := h.collection.Read()
	if err != nil {
		slog.Error("Collection read error", "operation", "list_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Collection unreadable"})
		return
	}

	items := make([]feed.Item, 0, min(limit, len(collection)))
	for _, item := range collection.Sorted() {
		if len(items) >= limit {
			break
		}
		if source != "" && item.Source != source {
			continue
		}
		if kind != "" && item.Type != kind {
			continue
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"total": len(collection),
	})
}

func (h *Handler) GetItem(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing item uid"})
		return
	}

	collection, err := h.collection.Read()
	if err != nil {
		slog.Error("Collection read error", "operation", "get_item", "uid", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Collection unreadable"})
		return
	}

	item, ok := collection[uid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) GetDigestFeed(c *gin.Context) {
	limit, ok := parseLimit(c, defaultItemLimit)
	if !ok {
		return
	}

	collection, err := h.collection.Read()
	if err != nil {
		slog.Error("Collection read error", "operation", "get_digest", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	items := collection.Sorted()
	if len(items) > limit {
		items = items[:limit]
	}

	channel := feed.Channel{
		Link:     h.baseURL,
		SelfLink: h.baseURL + "/feed.xml",
		Version:  h.version,
	}

	rss, err := h.generator.Run(channel, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit, ok := parseLimit(c, defaultRunLimit)
	if !ok {
		return
	}

	runs, err := h.runs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "recent_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		entry := map[string]any{
			"id":         run.ID,
			"started_at": run.StartedAt.Format(time.RFC3339),
			"fetched":    run.Fetched,
			"processed":  run.Processed,
			"succeeded":  run.Succeeded,
			"failed":     run.Failed,
			"added":      run.Added,
			"total":      run.Total,
		}
		if run.FinishedAt != nil {
			entry["finished_at"] = run.FinishedAt.Format(time.RFC3339)
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  out,
		"count": len(out),
	})
}

// parseLimit writes a 400 response and returns false on a bad limit.
func parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}

	return limit, true
}
