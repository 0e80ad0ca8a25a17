package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-digest/app/api"
	"github.com/lysyi3m/feed-digest/app/cfg"
	"github.com/lysyi3m/feed-digest/app/database"
	"github.com/lysyi3m/feed-digest/app/enrich"
	"github.com/lysyi3m/feed-digest/app/feed"
	"github.com/lysyi3m/feed-digest/app/store"
	"github.com/lysyi3m/feed-digest/app/tasks"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout))
}

// execute returns the exit code instead of exiting so deferred cleanup runs.
func execute(args []string, stdout io.Writer) int {
	appCfg, err := cfg.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if appCfg == nil {
		return 0
	}

	setupLogging(appCfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger *database.Ledger
	if appCfg.LedgerPath != "" {
		ledger, err = database.Open(appCfg.LedgerPath)
		if err != nil {
			slog.Warn("Run ledger unavailable, continuing without it", "path", appCfg.LedgerPath, "error", err)
			ledger = nil
		} else {
			defer ledger.Close()
		}
	}

	jsonStore := store.NewJSONStore(appCfg.DataFile)

	if appCfg.Serve {
		if err := serve(ctx, appCfg, jsonStore, ledger); err != nil {
			slog.Error("Server error", "error", err)
			return 1
		}
		return 0
	}

	if err := run(ctx, appCfg, jsonStore, ledger, stdout); err != nil {
		slog.Error("Run failed", "error", err)
		return 1
	}
	return 0
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	// stdout carries the run summary
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// run returns an error only when the job cannot start; a failed save is
// logged and the process still exits zero.
func run(ctx context.Context, appCfg *cfg.Cfg, jsonStore *store.JSONStore, ledger *database.Ledger, stdout io.Writer) error {
	sources, err := feed.LoadSources(appCfg.FeedsFile)
	if err != nil {
		return fmt.Errorf("failed to load feed table: %w", err)
	}

	slog.Info("Starting feed digest",
		"version", appCfg.Version,
		"feeds", len(sources),
		"max_per_feed", appCfg.MaxPerFeed,
		"max_total", appCfg.MaxTotal,
		"recency_days", appCfg.RecencyDays,
		"budget", appCfg.RunBudget)

	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), appCfg.UserAgent, appCfg.FetchTimeout)
	selector := feed.NewSelector(fetcher, feed.NewNormalizer(time.Now), feed.Limits{
		PerFeed:         appCfg.MaxPerFeed,
		Total:           appCfg.MaxTotal,
		RecencyDays:     appCfg.RecencyDays,
		FirstRunShallow: appCfg.FirstRunShallow,
	}, time.Now)

	generator, err := enrich.NewGeminiClient(ctx, appCfg.Endpoint, appCfg.Model, appCfg.APIKey, &http.Client{})
	if err != nil {
		return err
	}
	enricher := enrich.NewEnricher(generator, enrich.Settings{
		MaxTotal:       appCfg.MaxTotal,
		Budget:         appCfg.RunBudget,
		RequestTimeout: appCfg.RequestTimeout,
		Throttle:       appCfg.Throttle,
	}, time.Now)

	var taskLedger tasks.Ledger
	if ledger != nil {
		taskLedger = ledger
	}

	task := tasks.NewDigestTask(sources, selector, enricher, jsonStore, taskLedger, appCfg.RunBudget, time.Now)
	summary, err := task.Execute(ctx)
	summary.Print(stdout)

	if err != nil {
		slog.Error("Collection not saved", "path", jsonStore.Path(), "error", err)
	}
	return nil
}

func serve(ctx context.Context, appCfg *cfg.Cfg, jsonStore *store.JSONStore, ledger *database.Ledger) error {
	var runs api.RunLister
	if ledger != nil {
		runs = ledger
	}

	handler := api.NewHandler(jsonStore, runs, feed.NewGenerator(time.Now), appCfg.BaseURL, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "data_file", jsonStore.Path())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server gracefully")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("HTTP server stopped")
	return nil
}
