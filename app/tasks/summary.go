package tasks

import (
	"fmt"
	"io"
	"time"

	"github.com/lysyi3m/feed-digest/app/feed"
)

// Summary is the outcome of one DigestTask run.
type Summary struct {
	Fetched   int
	Processed int
	Succeeded int
	Failed    int
	Added     int
	Total     int
	Duration  time.Duration
	Budget    time.Duration
	Saved     bool
	Selection feed.SelectionStats
}

// Print writes the human-readable run summary.
func (s Summary) Print(w io.Writer) {
	if s.Fetched == 0 {
		fmt.Fprintln(w, "No new entries found. Collection left unchanged.")
		return
	}

	budget := "none"
	if s.Budget > 0 {
		budget = s.Budget.String()
	}

	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "New entries fetched:  %d\n", s.Fetched)
	fmt.Fprintf(w, "Processed:            %d (%d ok, %d failed)\n", s.Processed, s.Succeeded, s.Failed)
	fmt.Fprintf(w, "Added:                %d\n", s.Added)
	fmt.Fprintf(w, "Total now:            %d\n", s.Total)
	fmt.Fprintf(w, "Elapsed:              %s (budget: %s)\n", s.Duration.Round(10*time.Millisecond), budget)

	for _, src := range s.Selection.Sources {
		if src.Err != nil {
			fmt.Fprintf(w, "  %s: error: %v\n", src.Source, src.Err)
		}
	}
}
