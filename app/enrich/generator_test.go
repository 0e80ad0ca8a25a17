package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// stubGenerator replays responses in order and records the options it saw.
type stubGenerator struct {
	responses []string
	errs      []error
	opts      []Options
	prompts   []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	i := len(s.opts)
	s.opts = append(s.opts, opts)
	s.prompts = append(s.prompts, prompt)

	var (
		text string
		err  error
	)
	if i < len(s.responses) {
		text = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return text, err
}

func TestGenerateWithFallbackSuccess(t *testing.T) {
	gen := &stubGenerator{responses: []string{"{}"}}

	text, err := generateWithFallback(context.Background(), gen, "p", Options{Timeout: time.Second})
	if err != nil || text != "{}" {
		t.Fatalf("Expected '{}' without error, got: %q, %v", text, err)
	}
	if len(gen.opts) != 1 {
		t.Errorf("Expected one call, got: %d", len(gen.opts))
	}
}

func TestGenerateWithFallbackRetriesWithoutOptions(t *testing.T) {
	gen := &stubGenerator{
		responses: []string{"", "{}"},
		errs:      []error{fmt.Errorf("%w: timeout", ErrUnsupportedOption), nil},
	}

	text, err := generateWithFallback(context.Background(), gen, "p", Options{Timeout: time.Second})
	if err != nil || text != "{}" {
		t.Fatalf("Expected '{}' without error, got: %q, %v", text, err)
	}
	if len(gen.opts) != 2 {
		t.Fatalf("Expected two calls, got: %d", len(gen.opts))
	}
	if gen.opts[1] != (Options{}) {
		t.Errorf("Expected retry without options, got: %+v", gen.opts[1])
	}
}

func TestGenerateWithFallbackRetryFails(t *testing.T) {
	gen := &stubGenerator{
		errs: []error{ErrUnsupportedOption, fmt.Errorf("%w: boom", ErrGenerate)},
	}

	_, err := generateWithFallback(context.Background(), gen, "p", Options{Timeout: time.Second})
	if !errors.Is(err, ErrGenerate) {
		t.Errorf("Expected ErrGenerate from retry, got: %v", err)
	}
	if len(gen.opts) != 2 {
		t.Errorf("Expected two calls, got: %d", len(gen.opts))
	}
}

func TestGenerateWithFallbackOtherErrorsNotRetried(t *testing.T) {
	gen := &stubGenerator{errs: []error{ErrGenerate}}

	if _, err := generateWithFallback(context.Background(), gen, "p", Options{Timeout: time.Second}); !errors.Is(err, ErrGenerate) {
		t.Errorf("Expected ErrGenerate, got: %v", err)
	}
	if len(gen.opts) != 1 {
		t.Errorf("Expected a single call, got: %d", len(gen.opts))
	}
}

func TestGenerateWithFallbackNoOptions(t *testing.T) {
	gen := &stubGenerator{errs: []error{ErrUnsupportedOption}}

	if _, err := generateWithFallback(context.Background(), gen, "p", Options{}); !errors.Is(err, ErrUnsupportedOption) {
		t.Errorf("Expected ErrUnsupportedOption, got: %v", err)
	}
	if len(gen.opts) != 1 {
		t.Errorf("Expected no retry without options, got: %d calls", len(gen.opts))
	}
}
