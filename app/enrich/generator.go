package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrGenerate = errors.New("generation failed")
	ErrResponse = errors.New("invalid generator response")

	// ErrUnsupportedOption is returned by generators that reject part of Options.
	ErrUnsupportedOption = errors.New("unsupported generator option")
)

// Options carries optional request parameters; zero values mean "not set".
type Options struct {
	Timeout          time.Duration
	ResponseMIMEType string
	BlockNone        bool // turn off safety blocking for every harm category
}

// requestOptions is the full option set used for enrichment calls.
func requestOptions(timeout time.Duration) Options {
	return Options{
		Timeout:          timeout,
		ResponseMIMEType: "application/json",
		BlockNone:        true,
	}
}

// Generator turns a prompt into a (preferably JSON) text response.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// generateWithFallback tries the full option set and, if the generator rejects
// an option, retries once with none.
func generateWithFallback(ctx context.Context, gen Generator, prompt string, opts Options) (string, error) {
	text, err := gen.Generate(ctx, prompt, opts)
	if err == nil || !errors.Is(err, ErrUnsupportedOption) || opts == (Options{}) {
		return text, err
	}

	text, err = gen.Generate(ctx, prompt, Options{})
	if err != nil {
		return "", fmt.Errorf("retry without options: %w", err)
	}
	return text, nil
}
