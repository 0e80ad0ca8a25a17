package enrich

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/"
	APIVersion      = "v1beta"
)

var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// request fields a model or API version may reject with INVALID_ARGUMENT
var optionFields = []string{
	"response_mime_type",
	"responsemimetype",
	"safety_settings",
	"safetysettings",
	"timeout",
}

var _ Generator = (*GeminiClient)(nil)

// GeminiClient generates content through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, endpoint, model, apiKey string, httpClient *http.Client) (*GeminiClient, error) {
	if apiKey == "" || model == "" {
		return nil, fmt.Errorf("%w: gemini client misconfigured", ErrGenerate)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimSuffix(cmp.Or(endpoint, DefaultEndpoint), "/") + "/",
			APIVersion: APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %w", ErrGenerate, err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	slog.Debug("Gemini request", "model", c.model, "prompt_length", len(prompt), "options", opts)

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), buildConfig(opts))
	duration := time.Since(start)

	if err != nil {
		return "", classifyError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrResponse, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates returned", ErrResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	slog.Debug("Gemini response",
		"model", c.model,
		"duration", duration,
		"finish_reason", resp.Candidates[0].FinishReason,
		"response_length", text.Len())

	return strings.TrimSpace(text.String()), nil
}

// buildConfig maps Options onto the request; zero Options yield a plain request.
func buildConfig(opts Options) *genai.GenerateContentConfig {
	if opts == (Options{}) {
		return nil
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: opts.ResponseMIMEType,
	}

	if opts.BlockNone {
		for _, category := range safetyCategories {
			config.SafetySettings = append(config.SafetySettings, &genai.SafetySetting{
				Category:  category,
				Threshold: genai.HarmBlockThresholdBlockNone,
			})
		}
	}

	if opts.Timeout > 0 {
		timeout := opts.Timeout
		config.HTTPOptions = &genai.HTTPOptions{Timeout: &timeout}
	}

	return config
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusBadRequest && mentionsOption(apiErr.Message) {
			return fmt.Errorf("%w: %s", ErrUnsupportedOption, apiErr.Message)
		}
		return fmt.Errorf("%w: gemini error %d %s: %s", ErrGenerate, apiErr.Code, apiErr.Status, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", ErrGenerate, err)
}

func mentionsOption(message string) bool {
	message = strings.ToLower(message)
	for _, field := range optionFields {
		if strings.Contains(message, field) {
			return true
		}
	}
	return false
}

