// Package gemini provides an alternative model client backed by the Google
// GenAI API, selected with MODEL_PROVIDER=gemini.
package gemini

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// DefaultModel is the extraction model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Config carries the tunables for a Client. APIKey may be empty when the
// environment provides credentials (GOOGLE_API_KEY or ADC).
type Config struct {
	APIKey string
	Model  string
}

// Client implements extract.ModelClient on top of the GenAI SDK. Retries are
// left to the SDK; the pipeline treats a failed chunk as a partial failure
// either way.
type Client struct {
	cfg    Config
	client *genai.Client
	log    zerolog.Logger
}

var _ extract.ModelClient = (*Client)(nil)

// NewClient builds the underlying GenAI client eagerly so credential
// problems surface at startup rather than on the first chunk.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini.NewClient: %w", err)
	}

	return &Client{cfg: cfg, client: client, log: log}, nil
}

// Extract sends one chunk to the model with deterministic generation settings
// and returns the raw text plus token usage when the API reports it.
func (c *Client) Extract(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extract.BuildPrompt(chunkText)},
			},
		},
	}

	temperature := float32(0)
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response from model")
	}

	var usage *extract.Usage
	if meta := resp.UsageMetadata; meta != nil {
		usage = &extract.Usage{
			InputTokens:  int64(meta.PromptTokenCount),
			OutputTokens: int64(meta.CandidatesTokenCount),
		}
	}

	return &extract.ModelResponse{Text: text, Usage: usage}, nil
}
