package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ModelClient sends one chunk of statement text to the external model and
// returns its raw reply. Implementations own timeout and retry policy; a
// returned error means the chunk failed terminally.
type ModelClient interface {
	Extract(ctx context.Context, chunkText string) (*ModelResponse, error)
}

// Options tune the windowing of oversized statements.
type Options struct {
	MaxChunkSize int
	ChunkOverlap int

	// OnChunkFailure, when non-nil, is called once for each chunk that fails
	// terminally.
	OnChunkFailure func()
}

// Pipeline turns raw statement text into one merged, validated Result.
type Pipeline struct {
	client ModelClient
	opts   Options
	log    zerolog.Logger
}

// NewPipeline wires a pipeline around the given model client. Zero option
// fields fall back to the defaults.
func NewPipeline(client ModelClient, opts Options, log zerolog.Logger) *Pipeline {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	return &Pipeline{client: client, opts: opts, log: log}
}

// Extract runs the full pipeline: preprocess, chunk, invoke the model once
// per chunk (sequentially; a chunk's call completes, retries included, before
// the next begins), parse each reply, and merge. Individual chunk failures
// are absorbed; the call fails only when every chunk failed.
func (p *Pipeline) Extract(ctx context.Context, text string) (*Result, error) {
	cleaned := CleanStatementText(text)
	if cleaned == "" {
		return nil, fmt.Errorf("extract: statement text is empty after preprocessing")
	}

	chunks := SplitChunks(cleaned, p.opts.MaxChunkSize, p.opts.ChunkOverlap)
	if len(chunks) > 1 {
		p.log.Info().
			Int("text_len", len(cleaned)).
			Int("chunks", len(chunks)).
			Msg("Statement too large for one call, processing in chunks")
	}

	outcomes := make([]ChunkOutcome, 0, len(chunks))
	for _, chunk := range chunks {
		outcome := p.processChunk(ctx, chunk)
		if outcome.Err != nil && p.opts.OnChunkFailure != nil {
			p.opts.OnChunkFailure()
		}
		outcomes = append(outcomes, outcome)
	}

	merged, err := Merge(outcomes)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	merged.Normalize()

	p.log.Info().
		Int("income", len(merged.Transactions.Income)).
		Int("expenses", len(merged.Transactions.Expenses)).
		Msg("Extraction complete")

	return merged, nil
}

// processChunk runs one model call plus response handling. Errors are folded
// into the outcome, never returned: the merge phase decides whether the whole
// request fails.
func (p *Pipeline) processChunk(ctx context.Context, chunk Chunk) ChunkOutcome {
	log := p.log.With().Int("chunk", chunk.Index).Logger()

	resp, err := p.client.Extract(ctx, chunk.Content)
	if err != nil {
		log.Error().Err(err).Msg("Model call failed")
		return ChunkOutcome{Index: chunk.Index, Err: err}
	}

	obj, err := ExtractJSON(resp.Text)
	if err != nil {
		log.Error().Err(err).Msg("Model reply was not parseable JSON")
		return ChunkOutcome{Index: chunk.Index, Err: err}
	}

	res, err := ResultFromModelOutput(obj)
	if err != nil {
		log.Error().Err(err).Msg("Model output failed coercion")
		return ChunkOutcome{Index: chunk.Index, Err: err}
	}

	if resp.Usage != nil {
		cost := NewCostRecord(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		res.Cost = &cost
	}

	log.Debug().
		Int("income", len(res.Transactions.Income)).
		Int("expenses", len(res.Transactions.Expenses)).
		Msg("Chunk processed")

	return ChunkOutcome{Index: chunk.Index, Result: res}
}
