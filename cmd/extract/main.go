// Command extract runs the statement extraction pipeline over a local PDF and
// writes the result to stdout or a file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/anthropic"
	"github.com/dvloznov/statement-ledger/internal/config"
	"github.com/dvloznov/statement-ledger/internal/export"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/gemini"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pdftext"
)

func main() {
	var (
		pdfPath  = flag.String("pdf", "", "path to the statement PDF (or pass it as the first argument)")
		password = flag.String("password", "", "password for encrypted PDFs")
		format   = flag.String("format", "json", "output format: json, csv or summary")
		outPath  = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()
	log := logger.New()

	path := *pdfPath
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		log.Fatal().Msg("No PDF given; use -pdf or pass a path argument")
	}

	ctx := context.Background()

	client, err := buildModelClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	pipeline := extract.NewPipeline(client, extract.Options{
		MaxChunkSize: cfg.MaxChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, log)

	text, err := pdftext.Extract(path, *password)
	if err != nil {
		log.Fatal().Err(err).Str("pdf", path).Msg("Failed to read PDF")
	}

	result, err := pipeline.Extract(ctx, text)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *outPath).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	switch *format {
	case "csv":
		err = export.WriteTransactions(out, result)
	case "summary":
		err = export.WriteAccountSummary(out, result)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func buildModelClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (extract.ModelClient, error) {
	if cfg.ModelProvider == "gemini" {
		return gemini.NewClient(ctx, gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.Model,
		}, log)
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:         cfg.AnthropicAPIKey,
		Model:          cfg.Model,
		BaseURL:        cfg.AnthropicBaseURL,
		MaxTokens:      cfg.MaxTokens,
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.BaseDelay,
		MaxDelay:       cfg.MaxDelay,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
	}, log), nil
}
