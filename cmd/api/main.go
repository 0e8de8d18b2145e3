package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-ledger/internal/anthropic"
	"github.com/dvloznov/statement-ledger/internal/api"
	"github.com/dvloznov/statement-ledger/internal/api/handlers"
	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/auth"
	"github.com/dvloznov/statement-ledger/internal/config"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/gemini"
	"github.com/dvloznov/statement-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/statement-ledger/internal/ledgerstore"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/metrics"
	"github.com/dvloznov/statement-ledger/internal/pdftext"
	"github.com/dvloznov/statement-ledger/internal/worker"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	log := logger.New()
	ctx := context.Background()

	m := metrics.New()

	client, modelName, err := buildModelClient(ctx, cfg, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	pipeline := extract.NewPipeline(client, extract.Options{
		MaxChunkSize:   cfg.MaxChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		OnChunkFailure: m.IncrChunkFailure,
	}, log)

	var archiveStore archive.Store
	if cfg.GCSBucket != "" {
		gcs, err := archive.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create statement archive")
		}
		defer gcs.Close()
		archiveStore = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured - async statement uploads will be disabled")
	}

	var repo ledgerstore.Repository
	if cfg.BigQueryProject != "" {
		var opts []option.ClientOption
		if cfg.BigQueryAPIEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.BigQueryAPIEndpoint))
		}
		bq, err := ledgerstore.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, log, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create ledger store")
		}
		defer bq.Close()
		repo = bq
	} else {
		log.Warn().Msg("No BigQuery project configured - extraction results will not be persisted")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 0, jobStore)

	wrk := worker.New(pipeline, pdftext.Extract, archiveStore, repo, m, modelName, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, wrk.Handle); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	statementsHandler := handlers.NewStatementsHandler(
		pipeline, pdftext.Extract, archiveStore, repo, jobQueue, m, cfg.MaxUploadBytes, log,
	)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	var authMW func(http.Handler) http.Handler
	if cfg.AuthEnabled {
		if cfg.JWKSURL == "" {
			log.Fatal().Msg("AUTH_ENABLED is set but JWKS_URL is empty")
		}
		keys := auth.NewKeyCache(cfg.JWKSURL, cfg.JWKSCacheTTL, nil)
		authMW = auth.Middleware(auth.NewValidator(keys, cfg.JWTIssuer, cfg.JWTAudience))
	}

	handler := api.NewRouter(api.RouterConfig{
		Statements: statementsHandler,
		Jobs:       jobsHandler,
		Metrics:    m,
		Auth:       authMW,
		Log:        log,
	})

	server := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.Port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Synchronous extraction holds the connection for the whole model
		// round trip, chunk by chunk.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("model", modelName).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// buildModelClient selects the extraction backend from configuration.
func buildModelClient(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (extract.ModelClient, string, error) {
	switch cfg.ModelProvider {
	case "gemini":
		model := cfg.Model
		if model == "" {
			model = gemini.DefaultModel
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  model,
		}, log)
		return client, model, err
	default:
		model := cfg.Model
		if model == "" {
			model = anthropic.DefaultModel
		}
		client := anthropic.NewClient(anthropic.Config{
			APIKey:         cfg.AnthropicAPIKey,
			Model:          model,
			BaseURL:        cfg.AnthropicBaseURL,
			MaxTokens:      cfg.MaxTokens,
			MaxRetries:     cfg.MaxRetries,
			BaseDelay:      cfg.BaseDelay,
			MaxDelay:       cfg.MaxDelay,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			OnRetry:        m.IncrModelRetry,
		}, log)
		return client, model, nil
	}
}
