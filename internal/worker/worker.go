// Package worker processes queued statement extraction jobs: it pulls the
// archived PDF, runs the extraction pipeline, and persists the outcome.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/ledgerstore"
	"github.com/dvloznov/statement-ledger/internal/metrics"
)

// Extractor runs the extraction pipeline over raw statement text.
type Extractor interface {
	Extract(ctx context.Context, text string) (*extract.Result, error)
}

// TextReader pulls plain text out of a PDF on disk.
type TextReader func(path, password string) (string, error)

// Worker handles extract-statement jobs from the queue.
type Worker struct {
	extractor Extractor
	readText  TextReader
	archive   archive.Store
	repo      ledgerstore.Repository // nil disables persistence
	metrics   *metrics.Metrics
	modelName string
	log       zerolog.Logger
}

// New creates a worker. repo may be nil; extraction runs and transactions are
// then not persisted, but the job still carries the result.
func New(
	extractor Extractor,
	readText TextReader,
	store archive.Store,
	repo ledgerstore.Repository,
	m *metrics.Metrics,
	modelName string,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		extractor: extractor,
		readText:  readText,
		archive:   store,
		repo:      repo,
		metrics:   m,
		modelName: modelName,
		log:       log,
	}
}

// Handle implements jobs.JobHandler. A returned error marks the job failed;
// the queue owns retry bookkeeping.
func (w *Worker) Handle(ctx context.Context, job jobs.Job) error {
	ej, ok := job.(*jobs.ExtractStatementJob)
	if !ok {
		return fmt.Errorf("worker: unexpected job type %T", job)
	}

	log := w.log.With().
		Str("job_id", ej.JobID).
		Str("statement_id", ej.StatementID).
		Logger()
	start := time.Now()

	pdf, err := w.archive.Fetch(ctx, ej.GCSURI)
	if err != nil {
		return fmt.Errorf("worker: fetch statement: %w", err)
	}

	path, cleanup, err := spoolToTemp(pdf)
	if err != nil {
		return fmt.Errorf("worker: spool statement: %w", err)
	}
	defer cleanup()

	text, err := w.readText(path, ej.Password)
	if err != nil {
		return fmt.Errorf("worker: read statement text: %w", err)
	}

	var runID string
	if w.repo != nil {
		runID, err = w.repo.StartExtractionRun(ctx, ej.StatementID, w.modelName)
		if err != nil {
			// Run bookkeeping must not block the extraction itself.
			log.Error().Err(err).Msg("Failed to start extraction run")
			runID = ""
		}
		ej.RunID = runID
	}

	result, err := w.extractor.Extract(ctx, text)
	if err != nil {
		if w.repo != nil && runID != "" {
			w.repo.MarkExtractionRunFailed(ctx, runID, err)
		}
		w.metrics.IncrStatement("error")
		return fmt.Errorf("worker: extraction failed: %w", err)
	}

	ej.Result = result

	if w.repo != nil && runID != "" {
		if err := w.repo.MarkExtractionRunSucceeded(ctx, runID, result.Cost); err != nil {
			log.Error().Err(err).Msg("Failed to record extraction run outcome")
		}
		rows := ledgerstore.TransactionRowsFromResult(ej.StatementID, runID, result)
		if err := w.repo.InsertTransactions(ctx, rows); err != nil {
			log.Error().Err(err).Int("rows", len(rows)).Msg("Failed to insert transactions")
		}
	}

	if _, err := w.archive.PutResult(ctx, ej.StatementID, result); err != nil {
		log.Warn().Err(err).Msg("Failed to archive extraction result")
	}

	w.metrics.IncrStatement("success")
	if result.Cost != nil {
		w.metrics.RecordTokens(result.Cost.InputTokens, result.Cost.OutputTokens)
	}
	w.metrics.RecordExtractionDuration(time.Since(start))

	log.Info().
		Int("income", len(result.Transactions.Income)).
		Int("expenses", len(result.Transactions.Expenses)).
		Dur("duration", time.Since(start)).
		Msg("Extraction job completed")

	return nil
}

func spoolToTemp(pdf []byte) (string, func(), error) {
	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
