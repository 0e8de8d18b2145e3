package ledgerstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

const (
	statementsTable     = "statements"
	extractionRunsTable = "extraction_runs"
	transactionsTable   = "transactions"
)

// Repository is the persistence surface the API and worker depend on.
type Repository interface {
	// InsertStatement records an uploaded statement.
	InsertStatement(ctx context.Context, row *StatementRow) error

	// StartExtractionRun inserts a run with status=RUNNING and returns its id.
	StartExtractionRun(ctx context.Context, statementID, modelName string) (string, error)

	// MarkExtractionRunFailed sets status=FAILED with the error message. It
	// logs failures instead of returning them; the run row is bookkeeping and
	// must not mask the original extraction error.
	MarkExtractionRunFailed(ctx context.Context, runID string, runErr error)

	// MarkExtractionRunSucceeded sets status=SUCCESS and records token usage
	// from the merged result's cost record, if any.
	MarkExtractionRunSucceeded(ctx context.Context, runID string, cost *extract.CostRecord) error

	// InsertTransactions inserts a batch of transaction rows.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
}

// BigQueryRepository implements Repository against one dataset.
type BigQueryRepository struct {
	client  *bigquery.Client
	dataset string
	log     zerolog.Logger
}

var _ Repository = (*BigQueryRepository)(nil)

// New creates a repository with its own BigQuery client. Extra client options
// allow pointing at an emulator endpoint in development.
func New(ctx context.Context, projectID, dataset string, log zerolog.Logger, opts ...option.ClientOption) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("ledgerstore.New: bigquery client: %w", err)
	}
	return &BigQueryRepository{client: client, dataset: dataset, log: log}, nil
}

func (r *BigQueryRepository) Close() error {
	return r.client.Close()
}

func (r *BigQueryRepository) InsertStatement(ctx context.Context, row *StatementRow) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			statement_id,
			gcs_uri,
			original_filename,
			checksum_sha256,
			account_name,
			account_number,
			currency,
			statement_period,
			upload_ts
		)
		VALUES (
			@statement_id,
			@gcs_uri,
			@original_filename,
			@checksum_sha256,
			@account_name,
			@account_number,
			@currency,
			@statement_period,
			@upload_ts
		)
	`, r.dataset, statementsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: row.StatementID},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "checksum_sha256", Value: row.ChecksumSHA256},
		{Name: "account_name", Value: row.AccountName.StringVal},
		{Name: "account_number", Value: row.AccountNumber.StringVal},
		{Name: "currency", Value: row.Currency.StringVal},
		{Name: "statement_period", Value: row.StatementPeriod.StringVal},
		{Name: "upload_ts", Value: row.UploadTS},
	}

	if err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("ledgerstore.InsertStatement: %w", err)
	}
	return nil
}

func (r *BigQueryRepository) StartExtractionRun(ctx context.Context, statementID, modelName string) (string, error) {
	runID := uuid.NewString()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			statement_id,
			started_ts,
			model_name,
			status
		)
		VALUES (
			@run_id,
			@statement_id,
			@started_ts,
			@model_name,
			@status
		)
	`, r.dataset, extractionRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "statement_id", Value: statementID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "model_name", Value: modelName},
		{Name: "status", Value: StatusRunning},
	}

	if err := r.runDML(ctx, q); err != nil {
		return "", fmt.Errorf("ledgerstore.StartExtractionRun: %w", err)
	}
	return runID, nil
}

func (r *BigQueryRepository) MarkExtractionRunFailed(ctx context.Context, runID string, runErr error) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.dataset, extractionRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := r.runDML(ctx, q); err != nil {
		r.log.Error().Err(err).Str("run_id", runID).Msg("Failed to mark extraction run as failed")
	}
}

func (r *BigQueryRepository) MarkExtractionRunSucceeded(ctx context.Context, runID string, cost *extract.CostRecord) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    tokens_input = @tokens_input,
		    tokens_output = @tokens_output,
		    chunks_processed = @chunks_processed,
		    cost_usd = @cost_usd
		WHERE run_id = @run_id
	`, r.dataset, extractionRunsTable))

	var tokensIn, tokensOut, chunks int64
	costUSD := "0"
	if cost != nil {
		tokensIn = cost.InputTokens
		tokensOut = cost.OutputTokens
		chunks = int64(cost.ChunksProcessed)
		costUSD = cost.TotalCostUSD.String()
	}

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "tokens_input", Value: tokensIn},
		{Name: "tokens_output", Value: tokensOut},
		{Name: "chunks_processed", Value: chunks},
		{Name: "cost_usd", Value: costUSD},
		{Name: "run_id", Value: runID},
	}

	if err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("ledgerstore.MarkExtractionRunSucceeded: %w", err)
	}
	return nil
}

func (r *BigQueryRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.Dataset(r.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("ledgerstore.InsertTransactions: %w", err)
	}
	return nil
}

func (r *BigQueryRepository) runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
