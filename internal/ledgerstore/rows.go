// Package ledgerstore persists statements, extraction runs and transactions
// in BigQuery.
package ledgerstore

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Transaction directions.
const (
	DirectionIncome  = "INCOME"
	DirectionExpense = "EXPENSE"
)

// StatementRow represents an uploaded statement in the statements table.
type StatementRow struct {
	StatementID      string `bigquery:"statement_id"`
	GCSURI           string `bigquery:"gcs_uri"`
	OriginalFilename string `bigquery:"original_filename"`
	ChecksumSHA256   string `bigquery:"checksum_sha256"`

	AccountName     bigquery.NullString `bigquery:"account_name"`
	AccountNumber   bigquery.NullString `bigquery:"account_number"`
	Currency        bigquery.NullString `bigquery:"currency"`
	StatementPeriod bigquery.NullString `bigquery:"statement_period"`

	UploadTS time.Time `bigquery:"upload_ts"`
}

// TransactionRow represents one extracted transaction.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"`
	StatementID   string `bigquery:"statement_id"`
	RunID         string `bigquery:"run_id"`

	TransactionDate civil.Date `bigquery:"transaction_date"`
	Direction       string     `bigquery:"direction"`
	Description     string     `bigquery:"description"`
	Amount          *big.Rat   `bigquery:"amount"`
	Currency        string     `bigquery:"currency"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// TransactionRowsFromResult flattens a merged extraction result into rows,
// folding direction into the direction column and keeping amounts positive.
func TransactionRowsFromResult(statementID, runID string, result *extract.Result) []*TransactionRow {
	now := time.Now().UTC()
	currency := result.AccountDetails.Currency

	rows := make([]*TransactionRow, 0, len(result.Transactions.Income)+len(result.Transactions.Expenses))
	appendRows := func(txs []extract.Transaction, direction string) {
		for _, tx := range txs {
			rows = append(rows, &TransactionRow{
				TransactionID:   uuid.NewString(),
				StatementID:     statementID,
				RunID:           runID,
				TransactionDate: civil.DateOf(extract.ParseStatementDate(tx.Date)),
				Direction:       direction,
				Description:     tx.Description,
				Amount:          tx.Amount.Rat(),
				Currency:        currency,
				CreatedTS:       now,
			})
		}
	}
	appendRows(result.Transactions.Income, DirectionIncome)
	appendRows(result.Transactions.Expenses, DirectionExpense)
	return rows
}
