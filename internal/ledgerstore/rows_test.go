package ledgerstore

import (
	"math/big"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

func TestTransactionRowsFromResult(t *testing.T) {
	result := &extract.Result{
		AccountDetails: extract.AccountDetails{Currency: "GBP"},
		Transactions: extract.TransactionSet{
			Income: []extract.Transaction{
				{Date: "02JUN2025", Description: "SALARY", Amount: decimal.RequireFromString("1500.00")},
			},
			Expenses: []extract.Transaction{
				{Date: "05JUN2025", Description: "RENT", Amount: decimal.RequireFromString("900.00")},
			},
		},
	}

	rows := TransactionRowsFromResult("stmt-1", "run-1", result)
	require.Len(t, rows, 2)

	income := rows[0]
	assert.Equal(t, "stmt-1", income.StatementID)
	assert.Equal(t, "run-1", income.RunID)
	assert.Equal(t, DirectionIncome, income.Direction)
	assert.Equal(t, civil.Date{Year: 2025, Month: 6, Day: 2}, income.TransactionDate)
	assert.Equal(t, "GBP", income.Currency)
	assert.Zero(t, income.Amount.Cmp(big.NewRat(1500, 1)))
	assert.NotEmpty(t, income.TransactionID)

	expense := rows[1]
	assert.Equal(t, DirectionExpense, expense.Direction)
	assert.Equal(t, "RENT", expense.Description)
	assert.Zero(t, expense.Amount.Cmp(big.NewRat(900, 1)))

	// Transaction ids must be unique.
	assert.NotEqual(t, income.TransactionID, expense.TransactionID)
}

func TestTransactionRowsFromResult_Empty(t *testing.T) {
	rows := TransactionRowsFromResult("stmt-1", "run-1", &extract.Result{})
	assert.Empty(t, rows)
}
