package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

func sampleResult() *extract.Result {
	return &extract.Result{
		AccountDetails: extract.AccountDetails{
			Name:            "John Smith",
			AccountNumber:   "12345678",
			Currency:        "GBP",
			StatementPeriod: "01JUN2025 - 30JUN2025",
		},
		FinalBalance: decimal.RequireFromString("150.00"),
		Transactions: extract.TransactionSet{
			Income: []extract.Transaction{
				{Date: "02JUN2025", Description: "SALARY", Amount: decimal.RequireFromString("200.00")},
			},
			Expenses: []extract.Transaction{
				{Date: "05JUN2025", Description: "GROCERIES", Amount: decimal.RequireFromString("50.00")},
				{Date: "01JUN2025", Description: "COFFEE", Amount: decimal.RequireFromString("3.50")},
			},
		},
	}
}

func TestWriteTransactions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"Date", "Type", "Description", "Amount", "Running_Balance"}, rows[0])

	// Sorted by date: 01JUN coffee, 02JUN salary, 05JUN groceries.
	assert.Equal(t, "COFFEE", rows[1][2])
	assert.Equal(t, "SALARY", rows[2][2])
	assert.Equal(t, "GROCERIES", rows[3][2])

	// Amounts are always positive; direction lives in the Type column.
	assert.Equal(t, "Expense", rows[1][1])
	assert.Equal(t, "3.50", rows[1][3])
	assert.Equal(t, "Income", rows[2][1])

	// The last running balance must equal the final balance.
	assert.Equal(t, "150.00", rows[3][4])
}

func TestWriteTransactions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, &extract.Result{}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1) // header only
}

func TestWriteAccountSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAccountSummary(&buf, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	byMetric := make(map[string]string)
	for _, row := range rows[1:] {
		byMetric[row[0]] = row[1]
	}

	assert.Equal(t, "John Smith", byMetric["Account Holder"])
	assert.Equal(t, "200.00", byMetric["Total Income"])
	assert.Equal(t, "53.50", byMetric["Total Expenses"])
	assert.Equal(t, "146.50", byMetric["Net Amount"])
	assert.Equal(t, "150.00", byMetric["Final Balance"])
	assert.Equal(t, "1", byMetric["Number of Income Transactions"])
	assert.Equal(t, "2", byMetric["Number of Expense Transactions"])
}
