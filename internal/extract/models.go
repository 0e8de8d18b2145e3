package extract

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountDetails holds the account header information reported by the model.
// All fields are optional; Normalize fills absent fields with "Unknown".
type AccountDetails struct {
	Name            string `json:"name"`
	AccountNumber   string `json:"account_number"`
	Currency        string `json:"currency"`
	StatementPeriod string `json:"statement_date"`
}

// Transaction is one statement entry. Amount is always positive; whether the
// money moved in or out is carried by which list the transaction sits in.
type Transaction struct {
	Date        string          `json:"date"` // DDMMMYYYY, e.g. "15JUN2025"
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
}

// TransactionSet splits transactions by direction.
type TransactionSet struct {
	Income   []Transaction `json:"income"`
	Expenses []Transaction `json:"expenses"`
}

// CostRecord is the monetary estimate for one or more model calls. Records
// are never mutated after creation; aggregation builds a new record.
type CostRecord struct {
	InputTokens     int64           `json:"input_tokens"`
	OutputTokens    int64           `json:"output_tokens"`
	InputCostUSD    decimal.Decimal `json:"input_cost_usd"`
	OutputCostUSD   decimal.Decimal `json:"output_cost_usd"`
	TotalCostUSD    decimal.Decimal `json:"total_cost_usd"`
	ChunksProcessed int             `json:"chunks_processed,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Result is the structured output of an extraction. It is produced per chunk
// and, with the same shape, as the merged whole-statement output.
type Result struct {
	AccountDetails AccountDetails  `json:"account_details"`
	FinalBalance   decimal.Decimal `json:"final_balance"`
	Transactions   TransactionSet  `json:"transactions"`
	Cost           *CostRecord     `json:"cost,omitempty"`
}

// Usage carries token counts reported by the model service. Absence of usage
// data is tolerated; cost is then simply omitted.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ModelResponse is the raw outcome of one model invocation.
type ModelResponse struct {
	Text  string
	Usage *Usage
}
