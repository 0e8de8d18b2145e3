// Package export renders extraction results as CSV for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

var transactionHeaders = []string{"Date", "Type", "Description", "Amount", "Running_Balance"}

// signedTransaction is a transaction with direction folded into the sign of
// the amount, used to compute running balances across both lists.
type signedTransaction struct {
	date        string
	kind        string
	description string
	amount      decimal.Decimal
}

// WriteTransactions writes all transactions as CSV rows ordered by date,
// with a running balance derived backwards from the final balance.
func WriteTransactions(w io.Writer, r *extract.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeaders); err != nil {
		return fmt.Errorf("export.WriteTransactions: %w", err)
	}

	all := make([]signedTransaction, 0, len(r.Transactions.Income)+len(r.Transactions.Expenses))
	for _, tx := range r.Transactions.Income {
		all = append(all, signedTransaction{tx.Date, "Income", tx.Description, tx.Amount})
	}
	for _, tx := range r.Transactions.Expenses {
		all = append(all, signedTransaction{tx.Date, "Expense", tx.Description, tx.Amount.Neg()})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return extract.ParseStatementDate(all[i].date).Before(extract.ParseStatementDate(all[j].date))
	})

	// Work backwards from the final balance so the last row lines up with it.
	net := decimal.Zero
	for _, tx := range all {
		net = net.Add(tx.amount)
	}
	balance := r.FinalBalance.Sub(net)

	for _, tx := range all {
		balance = balance.Add(tx.amount)
		row := []string{
			tx.date,
			tx.kind,
			tx.description,
			tx.amount.Abs().StringFixed(2),
			balance.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export.WriteTransactions: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAccountSummary writes a two-column Metric,Value summary of the result.
func WriteAccountSummary(w io.Writer, r *extract.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Metric", "Value"}); err != nil {
		return fmt.Errorf("export.WriteAccountSummary: %w", err)
	}

	totalIncome := sumAmounts(r.Transactions.Income)
	totalExpenses := sumAmounts(r.Transactions.Expenses)

	rows := [][]string{
		{"Account Holder", r.AccountDetails.Name},
		{"Account Number", r.AccountDetails.AccountNumber},
		{"Currency", r.AccountDetails.Currency},
		{"Statement Period", r.AccountDetails.StatementPeriod},
		{"Total Income", totalIncome.StringFixed(2)},
		{"Total Expenses", totalExpenses.StringFixed(2)},
		{"Net Amount", totalIncome.Sub(totalExpenses).StringFixed(2)},
		{"Final Balance", r.FinalBalance.StringFixed(2)},
		{"Number of Income Transactions", strconv.Itoa(len(r.Transactions.Income))},
		{"Number of Expense Transactions", strconv.Itoa(len(r.Transactions.Expenses))},
		{"Export Date", time.Now().UTC().Format("2006-01-02 15:04:05")},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export.WriteAccountSummary: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func sumAmounts(txs []extract.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
