package extract

import (
	"fmt"
	"strings"
)

// ChunkOutcome is the result of processing one chunk: either a Result or an
// error, never both. Index is the original chunk index.
type ChunkOutcome struct {
	Index  int
	Result *Result
	Err    error
}

// Merge folds per-chunk outcomes, in chunk order, into one Result:
//
//   - income/expense transactions are concatenated then deduplicated on
//     (date, normalized description, amount), keeping the first occurrence;
//   - account details come from the first chunk that produced any (first-wins,
//     later chunks never overwrite);
//   - the final balance is the largest balance reported by any chunk. This is
//     a heuristic, not a verified property of real statements: the closing
//     balance accumulates, so the largest reported value is assumed to be it;
//   - costs are summed, with ChunksProcessed set to the successful chunk count.
//
// Failed chunks contribute nothing and do not abort the merge unless every
// chunk failed, in which case a single terminal error wrapping the last
// failure is returned.
func Merge(outcomes []ChunkOutcome) (*Result, error) {
	merged := &Result{
		Transactions: TransactionSet{
			Income:   []Transaction{},
			Expenses: []Transaction{},
		},
	}

	var (
		succeeded   int
		lastErr     error
		haveDetails bool
		totalCost   CostRecord
		haveCost    bool
	)

	for _, oc := range outcomes {
		if oc.Err != nil || oc.Result == nil {
			if oc.Err != nil {
				lastErr = oc.Err
			}
			continue
		}
		succeeded++
		res := oc.Result

		merged.Transactions.Income = append(merged.Transactions.Income, res.Transactions.Income...)
		merged.Transactions.Expenses = append(merged.Transactions.Expenses, res.Transactions.Expenses...)

		if !haveDetails && res.AccountDetails != (AccountDetails{}) {
			merged.AccountDetails = res.AccountDetails
			haveDetails = true
		}

		if res.FinalBalance.GreaterThan(merged.FinalBalance) {
			merged.FinalBalance = res.FinalBalance
		}

		if res.Cost != nil {
			if !haveCost {
				totalCost = *res.Cost
				haveCost = true
			} else {
				totalCost = sumCosts(totalCost, *res.Cost)
			}
		}
	}

	if succeeded == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("all %d chunks failed: %w", len(outcomes), lastErr)
		}
		return nil, fmt.Errorf("all %d chunks failed", len(outcomes))
	}

	merged.Transactions.Income = dedupTransactions(merged.Transactions.Income)
	merged.Transactions.Expenses = dedupTransactions(merged.Transactions.Expenses)

	if haveCost && totalCost.TotalCostUSD.IsPositive() {
		totalCost.ChunksProcessed = succeeded
		merged.Cost = &totalCost
	}

	return merged, nil
}

// dedupTransactions drops entries whose (date, normalized description,
// amount) key was already seen, preserving order so the earliest chunk's
// details win on duplicates. Amounts are compared at two decimal places so
// differently scaled renderings of the same currency value collapse.
func dedupTransactions(txs []Transaction) []Transaction {
	seen := make(map[string]struct{}, len(txs))
	out := make([]Transaction, 0, len(txs))

	for _, tx := range txs {
		key := tx.Date + "|" + strings.ToLower(strings.TrimSpace(tx.Description)) + "|" + tx.Amount.StringFixed(2)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tx)
	}

	return out
}
