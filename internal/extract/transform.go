package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ResultFromModelOutput coerces the generic JSON object recovered from a
// model reply into a typed Result. Unknown fields are ignored, missing
// optional fields are tolerated, and transactions that fail validation are
// dropped rather than failing the chunk.
func ResultFromModelOutput(obj map[string]interface{}) (*Result, error) {
	if obj == nil {
		return nil, fmt.Errorf("ResultFromModelOutput: nil model output")
	}

	res := &Result{
		Transactions: TransactionSet{
			Income:   []Transaction{},
			Expenses: []Transaction{},
		},
	}

	if detAny, ok := obj["account_details"]; ok {
		if det, ok := detAny.(map[string]interface{}); ok {
			res.AccountDetails = accountDetailsFromMap(det)
		}
	}

	if bal, err := getOptionalDecimalField(obj, "final_balance"); err == nil && bal != nil {
		res.FinalBalance = *bal
	}

	txAny, ok := obj["transactions"]
	if !ok {
		return res, nil
	}
	txObj, ok := txAny.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ResultFromModelOutput: 'transactions' is %T, want object", txAny)
	}

	res.Transactions.Income = transactionsFromList(txObj["income"])
	res.Transactions.Expenses = transactionsFromList(txObj["expenses"])

	return res, nil
}

func accountDetailsFromMap(m map[string]interface{}) AccountDetails {
	var d AccountDetails
	d.Name, _ = getStringField(m, "name", false)
	d.AccountNumber, _ = getStringField(m, "account_number", false)
	d.Currency, _ = getStringField(m, "currency", false)
	d.StatementPeriod, _ = getStringField(m, "statement_date", false)
	return d
}

func transactionsFromList(v interface{}) []Transaction {
	list, ok := v.([]interface{})
	if !ok {
		return []Transaction{}
	}

	txs := make([]Transaction, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tx, err := transactionFromMap(obj)
		if err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func transactionFromMap(m map[string]interface{}) (Transaction, error) {
	var tx Transaction
	var err error

	if tx.Date, err = getStringField(m, "date", true); err != nil {
		return tx, err
	}
	if tx.Description, err = getStringField(m, "description", true); err != nil {
		return tx, err
	}
	tx.Reference, _ = getStringField(m, "reference", false)

	amount, err := getOptionalDecimalField(m, "amount")
	if err != nil {
		return tx, err
	}
	if amount == nil || !amount.IsPositive() {
		return tx, fmt.Errorf("transaction amount must be a positive number")
	}
	tx.Amount = *amount

	return tx, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalDecimalField(m map[string]interface{}, key string) (*decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		d := decimal.NewFromFloat(val)
		return &d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("field %q is not a number: %w", key, err)
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
