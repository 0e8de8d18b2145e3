package extract

// UnknownValue is substituted for absent account-detail fields.
const UnknownValue = "Unknown"

// Normalize fills absent account-detail fields with "Unknown" and guarantees
// non-nil transaction lists, so downstream renderers always see a well-formed
// instance. Applied once, after merging.
func (r *Result) Normalize() {
	if r.AccountDetails.Name == "" {
		r.AccountDetails.Name = UnknownValue
	}
	if r.AccountDetails.AccountNumber == "" {
		r.AccountDetails.AccountNumber = UnknownValue
	}
	if r.AccountDetails.Currency == "" {
		r.AccountDetails.Currency = UnknownValue
	}
	if r.AccountDetails.StatementPeriod == "" {
		r.AccountDetails.StatementPeriod = UnknownValue
	}
	if r.Transactions.Income == nil {
		r.Transactions.Income = []Transaction{}
	}
	if r.Transactions.Expenses == nil {
		r.Transactions.Expenses = []Transaction{}
	}
}
