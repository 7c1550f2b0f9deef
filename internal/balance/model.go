// Package balance computes per-account debit/credit aggregates from GL
// entries fetched out of ERPNext. The aggregation is a pure function of the
// fetched entry set: nothing is persisted and repeated calls over an
// unchanged ledger yield identical results.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/batasku/periodgate/internal/erpnext"
)

func init() {
	// Emit amounts as JSON numbers, matching the upstream API shape.
	decimal.MarshalJSONWithoutQuotes = true
}

// Root types as classified by ERPNext's chart of accounts.
const (
	RootTypeAsset     = "Asset"
	RootTypeLiability = "Liability"
	RootTypeEquity    = "Equity"
	RootTypeIncome    = "Income"
	RootTypeExpense   = "Expense"
)

// GLEntry is a single ledger posting. Debits and credits are summed
// independently; entries are never netted before aggregation.
type GLEntry struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// Account carries the metadata needed to classify a balance.
type Account struct {
	Name          string       `json:"name"`
	AccountName   string       `json:"account_name"`
	AccountType   string       `json:"account_type"`
	AccountNumber string       `json:"account_number"`
	RootType      string       `json:"root_type"`
	IsGroup       erpnext.Flag `json:"is_group"`
}

// AccountBalance is the derived, never-persisted aggregate for one account.
type AccountBalance struct {
	Account     string          `json:"account"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	RootType    string          `json:"root_type"`
	IsGroup     erpnext.Flag    `json:"is_group"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
	IsNominal   bool            `json:"is_nominal"`
}

// IsNominal reports whether a root type closes to retained earnings at
// period end.
func IsNominal(rootType string) bool {
	return rootType == RootTypeIncome || rootType == RootTypeExpense
}

// SignedBalance applies the root-type sign rule: Asset and Expense accounts
// carry debit balances, everything else carries credit balances.
func SignedBalance(rootType string, debit, credit decimal.Decimal) decimal.Decimal {
	if rootType == RootTypeAsset || rootType == RootTypeExpense {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}
