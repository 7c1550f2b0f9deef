package period

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/batasku/periodgate/internal/balance"
)

// JournalEntry is the subset of the upstream Journal Entry document the
// closing flow writes.
type JournalEntry struct {
	Doctype     string                `json:"doctype"`
	Name        string                `json:"name,omitempty"`
	VoucherType string                `json:"voucher_type"`
	Company     string                `json:"company"`
	PostingDate string                `json:"posting_date"`
	UserRemark  string                `json:"user_remark,omitempty"`
	Accounts    []JournalEntryAccount `json:"accounts"`
}

// JournalEntryAccount is one journal line. Amounts serialize as JSON
// numbers.
type JournalEntryAccount struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit_in_account_currency"`
	Credit  decimal.Decimal `json:"credit_in_account_currency"`
}

// ClosingPreview is a dry run of the close: the journal lines a close would
// post right now, with the income and expense totals behind them. Nothing
// is written upstream.
type ClosingPreview struct {
	Period                  AccountingPeriod      `json:"period"`
	JournalAccounts         []JournalEntryAccount `json:"journal_accounts"`
	TotalIncome             decimal.Decimal       `json:"total_income"`
	TotalExpense            decimal.Decimal       `json:"total_expense"`
	NetIncome               decimal.Decimal       `json:"net_income"`
	RetainedEarningsAccount string                `json:"retained_earnings_account"`
}

// BuildClosingJournal constructs the journal that zeroes every nominal
// balance and sweeps the net income into retained earnings. Income balances
// are debited, expense balances credited; the retained earnings line takes
// whichever side balances the entry. Returns nil when there is nothing to
// close.
//
// Balances must come from the nominal aggregation: leaf Income/Expense
// accounts with non-zero cumulative balances, stock accounts excluded.
func BuildClosingJournal(p AccountingPeriod, retainedEarnings string, balances []balance.AccountBalance) *JournalEntry {
	if len(balances) == 0 {
		return nil
	}
	lines := make([]JournalEntryAccount, 0, len(balances)+1)
	for _, b := range balances {
		line := JournalEntryAccount{Account: b.Account}
		switch b.RootType {
		case balance.RootTypeIncome:
			// Credit-positive balance is debited away; a debit-side
			// income balance flips to a credit line.
			if b.Balance.IsNegative() {
				line.Credit = b.Balance.Neg()
			} else {
				line.Debit = b.Balance
			}
		case balance.RootTypeExpense:
			if b.Balance.IsNegative() {
				line.Debit = b.Balance.Neg()
			} else {
				line.Credit = b.Balance
			}
		default:
			continue
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}

	net := balance.NetIncome(balances)
	switch {
	case net.IsPositive():
		lines = append(lines, JournalEntryAccount{Account: retainedEarnings, Credit: net})
	case net.IsNegative():
		lines = append(lines, JournalEntryAccount{Account: retainedEarnings, Debit: net.Neg()})
	}

	return &JournalEntry{
		Doctype:     "Journal Entry",
		VoucherType: "Journal Entry",
		Company:     p.Company,
		PostingDate: p.EndDate,
		UserRemark:  fmt.Sprintf("Closing entry for accounting period %s", p.PeriodName),
		Accounts:    lines,
	}
}
