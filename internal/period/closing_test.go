package period

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batasku/periodgate/internal/balance"
)

func testPeriod() AccountingPeriod {
	return AccountingPeriod{
		Name:       "Jan 2026 - BAC",
		PeriodName: "Jan 2026 - BAC",
		Company:    "Batasku Andalan Citra",
		StartDate:  "2026-01-01",
		EndDate:    "2026-01-31",
		Status:     string(StatusOpen),
	}
}

func TestBuildClosingJournalBalances(t *testing.T) {
	balances := []balance.AccountBalance{
		{Account: "Sales - BAC", RootType: balance.RootTypeIncome, Balance: dec("1500")},
		{Account: "Rent - BAC", RootType: balance.RootTypeExpense, Balance: dec("400")},
		{Account: "Wages - BAC", RootType: balance.RootTypeExpense, Balance: dec("350")},
	}
	journal := BuildClosingJournal(testPeriod(), "Retained Earnings - BAC", balances)
	require.NotNil(t, journal)
	assert.Equal(t, "2026-01-31", journal.PostingDate)
	assert.Equal(t, "Batasku Andalan Citra", journal.Company)
	require.Len(t, journal.Accounts, 4)

	var debits, credits decimal.Decimal
	for _, line := range journal.Accounts {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	assert.True(t, debits.Equal(credits), "journal must balance: debit %s credit %s", debits, credits)

	last := journal.Accounts[len(journal.Accounts)-1]
	assert.Equal(t, "Retained Earnings - BAC", last.Account)
	assert.True(t, last.Credit.Equal(dec("750")))
}

func TestBuildClosingJournalNetLoss(t *testing.T) {
	balances := []balance.AccountBalance{
		{Account: "Sales - BAC", RootType: balance.RootTypeIncome, Balance: dec("200")},
		{Account: "Rent - BAC", RootType: balance.RootTypeExpense, Balance: dec("900")},
	}
	journal := BuildClosingJournal(testPeriod(), "Retained Earnings - BAC", balances)
	require.NotNil(t, journal)

	last := journal.Accounts[len(journal.Accounts)-1]
	assert.Equal(t, "Retained Earnings - BAC", last.Account)
	assert.True(t, last.Debit.Equal(dec("700")))
	assert.True(t, last.Credit.IsZero())
}

func TestBuildClosingJournalFlipsNegativeBalances(t *testing.T) {
	// A debit-side income balance (e.g. sales returns exceeding sales) is
	// credited back instead of producing a negative debit.
	balances := []balance.AccountBalance{
		{Account: "Sales - BAC", RootType: balance.RootTypeIncome, Balance: dec("-250")},
	}
	journal := BuildClosingJournal(testPeriod(), "Retained Earnings - BAC", balances)
	require.NotNil(t, journal)
	require.Len(t, journal.Accounts, 2)

	assert.True(t, journal.Accounts[0].Credit.Equal(dec("250")))
	assert.True(t, journal.Accounts[0].Debit.IsZero())
	assert.True(t, journal.Accounts[1].Debit.Equal(dec("250")))
}

func TestBuildClosingJournalNothingToClose(t *testing.T) {
	assert.Nil(t, BuildClosingJournal(testPeriod(), "Retained Earnings - BAC", nil))
	assert.Nil(t, BuildClosingJournal(testPeriod(), "Retained Earnings - BAC", []balance.AccountBalance{}))
}
