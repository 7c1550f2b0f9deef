package balance

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/batasku/periodgate/internal/erpnext"
)

// glPageLength matches the upstream fetch-everything behavior; ERPNext caps
// responses server-side.
const glPageLength = 999999

// stockKeywords guards nominal closing against stock valuation accounts
// that are misclassified in the chart of accounts.
var stockKeywords = []string{"stock", "inventory", "persediaan", "barang"}

type lister interface {
	GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error
}

// Aggregator derives account balances for a company from upstream GL
// entries and account metadata.
type Aggregator struct {
	client lister
}

// NewAggregator constructs an Aggregator over the given ERPNext client.
func NewAggregator(client lister) *Aggregator {
	return &Aggregator{client: client}
}

// Range scopes the ledger fetch. Cumulative mode leaves Start empty and
// takes every posting up to End; period-only mode bounds both sides.
type Range struct {
	Company string
	Start   string
	End     string
}

type totals struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

// Balances aggregates all accounts with at least one ledger entry in the
// range. Cancelled entries are excluded; accounts with no entries are
// omitted, not zero-filled.
func (a *Aggregator) Balances(ctx context.Context, r Range) ([]AccountBalance, error) {
	grouped, err := a.fetchGrouped(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(grouped) == 0 {
		return []AccountBalance{}, nil
	}
	accounts, err := a.fetchAccounts(ctx, keysOf(grouped), erpnext.Filters{}.Eq("company", r.Company))
	if err != nil {
		return nil, err
	}
	return assemble(grouped, accounts, false), nil
}

// NominalBalances aggregates only leaf Income/Expense accounts with a
// non-zero cumulative balance, excluding stock-typed accounts and accounts
// whose name or number carries a stock keyword. This is the input set for
// the closing journal entry.
func (a *Aggregator) NominalBalances(ctx context.Context, r Range) ([]AccountBalance, error) {
	grouped, err := a.fetchGrouped(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(grouped) == 0 {
		return []AccountBalance{}, nil
	}
	accounts, err := a.fetchAccounts(ctx, keysOf(grouped), erpnext.Filters{}.
		In("root_type", RootTypeIncome, RootTypeExpense).
		Eq("is_group", 0))
	if err != nil {
		return nil, err
	}
	filtered := accounts[:0]
	for _, acc := range accounts {
		if acc.AccountType == "Stock" || hasStockKeyword(acc) {
			continue
		}
		filtered = append(filtered, acc)
	}
	return assemble(grouped, filtered, true), nil
}

// BothModes computes cumulative and period-only balances for a period
// concurrently. The two reads are independent and order-insensitive.
func (a *Aggregator) BothModes(ctx context.Context, company, start, end string) (cumulative, periodOnly []AccountBalance, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var e error
		cumulative, e = a.Balances(ctx, Range{Company: company, End: end})
		return e
	})
	g.Go(func() error {
		var e error
		periodOnly, e = a.Balances(ctx, Range{Company: company, Start: start, End: end})
		return e
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cumulative, periodOnly, nil
}

// NetIncome returns total Income balance minus total Expense balance across
// the nominal subset of balances.
func NetIncome(balances []AccountBalance) decimal.Decimal {
	var income, expense decimal.Decimal
	for _, b := range balances {
		switch b.RootType {
		case RootTypeIncome:
			income = income.Add(b.Balance)
		case RootTypeExpense:
			expense = expense.Add(b.Balance)
		}
	}
	return income.Sub(expense)
}

// group aggregates raw entries by account, summing debits and credits
// independently.
func group(entries []GLEntry) map[string]totals {
	grouped := make(map[string]totals, len(entries))
	for _, entry := range entries {
		t := grouped[entry.Account]
		t.debit = t.debit.Add(entry.Debit)
		t.credit = t.credit.Add(entry.Credit)
		grouped[entry.Account] = t
	}
	return grouped
}

func (a *Aggregator) fetchGrouped(ctx context.Context, r Range) (map[string]totals, error) {
	filters := erpnext.Filters{}.Eq("company", r.Company)
	if r.Start != "" {
		filters = filters.Gte("posting_date", r.Start)
	}
	filters = filters.Lte("posting_date", r.End).Eq("is_cancelled", 0)

	var entries []GLEntry
	err := a.client.GetList(ctx, erpnext.DoctypeGLEntry, erpnext.Query{
		Filters:         filters,
		Fields:          []string{"account", "debit", "credit"},
		LimitPageLength: glPageLength,
	}, &entries)
	if err != nil {
		return nil, err
	}
	return group(entries), nil
}

func (a *Aggregator) fetchAccounts(ctx context.Context, names []string, extra erpnext.Filters) ([]Account, error) {
	filters := erpnext.Filters{}.In("name", names...)
	filters = append(filters, extra...)
	var accounts []Account
	err := a.client.GetList(ctx, erpnext.DoctypeAccount, erpnext.Query{
		Filters:         filters,
		Fields:          []string{"name", "account_name", "account_type", "account_number", "root_type", "is_group"},
		LimitPageLength: glPageLength,
	}, &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func assemble(grouped map[string]totals, accounts []Account, skipZero bool) []AccountBalance {
	result := make([]AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		t, ok := grouped[acc.Name]
		if !ok {
			continue
		}
		signed := SignedBalance(acc.RootType, t.debit, t.credit)
		if skipZero && signed.IsZero() {
			continue
		}
		result = append(result, AccountBalance{
			Account:     acc.Name,
			AccountName: acc.AccountName,
			AccountType: acc.AccountType,
			RootType:    acc.RootType,
			IsGroup:     acc.IsGroup,
			Debit:       t.debit,
			Credit:      t.credit,
			Balance:     signed,
			IsNominal:   IsNominal(acc.RootType),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Account < result[j].Account })
	return result
}

func keysOf(grouped map[string]totals) []string {
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func hasStockKeyword(acc Account) bool {
	name := strings.ToLower(acc.AccountName)
	number := strings.ToLower(acc.AccountNumber)
	for _, keyword := range stockKeywords {
		if strings.Contains(name, keyword) || strings.Contains(number, keyword) {
			return true
		}
	}
	return false
}
