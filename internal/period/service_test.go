package period

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batasku/periodgate/internal/audit"
	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/platform/httpx"
)

// fakeUpstream is an in-memory stand-in for the ERPNext resource API,
// covering the handful of doctypes the lifecycle touches.
type fakeUpstream struct {
	periods   map[string]*AccountingPeriod
	glEntries []balance.GLEntry
	accounts  []balance.Account
	config    *Config
	drafts    map[string][]string
	fiscal    map[string][2]string
	company   map[string]string

	journals   map[string]*JournalEntry
	submitted  []string
	cancelled  []string
	deleted    []string
	auditLog   []audit.Entry
	journalSeq int
	insertErr  error
	listErr    error
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		periods:  map[string]*AccountingPeriod{},
		fiscal:   map[string][2]string{},
		company:  map[string]string{},
		journals: map[string]*JournalEntry{},
	}
}

func roundTrip(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeUpstream) GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error {
	if f.listErr != nil {
		return f.listErr
	}
	switch doctype {
	case erpnext.DoctypeAccountingPeriod:
		return roundTrip(f.matchPeriods(q.Filters, q.LimitPageLength), out)
	case erpnext.DoctypeGLEntry:
		return roundTrip(f.glEntries, out)
	case erpnext.DoctypeAccount:
		if !wantsRootTypes(q.Filters) {
			return roundTrip(f.accounts, out)
		}
		var nominal []balance.Account
		for _, acc := range f.accounts {
			if acc.RootType == balance.RootTypeIncome || acc.RootType == balance.RootTypeExpense {
				nominal = append(nominal, acc)
			}
		}
		return roundTrip(nominal, out)
	case erpnext.DoctypeRole:
		return roundTrip([]map[string]string{{"name": "any"}}, out)
	default:
		if wantsDocstatus(q.Filters, 0) {
			var refs []map[string]string
			for _, name := range f.drafts[doctype] {
				refs = append(refs, map[string]string{"name": name, "posting_date": "2026-01-15"})
			}
			return roundTrip(refs, out)
		}
		return roundTrip([]any{}, out)
	}
}

func wantsRootTypes(filters erpnext.Filters) bool {
	for _, flt := range filters {
		if flt.Field == "root_type" {
			return true
		}
	}
	return false
}

func wantsDocstatus(filters erpnext.Filters, status int) bool {
	for _, flt := range filters {
		if flt.Field == "docstatus" && fmt.Sprint(flt.Value) == fmt.Sprint(status) {
			return true
		}
	}
	return false
}

func (f *fakeUpstream) matchPeriods(filters erpnext.Filters, limit int) []AccountingPeriod {
	var matched []AccountingPeriod
	for _, p := range f.periods {
		if f.periodMatches(*p, filters) {
			matched = append(matched, *p)
		}
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched
}

func (f *fakeUpstream) periodMatches(p AccountingPeriod, filters erpnext.Filters) bool {
	for _, flt := range filters {
		var field string
		switch flt.Field {
		case "company":
			field = p.Company
		case "status":
			field = p.Status
		case "start_date":
			field = p.StartDate
		case "end_date":
			field = p.EndDate
		default:
			continue
		}
		switch flt.Op {
		case "=":
			if field != flt.Value.(string) {
				return false
			}
		case "<=":
			if field > flt.Value.(string) {
				return false
			}
		case ">=":
			if field < flt.Value.(string) {
				return false
			}
		case ">":
			if field <= flt.Value.(string) {
				return false
			}
		case "in":
			found := false
			for _, v := range flt.Value.([]string) {
				if field == v {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (f *fakeUpstream) Get(ctx context.Context, doctype, name string, out any) error {
	switch doctype {
	case erpnext.DoctypeAccountingPeriod:
		p, ok := f.periods[name]
		if !ok {
			return httpx.NotFound("Accounting Period not found")
		}
		return roundTrip(p, out)
	case erpnext.DoctypePeriodClosingConfig:
		if f.config == nil {
			return httpx.NotFound("Period Closing Config not found")
		}
		return roundTrip(f.config, out)
	case erpnext.DoctypeFiscalYear:
		fy, ok := f.fiscal[name]
		if !ok {
			return httpx.NotFound("Fiscal Year not found")
		}
		return roundTrip(map[string]string{"year_start_date": fy[0], "year_end_date": fy[1]}, out)
	case erpnext.DoctypeCompany:
		return roundTrip(map[string]string{"abbr": f.company[name]}, out)
	case erpnext.DoctypeAccount:
		for _, acc := range f.accounts {
			if acc.Name == name {
				return roundTrip(acc, out)
			}
		}
		return httpx.NotFound("Account not found")
	}
	return httpx.NotFound(doctype + " not found")
}

func (f *fakeUpstream) Insert(ctx context.Context, doctype string, doc any, out any) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	switch doctype {
	case erpnext.DoctypeAccountingPeriod:
		var p AccountingPeriod
		if err := roundTrip(doc, &p); err != nil {
			return err
		}
		p.Name = p.PeriodName
		f.periods[p.Name] = &p
		if out != nil {
			return roundTrip(p, out)
		}
		return nil
	case erpnext.DoctypeJournalEntry:
		var je JournalEntry
		if err := roundTrip(doc, &je); err != nil {
			return err
		}
		f.journalSeq++
		je.Name = fmt.Sprintf("JV-%04d", f.journalSeq)
		f.journals[je.Name] = &je
		if out != nil {
			return roundTrip(je, out)
		}
		return nil
	case erpnext.DoctypePeriodClosingLog:
		var entry audit.Entry
		if err := roundTrip(doc, &entry); err != nil {
			return err
		}
		f.auditLog = append(f.auditLog, entry)
		return nil
	}
	return nil
}

func (f *fakeUpstream) Update(ctx context.Context, doctype, name string, doc any, out any) error {
	switch doctype {
	case erpnext.DoctypeAccountingPeriod:
		p, ok := f.periods[name]
		if !ok {
			return httpx.NotFound("Accounting Period not found")
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, p); err != nil {
			return err
		}
		if out != nil {
			return roundTrip(p, out)
		}
		return nil
	case erpnext.DoctypePeriodClosingConfig:
		var cfg Config
		if err := roundTrip(doc, &cfg); err != nil {
			return err
		}
		f.config = &cfg
		if out != nil {
			return roundTrip(cfg, out)
		}
		return nil
	}
	return nil
}

func (f *fakeUpstream) Delete(ctx context.Context, doctype, name string) error {
	f.deleted = append(f.deleted, name)
	delete(f.journals, name)
	return nil
}

func (f *fakeUpstream) Submit(ctx context.Context, doctype, name string) error {
	f.submitted = append(f.submitted, name)
	return nil
}

func (f *fakeUpstream) Cancel(ctx context.Context, doctype, name string) error {
	f.cancelled = append(f.cancelled, name)
	return nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTestService(f *fakeUpstream) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor := audit.NewWriter(f, log, nil)
	cfgStore := NewConfigStore(f, nil, auditor)
	svc := NewService(f, balance.NewAggregator(f), NewValidator(f), cfgStore, auditor, nil, log)
	svc.WithNow(func() time.Time { return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC) })
	return svc
}

func seedConfig(f *fakeUpstream) {
	cfg := DefaultConfig()
	cfg.RetainedEarningsAccount = "Retained Earnings - BAC"
	f.config = &cfg
	f.accounts = append(f.accounts, balance.Account{
		Name:        "Retained Earnings - BAC",
		AccountName: "Retained Earnings",
		RootType:    balance.RootTypeEquity,
	})
}

func seedPeriod(f *fakeUpstream, name, start, end string, status Status) {
	f.periods[name] = &AccountingPeriod{
		Name:       name,
		PeriodName: name,
		Company:    "Batasku Andalan Citra",
		StartDate:  start,
		EndDate:    end,
		Status:     string(status),
	}
}

var (
	accountant = authz.Actor{Email: "finance@batasku.id", Roles: []string{authz.RoleAccountsManager}}
	admin      = authz.Actor{Email: "admin@batasku.id", Roles: []string{authz.RoleSystemManager}}
	employee   = authz.Actor{Email: "staff@batasku.id", Roles: []string{"Employee"}}
)

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.Create(context.Background(), accountant, CreateInput{
		PeriodName: "Mid Jan 2026 - BAC",
		Company:    "Batasku Andalan Citra",
		StartDate:  "2026-01-15",
		EndDate:    "2026-02-15",
	})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Status)

	details := appErr.Details.(map[string]any)
	assert.Equal(t, "Jan 2026 - BAC", details["conflicting_period"])
}

func TestCreateRejectsInvertedRange(t *testing.T) {
	svc := newTestService(newFakeUpstream())
	_, err := svc.Create(context.Background(), accountant, CreateInput{
		PeriodName: "Broken",
		Company:    "Batasku Andalan Citra",
		StartDate:  "2026-02-01",
		EndDate:    "2026-01-01",
	})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Status)
}

func TestCreateWritesAudit(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	svc := newTestService(f)

	created, err := svc.Create(context.Background(), accountant, CreateInput{
		PeriodName: "Jan 2026 - BAC",
		Company:    "Batasku Andalan Citra",
		StartDate:  "2026-01-01",
		EndDate:    "2026-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, string(StatusOpen), created.Status)

	require.Len(t, f.auditLog, 1)
	assert.Equal(t, "Created", f.auditLog[0].ActionType)
	assert.Equal(t, accountant.Email, f.auditLog[0].ActionBy)
}

func TestClosePostsJournalAndUpdatesPeriod(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	f.glEntries = []balance.GLEntry{
		{Account: "Sales - BAC", Credit: dec("1000")},
		{Account: "Rent - BAC", Debit: dec("300")},
	}
	f.accounts = append(f.accounts,
		balance.Account{Name: "Sales - BAC", AccountName: "Sales", RootType: balance.RootTypeIncome},
		balance.Account{Name: "Rent - BAC", AccountName: "Rent", RootType: balance.RootTypeExpense},
	)
	svc := newTestService(f)

	result, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{})
	require.NoError(t, err)
	assert.Equal(t, string(StatusClosed), result.Period.Status)
	require.NotNil(t, result.ClosingJournal)
	assert.Equal(t, "JV-0001", result.ClosingJournal.Name)
	assert.Equal(t, accountant.Email, result.Period.ClosedBy)
	assert.Equal(t, "2026-02-01 10:00:00", result.Period.ClosedOn)
	assert.Contains(t, f.submitted, "JV-0001")

	journal := f.journals["JV-0001"]
	require.NotNil(t, journal)
	require.Len(t, journal.Accounts, 3)
	var retained JournalEntryAccount
	for _, line := range journal.Accounts {
		if line.Account == "Retained Earnings - BAC" {
			retained = line
		}
	}
	assert.True(t, retained.Credit.Equal(dec("700")))

	// Balance snapshot reflects the ledger as of the end date, taken
	// before the closing journal sweep.
	require.Len(t, result.AccountBalances, 2)
	assert.Equal(t, "Rent - BAC", result.AccountBalances[0].Account)
	assert.True(t, result.AccountBalances[0].Balance.Equal(dec("300")))
	assert.Equal(t, "Sales - BAC", result.AccountBalances[1].Account)
	assert.True(t, result.AccountBalances[1].Balance.Equal(dec("1000")))

	require.Len(t, f.auditLog, 1)
	assert.Equal(t, "Closed", f.auditLog[0].ActionType)
}

func TestCloseWithoutNominalBalancesSkipsJournal(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	result, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{})
	require.NoError(t, err)
	assert.Nil(t, result.ClosingJournal)
	assert.Empty(t, f.journals)
	assert.Equal(t, string(StatusClosed), result.Period.Status)
}

func TestCloseRejectsCompanyMismatch(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{Company: "Other Company"})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
	assert.ErrorIs(t, err, ErrCompanyMismatch)
	assert.Equal(t, string(StatusOpen), f.periods["Jan 2026 - BAC"].Status)
}

func TestCloseAlreadyClosedConflicts(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	svc := newTestService(f)

	_, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestCloseRequiresRole(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.Close(context.Background(), employee, "Jan 2026 - BAC", CloseInput{})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Status)
	// Denied before any mutation.
	assert.Equal(t, string(StatusOpen), f.periods["Jan 2026 - BAC"].Status)
	assert.Empty(t, f.auditLog)
}

func TestCloseRequiresRetainedEarningsConfig(t *testing.T) {
	f := newFakeUpstream()
	cfg := DefaultConfig()
	f.config = &cfg // no retained earnings account
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, httpx.CodeConfiguration, appErr.Code)
	assert.Equal(t, string(StatusOpen), f.periods["Jan 2026 - BAC"].Status)
}

func TestCloseBlockedByFailedValidations(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	f.drafts = map[string][]string{erpnext.DoctypeSalesInvoice: {"SINV-0042"}}
	svc := newTestService(f)

	_, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Status)
	assert.Equal(t, httpx.CodeValidation, appErr.Code)
	var failed *ErrValidationFailed
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed.Results, 2)
	assert.Equal(t, CheckDraftTransactions, failed.Results[0].CheckName)
	assert.Equal(t, CheckDraftSalesInvoices, failed.Results[1].CheckName)

	assert.Equal(t, string(StatusOpen), f.periods["Jan 2026 - BAC"].Status)
	assert.Empty(t, f.journals)
	assert.Empty(t, f.auditLog)
}

func TestForceCloseBypassesFailedValidations(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	f.drafts = map[string][]string{erpnext.DoctypeSalesInvoice: {"SINV-0042"}}
	svc := newTestService(f)

	result, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{Force: true})
	require.NoError(t, err)
	assert.Equal(t, string(StatusClosed), result.Period.Status)

	require.Len(t, f.auditLog, 1)
	assert.Equal(t, "Closed", f.auditLog[0].ActionType)
	assert.Contains(t, f.auditLog[0].AfterSnapshot, "validations_bypassed")
}

func TestPreviewClosingLeavesPeriodUntouched(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	f.glEntries = []balance.GLEntry{
		{Account: "Sales - BAC", Credit: dec("1000")},
		{Account: "Rent - BAC", Debit: dec("300")},
	}
	f.accounts = append(f.accounts,
		balance.Account{Name: "Sales - BAC", AccountName: "Sales", RootType: balance.RootTypeIncome},
		balance.Account{Name: "Rent - BAC", AccountName: "Rent", RootType: balance.RootTypeExpense},
	)
	svc := newTestService(f)

	preview, err := svc.PreviewClosing(context.Background(), "Jan 2026 - BAC")
	require.NoError(t, err)
	assert.True(t, preview.TotalIncome.Equal(dec("1000")))
	assert.True(t, preview.TotalExpense.Equal(dec("300")))
	assert.True(t, preview.NetIncome.Equal(dec("700")))
	assert.Equal(t, "Retained Earnings - BAC", preview.RetainedEarningsAccount)

	require.Len(t, preview.JournalAccounts, 3)
	last := preview.JournalAccounts[2]
	assert.Equal(t, "Retained Earnings - BAC", last.Account)
	assert.True(t, last.Credit.Equal(dec("700")))

	// Dry run only: nothing inserted, nothing submitted, status untouched.
	assert.Empty(t, f.journals)
	assert.Empty(t, f.submitted)
	assert.Equal(t, string(StatusOpen), f.periods["Jan 2026 - BAC"].Status)
	assert.Empty(t, f.auditLog)
}

func TestPreviewClosingRequiresRetainedEarningsConfig(t *testing.T) {
	f := newFakeUpstream()
	cfg := DefaultConfig()
	f.config = &cfg
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.PreviewClosing(context.Background(), "Jan 2026 - BAC")
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, httpx.CodeConfiguration, appErr.Code)
}

func TestCheckRestrictionOpenDateAllowed(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	result, err := svc.CheckRestriction(context.Background(), employee, CheckRestrictionInput{
		Company:     "Batasku Andalan Citra",
		PostingDate: "2026-01-15",
		Doctype:     "Sales Invoice",
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.False(t, result.Restricted)
	assert.Nil(t, result.Period)
	assert.False(t, result.RequiresLogging)
}

func TestCheckRestrictionClosedPeriod(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	svc := newTestService(f)
	in := CheckRestrictionInput{
		Company:     "Batasku Andalan Citra",
		PostingDate: "2026-01-15",
		Doctype:     "Sales Invoice",
		Docname:     "SINV-0042",
	}

	// Regular user is denied.
	result, err := svc.CheckRestriction(context.Background(), employee, in)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.Restricted)
	require.NotNil(t, result.Period)
	assert.Equal(t, "Jan 2026 - BAC", result.Period.Name)
	assert.False(t, result.CanOverride)
	assert.Contains(t, result.Reason, "closed")

	// Holder of the reopen role overrides, flagged for logging.
	result, err = svc.CheckRestriction(context.Background(), accountant, in)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.True(t, result.RequiresLogging)
	assert.True(t, result.CanOverride)

	// System Manager overrides too.
	result, err = svc.CheckRestriction(context.Background(), admin, in)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.True(t, result.RequiresLogging)
}

func TestCheckRestrictionPermanentlyClosedBlocksEveryone(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusPermanentlyClosed)
	svc := newTestService(f)
	in := CheckRestrictionInput{
		Company:     "Batasku Andalan Citra",
		PostingDate: "2026-01-15",
		Doctype:     "Sales Invoice",
	}

	for _, actor := range []authz.Actor{employee, accountant, admin} {
		result, err := svc.CheckRestriction(context.Background(), actor, in)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.True(t, result.Restricted)
		assert.False(t, result.CanOverride)
		assert.Contains(t, result.Reason, "permanently closed")
	}
}

func TestCheckRestrictionFailsOpenOnUpstreamError(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	f.listErr = errors.New("erpnext unavailable")
	svc := newTestService(f)

	result, err := svc.CheckRestriction(context.Background(), employee, CheckRestrictionInput{
		Company:     "Batasku Andalan Citra",
		PostingDate: "2026-01-15",
		Doctype:     "Sales Invoice",
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Contains(t, result.Reason, "Validation error")
}

func TestReopenRestoresPeriodAndUnwindsJournal(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	f.periods["Jan 2026 - BAC"].ClosingJournalEntry = "JV-0001"
	f.periods["Jan 2026 - BAC"].ClosedBy = accountant.Email
	f.journals["JV-0001"] = &JournalEntry{Name: "JV-0001"}
	svc := newTestService(f)

	reopened, err := svc.Reopen(context.Background(), accountant, "Jan 2026 - BAC", ReopenInput{Reason: "late vendor invoice"})
	require.NoError(t, err)
	assert.Equal(t, string(StatusOpen), reopened.Status)
	assert.Empty(t, reopened.ClosedBy)
	assert.Empty(t, reopened.ClosingJournalEntry)
	assert.Contains(t, f.cancelled, "JV-0001")
	assert.Contains(t, f.deleted, "JV-0001")

	require.Len(t, f.auditLog, 1)
	assert.Equal(t, "Reopened", f.auditLog[0].ActionType)
	assert.Equal(t, "late vendor invoice", f.auditLog[0].Reason)
}

func TestReopenRequiresReason(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	svc := newTestService(f)

	_, err := svc.Reopen(context.Background(), accountant, "Jan 2026 - BAC", ReopenInput{Reason: "   "})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}

func TestReopenBlockedByLaterClosedPeriod(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	seedPeriod(f, "Feb 2026 - BAC", "2026-02-01", "2026-02-28", StatusClosed)
	svc := newTestService(f)

	_, err := svc.Reopen(context.Background(), accountant, "Jan 2026 - BAC", ReopenInput{Reason: "adjustment"})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
	assert.ErrorIs(t, err, ErrLaterPeriodClosed)
}

func TestReopenOpenPeriodConflicts(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.Reopen(context.Background(), accountant, "Jan 2026 - BAC", ReopenInput{Reason: "oops"})
	assert.ErrorIs(t, err, ErrNotClosed)
}

func TestPermanentCloseHappyPath(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	svc := newTestService(f)

	sealed, err := svc.PermanentClose(context.Background(), admin, "Jan 2026 - BAC", PermanentCloseInput{
		Confirmation: "PERMANENT",
		Reason:       "year locked after audit",
	})
	require.NoError(t, err)
	assert.Equal(t, string(StatusPermanentlyClosed), sealed.Status)
	assert.Equal(t, admin.Email, sealed.PermanentlyClosedBy)

	require.Len(t, f.auditLog, 1)
	assert.Equal(t, "Permanently Closed", f.auditLog[0].ActionType)
}

func TestPermanentCloseRejectsWrongConfirmation(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	svc := newTestService(f)

	for _, confirmation := range []string{"permanent", "PERMANENT ", "yes", ""} {
		_, err := svc.PermanentClose(context.Background(), admin, "Jan 2026 - BAC", PermanentCloseInput{Confirmation: confirmation})
		assert.ErrorIs(t, err, ErrConfirmationMismatch, "confirmation %q", confirmation)
	}
}

func TestPermanentCloseSystemManagerOnly(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusClosed)
	svc := newTestService(f)

	_, err := svc.PermanentClose(context.Background(), accountant, "Jan 2026 - BAC", PermanentCloseInput{Confirmation: "PERMANENT"})
	var appErr *httpx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Status)
}

func TestPermanentCloseRequiresClosedState(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	_, err := svc.PermanentClose(context.Background(), admin, "Jan 2026 - BAC", PermanentCloseInput{Confirmation: "PERMANENT"})
	assert.ErrorIs(t, err, ErrNotClosed)
}

func TestPermanentlyClosedPeriodIsTerminal(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusPermanentlyClosed)
	svc := newTestService(f)

	_, err := svc.Close(context.Background(), admin, "Jan 2026 - BAC", CloseInput{})
	assert.ErrorIs(t, err, ErrPermanentlyClosed)

	_, err = svc.Reopen(context.Background(), admin, "Jan 2026 - BAC", ReopenInput{Reason: "no"})
	assert.ErrorIs(t, err, ErrPermanentlyClosed)

	_, err = svc.PermanentClose(context.Background(), admin, "Jan 2026 - BAC", PermanentCloseInput{Confirmation: "PERMANENT"})
	assert.ErrorIs(t, err, ErrPermanentlyClosed)

	_, err = svc.Patch(context.Background(), admin, "Jan 2026 - BAC", PatchInput{Remarks: ptr("edit")})
	assert.ErrorIs(t, err, ErrPermanentlyClosed)
}

func TestGenerateMonthly(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	f.fiscal["2026"] = [2]string{"2026-01-01", "2026-12-31"}
	f.company["Batasku Andalan Citra"] = "BAC"
	// February already exists with the exact range.
	seedPeriod(f, "Feb 2026 - BAC", "2026-02-01", "2026-02-28", StatusOpen)
	svc := newTestService(f)

	result, err := svc.GenerateMonthly(context.Background(), accountant, GenerateMonthlyInput{
		Company:    "Batasku Andalan Citra",
		FiscalYear: "2026",
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 11)
	assert.Equal(t, []string{"Feb 2026 - BAC"}, result.Skipped)
	assert.Empty(t, result.Errors)
	assert.Contains(t, result.Created, "Jan 2026 - BAC")
	assert.Contains(t, result.Created, "Dec 2026 - BAC")

	jan := f.periods["Jan 2026 - BAC"]
	require.NotNil(t, jan)
	assert.Equal(t, "2026-01-01", jan.StartDate)
	assert.Equal(t, "2026-01-31", jan.EndDate)
	assert.Equal(t, string(PeriodTypeMonthly), jan.PeriodType)
}

func TestGenerateMonthlyDerivesAbbrFromInitials(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	f.fiscal["2026"] = [2]string{"2026-01-01", "2026-12-31"}
	// Company record carries no abbreviation; initials must survive
	// multibyte first letters.
	f.company["Ünal Ticaret Ağı"] = ""
	svc := newTestService(f)

	result, err := svc.GenerateMonthly(context.Background(), accountant, GenerateMonthlyInput{
		Company:    "Ünal Ticaret Ağı",
		FiscalYear: "2026",
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 12)
	assert.Contains(t, result.Created, "Jan 2026 - ÜTA")
}

func TestAuditFailureDoesNotFailClose(t *testing.T) {
	f := newFakeUpstream()
	seedConfig(f)
	seedPeriod(f, "Jan 2026 - BAC", "2026-01-01", "2026-01-31", StatusOpen)
	svc := newTestService(f)

	// Audit inserts share the upstream; make every insert fail after the
	// journal would have been skipped (no nominal balances).
	f.insertErr = errors.New("audit doctype missing")

	result, err := svc.Close(context.Background(), accountant, "Jan 2026 - BAC", CloseInput{})
	require.NoError(t, err)
	assert.Equal(t, string(StatusClosed), result.Period.Status)
	assert.Empty(t, f.auditLog)
}

func ptr(s string) *string { return &s }
