package period

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/batasku/periodgate/internal/audit"
	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/platform/httpx"
	"github.com/batasku/periodgate/internal/platform/lock"
)

// Client is the upstream surface the lifecycle service needs.
type Client interface {
	GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error
	Get(ctx context.Context, doctype, name string, out any) error
	Insert(ctx context.Context, doctype string, doc any, out any) error
	Update(ctx context.Context, doctype, name string, doc any, out any) error
	Delete(ctx context.Context, doctype, name string) error
	Submit(ctx context.Context, doctype, name string) error
	Cancel(ctx context.Context, doctype, name string) error
}

// Locker serializes state transitions per period.
type Locker interface {
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string) error
}

// Notifier receives lifecycle events for asynchronous delivery. A nil
// Notifier disables notifications.
type Notifier interface {
	PeriodEvent(ctx context.Context, action, periodName, company, actor string)
}

// Service orchestrates the accounting period lifecycle against ERPNext.
type Service struct {
	client    Client
	balances  *balance.Aggregator
	validator *Validator
	config    *ConfigStore
	audit     *audit.Writer
	locker    Locker
	notifier  Notifier
	log       *slog.Logger
	now       func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(client Client, balances *balance.Aggregator, validator *Validator, config *ConfigStore, auditor *audit.Writer, locker Locker, log *slog.Logger) *Service {
	return &Service{
		client:    client,
		balances:  balances,
		validator: validator,
		config:    config,
		audit:     auditor,
		locker:    locker,
		log:       log,
		now:       time.Now,
	}
}

// WithNotifier attaches the async notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

var periodFields = []string{
	"name", "period_name", "company", "start_date", "end_date", "period_type",
	"status", "closed_by", "closed_on", "closing_journal_entry",
	"permanently_closed_by", "permanently_closed_on", "fiscal_year", "remarks",
	"creation", "modified", "modified_by", "owner",
}

// ListFilter scopes period listings. Limit and Start page through results.
type ListFilter struct {
	Company    string
	Status     string
	FiscalYear string
	Limit      int
	Start      int
}

// List returns a page of periods, newest range first, and the total number
// of periods matching the filters.
func (s *Service) List(ctx context.Context, f ListFilter) ([]AccountingPeriod, int, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	start := f.Start
	if start < 0 {
		start = 0
	}
	filters := erpnext.Filters{}
	if f.Company != "" {
		filters = filters.Eq("company", f.Company)
	}
	if f.Status != "" {
		filters = filters.Eq("status", f.Status)
	}
	if f.FiscalYear != "" {
		filters = filters.Eq("fiscal_year", f.FiscalYear)
	}
	var periods []AccountingPeriod
	err := s.client.GetList(ctx, erpnext.DoctypeAccountingPeriod, erpnext.Query{
		Filters:         filters,
		Fields:          periodFields,
		OrderBy:         "start_date desc",
		LimitStart:      start,
		LimitPageLength: limit,
	}, &periods)
	if err != nil {
		return nil, 0, err
	}
	var names []struct {
		Name string `json:"name"`
	}
	err = s.client.GetList(ctx, erpnext.DoctypeAccountingPeriod, erpnext.Query{
		Filters:         filters,
		Fields:          []string{"name"},
		LimitPageLength: 999999,
	}, &names)
	if err != nil {
		return nil, 0, err
	}
	return periods, len(names), nil
}

// Get loads one period by document name.
func (s *Service) Get(ctx context.Context, name string) (AccountingPeriod, error) {
	var p AccountingPeriod
	if err := s.client.Get(ctx, erpnext.DoctypeAccountingPeriod, name, &p); err != nil {
		return AccountingPeriod{}, err
	}
	return p, nil
}

// Balances returns the cumulative and period-only balance sets for a
// period, computed concurrently.
func (s *Service) Balances(ctx context.Context, name string) (cumulative, periodOnly []balance.AccountBalance, err error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return s.balances.BothModes(ctx, p.Company, p.StartDate, p.EndDate)
}

// Create inserts a new open period after checking the date range does not
// overlap an existing one for the same company.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (AccountingPeriod, error) {
	start, err := ParseDate(in.StartDate)
	if err != nil {
		return AccountingPeriod{}, httpx.BadRequest("start_date must be YYYY-MM-DD").Wrap(err)
	}
	end, err := ParseDate(in.EndDate)
	if err != nil {
		return AccountingPeriod{}, httpx.BadRequest("end_date must be YYYY-MM-DD").Wrap(err)
	}
	if start.After(end) {
		return AccountingPeriod{}, httpx.Unprocessable("start_date cannot be after end_date")
	}
	if conflict, err := s.overlapping(ctx, in.Company, in.StartDate, in.EndDate); err != nil {
		return AccountingPeriod{}, err
	} else if conflict != nil {
		return AccountingPeriod{}, overlapError(*conflict)
	}

	doc := AccountingPeriod{
		PeriodName: in.PeriodName,
		Company:    in.Company,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		PeriodType: in.PeriodType,
		FiscalYear: in.FiscalYear,
		Remarks:    in.Remarks,
		Status:     string(StatusOpen),
	}
	var created AccountingPeriod
	if err := s.client.Insert(ctx, erpnext.DoctypeAccountingPeriod, doc, &created); err != nil {
		return AccountingPeriod{}, err
	}
	s.audit.Write(ctx, audit.Record{
		AccountingPeriod: created.Name,
		Action:           audit.ActionCreated,
		ActionBy:         actor.Email,
		After:            created,
	})
	return created, nil
}

// Patch updates the only mutable fields of an existing period.
func (s *Service) Patch(ctx context.Context, actor authz.Actor, name string, in PatchInput) (AccountingPeriod, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return AccountingPeriod{}, err
	}
	if p.Terminal() {
		return AccountingPeriod{}, httpx.Conflict("period is permanently closed").Wrap(ErrPermanentlyClosed)
	}
	patch := map[string]any{}
	if in.Remarks != nil {
		patch["remarks"] = *in.Remarks
	}
	if in.FiscalYear != nil {
		patch["fiscal_year"] = *in.FiscalYear
	}
	if len(patch) == 0 {
		return p, nil
	}
	var updated AccountingPeriod
	if err := s.client.Update(ctx, erpnext.DoctypeAccountingPeriod, name, patch, &updated); err != nil {
		return AccountingPeriod{}, err
	}
	return updated, nil
}

// Validate runs the enabled pre-close checks without changing any state.
func (s *Service) Validate(ctx context.Context, name string) ([]ValidationResult, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.validator.Run(ctx, cfg, p)
}

// Close transitions an open period to Closed. Validation, journal posting,
// and the status update run under a per-period lock; validation always
// precedes any mutation. Force skips failed checks but is itself audited.
func (s *Service) Close(ctx context.Context, actor authz.Actor, name string, in CloseInput) (CloseResult, error) {
	release, err := s.acquire(ctx, name)
	if err != nil {
		return CloseResult{}, err
	}
	defer release()

	p, err := s.Get(ctx, name)
	if err != nil {
		return CloseResult{}, err
	}
	if err := checkCompany(p, in.Company); err != nil {
		return CloseResult{}, err
	}
	switch Status(p.Status) {
	case StatusClosed:
		return CloseResult{}, httpx.Conflict("period is already closed").Wrap(ErrAlreadyClosed)
	case StatusPermanentlyClosed:
		return CloseResult{}, httpx.Conflict("period is permanently closed").Wrap(ErrPermanentlyClosed)
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return CloseResult{}, err
	}
	if err := authz.CanClose(actor, cfg.ClosingRole); err != nil {
		return CloseResult{}, err
	}

	results, err := s.validator.Run(ctx, cfg, p)
	if err != nil {
		return CloseResult{}, err
	}
	blocking := BlockingFailures(results)
	if len(blocking) > 0 && !in.Force {
		return CloseResult{}, httpx.Unprocessable("pre-close validations failed").
			Wrap(&ErrValidationFailed{Results: blocking}).
			WithDetails(map[string]any{"validations": results})
	}
	if len(blocking) > 0 {
		s.log.WarnContext(ctx, "closing with failed validations",
			slog.String("period", name),
			slog.Int("bypassed", len(blocking)),
			slog.String("actor", actor.Email),
		)
	}

	// Snapshot cumulative balances before the closing journal lands. The
	// journal posts on the period end date and would zero the nominal side.
	snapshot, err := s.balances.Balances(ctx, balance.Range{Company: p.Company, End: p.EndDate})
	if err != nil {
		return CloseResult{}, err
	}

	journalName, err := s.postClosingJournal(ctx, cfg, p)
	if err != nil {
		return CloseResult{}, err
	}

	patch := map[string]any{
		"status":                string(StatusClosed),
		"closed_by":             actor.Email,
		"closed_on":             s.now().UTC().Format(TimestampLayout),
		"closing_journal_entry": journalName,
	}
	if in.Remarks != "" {
		patch["remarks"] = in.Remarks
	}
	var closed AccountingPeriod
	if err := s.client.Update(ctx, erpnext.DoctypeAccountingPeriod, name, patch, &closed); err != nil {
		return CloseResult{}, err
	}

	after := map[string]any{"status": closed.Status, "closing_journal_entry": journalName}
	if len(blocking) > 0 {
		after["validations_bypassed"] = len(blocking)
	}
	s.audit.Write(ctx, audit.Record{
		AccountingPeriod: name,
		Action:           audit.ActionClosed,
		ActionBy:         actor.Email,
		Reason:           in.Remarks,
		Before:           map[string]any{"status": p.Status},
		After:            after,
	})
	s.notify(ctx, string(audit.ActionClosed), closed, actor)

	result := CloseResult{Period: closed, Validations: results, AccountBalances: snapshot}
	if journalName != "" {
		result.ClosingJournal = &JournalRef{Name: journalName}
	}
	return result, nil
}

// PreviewClosing computes the closing journal a close would post for the
// period, without inserting anything. The same nominal aggregation feeds
// both paths, so the preview matches the journal Close would create.
func (s *Service) PreviewClosing(ctx context.Context, name string) (ClosingPreview, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return ClosingPreview{}, err
	}
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return ClosingPreview{}, err
	}
	if cfg.RetainedEarningsAccount == "" {
		return ClosingPreview{}, httpx.Misconfigured("retained earnings account is not configured")
	}
	nominal, err := s.balances.NominalBalances(ctx, balance.Range{Company: p.Company, End: p.EndDate})
	if err != nil {
		return ClosingPreview{}, err
	}

	var income, expense decimal.Decimal
	for _, b := range nominal {
		switch b.RootType {
		case balance.RootTypeIncome:
			income = income.Add(b.Balance)
		case balance.RootTypeExpense:
			expense = expense.Add(b.Balance)
		}
	}
	preview := ClosingPreview{
		Period:                  p,
		JournalAccounts:         []JournalEntryAccount{},
		TotalIncome:             income,
		TotalExpense:            expense,
		NetIncome:               income.Sub(expense),
		RetainedEarningsAccount: cfg.RetainedEarningsAccount,
	}
	if journal := BuildClosingJournal(p, cfg.RetainedEarningsAccount, nominal); journal != nil {
		preview.JournalAccounts = journal.Accounts
	}
	return preview, nil
}

// Reopen transitions a closed period back to Open, cancelling its closing
// journal. Reopening is blocked while any later period of the company is
// closed, to keep the closing sequence contiguous.
func (s *Service) Reopen(ctx context.Context, actor authz.Actor, name string, in ReopenInput) (AccountingPeriod, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return AccountingPeriod{}, httpx.BadRequest("reason is required to reopen a period")
	}
	release, err := s.acquire(ctx, name)
	if err != nil {
		return AccountingPeriod{}, err
	}
	defer release()

	p, err := s.Get(ctx, name)
	if err != nil {
		return AccountingPeriod{}, err
	}
	if err := checkCompany(p, in.Company); err != nil {
		return AccountingPeriod{}, err
	}
	switch Status(p.Status) {
	case StatusOpen:
		return AccountingPeriod{}, httpx.Conflict("period is not closed").Wrap(ErrNotClosed)
	case StatusPermanentlyClosed:
		return AccountingPeriod{}, httpx.Conflict("period is permanently closed").Wrap(ErrPermanentlyClosed)
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return AccountingPeriod{}, err
	}
	if err := authz.CanReopen(actor, cfg.ReopenRole); err != nil {
		return AccountingPeriod{}, err
	}

	later, err := s.laterClosedPeriod(ctx, p)
	if err != nil {
		return AccountingPeriod{}, err
	}
	if later != nil {
		return AccountingPeriod{}, httpx.Conflict("a later period is already closed").
			Wrap(ErrLaterPeriodClosed).
			WithDetails(map[string]any{"blocking_period": later.Name, "blocking_status": later.Status})
	}

	// The closing journal is unwound best-effort. A journal that was
	// already cancelled upstream must not block the reopen.
	if p.ClosingJournalEntry != "" {
		if err := s.client.Cancel(ctx, erpnext.DoctypeJournalEntry, p.ClosingJournalEntry); err != nil {
			s.log.WarnContext(ctx, "closing journal cancel failed",
				slog.String("period", name),
				slog.String("journal", p.ClosingJournalEntry),
				slog.Any("error", err),
			)
		} else if err := s.client.Delete(ctx, erpnext.DoctypeJournalEntry, p.ClosingJournalEntry); err != nil {
			s.log.WarnContext(ctx, "closing journal delete failed",
				slog.String("period", name),
				slog.String("journal", p.ClosingJournalEntry),
				slog.Any("error", err),
			)
		}
	}

	patch := map[string]any{
		"status":                string(StatusOpen),
		"closed_by":             "",
		"closed_on":             "",
		"closing_journal_entry": "",
	}
	var reopened AccountingPeriod
	if err := s.client.Update(ctx, erpnext.DoctypeAccountingPeriod, name, patch, &reopened); err != nil {
		return AccountingPeriod{}, err
	}

	s.audit.Write(ctx, audit.Record{
		AccountingPeriod: name,
		Action:           audit.ActionReopened,
		ActionBy:         actor.Email,
		Reason:           in.Reason,
		Before:           map[string]any{"status": p.Status, "closing_journal_entry": p.ClosingJournalEntry},
		After:            map[string]any{"status": reopened.Status},
	})
	s.notify(ctx, string(audit.ActionReopened), reopened, actor)
	return reopened, nil
}

// PermanentClose makes a closed period immutable forever. Only System
// Manager may do this, and the confirmation text must match exactly.
func (s *Service) PermanentClose(ctx context.Context, actor authz.Actor, name string, in PermanentCloseInput) (AccountingPeriod, error) {
	if err := authz.CanPermanentlyClose(actor); err != nil {
		return AccountingPeriod{}, err
	}
	if in.Confirmation != ConfirmationSentinel {
		return AccountingPeriod{}, httpx.BadRequest(fmt.Sprintf("confirmation must be %q", ConfirmationSentinel)).
			Wrap(ErrConfirmationMismatch)
	}
	release, err := s.acquire(ctx, name)
	if err != nil {
		return AccountingPeriod{}, err
	}
	defer release()

	p, err := s.Get(ctx, name)
	if err != nil {
		return AccountingPeriod{}, err
	}
	if err := checkCompany(p, in.Company); err != nil {
		return AccountingPeriod{}, err
	}
	switch Status(p.Status) {
	case StatusOpen:
		return AccountingPeriod{}, httpx.Conflict("period must be closed before it can be permanently closed").Wrap(ErrNotClosed)
	case StatusPermanentlyClosed:
		return AccountingPeriod{}, httpx.Conflict("period is already permanently closed").Wrap(ErrPermanentlyClosed)
	}

	patch := map[string]any{
		"status":                string(StatusPermanentlyClosed),
		"permanently_closed_by": actor.Email,
		"permanently_closed_on": s.now().UTC().Format(TimestampLayout),
	}
	var sealed AccountingPeriod
	if err := s.client.Update(ctx, erpnext.DoctypeAccountingPeriod, name, patch, &sealed); err != nil {
		return AccountingPeriod{}, err
	}

	s.audit.Write(ctx, audit.Record{
		AccountingPeriod: name,
		Action:           audit.ActionPermanentlyClosed,
		ActionBy:         actor.Email,
		Reason:           in.Reason,
		Before:           map[string]any{"status": p.Status},
		After:            map[string]any{"status": sealed.Status},
	})
	s.notify(ctx, string(audit.ActionPermanentlyClosed), sealed, actor)
	return sealed, nil
}

// GenerateMonthly creates one open period per month of a fiscal year,
// skipping months that already have an exact-range period and collecting
// per-month errors instead of aborting the run.
func (s *Service) GenerateMonthly(ctx context.Context, actor authz.Actor, in GenerateMonthlyInput) (GenerateMonthlyResult, error) {
	var fy struct {
		YearStartDate string `json:"year_start_date"`
		YearEndDate   string `json:"year_end_date"`
	}
	if err := s.client.Get(ctx, erpnext.DoctypeFiscalYear, in.FiscalYear, &fy); err != nil {
		return GenerateMonthlyResult{}, err
	}
	yearStart, err := ParseDate(fy.YearStartDate)
	if err != nil {
		return GenerateMonthlyResult{}, httpx.Upstream("fiscal year has malformed start date").Wrap(err)
	}
	yearEnd, err := ParseDate(fy.YearEndDate)
	if err != nil {
		return GenerateMonthlyResult{}, httpx.Upstream("fiscal year has malformed end date").Wrap(err)
	}
	abbr, err := s.companyAbbr(ctx, in.Company)
	if err != nil {
		return GenerateMonthlyResult{}, err
	}

	startOffset := 0
	if in.StartMonth > 1 {
		startOffset = in.StartMonth - 1
	}
	result := GenerateMonthlyResult{Created: []string{}, Skipped: []string{}, Errors: []GenerateError{}}
	for monthStart := yearStart.AddDate(0, startOffset, 0); !monthStart.After(yearEnd); monthStart = monthStart.AddDate(0, 1, 0) {
		monthEnd := monthStart.AddDate(0, 1, -monthStart.Day())
		if monthEnd.After(yearEnd) {
			monthEnd = yearEnd
		}
		periodName := fmt.Sprintf("%s - %s", monthStart.Format("Jan 2006"), abbr)

		exists, err := s.exactRangeExists(ctx, in.Company, monthStart.Format(DateLayout), monthEnd.Format(DateLayout))
		if err != nil {
			result.Errors = append(result.Errors, GenerateError{PeriodName: periodName, Error: err.Error()})
			continue
		}
		if exists {
			result.Skipped = append(result.Skipped, periodName)
			continue
		}
		_, err = s.Create(ctx, actor, CreateInput{
			PeriodName: periodName,
			Company:    in.Company,
			StartDate:  monthStart.Format(DateLayout),
			EndDate:    monthEnd.Format(DateLayout),
			PeriodType: string(PeriodTypeMonthly),
			FiscalYear: in.FiscalYear,
		})
		if err != nil {
			result.Errors = append(result.Errors, GenerateError{PeriodName: periodName, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, periodName)
	}
	return result, nil
}

// postClosingJournal aggregates nominal balances up to the period end and
// posts the sweep journal. Returns the empty string when there is nothing
// to close.
func (s *Service) postClosingJournal(ctx context.Context, cfg Config, p AccountingPeriod) (string, error) {
	if cfg.RetainedEarningsAccount == "" {
		return "", httpx.Misconfigured("retained earnings account is not configured")
	}
	nominal, err := s.balances.NominalBalances(ctx, balance.Range{Company: p.Company, End: p.EndDate})
	if err != nil {
		return "", err
	}
	journal := BuildClosingJournal(p, cfg.RetainedEarningsAccount, nominal)
	if journal == nil {
		s.log.InfoContext(ctx, "no nominal balances, skipping closing journal", slog.String("period", p.Name))
		return "", nil
	}
	var inserted JournalEntry
	if err := s.client.Insert(ctx, erpnext.DoctypeJournalEntry, journal, &inserted); err != nil {
		return "", err
	}
	if err := s.client.Submit(ctx, erpnext.DoctypeJournalEntry, inserted.Name); err != nil {
		return "", err
	}
	return inserted.Name, nil
}

func (s *Service) overlapping(ctx context.Context, company, start, end string) (*AccountingPeriod, error) {
	var periods []AccountingPeriod
	err := s.client.GetList(ctx, erpnext.DoctypeAccountingPeriod, erpnext.Query{
		Filters: erpnext.Filters{}.
			Eq("company", company).
			Lte("start_date", end).
			Gte("end_date", start),
		Fields:          periodFields,
		LimitPageLength: 1,
	}, &periods)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}
	return &periods[0], nil
}

func (s *Service) exactRangeExists(ctx context.Context, company, start, end string) (bool, error) {
	var periods []AccountingPeriod
	err := s.client.GetList(ctx, erpnext.DoctypeAccountingPeriod, erpnext.Query{
		Filters: erpnext.Filters{}.
			Eq("company", company).
			Eq("start_date", start).
			Eq("end_date", end),
		Fields:          []string{"name"},
		LimitPageLength: 1,
	}, &periods)
	if err != nil {
		return false, err
	}
	return len(periods) > 0, nil
}

func (s *Service) laterClosedPeriod(ctx context.Context, p AccountingPeriod) (*AccountingPeriod, error) {
	var periods []AccountingPeriod
	err := s.client.GetList(ctx, erpnext.DoctypeAccountingPeriod, erpnext.Query{
		Filters: erpnext.Filters{}.
			Eq("company", p.Company).
			Gt("start_date", p.EndDate).
			In("status", string(StatusClosed), string(StatusPermanentlyClosed)),
		Fields:          []string{"name", "status", "start_date"},
		OrderBy:         "start_date asc",
		LimitPageLength: 1,
	}, &periods)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}
	return &periods[0], nil
}

func (s *Service) companyAbbr(ctx context.Context, company string) (string, error) {
	var doc struct {
		Abbr string `json:"abbr"`
	}
	if err := s.client.Get(ctx, erpnext.DoctypeCompany, company, &doc); err != nil {
		return "", err
	}
	if doc.Abbr != "" {
		return doc.Abbr, nil
	}
	var initials strings.Builder
	for _, word := range strings.Fields(company) {
		first, _ := utf8.DecodeRuneInString(word)
		initials.WriteRune(unicode.ToUpper(first))
	}
	return initials.String(), nil
}

// acquire takes the per-period transition lock and returns its release
// func. Contention maps to a conflict the client can retry.
func (s *Service) acquire(ctx context.Context, name string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := lock.PeriodKey(name)
	token, err := s.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, httpx.Conflict("another transition is in progress for this period").Wrap(err)
		}
		return nil, err
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.WarnContext(ctx, "lock release failed", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}

func (s *Service) notify(ctx context.Context, action string, p AccountingPeriod, actor authz.Actor) {
	if s.notifier == nil {
		return
	}
	s.notifier.PeriodEvent(ctx, action, p.Name, p.Company, actor.Email)
}

func checkCompany(p AccountingPeriod, company string) error {
	if company != "" && company != p.Company {
		return httpx.BadRequest("company does not match period").Wrap(ErrCompanyMismatch)
	}
	return nil
}

func overlapError(conflict AccountingPeriod) error {
	return httpx.Unprocessable("date range overlaps an existing period").
		Wrap(&ErrOverlap{Conflicting: conflict}).
		WithDetails(map[string]any{
			"conflicting_period": conflict.Name,
			"start_date":         conflict.StartDate,
			"end_date":           conflict.EndDate,
		})
}
