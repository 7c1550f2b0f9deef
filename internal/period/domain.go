// Package period implements the accounting period lifecycle against an
// upstream ERPNext instance: creation, validation-gated closing with an
// automatic closing journal entry, reopening, and the irreversible
// permanent close. ERPNext remains the sole system of record; this package
// never persists state of its own.
package period

import (
	"errors"
	"time"

	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/erpnext"
)

// Status enumerates accounting period lifecycle stages as stored upstream.
type Status string

const (
	StatusOpen              Status = "Open"
	StatusClosed            Status = "Closed"
	StatusPermanentlyClosed Status = "Permanently Closed"
)

// PeriodType enumerates supported period granularities.
type PeriodType string

const (
	PeriodTypeMonthly   PeriodType = "Monthly"
	PeriodTypeQuarterly PeriodType = "Quarterly"
	PeriodTypeYearly    PeriodType = "Yearly"
)

// ConfirmationSentinel must be sent verbatim to permanently close a period.
const ConfirmationSentinel = "PERMANENT"

// DateLayout is the wire format for upstream date fields.
const DateLayout = "2006-01-02"

// TimestampLayout is the wire format for upstream datetime fields.
const TimestampLayout = "2006-01-02 15:04:05"

// AccountingPeriod mirrors the upstream Accounting Period document.
type AccountingPeriod struct {
	Name                string `json:"name"`
	PeriodName          string `json:"period_name"`
	Company             string `json:"company"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	PeriodType          string `json:"period_type,omitempty"`
	Status              string `json:"status"`
	ClosedBy            string `json:"closed_by,omitempty"`
	ClosedOn            string `json:"closed_on,omitempty"`
	ClosingJournalEntry string `json:"closing_journal_entry,omitempty"`
	PermanentlyClosedBy string `json:"permanently_closed_by,omitempty"`
	PermanentlyClosedOn string `json:"permanently_closed_on,omitempty"`
	FiscalYear          string `json:"fiscal_year,omitempty"`
	Remarks             string `json:"remarks,omitempty"`
	Creation            string `json:"creation,omitempty"`
	Modified            string `json:"modified,omitempty"`
	ModifiedBy          string `json:"modified_by,omitempty"`
	Owner               string `json:"owner,omitempty"`
}

// Open reports whether the period accepts postings.
func (p AccountingPeriod) Open() bool { return Status(p.Status) == StatusOpen }

// Terminal reports whether the period can never change state again.
func (p AccountingPeriod) Terminal() bool { return Status(p.Status) == StatusPermanentlyClosed }

// ParseDate parses an upstream date field.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Config is the Period Closing Config singleton. Toggle fields arrive from
// upstream as 0/1 integers.
type Config struct {
	RetainedEarningsAccount    string       `json:"retained_earnings_account"`
	ClosingRole                string       `json:"closing_role"`
	ReopenRole                 string       `json:"reopen_role"`
	ReminderDaysBeforeEnd      int          `json:"reminder_days_before_end"`
	EscalationDaysAfterEnd     int          `json:"escalation_days_after_end"`
	EnableEmailNotifications   erpnext.Flag `json:"enable_email_notifications"`
	ValidateDraftTransactions  erpnext.Flag `json:"validate_draft_transactions"`
	ValidateUnpostedVouchers   erpnext.Flag `json:"validate_unposted_vouchers"`
	ValidateBankReconciliation erpnext.Flag `json:"validate_bank_reconciliation"`
	ValidateDraftSalesInvoices erpnext.Flag `json:"validate_draft_sales_invoices"`
	ValidateDraftPurchaseInvs  erpnext.Flag `json:"validate_draft_purchase_invoices"`
	ValidateDraftStockEntries  erpnext.Flag `json:"validate_draft_stock_entries"`
	ValidateDraftSalarySlips   erpnext.Flag `json:"validate_draft_salary_slips"`
}

// DefaultConfig is served when the singleton has never been saved upstream.
func DefaultConfig() Config {
	return Config{
		ClosingRole:                "Accounts Manager",
		ReopenRole:                 "Accounts Manager",
		ReminderDaysBeforeEnd:      3,
		EscalationDaysAfterEnd:     7,
		ValidateDraftTransactions:  true,
		ValidateUnpostedVouchers:   true,
		ValidateBankReconciliation: true,
		ValidateDraftSalesInvoices: true,
		ValidateDraftPurchaseInvs:  true,
		ValidateDraftStockEntries:  true,
		ValidateDraftSalarySlips:   true,
	}
}

// ValidationResult is the outcome of one pre-close check.
type ValidationResult struct {
	CheckName string `json:"check_name"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Details   any    `json:"details,omitempty"`
}

// Validation severities. Only error-severity failures block a close.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// BlockingFailures filters results down to those that prevent closing.
func BlockingFailures(results []ValidationResult) []ValidationResult {
	var blocking []ValidationResult
	for _, r := range results {
		if !r.Passed && r.Severity == SeverityError {
			blocking = append(blocking, r)
		}
	}
	return blocking
}

// CreateInput captures a new period request.
type CreateInput struct {
	PeriodName string `json:"period_name" validate:"required"`
	Company    string `json:"company" validate:"required"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PeriodType string `json:"period_type" validate:"omitempty,oneof=Monthly Quarterly Yearly"`
	FiscalYear string `json:"fiscal_year"`
	Remarks    string `json:"remarks"`
}

// PatchInput carries the only fields editable after creation.
type PatchInput struct {
	Remarks    *string `json:"remarks"`
	FiscalYear *string `json:"fiscal_year"`
}

// CloseInput captures a close request. Company, when set, must match the
// period's company. Force skips failed non-permission validations and is
// recorded in the audit trail.
type CloseInput struct {
	Company string `json:"company"`
	Force   bool   `json:"force"`
	Remarks string `json:"remarks"`
}

// ReopenInput requires an explicit reason for the audit trail.
type ReopenInput struct {
	Company string `json:"company"`
	Reason  string `json:"reason" validate:"required"`
}

// PermanentCloseInput requires the confirmation sentinel verbatim.
type PermanentCloseInput struct {
	Company      string `json:"company"`
	Confirmation string `json:"confirmation" validate:"required"`
	Reason       string `json:"reason"`
}

// GenerateMonthlyInput requests one period per month of a fiscal year.
// StartMonth, when positive, skips that many months minus one from the
// start of the fiscal year.
type GenerateMonthlyInput struct {
	Company    string `json:"company" validate:"required"`
	FiscalYear string `json:"fiscal_year" validate:"required"`
	StartMonth int    `json:"start_month" validate:"omitempty,min=1,max=12"`
}

// GenerateMonthlyResult reports per-month outcomes of a generation run.
type GenerateMonthlyResult struct {
	Created []string        `json:"created"`
	Skipped []string        `json:"skipped"`
	Errors  []GenerateError `json:"errors"`
}

// GenerateError captures a single month that could not be created.
type GenerateError struct {
	PeriodName string `json:"period_name"`
	Error      string `json:"error"`
}

// JournalRef names a posted journal entry.
type JournalRef struct {
	Name string `json:"name"`
}

// CloseResult bundles the outcome of a successful close. ClosingJournal is
// nil when there were no nominal balances to sweep.
type CloseResult struct {
	Period          AccountingPeriod         `json:"period"`
	ClosingJournal  *JournalRef              `json:"closing_journal,omitempty"`
	Validations     []ValidationResult       `json:"validations"`
	AccountBalances []balance.AccountBalance `json:"account_balances"`
}

// ErrValidationFailed carries blocking validation results up to the handler.
type ErrValidationFailed struct {
	Results []ValidationResult
}

func (e *ErrValidationFailed) Error() string {
	return "period: pre-close validations failed"
}

// ErrCompanyMismatch is returned when the request's company does not match
// the period's company.
var ErrCompanyMismatch = errors.New("period: company does not match period")

// ErrNotClosed is returned when reopen or permanent close targets a period
// that is not in the Closed state.
var ErrNotClosed = errors.New("period: period is not closed")

// ErrPermanentlyClosed is returned when mutating a terminal period.
var ErrPermanentlyClosed = errors.New("period: period is permanently closed")

// ErrAlreadyClosed is returned when closing a period twice.
var ErrAlreadyClosed = errors.New("period: period already closed")

// ErrLaterPeriodClosed blocks reopening when a subsequent period has been
// closed, which would reorder the closing sequence.
var ErrLaterPeriodClosed = errors.New("period: a later period is already closed")

// ErrConfirmationMismatch is returned when the permanent-close confirmation
// does not match the sentinel.
var ErrConfirmationMismatch = errors.New("period: confirmation text does not match")

// ErrOverlap indicates the requested range conflicts with an existing period.
type ErrOverlap struct {
	Conflicting AccountingPeriod
}

func (e *ErrOverlap) Error() string {
	return "period: date range overlaps existing period"
}
