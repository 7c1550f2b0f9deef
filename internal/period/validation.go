package period

import (
	"context"
	"fmt"

	"github.com/batasku/periodgate/internal/erpnext"
)

// checkPageLength caps the sample of offending documents returned per check.
const checkPageLength = 100

// Validation check names, reported verbatim to callers and the audit trail.
const (
	CheckDraftTransactions  = "draft_transactions"
	CheckUnpostedVouchers   = "unposted_vouchers"
	CheckBankReconciliation = "bank_reconciliation"
	CheckDraftSalesInvoices = "draft_sales_invoices"
	CheckDraftPurchaseInvs  = "draft_purchase_invoices"
	CheckDraftStockEntries  = "draft_stock_entries"
	CheckDraftSalarySlips   = "draft_salary_slips"
)

type validationLister interface {
	GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error
}

// Validator runs the configurable pre-close checks for a period. Each check
// can be switched off in the config singleton; disabled checks report as
// passed without querying upstream.
type Validator struct {
	client validationLister
}

// NewValidator constructs a Validator over the given ERPNext client.
func NewValidator(client validationLister) *Validator {
	return &Validator{client: client}
}

type docRef struct {
	Name        string `json:"name"`
	PostingDate string `json:"posting_date,omitempty"`
}

// Run executes every enabled check against the period's company and date
// range. Results come back in a fixed order regardless of outcome.
func (v *Validator) Run(ctx context.Context, cfg Config, p AccountingPeriod) ([]ValidationResult, error) {
	type check struct {
		enabled bool
		run     func(context.Context, AccountingPeriod) (ValidationResult, error)
	}
	checks := []check{
		{cfg.ValidateDraftTransactions.Bool(), v.draftTransactions},
		{cfg.ValidateUnpostedVouchers.Bool(), v.unpostedVouchers},
		{cfg.ValidateBankReconciliation.Bool(), v.bankReconciliation},
		{cfg.ValidateDraftSalesInvoices.Bool(), v.draftDocs(CheckDraftSalesInvoices, erpnext.DoctypeSalesInvoice, SeverityError)},
		{cfg.ValidateDraftPurchaseInvs.Bool(), v.draftDocs(CheckDraftPurchaseInvs, erpnext.DoctypePurchaseInvoice, SeverityError)},
		{cfg.ValidateDraftStockEntries.Bool(), v.draftDocs(CheckDraftStockEntries, erpnext.DoctypeStockEntry, SeverityError)},
		{cfg.ValidateDraftSalarySlips.Bool(), v.draftDocs(CheckDraftSalarySlips, erpnext.DoctypeSalarySlip, SeverityError)},
	}
	results := make([]ValidationResult, 0, len(checks))
	for _, c := range checks {
		if !c.enabled {
			continue
		}
		result, err := c.run(ctx, p)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// draftTransactions flags drafts across the core transactional doctypes
// whose posting date falls inside the period.
func (v *Validator) draftTransactions(ctx context.Context, p AccountingPeriod) (ValidationResult, error) {
	doctypes := []string{
		erpnext.DoctypeJournalEntry,
		erpnext.DoctypeSalesInvoice,
		erpnext.DoctypePurchaseInvoice,
		erpnext.DoctypePaymentEntry,
	}
	counts := map[string]int{}
	total := 0
	for _, doctype := range doctypes {
		refs, err := v.listDrafts(ctx, doctype, p)
		if err != nil {
			return ValidationResult{}, err
		}
		if len(refs) > 0 {
			counts[doctype] = len(refs)
			total += len(refs)
		}
	}
	if total == 0 {
		return passed(CheckDraftTransactions, "no draft transactions in period"), nil
	}
	return ValidationResult{
		CheckName: CheckDraftTransactions,
		Passed:    false,
		Message:   fmt.Sprintf("%d draft transaction(s) dated inside the period", total),
		Severity:  SeverityError,
		Details:   counts,
	}, nil
}

// unpostedVouchers flags submitted vouchers in the period that produced no
// ledger postings, which usually means a failed background submit.
func (v *Validator) unpostedVouchers(ctx context.Context, p AccountingPeriod) (ValidationResult, error) {
	var vouchers []docRef
	err := v.client.GetList(ctx, erpnext.DoctypeJournalEntry, erpnext.Query{
		Filters:         v.periodFilters(p).Eq("docstatus", 1),
		Fields:          []string{"name", "posting_date"},
		LimitPageLength: checkPageLength,
	}, &vouchers)
	if err != nil {
		return ValidationResult{}, err
	}
	var unposted []string
	for _, voucher := range vouchers {
		var entries []struct {
			Name string `json:"name"`
		}
		err := v.client.GetList(ctx, erpnext.DoctypeGLEntry, erpnext.Query{
			Filters: erpnext.Filters{}.
				Eq("voucher_type", erpnext.DoctypeJournalEntry).
				Eq("voucher_no", voucher.Name).
				Eq("is_cancelled", 0),
			Fields:          []string{"name"},
			LimitPageLength: 1,
		}, &entries)
		if err != nil {
			return ValidationResult{}, err
		}
		if len(entries) == 0 {
			unposted = append(unposted, voucher.Name)
		}
	}
	if len(unposted) == 0 {
		return passed(CheckUnpostedVouchers, "all submitted vouchers have ledger entries"), nil
	}
	return ValidationResult{
		CheckName: CheckUnpostedVouchers,
		Passed:    false,
		Message:   fmt.Sprintf("%d submitted voucher(s) have no GL entries", len(unposted)),
		Severity:  SeverityError,
		Details:   unposted,
	}, nil
}

// bankReconciliation flags submitted payment entries without a clearance
// date. Unreconciled payments are a warning, not a blocker.
func (v *Validator) bankReconciliation(ctx context.Context, p AccountingPeriod) (ValidationResult, error) {
	var unreconciled []docRef
	err := v.client.GetList(ctx, erpnext.DoctypePaymentEntry, erpnext.Query{
		Filters: v.periodFilters(p).
			Eq("docstatus", 1).
			IsNotSet("clearance_date"),
		Fields:          []string{"name", "posting_date"},
		LimitPageLength: checkPageLength,
	}, &unreconciled)
	if err != nil {
		return ValidationResult{}, err
	}
	if len(unreconciled) == 0 {
		return passed(CheckBankReconciliation, "all payment entries reconciled"), nil
	}
	return ValidationResult{
		CheckName: CheckBankReconciliation,
		Passed:    false,
		Message:   fmt.Sprintf("%d payment entries not yet reconciled", len(unreconciled)),
		Severity:  SeverityWarning,
		Details:   names(unreconciled),
	}, nil
}

// draftDocs builds a per-doctype draft check.
func (v *Validator) draftDocs(checkName, doctype, severity string) func(context.Context, AccountingPeriod) (ValidationResult, error) {
	return func(ctx context.Context, p AccountingPeriod) (ValidationResult, error) {
		refs, err := v.listDrafts(ctx, doctype, p)
		if err != nil {
			return ValidationResult{}, err
		}
		if len(refs) == 0 {
			return passed(checkName, fmt.Sprintf("no draft %s documents in period", doctype)), nil
		}
		return ValidationResult{
			CheckName: checkName,
			Passed:    false,
			Message:   fmt.Sprintf("%d draft %s document(s) dated inside the period", len(refs), doctype),
			Severity:  severity,
			Details:   names(refs),
		}, nil
	}
}

func (v *Validator) listDrafts(ctx context.Context, doctype string, p AccountingPeriod) ([]docRef, error) {
	var refs []docRef
	err := v.client.GetList(ctx, doctype, erpnext.Query{
		Filters:         v.periodFilters(p).Eq("docstatus", 0),
		Fields:          []string{"name", "posting_date"},
		LimitPageLength: checkPageLength,
	}, &refs)
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (v *Validator) periodFilters(p AccountingPeriod) erpnext.Filters {
	return erpnext.Filters{}.
		Eq("company", p.Company).
		Gte("posting_date", p.StartDate).
		Lte("posting_date", p.EndDate)
}

func names(refs []docRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Name)
	}
	return out
}

func passed(checkName, message string) ValidationResult {
	return ValidationResult{
		CheckName: checkName,
		Passed:    true,
		Message:   message,
		Severity:  SeverityError,
	}
}
