// Package report assembles the closing summary for a period and renders it
// to PDF through a Gotenberg sidecar.
package report

import (
	"bytes"
	"context"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/period"
)

type periodSource interface {
	Get(ctx context.Context, name string) (period.AccountingPeriod, error)
	Balances(ctx context.Context, name string) (cumulative, periodOnly []balance.AccountBalance, err error)
}

// Service builds closing summaries. The PDF client may be nil, in which
// case only the JSON summary is available.
type Service struct {
	periods periodSource
	pdf     *Client
}

// NewService constructs the report service.
func NewService(periods periodSource, pdf *Client) *Service {
	return &Service{periods: periods, pdf: pdf}
}

// Summary is the closing report for one period: balances split into the
// nominal set that was swept and the real set that carries forward.
type Summary struct {
	Period      period.AccountingPeriod  `json:"period"`
	Nominal     []balance.AccountBalance `json:"nominal"`
	Real        []balance.AccountBalance `json:"real"`
	NetIncome   decimal.Decimal          `json:"net_income"`
	TotalDebit  decimal.Decimal          `json:"total_debit"`
	TotalCredit decimal.Decimal          `json:"total_credit"`
}

// ClosingSummary computes the summary from the cumulative balances of the
// named period.
func (s *Service) ClosingSummary(ctx context.Context, periodName string) (Summary, error) {
	p, err := s.periods.Get(ctx, periodName)
	if err != nil {
		return Summary{}, err
	}
	cumulative, _, err := s.periods.Balances(ctx, periodName)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Period: p, Nominal: []balance.AccountBalance{}, Real: []balance.AccountBalance{}}
	for _, b := range cumulative {
		summary.TotalDebit = summary.TotalDebit.Add(b.Debit)
		summary.TotalCredit = summary.TotalCredit.Add(b.Credit)
		if b.IsNominal {
			summary.Nominal = append(summary.Nominal, b)
		} else {
			summary.Real = append(summary.Real, b)
		}
	}
	summary.NetIncome = balance.NetIncome(summary.Nominal)
	return summary, nil
}

// PDFAvailable reports whether a renderer is configured.
func (s *Service) PDFAvailable() bool { return s.pdf != nil }

// RenderPDF renders the summary through Gotenberg.
func (s *Service) RenderPDF(ctx context.Context, summary Summary) ([]byte, error) {
	var html bytes.Buffer
	if err := summaryTemplate.Execute(&html, summary); err != nil {
		return nil, err
	}
	return s.pdf.RenderHTML(ctx, html.String())
}

var summaryTemplate = template.Must(template.New("closing-summary").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Closing Summary {{.Period.PeriodName}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 16px; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
td.amount { text-align: right; }
</style>
</head>
<body>
<h1>Closing Summary: {{.Period.PeriodName}}</h1>
<p>{{.Period.Company}} &mdash; {{.Period.StartDate}} to {{.Period.EndDate}} ({{.Period.Status}})</p>
<h2>Nominal Accounts</h2>
<table>
<tr><th>Account</th><th>Root Type</th><th>Debit</th><th>Credit</th><th>Balance</th></tr>
{{range .Nominal}}<tr><td>{{.Account}}</td><td>{{.RootType}}</td><td class="amount">{{.Debit}}</td><td class="amount">{{.Credit}}</td><td class="amount">{{.Balance}}</td></tr>
{{end}}</table>
<h2>Real Accounts</h2>
<table>
<tr><th>Account</th><th>Root Type</th><th>Debit</th><th>Credit</th><th>Balance</th></tr>
{{range .Real}}<tr><td>{{.Account}}</td><td>{{.RootType}}</td><td class="amount">{{.Debit}}</td><td class="amount">{{.Credit}}</td><td class="amount">{{.Balance}}</td></tr>
{{end}}</table>
<p><strong>Net income: {{.NetIncome}}</strong></p>
<p>Total debit {{.TotalDebit}} / total credit {{.TotalCredit}}</p>
</body>
</html>`))
