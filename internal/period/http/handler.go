// Package periodhttp exposes the accounting period lifecycle over JSON
// endpoints mounted under /accounting-period.
package periodhttp

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/batasku/periodgate/internal/audit"
	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/balance"
	"github.com/batasku/periodgate/internal/period"
	"github.com/batasku/periodgate/internal/platform/httpx"
	"github.com/batasku/periodgate/report"
)

type periodService interface {
	List(ctx context.Context, f period.ListFilter) ([]period.AccountingPeriod, int, error)
	Get(ctx context.Context, name string) (period.AccountingPeriod, error)
	Create(ctx context.Context, actor authz.Actor, in period.CreateInput) (period.AccountingPeriod, error)
	Patch(ctx context.Context, actor authz.Actor, name string, in period.PatchInput) (period.AccountingPeriod, error)
	Balances(ctx context.Context, name string) (cumulative, periodOnly []balance.AccountBalance, err error)
	Validate(ctx context.Context, name string) ([]period.ValidationResult, error)
	Close(ctx context.Context, actor authz.Actor, name string, in period.CloseInput) (period.CloseResult, error)
	PreviewClosing(ctx context.Context, name string) (period.ClosingPreview, error)
	CheckRestriction(ctx context.Context, actor authz.Actor, in period.CheckRestrictionInput) (period.RestrictionResult, error)
	Reopen(ctx context.Context, actor authz.Actor, name string, in period.ReopenInput) (period.AccountingPeriod, error)
	PermanentClose(ctx context.Context, actor authz.Actor, name string, in period.PermanentCloseInput) (period.AccountingPeriod, error)
	GenerateMonthly(ctx context.Context, actor authz.Actor, in period.GenerateMonthlyInput) (period.GenerateMonthlyResult, error)
}

type configService interface {
	Load(ctx context.Context) (period.Config, error)
	Update(ctx context.Context, actor authz.Actor, cfg period.Config) (period.Config, error)
}

type auditReader interface {
	List(ctx context.Context, f audit.Filters) (audit.Result, error)
}

type reportService interface {
	ClosingSummary(ctx context.Context, periodName string) (report.Summary, error)
	PDFAvailable() bool
	RenderPDF(ctx context.Context, summary report.Summary) ([]byte, error)
}

// Handler wires the accounting period endpoints.
type Handler struct {
	logger   *slog.Logger
	validate *validator.Validate
	service  periodService
	config   configService
	audits   auditReader
	reports  reportService
}

// NewHandler constructs the period HTTP handler.
func NewHandler(logger *slog.Logger, service periodService, config configService, audits auditReader, reports reportService) *Handler {
	return &Handler{
		logger:   logger,
		validate: validator.New(),
		service:  service,
		config:   config,
		audits:   audits,
		reports:  reports,
	}
}

// MountRoutes registers the /accounting-period subtree on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounting-period", func(r chi.Router) {
		r.Get("/periods", h.listPeriods)
		r.Post("/periods", h.createPeriod)
		r.Get("/periods/{name}", h.getPeriod)
		r.Patch("/periods/{name}", h.patchPeriod)
		r.Get("/balances/{name}", h.balances)
		r.Post("/validate", h.validatePeriod)
		r.Post("/close", h.closePeriod)
		r.Get("/preview-closing/{name}", h.previewClosing)
		r.Post("/check-restriction", h.checkRestriction)
		r.Post("/reopen", h.reopenPeriod)
		r.Post("/permanent-close", h.permanentClose)
		r.Get("/config", h.getConfig)
		r.Put("/config", h.putConfig)
		r.Get("/audit-log", h.auditLog)
		r.Get("/reports/closing-summary", h.closingSummary)
		r.Post("/generate-monthly", h.generateMonthly)
	})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, ok := authz.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.Unauthenticated("authentication required"))
		return authz.Actor{}, false
	}
	return actor, true
}

func periodName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	start, _ := strconv.Atoi(q.Get("start"))
	periods, total, err := h.service.List(r.Context(), period.ListFilter{
		Company:    q.Get("company"),
		Status:     q.Get("status"),
		FiscalYear: q.Get("fiscal_year"),
		Limit:      limit,
		Start:      start,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OKList(w, periods, total)
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in period.CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("invalid period payload").Wrap(err))
		return
	}
	created, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, created, "accounting period created")
}

func (h *Handler) getPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), periodName(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, p)
}

func (h *Handler) patchPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in period.PatchInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Patch(r.Context(), actor, periodName(r), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, updated)
}

type balancesPayload struct {
	Cumulative []balance.AccountBalance `json:"cumulative"`
	PeriodOnly []balance.AccountBalance `json:"period_only"`
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	cumulative, periodOnly, err := h.service.Balances(r.Context(), periodName(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, balancesPayload{Cumulative: cumulative, PeriodOnly: periodOnly})
}

type periodRef struct {
	PeriodName string `json:"period_name" validate:"required"`
	Company    string `json:"company"`
}

func (h *Handler) validatePeriod(w http.ResponseWriter, r *http.Request) {
	var in periodRef
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("period_name is required").Wrap(err))
		return
	}
	results, err := h.service.Validate(r.Context(), in.PeriodName)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{
		"validations": results,
		"can_close":   len(period.BlockingFailures(results)) == 0,
	})
}

type closeRequest struct {
	PeriodName string `json:"period_name" validate:"required"`
	Company    string `json:"company"`
	Force      bool   `json:"force"`
	Remarks    string `json:"remarks"`
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in closeRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("period_name is required").Wrap(err))
		return
	}
	result, err := h.service.Close(r.Context(), actor, in.PeriodName, period.CloseInput{
		Company: in.Company,
		Force:   in.Force,
		Remarks: in.Remarks,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, result, "accounting period closed")
}

func (h *Handler) previewClosing(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	preview, err := h.service.PreviewClosing(r.Context(), periodName(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, preview)
}

func (h *Handler) checkRestriction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in period.CheckRestrictionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("company, posting_date (YYYY-MM-DD) and doctype are required").Wrap(err))
		return
	}
	result, err := h.service.CheckRestriction(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

type reopenRequest struct {
	PeriodName string `json:"period_name" validate:"required"`
	Company    string `json:"company"`
	Reason     string `json:"reason" validate:"required"`
}

func (h *Handler) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in reopenRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("period_name and reason are required").Wrap(err))
		return
	}
	reopened, err := h.service.Reopen(r.Context(), actor, in.PeriodName, period.ReopenInput{
		Company: in.Company,
		Reason:  in.Reason,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, reopened, "accounting period reopened")
}

type permanentCloseRequest struct {
	PeriodName   string `json:"period_name" validate:"required"`
	Company      string `json:"company"`
	Confirmation string `json:"confirmation" validate:"required"`
	Reason       string `json:"reason"`
}

func (h *Handler) permanentClose(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in permanentCloseRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("period_name and confirmation are required").Wrap(err))
		return
	}
	sealed, err := h.service.PermanentClose(r.Context(), actor, in.PeriodName, period.PermanentCloseInput{
		Company:      in.Company,
		Confirmation: in.Confirmation,
		Reason:       in.Reason,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, sealed, "accounting period permanently closed")
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := authz.CanModifyConfig(actor); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cfg, err := h.config.Load(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, cfg)
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := authz.CanModifyConfig(actor); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var cfg period.Config
	if err := httpx.DecodeJSON(r, &cfg); err != nil {
		httpx.RespondError(w, err)
		return
	}
	saved, err := h.config.Update(r.Context(), actor, cfg)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, saved, "configuration updated")
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := authz.CanViewAuditLog(actor); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	result, err := h.audits.List(r.Context(), audit.Filters{
		Period:   q.Get("period_name"),
		Action:   q.Get("action_type"),
		ActionBy: q.Get("action_by"),
		From:     q.Get("from_date"),
		To:       q.Get("to_date"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) closingSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("period")
	if name == "" {
		name = q.Get("period_name")
	}
	if name == "" {
		httpx.RespondError(w, httpx.BadRequest("period query parameter is required"))
		return
	}
	summary, err := h.reports.ClosingSummary(r.Context(), name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	switch q.Get("format") {
	case "":
		httpx.OK(w, summary)
	case "pdf":
		if !h.reports.PDFAvailable() {
			httpx.RespondError(w, httpx.Misconfigured("pdf rendering is not configured"))
			return
		}
		pdf, err := h.reports.RenderPDF(r.Context(), summary)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="closing-summary.pdf"`)
		_, _ = w.Write(pdf)
	case "excel":
		// Excel export is not implemented; callers get a descriptive
		// placeholder instead of a file.
		httpx.OKMessage(w, map[string]any{"export_url": nil, "format": "excel"}, "excel export is not yet available")
	default:
		httpx.RespondError(w, httpx.BadRequest("format must be pdf or excel"))
	}
}

func (h *Handler) generateMonthly(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in period.GenerateMonthlyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, httpx.BadRequest("company and fiscal_year are required").Wrap(err))
		return
	}
	result, err := h.service.GenerateMonthly(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, result, "monthly periods generated")
}
