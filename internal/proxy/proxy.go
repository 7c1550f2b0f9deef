// Package proxy exposes a read-only passthrough to a fixed set of upstream
// document types. Every other doctype, and every write verb, is rejected.
package proxy

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/platform/httpx"
)

// allowed maps URL slugs to upstream doctypes. Only documents relevant to
// period review are exposed.
var allowed = map[string]string{
	"sales-invoice":    erpnext.DoctypeSalesInvoice,
	"sales-order":      "Sales Order",
	"purchase-invoice": erpnext.DoctypePurchaseInvoice,
	"purchase-order":   "Purchase Order",
	"purchase-receipt": "Purchase Receipt",
	"delivery-note":    "Delivery Note",
	"stock-entry":      erpnext.DoctypeStockEntry,
	"journal-entry":    erpnext.DoctypeJournalEntry,
	"payment-entry":    erpnext.DoctypePaymentEntry,
	"gl-entry":         erpnext.DoctypeGLEntry,
	"account":          erpnext.DoctypeAccount,
}

// defaultPageLength bounds unpaginated list requests.
const defaultPageLength = 20

// maxPageLength caps the limit query parameter.
const maxPageLength = 500

type reader interface {
	GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error
	Get(ctx context.Context, doctype, name string, out any) error
}

// Handler serves the /resource subtree.
type Handler struct {
	client reader
}

// NewHandler constructs the proxy handler.
func NewHandler(client reader) *Handler {
	return &Handler{client: client}
}

// MountRoutes registers the proxy routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/resource", func(r chi.Router) {
		r.Get("/{doctype}", h.list)
		r.Get("/{doctype}/{name}", h.get)
	})
}

// reserved query keys are pagination and ordering controls, not filters.
var reserved = map[string]bool{"limit": true, "start": true, "order_by": true, "fields": true}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	doctype, ok := allowed[chi.URLParam(r, "doctype")]
	if !ok {
		httpx.RespondError(w, httpx.NotFound("unknown resource type"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > maxPageLength {
		limit = defaultPageLength
	}
	start, _ := strconv.Atoi(q.Get("start"))
	if start < 0 {
		start = 0
	}
	filters := erpnext.Filters{}
	for key, values := range q {
		if reserved[key] || len(values) == 0 {
			continue
		}
		filters = filters.Eq(key, values[0])
	}
	var docs []map[string]any
	err := h.client.GetList(r.Context(), doctype, erpnext.Query{
		Filters:         filters,
		LimitPageLength: limit,
		LimitStart:      start,
		OrderBy:         q.Get("order_by"),
	}, &docs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	httpx.OK(w, docs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	doctype, ok := allowed[chi.URLParam(r, "doctype")]
	if !ok {
		httpx.RespondError(w, httpx.NotFound("unknown resource type"))
		return
	}
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	var doc map[string]any
	if err := h.client.Get(r.Context(), doctype, name, &doc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, doc)
}
