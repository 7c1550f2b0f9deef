// Package audit menulis dan membaca jejak audit penutupan periode ke
// doctype Period Closing Log di ERPNext. Penulisan bersifat best-effort:
// kegagalan dicatat dan dihitung, tapi tidak pernah menggagalkan operasi
// induknya.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/batasku/periodgate/internal/erpnext"
)

// ActionType enumerasi aksi yang tercatat di log.
type ActionType string

const (
	ActionCreated           ActionType = "Created"
	ActionClosed            ActionType = "Closed"
	ActionReopened          ActionType = "Reopened"
	ActionPermanentlyClosed ActionType = "Permanently Closed"
	ActionConfigChanged     ActionType = "Configuration Changed"
)

// Entry adalah satu baris Period Closing Log. Snapshot disimpan sebagai
// string JSON di upstream.
type Entry struct {
	Name             string `json:"name,omitempty"`
	AccountingPeriod string `json:"accounting_period,omitempty"`
	ActionType       string `json:"action_type"`
	ActionBy         string `json:"action_by"`
	ActionDate       string `json:"action_date"`
	Reason           string `json:"reason,omitempty"`
	BeforeSnapshot   string `json:"before_snapshot,omitempty"`
	AfterSnapshot    string `json:"after_snapshot,omitempty"`
}

// Record menampung satu aksi yang akan dicatat. Before dan After
// diserialisasi ke JSON sebelum dikirim.
type Record struct {
	AccountingPeriod string
	Action           ActionType
	ActionBy         string
	Reason           string
	Before           any
	After            any
}

type inserter interface {
	Insert(ctx context.Context, doctype string, doc any, out any) error
}

// FailureObserver menerima satu panggilan per kegagalan tulis.
type FailureObserver interface {
	AuditWriteFailed()
}

// Writer menulis entri audit ke upstream.
type Writer struct {
	client   inserter
	log      *slog.Logger
	observer FailureObserver
	now      func() time.Time
}

// NewWriter membuat Writer baru. Observer boleh nil.
func NewWriter(client inserter, log *slog.Logger, observer FailureObserver) *Writer {
	return &Writer{client: client, log: log, observer: observer, now: time.Now}
}

// WithNow mengganti jam untuk pengujian deterministik.
func (w *Writer) WithNow(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}

// Write mencatat satu aksi. Kegagalan hanya dilaporkan lewat log dan
// metrik; pemanggil tidak perlu memeriksa hasilnya.
func (w *Writer) Write(ctx context.Context, rec Record) {
	entry := Entry{
		AccountingPeriod: rec.AccountingPeriod,
		ActionType:       string(rec.Action),
		ActionBy:         rec.ActionBy,
		ActionDate:       w.now().UTC().Format("2006-01-02 15:04:05"),
		Reason:           rec.Reason,
		BeforeSnapshot:   snapshot(rec.Before),
		AfterSnapshot:    snapshot(rec.After),
	}
	if err := w.client.Insert(ctx, erpnext.DoctypePeriodClosingLog, entry, nil); err != nil {
		w.log.ErrorContext(ctx, "audit write failed",
			slog.String("period", rec.AccountingPeriod),
			slog.String("action", string(rec.Action)),
			slog.Any("error", err),
		)
		if w.observer != nil {
			w.observer.AuditWriteFailed()
		}
	}
}

func snapshot(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
