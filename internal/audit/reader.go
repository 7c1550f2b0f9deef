package audit

import (
	"context"

	"github.com/batasku/periodgate/internal/erpnext"
)

// Filters menyaring pembacaan log audit. From dan To membatasi action_date
// (inklusif, format YYYY-MM-DD).
type Filters struct {
	Period   string
	Action   string
	ActionBy string
	From     string
	To       string
	Page     int
	PageSize int
}

// PagingInfo membawa informasi halaman untuk klien.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result membungkus hasil pembacaan dengan informasi paging.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

type pagedLister interface {
	GetList(ctx context.Context, doctype string, q erpnext.Query, out any) error
}

// Reader membaca log audit dari upstream dengan paging.
type Reader struct {
	client pagedLister
}

// NewReader membuat Reader baru.
func NewReader(client pagedLister) *Reader {
	return &Reader{client: client}
}

// List mengambil entri terbaru lebih dulu. Satu baris ekstra diminta untuk
// mendeteksi halaman berikutnya.
func (r *Reader) List(ctx context.Context, f Filters) (Result, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	filters := erpnext.Filters{}
	if f.Period != "" {
		filters = filters.Eq("accounting_period", f.Period)
	}
	if f.Action != "" {
		filters = filters.Eq("action_type", f.Action)
	}
	if f.ActionBy != "" {
		filters = filters.Eq("action_by", f.ActionBy)
	}
	if f.From != "" {
		filters = filters.Gte("action_date", f.From)
	}
	if f.To != "" {
		to := f.To
		// action_date menyimpan waktu; tanggal polos diperluas agar
		// hari terakhir ikut terhitung.
		if len(to) == 10 {
			to += " 23:59:59"
		}
		filters = filters.Lte("action_date", to)
	}

	var rows []Entry
	err := r.client.GetList(ctx, erpnext.DoctypePeriodClosingLog, erpnext.Query{
		Filters: filters,
		Fields: []string{
			"name", "accounting_period", "action_type", "action_by",
			"action_date", "reason", "before_snapshot", "after_snapshot",
		},
		OrderBy:         "action_date desc",
		LimitStart:      offset,
		LimitPageLength: pageSize + 1,
	}, &rows)
	if err != nil {
		return Result{}, err
	}

	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
