// Package erpnext is the typed HTTP client for the external ERPNext
// (Frappe) REST API. ERPNext is the system of record for every document
// this service touches; all persistence, document lifecycle, and accounting
// consistency live upstream.
package erpnext

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/batasku/periodgate/internal/platform/httpx"
)

// Document types used across the service.
const (
	DoctypeAccountingPeriod    = "Accounting Period"
	DoctypeAccount             = "Account"
	DoctypeGLEntry             = "GL Entry"
	DoctypeJournalEntry        = "Journal Entry"
	DoctypeFiscalYear          = "Fiscal Year"
	DoctypePeriodClosingLog    = "Period Closing Log"
	DoctypePeriodClosingConfig = "Period Closing Config"
	DoctypeUser                = "User"
	DoctypeRole                = "Role"
	DoctypeSalesInvoice        = "Sales Invoice"
	DoctypePurchaseInvoice     = "Purchase Invoice"
	DoctypePaymentEntry        = "Payment Entry"
	DoctypeStockEntry          = "Stock Entry"
	DoctypeSalarySlip          = "Salary Slip"
	DoctypeCompany             = "Company"
)

// CallObserver receives one callback per upstream request, for metrics.
type CallObserver interface {
	UpstreamCall(doctype, method string, err error)
}

// Client talks to one ERPNext deployment using API key/secret basic auth.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	observer   CallObserver
}

// NewClient constructs a client for the given base URL and credentials.
func NewClient(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	token := base64.StdEncoding.EncodeToString([]byte(apiKey + ":" + apiSecret))
	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithObserver installs a metrics observer for upstream calls.
func (c *Client) WithObserver(observer CallObserver) *Client {
	c.observer = observer
	return c
}

// Query bundles list-query options for GetList and Count.
type Query struct {
	Filters         Filters
	Fields          []string
	LimitPageLength int
	LimitStart      int
	OrderBy         string
}

func (q Query) encode() (url.Values, error) {
	params := url.Values{}
	if len(q.Filters) > 0 {
		raw, err := json.Marshal(q.Filters)
		if err != nil {
			return nil, fmt.Errorf("erpnext: encode filters: %w", err)
		}
		params.Set("filters", string(raw))
	}
	if len(q.Fields) > 0 {
		raw, err := json.Marshal(q.Fields)
		if err != nil {
			return nil, fmt.Errorf("erpnext: encode fields: %w", err)
		}
		params.Set("fields", string(raw))
	}
	if q.LimitPageLength > 0 {
		params.Set("limit_page_length", strconv.Itoa(q.LimitPageLength))
	}
	if q.LimitStart > 0 {
		params.Set("limit_start", strconv.Itoa(q.LimitStart))
	}
	if q.OrderBy != "" {
		params.Set("order_by", q.OrderBy)
	}
	return params, nil
}

type apiResponse struct {
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
	Exc     string          `json:"exc"`
	ExcType string          `json:"exc_type"`
}

// GetList fetches documents of the given doctype into out, which must be a
// pointer to a slice of the caller's row type.
func (c *Client) GetList(ctx context.Context, doctype string, q Query, out any) error {
	params, err := q.encode()
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/resource/%s?%s", c.baseURL, url.PathEscape(doctype), params.Encode())
	body, err := c.do(ctx, http.MethodGet, doctype, endpoint, nil)
	if err != nil {
		return err
	}
	if out == nil || len(body.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return httpx.Upstream(fmt.Sprintf("decoding %s list", doctype)).Wrap(err)
	}
	return nil
}

// Get fetches a single document by name into out.
func (c *Client) Get(ctx context.Context, doctype, name string, out any) error {
	endpoint := fmt.Sprintf("%s/api/resource/%s/%s", c.baseURL, url.PathEscape(doctype), url.PathEscape(name))
	body, err := c.do(ctx, http.MethodGet, doctype, endpoint, nil)
	if err != nil {
		return err
	}
	if out == nil || len(body.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return httpx.Upstream(fmt.Sprintf("decoding %s %q", doctype, name)).Wrap(err)
	}
	return nil
}

// Insert creates a document and decodes the created document into out.
func (c *Client) Insert(ctx context.Context, doctype string, doc any, out any) error {
	endpoint := fmt.Sprintf("%s/api/resource/%s", c.baseURL, url.PathEscape(doctype))
	body, err := c.do(ctx, http.MethodPost, doctype, endpoint, doc)
	if err != nil {
		return err
	}
	if out == nil || len(body.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return httpx.Upstream(fmt.Sprintf("decoding inserted %s", doctype)).Wrap(err)
	}
	return nil
}

// Update modifies fields on an existing document and decodes the updated
// document into out.
func (c *Client) Update(ctx context.Context, doctype, name string, doc any, out any) error {
	endpoint := fmt.Sprintf("%s/api/resource/%s/%s", c.baseURL, url.PathEscape(doctype), url.PathEscape(name))
	body, err := c.do(ctx, http.MethodPut, doctype, endpoint, doc)
	if err != nil {
		return err
	}
	if out == nil || len(body.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return httpx.Upstream(fmt.Sprintf("decoding updated %s %q", doctype, name)).Wrap(err)
	}
	return nil
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, doctype, name string) error {
	endpoint := fmt.Sprintf("%s/api/resource/%s/%s", c.baseURL, url.PathEscape(doctype), url.PathEscape(name))
	_, err := c.do(ctx, http.MethodDelete, doctype, endpoint, nil)
	return err
}

// Submit moves a document to docstatus 1 via frappe.client.submit.
func (c *Client) Submit(ctx context.Context, doctype, name string) error {
	endpoint := fmt.Sprintf("%s/api/method/frappe.client.submit", c.baseURL)
	payload := map[string]any{"doc": map[string]string{"doctype": doctype, "name": name}}
	_, err := c.do(ctx, http.MethodPost, doctype, endpoint, payload)
	return err
}

// Cancel moves a document to docstatus 2 via frappe.client.cancel.
func (c *Client) Cancel(ctx context.Context, doctype, name string) error {
	endpoint := fmt.Sprintf("%s/api/method/frappe.client.cancel", c.baseURL)
	payload := map[string]string{"doctype": doctype, "name": name}
	_, err := c.do(ctx, http.MethodPost, doctype, endpoint, payload)
	return err
}

// LoggedUser resolves the username behind a Frappe session cookie. Returns
// an empty string for missing or guest sessions.
func (c *Client) LoggedUser(ctx context.Context, sid string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/method/frappe.auth.get_logged_user", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", httpx.Upstream("building logged-user request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})

	resp, err := c.httpClient.Do(req)
	c.observe("auth", http.MethodGet, err)
	if err != nil {
		return "", httpx.Upstream("resolving logged user").Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return "", nil
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", httpx.Upstream("decoding logged user").Wrap(err)
	}
	if body.Message == "" || body.Message == "Guest" {
		return "", nil
	}
	return body.Message, nil
}

// Ping checks upstream availability.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/method/ping", c.baseURL)
	_, err := c.do(ctx, http.MethodGet, "ping", endpoint, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, doctype, endpoint string, payload any) (*apiResponse, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, httpx.Upstream(fmt.Sprintf("encoding %s payload", doctype)).Wrap(err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, httpx.Upstream(fmt.Sprintf("building %s request", doctype)).Wrap(err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	c.observe(doctype, method, err)
	if err != nil {
		return nil, httpx.Upstream(fmt.Sprintf("calling ERPNext for %s", doctype)).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httpx.Upstream(fmt.Sprintf("reading %s response", doctype)).Wrap(err)
	}
	var body apiResponse
	if len(raw) > 0 {
		// Some method endpoints return plain text; tolerate decode failures
		// on success responses only.
		if err := json.Unmarshal(raw, &body); err != nil && resp.StatusCode >= 400 {
			return nil, httpx.Upstream(fmt.Sprintf("ERPNext returned status %d for %s", resp.StatusCode, doctype))
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, httpx.NotFound(fmt.Sprintf("%s not found", doctype))
	}
	if resp.StatusCode >= 400 {
		return nil, httpx.Upstream(upstreamMessage(body, resp.StatusCode, doctype))
	}
	return &body, nil
}

func upstreamMessage(body apiResponse, status int, doctype string) string {
	var message string
	if len(body.Message) > 0 {
		_ = json.Unmarshal(body.Message, &message)
	}
	if message == "" && body.ExcType != "" {
		message = body.ExcType
	}
	if message == "" {
		message = fmt.Sprintf("ERPNext returned status %d for %s", status, doctype)
	}
	return message
}

func (c *Client) observe(doctype, method string, err error) {
	if c.observer != nil {
		c.observer.UpstreamCall(doctype, method, err)
	}
}
