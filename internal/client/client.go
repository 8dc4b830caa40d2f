// Package client talks to the expense backend over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

const defaultTimeout = 30 * time.Second

// Client communicates with the expense backend. Every failure, whether
// transport, status or decoding, is returned as a *core.NetworkError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// New creates a client for baseURL (e.g. http://localhost:8080). A nil
// httpClient gets a default one with a 30s timeout.
func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.WithComponent(log.ComponentClient),
	}
}

// ImportExpenses submits records in one bulk request.
func (c *Client) ImportExpenses(ctx context.Context, records []core.ExpenseRecord) (core.BackendImportResult, error) {
	payload := make([]core.ExpenseRecord, len(records))
	for i, r := range records {
		r.ID = ""
		payload[i] = r
	}
	var body importResponse
	status, err := c.send(ctx, "import expenses", http.MethodPost, "/api/expenses/import", nil, payload, &body)
	if err != nil {
		return core.BackendImportResult{}, err
	}
	res, err := body.result(len(records))
	if err != nil {
		return core.BackendImportResult{}, &core.NetworkError{Op: "import expenses", StatusCode: status, Err: err}
	}
	c.logger.DebugContext(ctx, "Bulk import response",
		log.FieldSubmitted, len(records),
		log.FieldImported, res.Imported,
		log.FieldSkipped, res.Skipped,
		log.FieldFailed, res.Failed)
	return res, nil
}

// importResponse mirrors the bulk import reply. Every counter must be
// present; a body without them is not a result.
type importResponse struct {
	Imported *int `json:"imported"`
	Skipped  *int `json:"skipped"`
	Failed   *int `json:"failed"`
}

func (r importResponse) result(submitted int) (core.BackendImportResult, error) {
	if r.Imported == nil || r.Skipped == nil || r.Failed == nil {
		return core.BackendImportResult{}, errors.New("import response lacks imported/skipped/failed counts")
	}
	res := core.BackendImportResult{Imported: *r.Imported, Skipped: *r.Skipped, Failed: *r.Failed}
	if res.Imported < 0 || res.Skipped < 0 || res.Failed < 0 {
		return core.BackendImportResult{}, fmt.Errorf("import response has negative counts: %+v", res)
	}
	if res.Total() > submitted {
		return core.BackendImportResult{}, fmt.Errorf("import response accounts for %d rows, %d were submitted", res.Total(), submitted)
	}
	return res, nil
}

// ListExpenses returns the records matching f. Records outside the filter
// are dropped client side too, in case the backend ignores a parameter.
func (c *Client) ListExpenses(ctx context.Context, f core.Filter) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	path := "/api/expenses"
	if f.Year == 0 {
		path = "/api/expenses/all"
	}
	if err := c.do(ctx, "list expenses", http.MethodGet, path, filterQuery(f), nil, &out); err != nil {
		return nil, err
	}
	return f.Apply(out), nil
}

func (c *Client) CreateExpense(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error) {
	var out core.ExpenseRecord
	err := c.do(ctx, "create expense", http.MethodPost, "/api/expenses", nil, r, &out)
	return out, err
}

func (c *Client) UpdateExpense(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error) {
	var out core.ExpenseRecord
	err := c.do(ctx, "update expense", http.MethodPut, "/api/expenses/"+url.PathEscape(r.ID), nil, r, &out)
	return out, err
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, "delete expense", http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) CategorySummary(ctx context.Context, year, month int) (core.CategoryTotals, error) {
	out := core.CategoryTotals{}
	err := c.do(ctx, "category summary", http.MethodGet, "/api/expenses/category-summary", yearMonthQuery(year, month), nil, &out)
	return out, err
}

func (c *Client) YearToDate(ctx context.Context, year int) (core.CategoryTotals, error) {
	out := core.CategoryTotals{}
	err := c.do(ctx, "year to date", http.MethodGet, "/api/expenses/year-to-date", yearMonthQuery(year, 0), nil, &out)
	return out, err
}

func (c *Client) MonthlyTotal(ctx context.Context, year, month int) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal `json:"total"`
	}
	err := c.do(ctx, "monthly total", http.MethodGet, "/api/expenses/monthly-total", yearMonthQuery(year, month), nil, &out)
	return out.Total, err
}

func (c *Client) MonthlyTrend(ctx context.Context, year int) ([12]decimal.Decimal, error) {
	var trend [12]decimal.Decimal
	var out []decimal.Decimal
	if err := c.do(ctx, "monthly trend", http.MethodGet, "/api/expenses/monthly-trend", yearMonthQuery(year, 0), nil, &out); err != nil {
		return trend, err
	}
	if len(out) != len(trend) {
		return trend, &core.NetworkError{Op: "monthly trend", Err: fmt.Errorf("expected 12 values, got %d", len(out))}
	}
	copy(trend[:], out)
	return trend, nil
}

func (c *Client) ListRecurring(ctx context.Context) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	err := c.do(ctx, "list recurring", http.MethodGet, "/api/expenses/recurring", nil, nil, &out)
	return out, err
}

func (c *Client) CreateRecurring(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	var out core.RecurringTemplate
	err := c.do(ctx, "create recurring", http.MethodPost, "/api/expenses/recurring", nil, rt, &out)
	return out, err
}

func (c *Client) DeleteRecurring(ctx context.Context, id string) error {
	return c.do(ctx, "delete recurring", http.MethodDelete, "/api/expenses/recurring/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	err := c.do(ctx, "list categories", http.MethodGet, "/api/categories", nil, nil, &out)
	return out, err
}

// Ping checks the backend health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "health check", http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	_, err := c.send(ctx, op, method, path, query, body, out)
	return err
}

// send performs one request and returns the response status. Failures are
// *core.NetworkError values.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, &core.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed", log.FieldOperation, op, log.FieldError, err)
		return 0, &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.logger.WarnContext(ctx, "Backend returned error status",
			log.FieldOperation, op,
			log.FieldStatusCode, resp.StatusCode)
		return resp.StatusCode, &core.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(msg, resp.Status))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &core.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldOperation, op,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())
	return resp.StatusCode, nil
}

// errorMessage extracts {"error": "..."} bodies, falling back to the status.
func errorMessage(body []byte, status string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return status
}

func filterQuery(f core.Filter) url.Values {
	q := yearMonthQuery(f.Year, f.Month)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	return q
}

func yearMonthQuery(year, month int) url.Values {
	q := url.Values{}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if month != 0 {
		q.Set("month", strconv.Itoa(month))
	}
	return q
}
