package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/middleware/ratelimit"
	"fleetbudget/internal/services"
	"fleetbudget/internal/storage/memory"
)

var fixedNow = time.Date(2025, 3, 20, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := memory.New(
		core.Vehicle{ID: "v1", Registration: "WX 1001"},
		core.Vehicle{ID: "v2", Registration: "WX 1002"},
	)
	budget := services.NewBudgetService(store, store, store, nil,
		services.WithClock(clock), services.WithBudgetLogger(log.Discard()))
	invoices := services.NewInvoiceService(store, store, nil, budget, "PLN")
	invoices.SetClock(clock)
	invoices.SetLogger(log.Discard())

	opts.Logger = log.Discard()
	opts.Now = clock
	if opts.RateLimit.Burst == 0 {
		opts.RateLimit = ratelimit.Config{RequestsPerSecond: 1000, Burst: 1000}
	}
	srv := NewServer(":0", Services{Invoices: invoices, Budget: budget, Fleet: services.NewFleetService(store)}, opts)
	t.Cleanup(srv.limiter.Stop)
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("database is closed") }})
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestPreviewInvoice(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name      string
		body      string
		status    int
		code      string
		index     *int
		field     string
		wantGross string
	}{
		{
			name:      "two stage rounding",
			body:      `{"items":[{"name":"Diesel","quantity":2,"unit_price_net":10.005,"vat_rate":23},{"name":"Wipers","quantity":1,"unit_price_net":"15.00","vat_rate":8}]}`,
			status:    http.StatusOK,
			wantGross: "40.82",
		},
		{
			name:   "empty items",
			body:   `{"items":[]}`,
			status: http.StatusUnprocessableEntity,
			code:   core.CodeEmptyItems,
		},
		{
			name:   "zero quantity reports its index",
			body:   `{"items":[{"quantity":1,"unit_price_net":1,"vat_rate":23},{"quantity":0,"unit_price_net":1,"vat_rate":23}]}`,
			status: http.StatusUnprocessableEntity,
			code:   core.CodeInvalidItem,
			index:  intPtr(1),
			field:  "quantity",
		},
		{
			name:   "negative price",
			body:   `{"items":[{"quantity":1,"unit_price_net":-5,"vat_rate":23}]}`,
			status: http.StatusUnprocessableEntity,
			code:   core.CodeInvalidItem,
			index:  intPtr(0),
			field:  "unit_price_net",
		},
		{
			name:   "missing vat rate",
			body:   `{"items":[{"quantity":1,"unit_price_net":5}]}`,
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name:   "malformed json",
			body:   `{"items":`,
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/invoices/preview", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if tt.wantGross != "" {
				inv := decode[invoiceResponse](t, rr)
				if inv.TotalGross != tt.wantGross || inv.Items[0].UnitPriceGross != "12.31" {
					t.Fatalf("unexpected totals %+v", inv)
				}
				return
			}
			e := decode[errorBody](t, rr)
			if e.Code != tt.code || e.Field != tt.field {
				t.Fatalf("error = %+v", e)
			}
			if (tt.index == nil) != (e.Index == nil) || (tt.index != nil && *tt.index != *e.Index) {
				t.Fatalf("index = %v, want %v", e.Index, tt.index)
			}
		})
	}
}

func intPtr(i int) *int { return &i }

func TestInvoiceBudgetFlow(t *testing.T) {
	srv := newTestServer(t, Options{})

	if rr := do(t, srv, http.MethodPut, "/api/budget/limit", `{"amount":"30"}`); rr.Code != http.StatusOK {
		t.Fatalf("set limit status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := do(t, srv, http.MethodPost, "/api/invoices",
		`{"vehicle_id":"v1","order_date":"2025-03-14","supplier":"Orlen","items":[{"name":"Diesel","quantity":2,"unit_price_net":10.005,"vat_rate":23},{"name":"Wipers","quantity":1,"unit_price_net":15,"vat_rate":8}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	order := decode[orderResponse](t, rr)
	if order.Invoice.TotalGross != "40.82" || order.CurrencyCode != "PLN" {
		t.Fatalf("unexpected order %+v", order)
	}

	if rr := do(t, srv, http.MethodGet, "/api/invoices/"+order.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("get invoice status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/invoices/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing invoice status=%d", rr.Code)
	}
	list := decode[[]orderResponse](t, do(t, srv, http.MethodGet, "/api/invoices?period=2025-03&vehicle_id=v1", ""))
	if len(list) != 1 {
		t.Fatalf("orders = %d, want 1", len(list))
	}

	// the inline check after the invoice raised the alert
	alerts := decode[[]alertResponse](t, do(t, srv, http.MethodGet, "/api/alerts?period=2025-03&unacknowledged=true", ""))
	if len(alerts) != 1 || alerts[0].VehicleID != "v1" || alerts[0].ActualValue != "40.82" || alerts[0].ThresholdValue != "30" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}

	check := decode[checkResponse](t, do(t, srv, http.MethodPost, "/api/budget/check?period=2025-03", ""))
	if check.Notice != string(core.NoticeAllAlreadyAlerted) || check.Inserted != 0 || check.OverBudget != 1 {
		t.Fatalf("unexpected check %+v", check)
	}

	ackPath := "/api/alerts/" + alerts[0].ID + "/ack"
	if rr := do(t, srv, http.MethodPost, ackPath, ""); rr.Code != http.StatusOK {
		t.Fatalf("ack status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, ackPath, ""); rr.Code != http.StatusConflict {
		t.Fatalf("second ack status=%d, want 409", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/alerts/nope/ack", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown alert status=%d, want 404", rr.Code)
	}

	open := decode[[]alertResponse](t, do(t, srv, http.MethodGet, "/api/alerts?unacknowledged=true", ""))
	if len(open) != 0 {
		t.Fatalf("acknowledged alert still listed as open")
	}

	spending := decode[spendingResponse](t, do(t, srv, http.MethodGet, "/api/budget/spending?period=2025-03", ""))
	if spending.FleetTotal != "40.82" || spending.OverBudget != 1 || !spending.Limit.Configured {
		t.Fatalf("unexpected spending %+v", spending)
	}
}

func TestCreateInvoiceRejects(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"missing vehicle", `{"order_date":"2025-03-14","items":[]}`, http.StatusBadRequest, "vehicle_id"},
		{"bad date", `{"vehicle_id":"v1","order_date":"14.03.2025","items":[]}`, http.StatusBadRequest, "order_date"},
		{"bad currency", `{"vehicle_id":"v1","order_date":"2025-03-14","currency_code":"zloty","items":[]}`, http.StatusBadRequest, "currency_code"},
		{"unknown vehicle", `{"vehicle_id":"v9","order_date":"2025-03-14","items":[{"quantity":1,"unit_price_net":1,"vat_rate":0}]}`, http.StatusNotFound, ""},
		{"unknown field", `{"vehicle_id":"v1","order_date":"2025-03-14","items":[],"discount":5}`, http.StatusBadRequest, ""},
		{"other currency", `{"vehicle_id":"v1","order_date":"2025-03-14","currency_code":"EUR","items":[{"quantity":1,"unit_price_net":900,"vat_rate":23}]}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/invoices", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if tt.field != "" {
				e := decode[errorBody](t, rr)
				if _, ok := e.Fields[tt.field]; !ok {
					t.Fatalf("fields %v lack %s", e.Fields, tt.field)
				}
			}
		})
	}
}

func TestVehicles(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/vehicles", `{"registration":"wx 3003","name":"Van"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if v := decode[vehicleResponse](t, rr); v.Registration != "WX 3003" || v.ID == "" {
		t.Fatalf("unexpected vehicle %+v", v)
	}
	if rr := do(t, srv, http.MethodPost, "/api/vehicles", `{"id":"v1","registration":"WX 9"}`); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d, want 409", rr.Code)
	}
	if got := decode[[]vehicleResponse](t, do(t, srv, http.MethodGet, "/api/vehicles", "")); len(got) != 3 {
		t.Fatalf("vehicles = %d, want 3", len(got))
	}
}

func TestBudgetLimitEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	l := decode[limitResponse](t, do(t, srv, http.MethodGet, "/api/budget/limit", ""))
	if l.Configured || l.Amount != "0.00" || l.CurrencyCode != "PLN" {
		t.Fatalf("unexpected default limit %+v", l)
	}
	if rr := do(t, srv, http.MethodPut, "/api/budget/limit", `{"amount":-1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative limit status=%d, want 400", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/budget/limit", `{"amount":1000.005}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("sub-cent limit status=%d, want 400", rr.Code)
	}
	check := decode[checkResponse](t, do(t, srv, http.MethodPost, "/api/budget/check", ""))
	if check.Notice != string(core.NoticeNoLimitConfigured) || check.Period != "2025-03" {
		t.Fatalf("unexpected check %+v", check)
	}
	if rr := do(t, srv, http.MethodPost, "/api/budget/check?period=March", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad period status=%d, want 400", rr.Code)
	}
}

func TestReportDownload(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/budget/report.xlsx?period=2025-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "fleet-budget-2025-03.xlsx") {
		t.Fatalf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rr.Body.String(), "PK") {
		t.Fatal("body is not a zip container")
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: ratelimit.Config{RequestsPerSecond: 0.001, Burst: 1}})
	body := `{"items":[{"quantity":1,"unit_price_net":1,"vat_rate":0}]}`

	if rr := do(t, srv, http.MethodPost, "/api/invoices/preview", body); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/invoices/preview", body)
	if rr.Code != http.StatusTooManyRequests || decode[errorBody](t, rr).Code != "rate_limited" {
		t.Fatalf("second status=%d body=%s", rr.Code, rr.Body.String())
	}
	// reads are not limited
	if rr := do(t, srv, http.MethodGet, "/api/vehicles", ""); rr.Code != http.StatusOK {
		t.Fatalf("read status=%d", rr.Code)
	}
}

func TestSuspiciousRequestsAreRejected(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, target := range []string{"/api/vehicles?q=1%20union%20select%20*", "/.env", "/api/../etc/passwd"} {
		if rr := do(t, srv, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d, want 400", target, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing default headers: %v", rr.Header())
	}
}
