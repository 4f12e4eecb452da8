package services

import (
	"context"
	"errors"
	"testing"

	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
)

type fakePublisher struct {
	published []core.Order
	err       error
}

func (p *fakePublisher) PublishInvoiceCreated(_ context.Context, o core.Order) error {
	p.published = append(p.published, o)
	return p.err
}

type fakeChecker struct {
	periods []core.Period
}

func (c *fakeChecker) CheckBudget(_ context.Context, p core.Period) (CheckResult, error) {
	c.periods = append(c.periods, p)
	return CheckResult{Period: p}, nil
}

func fuelItems() []core.InvoiceLineItem {
	return []core.InvoiceLineItem{
		{Name: "Diesel", Quantity: 2, UnitPriceNet: amount("10.005"), VATRate: amount("23")},
		{Name: "Wipers", Quantity: 1, UnitPriceNet: amount("15.00"), VATRate: amount("8")},
	}
}

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		publisher     *fakePublisher
		wantPublished int
		wantChecks    int
	}{
		{name: "no publisher checks inline", wantChecks: 1},
		{name: "published event", publisher: &fakePublisher{}, wantPublished: 1},
		{name: "publish failure falls back to inline", publisher: &fakePublisher{err: errors.New("channel closed")}, wantPublished: 1, wantChecks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFleet(t, nil)
			checker := &fakeChecker{}
			var pub InvoicePublisher
			if tt.publisher != nil {
				pub = tt.publisher
			}
			svc := NewInvoiceService(store, store, pub, checker, "")
			svc.SetClock(clock)
			svc.SetLogger(log.Discard())

			order, err := svc.CreateInvoice(ctx, InvoiceDraft{
				VehicleID: "v1",
				OrderDate: core.NewDate(2025, 3, 14),
				Supplier:  "  Orlen  ",
				Items:     fuelItems(),
			})
			if err != nil {
				t.Fatalf("CreateInvoice: %v", err)
			}
			if order.ID == "" || order.CurrencyCode != "PLN" || order.Supplier != "Orlen" {
				t.Fatalf("unexpected order header %+v", order)
			}
			if !order.Invoice.Totals.TotalGross.Equal(amount("40.82")) {
				t.Fatalf("gross = %s, want 40.82", order.Invoice.Totals.TotalGross)
			}
			if tt.publisher != nil && len(tt.publisher.published) != tt.wantPublished {
				t.Fatalf("published = %d, want %d", len(tt.publisher.published), tt.wantPublished)
			}
			if len(checker.periods) != tt.wantChecks {
				t.Fatalf("checks = %d, want %d", len(checker.periods), tt.wantChecks)
			}
			if tt.wantChecks > 0 && checker.periods[0] != core.MonthPeriod(2025, 3) {
				t.Fatalf("checked %v, want March", checker.periods[0])
			}

			stored, err := svc.GetOrder(ctx, order.ID)
			if err != nil || stored.VehicleID != "v1" {
				t.Fatalf("GetOrder = %+v, %v", stored, err)
			}
		})
	}
}

func TestCreateInvoiceRejects(t *testing.T) {
	ctx := context.Background()
	march14 := core.NewDate(2025, 3, 14)

	tests := []struct {
		name    string
		draft   InvoiceDraft
		wantErr error
	}{
		{"missing vehicle", InvoiceDraft{OrderDate: march14, Items: fuelItems()}, core.ErrEmptyVehicleID},
		{"missing date", InvoiceDraft{VehicleID: "v1", Items: fuelItems()}, core.ErrMissingOrderDate},
		{"no items", InvoiceDraft{VehicleID: "v1", OrderDate: march14}, core.ErrEmptyItems},
		{"unknown vehicle", InvoiceDraft{VehicleID: "v9", OrderDate: march14, Items: fuelItems()}, core.ErrVehicleNotFound},
		{"foreign currency", InvoiceDraft{VehicleID: "v1", OrderDate: march14, CurrencyCode: "EUR", Items: fuelItems()}, core.ErrCurrencyMismatch},
		{"price finer than stored", InvoiceDraft{VehicleID: "v1", OrderDate: march14, Items: []core.InvoiceLineItem{
			{Quantity: 1, UnitPriceNet: amount("0.0000001"), VATRate: amount("23")},
		}}, core.ErrInvalidItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFleet(t, nil)
			checker := &fakeChecker{}
			svc := NewInvoiceService(store, store, nil, checker, "PLN")
			svc.SetLogger(log.Discard())

			if _, err := svc.CreateInvoice(ctx, tt.draft); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(checker.periods) != 0 {
				t.Fatal("rejected invoice must not trigger a check")
			}
			orders, _ := svc.ListOrders(ctx, "", core.MonthPeriod(2025, 3))
			if len(orders) != 0 {
				t.Fatalf("rejected invoice was stored")
			}
		})
	}
}

func TestCreateInvoiceInvalidItemIndex(t *testing.T) {
	store := newFleet(t, nil)
	svc := NewInvoiceService(store, store, nil, nil, "PLN")
	svc.SetLogger(log.Discard())

	items := fuelItems()
	items[1].Quantity = 0
	_, err := svc.CreateInvoice(context.Background(), InvoiceDraft{VehicleID: "v1", OrderDate: core.NewDate(2025, 3, 1), Items: items})

	var verr *core.ValidationError
	if !errors.As(err, &verr) || verr.Index != 1 {
		t.Fatalf("expected item 1 validation error, got %v", err)
	}
}

func TestCreateInvoiceStoredScale(t *testing.T) {
	store := newFleet(t, nil)
	svc := NewInvoiceService(store, store, nil, nil, "PLN")
	svc.SetLogger(log.Discard())

	tests := []struct {
		name      string
		item      core.InvoiceLineItem
		wantField string
	}{
		{"six decimal price", core.InvoiceLineItem{Quantity: 1, UnitPriceNet: amount("1.123456"), VATRate: amount("23")}, ""},
		{"trailing zeros", core.InvoiceLineItem{Quantity: 1, UnitPriceNet: amount("1.50000000"), VATRate: amount("8.0000")}, ""},
		{"seven decimal price", core.InvoiceLineItem{Quantity: 1, UnitPriceNet: amount("1.1234567"), VATRate: amount("23")}, "unit_price_net"},
		{"four decimal vat", core.InvoiceLineItem{Quantity: 1, UnitPriceNet: amount("10"), VATRate: amount("22.5005")}, "vat_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []core.InvoiceLineItem{fuelItems()[1], tt.item}
			_, err := svc.CreateInvoice(context.Background(), InvoiceDraft{VehicleID: "v1", OrderDate: core.NewDate(2025, 3, 2), Items: items})
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("CreateInvoice: %v", err)
				}
				return
			}
			var verr *core.ValidationError
			if !errors.As(err, &verr) || verr.Index != 1 || verr.Field != tt.wantField {
				t.Fatalf("expected %s error at item 1, got %v", tt.wantField, err)
			}
		})
	}
}

func TestCreateInvoiceCurrency(t *testing.T) {
	ctx := context.Background()
	store := newFleet(t, nil)
	budget := newBudgetService(store)
	budget.SetLimit(ctx, amount("1000"))

	svc := NewInvoiceService(store, store, nil, budget, "PLN")
	svc.SetClock(clock)
	svc.SetLogger(log.Discard())

	big := []core.InvoiceLineItem{{Name: "Tyres", Quantity: 1, UnitPriceNet: amount("900"), VATRate: amount("23")}}
	if _, err := svc.CreateInvoice(ctx, InvoiceDraft{VehicleID: "v1", OrderDate: core.NewDate(2025, 3, 5), CurrencyCode: "EUR", Items: big}); !errors.Is(err, core.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	alerts, _ := budget.ListAlerts(ctx, core.AlertFilter{})
	if len(alerts) != 0 {
		t.Fatalf("EUR invoice must not count against the PLN limit, got %d alert(s)", len(alerts))
	}

	order, err := svc.CreateInvoice(ctx, InvoiceDraft{VehicleID: "v1", OrderDate: core.NewDate(2025, 3, 5), CurrencyCode: " pln ", Items: big})
	if err != nil || order.CurrencyCode != "PLN" {
		t.Fatalf("configured currency must be accepted: %+v %v", order, err)
	}
	alerts, _ = budget.ListAlerts(ctx, core.AlertFilter{})
	if len(alerts) != 1 || !alerts[0].ActualValue.Equal(amount("1107")) {
		t.Fatalf("expected one alert for 1107, got %+v", alerts)
	}
}

func TestInvoiceThenBudgetCheckEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newFleet(t, nil)
	budget := newBudgetService(store)
	budget.SetLimit(ctx, amount("30"))

	svc := NewInvoiceService(store, store, nil, budget, "PLN")
	svc.SetClock(clock)
	svc.SetLogger(log.Discard())
	if _, err := svc.CreateInvoice(ctx, InvoiceDraft{VehicleID: "v2", OrderDate: core.NewDate(2025, 3, 3), Items: fuelItems()}); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	alerts, _ := budget.ListAlerts(ctx, core.AlertFilter{VehicleID: "v2"})
	if len(alerts) != 1 || !alerts[0].ActualValue.Equal(amount("40.82")) {
		t.Fatalf("expected one alert for 40.82, got %+v", alerts)
	}
}

func TestAddVehicle(t *testing.T) {
	ctx := context.Background()
	store := newFleet(t, nil)
	svc := NewFleetService(store)

	v, err := svc.AddVehicle(ctx, core.Vehicle{Registration: " wx 2002 ", Name: "Van"})
	if err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	if v.ID == "" || v.Registration != "WX 2002" || v.CreatedAt.IsZero() {
		t.Fatalf("unexpected vehicle %+v", v)
	}
	if _, err := svc.AddVehicle(ctx, core.Vehicle{ID: "v1", Registration: "WX 9"}); !errors.Is(err, core.ErrVehicleExists) {
		t.Fatalf("expected ErrVehicleExists, got %v", err)
	}
	if _, err := svc.AddVehicle(ctx, core.Vehicle{Registration: "  "}); !errors.Is(err, core.ErrEmptyRegistration) {
		t.Fatalf("expected ErrEmptyRegistration, got %v", err)
	}
	all, _ := svc.Vehicles(ctx)
	if len(all) != 3 {
		t.Fatalf("vehicles = %d, want 3", len(all))
	}
}
