package mysql

import (
	"testing"
	"time"

	"fleetbudget/internal/core"

	"github.com/shopspring/decimal"
)

func TestOrderRowMapping(t *testing.T) {
	inv, err := core.ComputeInvoice([]core.InvoiceLineItem{
		{Name: "Filtr", SKU: "F-1", Quantity: 2, UnitPriceNet: decimal.RequireFromString("100"), VATRate: decimal.RequireFromString("23")},
		{Name: "Olej", Quantity: 3, UnitPriceNet: decimal.RequireFromString("10.005"), VATRate: decimal.RequireFromString("23")},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	in := core.Order{
		ID:           "o1",
		VehicleID:    "v1",
		OrderDate:    core.NewDate(2025, 3, 9),
		Supplier:     "Auto Parts",
		CurrencyCode: "PLN",
		Invoice:      inv,
		CreatedAt:    time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
	}

	row := toOrderRow(in)
	if len(row.Items) != 2 || row.Items[1].Position != 1 || row.Items[1].OrderID != "o1" {
		t.Fatalf("unexpected item rows %+v", row.Items)
	}
	out := row.toCore()
	if out.OrderDate != in.OrderDate || out.VehicleID != "v1" || out.Supplier != "Auto Parts" {
		t.Fatalf("header changed: %+v", out)
	}
	if !out.Invoice.Totals.TotalGross.Equal(inv.Totals.TotalGross) {
		t.Fatalf("gross %s, want %s", out.Invoice.Totals.TotalGross, inv.Totals.TotalGross)
	}
	if !out.Invoice.Items[1].UnitPriceNet.Equal(decimal.RequireFromString("10.005")) || out.Invoice.Items[0].SKU != "F-1" {
		t.Fatalf("items changed: %+v", out.Invoice.Items)
	}
}

func TestAlertRowMapping(t *testing.T) {
	march := core.MonthPeriod(2025, 3)
	at := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	in := core.BudgetAlert{
		ID:             "a1",
		VehicleID:      "v1",
		AlertType:      core.AlertBudgetExceeded,
		PeriodStart:    march.Start,
		PeriodEnd:      march.End,
		ThresholdValue: decimal.RequireFromString("1000"),
		ActualValue:    decimal.RequireFromString("1000.004"),
		CurrencyCode:   "PLN",
		Acknowledged:   true,
		AcknowledgedAt: &at,
		CreatedAt:      at,
	}
	out := toAlertRow(in).toCore()
	if out.PeriodStart != march.Start || out.PeriodEnd != march.End {
		t.Fatalf("period changed: %s..%s", out.PeriodStart, out.PeriodEnd)
	}
	if !out.ActualValue.Equal(in.ActualValue) || !out.Acknowledged || !out.AcknowledgedAt.Equal(at) {
		t.Fatalf("alert changed: %+v", out)
	}
}

func TestVehicleRowMapping(t *testing.T) {
	in := core.Vehicle{ID: "v1", Registration: "WX 1", Name: "Van", Branch: "North"}
	if out := toVehicleRow(in).toCore(); out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}
