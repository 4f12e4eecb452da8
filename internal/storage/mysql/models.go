package mysql

import (
	"time"

	"fleetbudget/internal/core"

	"github.com/shopspring/decimal"
)

type vehicleRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	Registration string `gorm:"size:32;not null;uniqueIndex"`
	Name         string `gorm:"size:255"`
	Branch       string `gorm:"size:255"`
	CreatedAt    time.Time
}

func (vehicleRow) TableName() string { return "vehicles" }

type orderRow struct {
	ID           string          `gorm:"primaryKey;size:36"`
	VehicleID    string          `gorm:"size:64;not null;index:idx_orders_vehicle_date,priority:1"`
	OrderDate    time.Time       `gorm:"type:date;not null;index:idx_orders_vehicle_date,priority:2;index"`
	Supplier     string          `gorm:"size:255"`
	Description  string          `gorm:"type:text"`
	CurrencyCode string          `gorm:"size:3;not null"`
	TotalNet     decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	TotalGross   decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	CreatedAt    time.Time
	Items        []orderItemRow `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRow) TableName() string { return "orders" }

type orderItemRow struct {
	OrderID        string          `gorm:"primaryKey;size:36"`
	Position       int             `gorm:"primaryKey;autoIncrement:false"`
	Name           string          `gorm:"size:255"`
	SKU            string          `gorm:"column:sku;size:64"`
	Quantity       int64           `gorm:"not null"`
	UnitPriceNet   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	VATRate        decimal.Decimal `gorm:"column:vat_rate;type:decimal(7,3);not null"`
	UnitPriceGross decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	TotalNet       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	TotalGross     decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

func (orderItemRow) TableName() string { return "order_items" }

type budgetLimitRow struct {
	ID           int             `gorm:"primaryKey;autoIncrement:false"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	CurrencyCode string          `gorm:"size:3;not null"`
	UpdatedAt    time.Time
}

func (budgetLimitRow) TableName() string { return "budget_limits" }

type alertRow struct {
	ID             string          `gorm:"primaryKey;size:36"`
	VehicleID      string          `gorm:"size:64;not null;uniqueIndex:uq_alert_vehicle_period_type,priority:1"`
	AlertType      string          `gorm:"size:32;not null;uniqueIndex:uq_alert_vehicle_period_type,priority:3"`
	PeriodStart    time.Time       `gorm:"type:date;not null;uniqueIndex:uq_alert_vehicle_period_type,priority:2;index"`
	PeriodEnd      time.Time       `gorm:"type:date;not null"`
	ThresholdValue decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	ActualValue    decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CurrencyCode   string          `gorm:"size:3;not null"`
	Acknowledged   bool            `gorm:"not null;default:false"`
	AcknowledgedAt *time.Time
	CreatedAt      time.Time
}

func (alertRow) TableName() string { return "budget_alerts" }

// spendingRow is the shape of the monthly aggregation query.
type spendingRow struct {
	VehicleID  string
	TotalSpent decimal.Decimal
}

func toVehicleRow(v core.Vehicle) vehicleRow {
	return vehicleRow{
		ID:           string(v.ID),
		Registration: v.Registration,
		Name:         v.Name,
		Branch:       v.Branch,
		CreatedAt:    v.CreatedAt.UTC(),
	}
}

func (r vehicleRow) toCore() core.Vehicle {
	return core.Vehicle{
		ID:           core.VehicleID(r.ID),
		Registration: r.Registration,
		Name:         r.Name,
		Branch:       r.Branch,
		CreatedAt:    r.CreatedAt,
	}
}

func toOrderRow(o core.Order) orderRow {
	row := orderRow{
		ID:           o.ID,
		VehicleID:    string(o.VehicleID),
		OrderDate:    o.OrderDate.Time,
		Supplier:     o.Supplier,
		Description:  o.Description,
		CurrencyCode: o.CurrencyCode,
		TotalNet:     core.RoundCents(o.Invoice.Totals.TotalNet),
		TotalGross:   core.RoundCents(o.Invoice.Totals.TotalGross),
		CreatedAt:    o.CreatedAt.UTC(),
	}
	for i, it := range o.Invoice.Items {
		row.Items = append(row.Items, orderItemRow{
			OrderID:        o.ID,
			Position:       i,
			Name:           it.Name,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPriceNet:   it.UnitPriceNet,
			VATRate:        it.VATRate,
			UnitPriceGross: it.UnitPriceGross,
			TotalNet:       it.TotalNet,
			TotalGross:     it.TotalGross,
		})
	}
	return row
}

func (r orderRow) toCore() core.Order {
	o := core.Order{
		ID:           r.ID,
		VehicleID:    core.VehicleID(r.VehicleID),
		OrderDate:    core.DateOf(r.OrderDate),
		Supplier:     r.Supplier,
		Description:  r.Description,
		CurrencyCode: r.CurrencyCode,
		CreatedAt:    r.CreatedAt,
		Invoice: core.Invoice{
			Totals: core.InvoiceTotals{TotalNet: r.TotalNet, TotalGross: r.TotalGross},
		},
	}
	for _, it := range r.Items {
		o.Invoice.Items = append(o.Invoice.Items, core.ComputedLineItem{
			InvoiceLineItem: core.InvoiceLineItem{
				Name:         it.Name,
				SKU:          it.SKU,
				Quantity:     it.Quantity,
				UnitPriceNet: it.UnitPriceNet,
				VATRate:      it.VATRate,
			},
			UnitPriceGross: it.UnitPriceGross,
			TotalNet:       it.TotalNet,
			TotalGross:     it.TotalGross,
		})
	}
	return o
}

func toAlertRow(a core.BudgetAlert) alertRow {
	return alertRow{
		ID:             a.ID,
		VehicleID:      string(a.VehicleID),
		AlertType:      string(a.AlertType),
		PeriodStart:    a.PeriodStart.Time,
		PeriodEnd:      a.PeriodEnd.Time,
		ThresholdValue: a.ThresholdValue,
		ActualValue:    a.ActualValue,
		CurrencyCode:   a.CurrencyCode,
		Acknowledged:   a.Acknowledged,
		AcknowledgedAt: a.AcknowledgedAt,
		CreatedAt:      a.CreatedAt.UTC(),
	}
}

func (r alertRow) toCore() core.BudgetAlert {
	return core.BudgetAlert{
		ID:             r.ID,
		VehicleID:      core.VehicleID(r.VehicleID),
		AlertType:      core.AlertType(r.AlertType),
		PeriodStart:    core.DateOf(r.PeriodStart),
		PeriodEnd:      core.DateOf(r.PeriodEnd),
		ThresholdValue: r.ThresholdValue,
		ActualValue:    r.ActualValue,
		CurrencyCode:   r.CurrencyCode,
		Acknowledged:   r.Acknowledged,
		AcknowledgedAt: r.AcknowledgedAt,
		CreatedAt:      r.CreatedAt,
	}
}
