// Package ports declares the outbound interfaces the services depend on.
// Every storage backend (sqlite, mysql, memory) implements all of them.
package ports

import (
	"context"
	"time"

	"fleetbudget/internal/core"
)

type (
	// SpendingSource aggregates gross order totals per vehicle and calendar month.
	SpendingSource interface {
		MonthlySpending(ctx context.Context, period core.Period) ([]core.VehicleMonthlySpending, error)
	}

	// AlertStore persists budget alerts. InsertAlerts skips rows that would
	// duplicate (vehicle, period start, alert type) and returns only the alerts
	// it actually wrote, with their IDs.
	AlertStore interface {
		AlertedVehicles(ctx context.Context, periodStart core.Date, alertType core.AlertType) (core.VehicleSet, error)
		InsertAlerts(ctx context.Context, alerts []core.BudgetAlert) ([]core.BudgetAlert, error)
		ListAlerts(ctx context.Context, filter core.AlertFilter) ([]core.BudgetAlert, error)
		GetAlert(ctx context.Context, id string) (core.BudgetAlert, error)
		AcknowledgeAlert(ctx context.Context, id string, at time.Time) (core.BudgetAlert, error)
	}

	// BudgetConfigStore holds the single global limit. A limit that was never
	// stored reads as a zero amount.
	BudgetConfigStore interface {
		BudgetLimit(ctx context.Context) (core.BudgetLimit, error)
		SetBudgetLimit(ctx context.Context, limit core.BudgetLimit) error
	}

	InvoiceStore interface {
		CreateOrder(ctx context.Context, order core.Order) (core.Order, error)
		GetOrder(ctx context.Context, id string) (core.Order, error)
		ListOrders(ctx context.Context, vehicleID core.VehicleID, period core.Period) ([]core.Order, error)
	}

	VehicleDirectory interface {
		CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error)
		GetVehicle(ctx context.Context, id core.VehicleID) (core.Vehicle, error)
		ListVehicles(ctx context.Context) ([]core.Vehicle, error)
	}

	// AlertSink receives alerts after they were stored, e.g. a shared spreadsheet.
	AlertSink interface {
		PublishAlerts(ctx context.Context, alerts []core.BudgetAlert) error
	}

	// Store is the full persistence surface of a backend.
	Store interface {
		SpendingSource
		AlertStore
		BudgetConfigStore
		InvoiceStore
		VehicleDirectory
		Ping(ctx context.Context) error
		Close() error
	}
)
