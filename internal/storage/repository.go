package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fleetbudget/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// dsn enables foreign keys and waits on a busy database instead of failing fast.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateVehicle implements ports.VehicleDirectory
func (r *SQLiteRepository) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	_, err := r.db.ExecContext(ctx, insertVehicle,
		string(v.ID), v.Registration, v.Name, v.Branch, formatTime(v.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Vehicle{}, core.ErrVehicleExists
		}
		return core.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}

	slog.InfoContext(ctx, "Vehicle saved to SQLite",
		"vehicle_id", v.ID,
		"registration", v.Registration)

	return v, nil
}

// GetVehicle implements ports.VehicleDirectory
func (r *SQLiteRepository) GetVehicle(ctx context.Context, id core.VehicleID) (core.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx, getVehicle, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Vehicle{}, core.ErrVehicleNotFound
	}
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

// ListVehicles implements ports.VehicleDirectory
func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, listVehicles)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []core.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateOrder stores the order header and its computed items in one transaction.
func (r *SQLiteRepository) CreateOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Order{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertOrder,
		o.ID, string(o.VehicleID), o.OrderDate.String(), o.Supplier, o.Description, o.CurrencyCode,
		core.ToCents(o.Invoice.Totals.TotalNet), core.ToCents(o.Invoice.Totals.TotalGross),
		formatTime(o.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Order{}, core.ErrVehicleNotFound
		}
		return core.Order{}, fmt.Errorf("create order: %w", err)
	}

	for i, it := range o.Invoice.Items {
		_, err = tx.ExecContext(ctx, insertOrderItem,
			o.ID, i, it.Name, it.SKU, it.Quantity, it.UnitPriceNet, it.VATRate,
			core.ToCents(it.UnitPriceGross), core.ToCents(it.TotalNet), core.ToCents(it.TotalGross))
		if err != nil {
			return core.Order{}, fmt.Errorf("create order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Order{}, fmt.Errorf("commit order: %w", err)
	}

	slog.InfoContext(ctx, "Order saved to SQLite",
		"order_id", o.ID,
		"vehicle_id", o.VehicleID,
		"order_date", o.OrderDate.String(),
		"total_gross", o.Invoice.Totals.TotalGross.StringFixed(core.CentPlaces),
		"items", len(o.Invoice.Items))

	return o, nil
}

// GetOrder implements ports.InvoiceStore
func (r *SQLiteRepository) GetOrder(ctx context.Context, id string) (core.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Order{}, core.ErrOrderNotFound
	}
	if err != nil {
		return core.Order{}, fmt.Errorf("get order: %w", err)
	}
	if o.Invoice.Items, err = r.orderItems(ctx, o.ID); err != nil {
		return core.Order{}, err
	}
	return o, nil
}

// ListOrders returns the orders dated inside the period, optionally for one vehicle.
func (r *SQLiteRepository) ListOrders(ctx context.Context, vehicleID core.VehicleID, period core.Period) ([]core.Order, error) {
	query := selectOrder + " WHERE order_date BETWEEN ? AND ?"
	args := []any{period.Start.String(), period.End.String()}
	if vehicleID != "" {
		query += " AND vehicle_id = ?"
		args = append(args, string(vehicleID))
	}
	query += " ORDER BY order_date, created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var orders []core.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	rows.Close()

	for i := range orders {
		if orders[i].Invoice.Items, err = r.orderItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *SQLiteRepository) orderItems(ctx context.Context, orderID string) ([]core.ComputedLineItem, error) {
	rows, err := r.db.QueryContext(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []core.ComputedLineItem
	for rows.Next() {
		var (
			it                    core.ComputedLineItem
			unitGross, net, gross int64
		)
		if err := rows.Scan(&it.Name, &it.SKU, &it.Quantity, &it.UnitPriceNet, &it.VATRate,
			&unitGross, &net, &gross); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.UnitPriceGross = core.FromCents(unitGross)
		it.TotalNet = core.FromCents(net)
		it.TotalGross = core.FromCents(gross)
		items = append(items, it)
	}
	return items, rows.Err()
}

// MonthlySpending implements ports.SpendingSource on top of the vehicle_monthly_spending view.
func (r *SQLiteRepository) MonthlySpending(ctx context.Context, period core.Period) ([]core.VehicleMonthlySpending, error) {
	rows, err := r.db.QueryContext(ctx, monthlySpending, period.Start.String())
	if err != nil {
		return nil, fmt.Errorf("query monthly spending: %w", err)
	}
	defer rows.Close()

	var out []core.VehicleMonthlySpending
	for rows.Next() {
		var (
			vehicleID, month string
			cents            int64
		)
		if err := rows.Scan(&vehicleID, &month, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly spending: %w", err)
		}
		d, err := core.ParseDate(month)
		if err != nil {
			return nil, fmt.Errorf("parse spending month %q: %w", month, err)
		}
		out = append(out, core.VehicleMonthlySpending{
			VehicleID:  core.VehicleID(vehicleID),
			Month:      d,
			TotalSpent: core.FromCents(cents),
		})
	}
	return out, rows.Err()
}

// BudgetLimit implements ports.BudgetConfigStore
func (r *SQLiteRepository) BudgetLimit(ctx context.Context) (core.BudgetLimit, error) {
	var (
		l       core.BudgetLimit
		updated string
	)
	err := r.db.QueryRowContext(ctx, getBudgetLimit).Scan(&l.Amount, &l.CurrencyCode, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetLimit{Amount: decimal.Zero}, nil
	}
	if err != nil {
		return core.BudgetLimit{}, fmt.Errorf("get budget limit: %w", err)
	}
	if l.UpdatedAt, err = parseTime(updated); err != nil {
		return core.BudgetLimit{}, err
	}
	return l, nil
}

// SetBudgetLimit implements ports.BudgetConfigStore
func (r *SQLiteRepository) SetBudgetLimit(ctx context.Context, l core.BudgetLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertBudgetLimit, l.Amount, l.CurrencyCode, formatTime(l.UpdatedAt)); err != nil {
		return fmt.Errorf("set budget limit: %w", err)
	}
	slog.InfoContext(ctx, "Budget limit updated",
		"amount", l.Amount.String(),
		"currency", l.CurrencyCode)
	return nil
}

// AlertedVehicles implements ports.AlertStore
func (r *SQLiteRepository) AlertedVehicles(ctx context.Context, periodStart core.Date, alertType core.AlertType) (core.VehicleSet, error) {
	rows, err := r.db.QueryContext(ctx, alertedVehicles, periodStart.String(), string(alertType))
	if err != nil {
		return nil, fmt.Errorf("query alerted vehicles: %w", err)
	}
	defer rows.Close()

	set := core.NewVehicleSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan alerted vehicle: %w", err)
		}
		set.Add(core.VehicleID(id))
	}
	return set, rows.Err()
}

// InsertAlerts writes the alerts in one transaction. Alerts colliding with an
// existing (vehicle, period, type) row are skipped. Missing IDs are assigned in place.
func (r *SQLiteRepository) InsertAlerts(ctx context.Context, alerts []core.BudgetAlert) ([]core.BudgetAlert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inserted []core.BudgetAlert
	for i := range alerts {
		a := &alerts[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		res, err := tx.ExecContext(ctx, insertAlert,
			a.ID, string(a.VehicleID), string(a.AlertType), a.PeriodStart.String(), a.PeriodEnd.String(),
			a.ThresholdValue, a.ActualValue, a.CurrencyCode, a.Acknowledged,
			formatOptionalTime(a.AcknowledgedAt), formatTime(a.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("insert alert for vehicle %s: %w", a.VehicleID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			slog.WarnContext(ctx, "Duplicate budget alert skipped",
				"vehicle_id", a.VehicleID,
				"period", a.PeriodStart.String())
			continue
		}
		inserted = append(inserted, *a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit alerts: %w", err)
	}
	return inserted, nil
}

// ListAlerts implements ports.AlertStore
func (r *SQLiteRepository) ListAlerts(ctx context.Context, f core.AlertFilter) ([]core.BudgetAlert, error) {
	var (
		where []string
		args  []any
	)
	if f.Period != nil {
		where = append(where, "period_start = ?")
		args = append(args, f.Period.Start.String())
	}
	if f.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, string(f.VehicleID))
	}
	if f.UnacknowledgedOnly {
		where = append(where, "acknowledged = 0")
	}
	query := selectAlert
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY period_start DESC, vehicle_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAlert implements ports.AlertStore
func (r *SQLiteRepository) GetAlert(ctx context.Context, id string) (core.BudgetAlert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, selectAlert+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetAlert{}, core.ErrAlertNotFound
	}
	if err != nil {
		return core.BudgetAlert{}, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// AcknowledgeAlert marks an active alert as acknowledged.
func (r *SQLiteRepository) AcknowledgeAlert(ctx context.Context, id string, at time.Time) (core.BudgetAlert, error) {
	a, err := r.GetAlert(ctx, id)
	if err != nil {
		return core.BudgetAlert{}, err
	}
	if err := a.Acknowledge(at); err != nil {
		return core.BudgetAlert{}, err
	}

	res, err := r.db.ExecContext(ctx, acknowledgeAlert, formatTime(at), id)
	if err != nil {
		return core.BudgetAlert{}, fmt.Errorf("acknowledge alert: %w", err)
	}
	// Someone else acknowledged it between the read and the update.
	if n, _ := res.RowsAffected(); n == 0 {
		return core.BudgetAlert{}, core.ErrAlreadyAcknowledged
	}

	slog.InfoContext(ctx, "Budget alert acknowledged", "alert_id", id, "vehicle_id", a.VehicleID)
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(s rowScanner) (core.Vehicle, error) {
	var (
		v           core.Vehicle
		id, created string
	)
	if err := s.Scan(&id, &v.Registration, &v.Name, &v.Branch, &created); err != nil {
		return core.Vehicle{}, err
	}
	v.ID = core.VehicleID(id)
	var err error
	v.CreatedAt, err = parseTime(created)
	return v, err
}

func scanOrder(s rowScanner) (core.Order, error) {
	var (
		o                        core.Order
		vehicleID, date, created string
		netCents, grossCents     int64
	)
	if err := s.Scan(&o.ID, &vehicleID, &date, &o.Supplier, &o.Description, &o.CurrencyCode,
		&netCents, &grossCents, &created); err != nil {
		return core.Order{}, err
	}
	o.VehicleID = core.VehicleID(vehicleID)
	o.Invoice.Totals = core.InvoiceTotals{
		TotalNet:   core.FromCents(netCents),
		TotalGross: core.FromCents(grossCents),
	}
	var err error
	if o.OrderDate, err = core.ParseDate(date); err != nil {
		return core.Order{}, fmt.Errorf("parse order date: %w", err)
	}
	if o.CreatedAt, err = parseTime(created); err != nil {
		return core.Order{}, err
	}
	return o, nil
}

func scanAlert(s rowScanner) (core.BudgetAlert, error) {
	var (
		a                                core.BudgetAlert
		vehicleID, alertType, start, end string
		created                          string
		ackAt                            sql.NullString
	)
	if err := s.Scan(&a.ID, &vehicleID, &alertType, &start, &end, &a.ThresholdValue,
		&a.ActualValue, &a.CurrencyCode, &a.Acknowledged, &ackAt, &created); err != nil {
		return core.BudgetAlert{}, err
	}
	a.VehicleID = core.VehicleID(vehicleID)
	a.AlertType = core.AlertType(alertType)

	var err error
	if a.PeriodStart, err = core.ParseDate(start); err != nil {
		return core.BudgetAlert{}, fmt.Errorf("parse period start: %w", err)
	}
	if a.PeriodEnd, err = core.ParseDate(end); err != nil {
		return core.BudgetAlert{}, fmt.Errorf("parse period end: %w", err)
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.BudgetAlert{}, err
	}
	if ackAt.Valid {
		t, err := parseTime(ackAt.String)
		if err != nil {
			return core.BudgetAlert{}, err
		}
		a.AcknowledgedAt = &t
	}
	return a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
