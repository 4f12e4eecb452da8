// Package mysql is the hosted relational backend, built on GORM.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fleetbudget/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	driver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const limitRowID = 1

type Repository struct {
	db *gorm.DB
}

// Open connects with dsn (parseTime=true is added when missing) and migrates the schema.
func Open(dsn string) (*Repository, error) {
	if !strings.Contains(dsn, "parseTime=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := gorm.Open(driver.Open(dsn), &gorm.Config{
		Logger: logger.New(slogWriter{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.AutoMigrate(&vehicleRow{}, &orderRow{}, &orderItemRow{}, &budgetLimitRow{}, &alertRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Repository{db: db}, nil
}

// slogWriter routes GORM's printf-style logger into slog.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	slog.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	row := toVehicleRow(v)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return core.Vehicle{}, core.ErrVehicleExists
		}
		return core.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) GetVehicle(ctx context.Context, id core.VehicleID) (core.Vehicle, error) {
	var row vehicleRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Vehicle{}, core.ErrVehicleNotFound
	}
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	var rows []vehicleRow
	if err := r.db.WithContext(ctx).Order("registration").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	out := make([]core.Vehicle, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// CreateOrder inserts the header and items together; GORM wraps it in a transaction.
func (r *Repository) CreateOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, err := r.GetVehicle(ctx, o.VehicleID); err != nil {
		return core.Order{}, err
	}
	row := toOrderRow(o)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Order{}, fmt.Errorf("create order: %w", err)
	}
	slog.InfoContext(ctx, "Order saved to MySQL", "order_id", o.ID, "vehicle_id", o.VehicleID)
	return row.toCore(), nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (core.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Order{}, core.ErrOrderNotFound
	}
	if err != nil {
		return core.Order{}, fmt.Errorf("get order: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) ListOrders(ctx context.Context, vehicleID core.VehicleID, period core.Period) ([]core.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("order_date BETWEEN ? AND ?", period.Start.Time, period.End.Time)
	if vehicleID != "" {
		q = q.Where("vehicle_id = ?", string(vehicleID))
	}
	var rows []orderRow
	if err := q.Order("order_date, created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]core.Order, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// MonthlySpending sums the gross totals of orders dated inside the period.
func (r *Repository) MonthlySpending(ctx context.Context, period core.Period) ([]core.VehicleMonthlySpending, error) {
	var rows []spendingRow
	err := r.db.WithContext(ctx).
		Model(&orderRow{}).
		Select("vehicle_id, SUM(total_gross) AS total_spent").
		Where("order_date BETWEEN ? AND ?", period.Start.Time, period.End.Time).
		Group("vehicle_id").
		Order("vehicle_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query monthly spending: %w", err)
	}
	out := make([]core.VehicleMonthlySpending, len(rows))
	for i, row := range rows {
		out[i] = core.VehicleMonthlySpending{
			VehicleID:  core.VehicleID(row.VehicleID),
			Month:      period.Start,
			TotalSpent: row.TotalSpent,
		}
	}
	return out, nil
}

func (r *Repository) BudgetLimit(ctx context.Context) (core.BudgetLimit, error) {
	var row budgetLimitRow
	err := r.db.WithContext(ctx).First(&row, limitRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.BudgetLimit{Amount: decimal.Zero}, nil
	}
	if err != nil {
		return core.BudgetLimit{}, fmt.Errorf("get budget limit: %w", err)
	}
	return core.BudgetLimit{Amount: row.Amount, CurrencyCode: row.CurrencyCode, UpdatedAt: row.UpdatedAt}, nil
}

func (r *Repository) SetBudgetLimit(ctx context.Context, l core.BudgetLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	row := budgetLimitRow{ID: limitRowID, Amount: l.Amount, CurrencyCode: l.CurrencyCode, UpdatedAt: l.UpdatedAt.UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "currency_code", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set budget limit: %w", err)
	}
	return nil
}

func (r *Repository) AlertedVehicles(ctx context.Context, periodStart core.Date, alertType core.AlertType) (core.VehicleSet, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&alertRow{}).
		Where("period_start = ? AND alert_type = ?", periodStart.Time, string(alertType)).
		Pluck("vehicle_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("query alerted vehicles: %w", err)
	}
	set := core.NewVehicleSet()
	for _, id := range ids {
		set.Add(core.VehicleID(id))
	}
	return set, nil
}

// InsertAlerts skips rows hitting the (vehicle, period, type) unique index.
// Missing IDs are assigned in place.
func (r *Repository) InsertAlerts(ctx context.Context, alerts []core.BudgetAlert) ([]core.BudgetAlert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}
	var inserted []core.BudgetAlert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range alerts {
			if alerts[i].ID == "" {
				alerts[i].ID = uuid.NewString()
			}
			row := toAlertRow(alerts[i])
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("insert alert for vehicle %s: %w", alerts[i].VehicleID, res.Error)
			}
			if res.RowsAffected > 0 {
				inserted = append(inserted, alerts[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *Repository) ListAlerts(ctx context.Context, f core.AlertFilter) ([]core.BudgetAlert, error) {
	q := r.db.WithContext(ctx).Model(&alertRow{})
	if f.Period != nil {
		q = q.Where("period_start = ?", f.Period.Start.Time)
	}
	if f.VehicleID != "" {
		q = q.Where("vehicle_id = ?", string(f.VehicleID))
	}
	if f.UnacknowledgedOnly {
		q = q.Where("acknowledged = ?", false)
	}
	var rows []alertRow
	if err := q.Order("period_start DESC, vehicle_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	out := make([]core.BudgetAlert, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetAlert(ctx context.Context, id string) (core.BudgetAlert, error) {
	var row alertRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.BudgetAlert{}, core.ErrAlertNotFound
	}
	if err != nil {
		return core.BudgetAlert{}, fmt.Errorf("get alert: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) AcknowledgeAlert(ctx context.Context, id string, at time.Time) (core.BudgetAlert, error) {
	a, err := r.GetAlert(ctx, id)
	if err != nil {
		return core.BudgetAlert{}, err
	}
	if err := a.Acknowledge(at); err != nil {
		return core.BudgetAlert{}, err
	}
	res := r.db.WithContext(ctx).
		Model(&alertRow{}).
		Where("id = ? AND acknowledged = ?", id, false).
		Updates(map[string]any{"acknowledged": true, "acknowledged_at": at.UTC()})
	if res.Error != nil {
		return core.BudgetAlert{}, fmt.Errorf("acknowledge alert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.BudgetAlert{}, core.ErrAlreadyAcknowledged
	}
	return a, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry")
}
