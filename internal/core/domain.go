package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AlertBudgetExceeded AlertType = "budget_exceeded"

	// DefaultCurrency is the currency code used when none is configured.
	DefaultCurrency = "PLN"
)

type (
	AlertType string

	VehicleID string

	Date struct {
		time.Time
	}

	Vehicle struct {
		ID           VehicleID
		Registration string
		Name         string
		Branch       string
		CreatedAt    time.Time
	}

	// InvoiceLineItem is one raw line of a manually entered invoice.
	InvoiceLineItem struct {
		Name         string
		SKU          string
		Quantity     int64
		UnitPriceNet decimal.Decimal
		VATRate      decimal.Decimal // percentage, 23 means 23%
	}

	ComputedLineItem struct {
		InvoiceLineItem
		UnitPriceGross decimal.Decimal
		TotalNet       decimal.Decimal
		TotalGross     decimal.Decimal
	}

	InvoiceTotals struct {
		TotalNet   decimal.Decimal
		TotalGross decimal.Decimal
	}

	Invoice struct {
		Items  []ComputedLineItem
		Totals InvoiceTotals
	}

	// Order is a persisted invoice: header fields plus its computed lines.
	Order struct {
		ID           string
		VehicleID    VehicleID
		OrderDate    Date
		Supplier     string
		Description  string
		CurrencyCode string
		Invoice      Invoice
		CreatedAt    time.Time
	}

	VehicleMonthlySpending struct {
		VehicleID  VehicleID
		Month      Date // first day of the calendar month
		TotalSpent decimal.Decimal
	}

	BudgetLimit struct {
		Amount       decimal.Decimal
		CurrencyCode string
		UpdatedAt    time.Time
	}

	BudgetAlert struct {
		ID             string
		VehicleID      VehicleID
		AlertType      AlertType
		PeriodStart    Date
		PeriodEnd      Date
		ThresholdValue decimal.Decimal
		ActualValue    decimal.Decimal
		CurrencyCode   string
		Acknowledged   bool
		AcknowledgedAt *time.Time
		CreatedAt      time.Time
	}

	// AlertFilter narrows ListAlerts. Zero values mean "any".
	AlertFilter struct {
		Period             *Period
		VehicleID          VehicleID
		UnacknowledgedOnly bool
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyVehicleID      = errors.New("empty vehicle id")
	ErrEmptyRegistration   = errors.New("empty registration number")
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrVehicleExists       = errors.New("vehicle already exists")
	ErrOrderNotFound       = errors.New("order not found")
	ErrMissingOrderDate    = errors.New("order date is required")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrAlreadyAcknowledged = errors.New("alert already acknowledged")
	ErrNegativeLimit       = errors.New("budget limit cannot be negative")
	ErrEmptyCurrency       = errors.New("empty currency code")
	ErrCurrencyMismatch    = errors.New("currency does not match the configured currency")
	ErrLimitPrecision      = errors.New("budget limit cannot have fractions of a cent")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (v Vehicle) Validate() error {
	if strings.TrimSpace(string(v.ID)) == "" {
		return ErrEmptyVehicleID
	}
	if strings.TrimSpace(v.Registration) == "" {
		return ErrEmptyRegistration
	}
	return nil
}

func (l BudgetLimit) Validate() error {
	if l.Amount.IsNegative() {
		return ErrNegativeLimit
	}
	if !l.Amount.Equal(l.Amount.Round(2)) {
		return ErrLimitPrecision
	}
	if strings.TrimSpace(l.CurrencyCode) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

// Configured reports whether the limit can be evaluated against.
func (l BudgetLimit) Configured() bool {
	return l.Amount.IsPositive()
}

// Acknowledge moves an active alert to the acknowledged state. There is no way back.
func (a *BudgetAlert) Acknowledge(at time.Time) error {
	if a.Acknowledged {
		return ErrAlreadyAcknowledged
	}
	a.Acknowledged = true
	a.AcknowledgedAt = &at
	return nil
}

// Overrun is how far the actual spend went past the threshold.
func (a BudgetAlert) Overrun() decimal.Decimal {
	return a.ActualValue.Sub(a.ThresholdValue)
}

// Matches reports whether the alert satisfies every set field of the filter.
func (f AlertFilter) Matches(a BudgetAlert) bool {
	if f.Period != nil && !a.PeriodStart.Equal(f.Period.Start.Time) {
		return false
	}
	if f.VehicleID != "" && a.VehicleID != f.VehicleID {
		return false
	}
	if f.UnacknowledgedOnly && a.Acknowledged {
		return false
	}
	return true
}
