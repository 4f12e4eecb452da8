package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/ports"

	"github.com/google/uuid"
)

// Scales the stores keep for line item inputs. Finer inputs are rejected
// rather than rounded on write.
const (
	maxUnitPriceScale = 6
	maxVATRateScale   = 3
)

// InvoiceDraft is a manually entered invoice before totals are computed.
// CurrencyCode may be empty; otherwise it must equal the configured currency,
// since spending is summed against a single-currency limit.
type InvoiceDraft struct {
	VehicleID    core.VehicleID
	OrderDate    core.Date
	Supplier     string
	Description  string
	CurrencyCode string
	Items        []core.InvoiceLineItem
}

// InvoicePublisher announces stored invoices, e.g. over AMQP.
type InvoicePublisher interface {
	PublishInvoiceCreated(ctx context.Context, order core.Order) error
}

type BudgetChecker interface {
	CheckBudget(ctx context.Context, period core.Period) (CheckResult, error)
}

type VehicleGetter interface {
	GetVehicle(ctx context.Context, id core.VehicleID) (core.Vehicle, error)
}

// InvoiceService stores invoices and makes sure a budget check follows each one.
type InvoiceService struct {
	vehicles  VehicleGetter
	orders    ports.InvoiceStore
	publisher InvoicePublisher
	checker   BudgetChecker
	currency  string
	now       func() time.Time
	logger    *log.Logger
}

// NewInvoiceService wires the service. publisher may be nil, in which case the
// budget check runs inline after each invoice.
func NewInvoiceService(vehicles VehicleGetter, orders ports.InvoiceStore, publisher InvoicePublisher, checker BudgetChecker, currency string) *InvoiceService {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return &InvoiceService{
		vehicles:  vehicles,
		orders:    orders,
		publisher: publisher,
		checker:   checker,
		currency:  currency,
		now:       time.Now,
		logger:    log.Default(log.ComponentInvoice),
	}
}

func (s *InvoiceService) SetClock(now func() time.Time) { s.now = now }

func (s *InvoiceService) SetLogger(l *log.Logger) { s.logger = l.WithComponent(log.ComponentInvoice) }

// Preview computes totals without storing anything.
func (s *InvoiceService) Preview(items []core.InvoiceLineItem) (core.Invoice, error) {
	return core.ComputeInvoice(items)
}

// CreateInvoice validates and stores the invoice, then triggers the budget
// check for its month. A failed trigger is logged; the stored invoice stands.
func (s *InvoiceService) CreateInvoice(ctx context.Context, d InvoiceDraft) (core.Order, error) {
	if strings.TrimSpace(string(d.VehicleID)) == "" {
		return core.Order{}, core.ErrEmptyVehicleID
	}
	if d.OrderDate.IsZero() {
		return core.Order{}, core.ErrMissingOrderDate
	}
	currency := strings.ToUpper(strings.TrimSpace(d.CurrencyCode))
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return core.Order{}, fmt.Errorf("%w: got %s, want %s", core.ErrCurrencyMismatch, currency, s.currency)
	}
	inv, err := core.ComputeInvoice(d.Items)
	if err != nil {
		return core.Order{}, err
	}
	if err := checkStoredScale(d.Items); err != nil {
		return core.Order{}, err
	}
	if _, err := s.vehicles.GetVehicle(ctx, d.VehicleID); err != nil {
		return core.Order{}, err
	}

	order, err := s.orders.CreateOrder(ctx, core.Order{
		ID:           uuid.NewString(),
		VehicleID:    d.VehicleID,
		OrderDate:    d.OrderDate,
		Supplier:     strings.TrimSpace(d.Supplier),
		Description:  strings.TrimSpace(d.Description),
		CurrencyCode: currency,
		Invoice:      inv,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return core.Order{}, fmt.Errorf("save order: %w", err)
	}

	s.logger.InfoContext(ctx, "Invoice created", log.NewFields().WithOrder(order).WithOperation(log.OpCreate).ToSlice()...)

	s.triggerBudgetCheck(ctx, order)
	return order, nil
}

func checkStoredScale(items []core.InvoiceLineItem) error {
	for i, it := range items {
		if !it.UnitPriceNet.Equal(it.UnitPriceNet.Round(maxUnitPriceScale)) {
			return &core.ValidationError{Code: core.CodeInvalidItem, Index: i, Field: "unit_price_net", Reason: "must have at most 6 decimal places"}
		}
		if !it.VATRate.Equal(it.VATRate.Round(maxVATRateScale)) {
			return &core.ValidationError{Code: core.CodeInvalidItem, Index: i, Field: "vat_rate", Reason: "must have at most 3 decimal places"}
		}
	}
	return nil
}

func (s *InvoiceService) triggerBudgetCheck(ctx context.Context, order core.Order) {
	if s.publisher != nil {
		err := s.publisher.PublishInvoiceCreated(ctx, order)
		if err == nil {
			return
		}
		s.logger.ErrorContext(ctx, "Failed to publish invoice event, checking budget inline",
			log.FieldOrderID, order.ID, log.FieldError, err)
	}
	if s.checker == nil {
		return
	}
	if _, err := s.checker.CheckBudget(ctx, core.PeriodOf(order.OrderDate.Time)); err != nil {
		s.logger.ErrorContext(ctx, "Inline budget check failed",
			log.FieldOrderID, order.ID, log.FieldError, err)
	}
}

func (s *InvoiceService) GetOrder(ctx context.Context, id string) (core.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *InvoiceService) ListOrders(ctx context.Context, vehicleID core.VehicleID, period core.Period) ([]core.Order, error) {
	orders, err := s.orders.ListOrders(ctx, vehicleID, period)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
