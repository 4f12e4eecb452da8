package worker

import (
	"context"
	"fmt"
	"time"

	"fleetbudget/internal/amqp"
	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/services"
)

// BudgetWorker re-checks the monthly budget whenever new spending is reported,
// and on a timer as a backstop for lost messages.
type BudgetWorker struct {
	checker services.BudgetChecker
	now     func() time.Time
	logger  *log.Logger
}

func NewBudgetWorker(checker services.BudgetChecker) *BudgetWorker {
	return &BudgetWorker{
		checker: checker,
		now:     time.Now,
		logger:  log.Default(log.ComponentWorker),
	}
}

func (w *BudgetWorker) SetClock(now func() time.Time) { w.now = now }

func (w *BudgetWorker) SetLogger(l *log.Logger) { w.logger = l.WithComponent(log.ComponentWorker) }

// HandleInvoiceCreated processes a single invoice event from AMQP.
func (w *BudgetWorker) HandleInvoiceCreated(ctx context.Context, msg *amqp.InvoiceCreatedMessage) error {
	period, err := msg.BudgetPeriod()
	if err != nil {
		// nothing to retry, drop it
		w.logger.WarnContext(ctx, "Ignoring invoice event with bad period",
			log.FieldOrderID, msg.OrderID, log.FieldPeriod, msg.Period, log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing invoice event",
		log.FieldOrderID, msg.OrderID,
		log.FieldVehicleID, msg.VehicleID,
		log.FieldPeriod, period.Key())

	if _, err := w.checker.CheckBudget(ctx, period); err != nil {
		return fmt.Errorf("check budget %s: %w", period.Key(), err)
	}
	return nil
}

// CheckCurrentMonth runs one check for the month containing now.
func (w *BudgetWorker) CheckCurrentMonth(ctx context.Context) error {
	period := core.PeriodOf(w.now())
	res, err := w.checker.CheckBudget(ctx, period)
	if err != nil {
		return fmt.Errorf("check budget %s: %w", period.Key(), err)
	}
	w.logger.InfoContext(ctx, "Scheduled budget check done",
		log.FieldPeriod, period.Key(),
		log.FieldAlertCount, res.Inserted,
		log.FieldNotice, string(res.Evaluation.Notice))
	return nil
}

// RunPeriodic calls CheckCurrentMonth every interval until ctx is done.
// Failures are logged and the loop keeps going.
func (w *BudgetWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping periodic budget checks")
			return
		case <-ticker.C:
			if err := w.CheckCurrentMonth(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic budget check failed", log.FieldError, err)
			}
		}
	}
}
