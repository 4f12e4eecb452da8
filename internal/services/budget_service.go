package services

import (
	"context"
	"fmt"
	"time"

	"fleetbudget/internal/core"
	"fleetbudget/internal/lock"
	"fleetbudget/internal/log"
	"fleetbudget/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const budgetLockPrefix = "budget-check:"

// CheckResult is the outcome of one budget check. Evaluation.Alerts holds only
// the alerts the store actually wrote; alerts another process stored first are
// dropped from it.
type CheckResult struct {
	Period     core.Period
	Evaluation core.Evaluation
	Inserted   int
}

// BudgetService runs the read, evaluate, write cycle for budget alerts.
type BudgetService struct {
	spending ports.SpendingSource
	alerts   ports.AlertStore
	limits   ports.BudgetConfigStore
	locker   lock.Locker
	sinks    []ports.AlertSink

	currency string
	lockTTL  time.Duration
	now      func() time.Time
	logger   *log.Logger

	inflight singleflight.Group
}

type BudgetOption func(*BudgetService)

func WithClock(now func() time.Time) BudgetOption {
	return func(s *BudgetService) { s.now = now }
}

func WithAlertSinks(sinks ...ports.AlertSink) BudgetOption {
	return func(s *BudgetService) { s.sinks = append(s.sinks, sinks...) }
}

func WithLockTTL(ttl time.Duration) BudgetOption {
	return func(s *BudgetService) { s.lockTTL = ttl }
}

func WithCurrency(code string) BudgetOption {
	return func(s *BudgetService) { s.currency = code }
}

func WithBudgetLogger(l *log.Logger) BudgetOption {
	return func(s *BudgetService) { s.logger = l.WithComponent(log.ComponentBudget) }
}

func NewBudgetService(spending ports.SpendingSource, alerts ports.AlertStore, limits ports.BudgetConfigStore, locker lock.Locker, opts ...BudgetOption) *BudgetService {
	s := &BudgetService{
		spending: spending,
		alerts:   alerts,
		limits:   limits,
		locker:   locker,
		currency: core.DefaultCurrency,
		lockTTL:  30 * time.Second,
		now:      time.Now,
		logger:   log.Default(log.ComponentBudget),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	return s
}

// CheckBudget evaluates the period and stores the new alerts. Concurrent calls
// for the same period in this process share one run; across processes they are
// serialized by the lock. The shared run ignores the first caller's
// cancellation; the lock TTL bounds it.
func (s *BudgetService) CheckBudget(ctx context.Context, period core.Period) (CheckResult, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(period.Key(), func() (any, error) {
		return s.checkLocked(shared, period)
	})
	if err != nil {
		return CheckResult{}, err
	}
	return v.(CheckResult), nil
}

func (s *BudgetService) checkLocked(ctx context.Context, period core.Period) (CheckResult, error) {
	release, err := s.locker.Acquire(ctx, budgetLockPrefix+period.Key(), s.lockTTL)
	if err != nil {
		return CheckResult{}, fmt.Errorf("lock budget check %s: %w", period.Key(), err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "Failed to release budget lock", log.FieldPeriod, period.Key(), log.FieldError, err)
		}
	}()

	var (
		limit    core.BudgetLimit
		alerted  core.VehicleSet
		spending []core.VehicleMonthlySpending
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if limit, err = s.limits.BudgetLimit(gctx); err != nil {
			return fmt.Errorf("read budget limit: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if alerted, err = s.alerts.AlertedVehicles(gctx, period.Start, core.AlertBudgetExceeded); err != nil {
			return fmt.Errorf("read existing alerts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if spending, err = s.spending.MonthlySpending(gctx, period); err != nil {
			return fmt.Errorf("read monthly spending: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Budget check failed", log.NewFields().WithPeriod(period).WithError(err).ToSlice()...)
		return CheckResult{}, err
	}

	if limit.CurrencyCode == "" {
		limit.CurrencyCode = s.currency
	}
	eval := core.EvaluateBudget(core.EvaluationInput{
		Spending:       spending,
		Limit:          limit,
		AlreadyAlerted: alerted,
		Period:         period,
		AsOf:           s.now().UTC(),
	})
	result := CheckResult{Period: period, Evaluation: eval}

	if eval.HasAlerts() {
		stored, err := s.alerts.InsertAlerts(ctx, eval.Alerts)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to store budget alerts", log.NewFields().WithPeriod(period).WithError(err).ToSlice()...)
			return CheckResult{}, fmt.Errorf("store budget alerts: %w", err)
		}
		if skipped := len(eval.Alerts) - len(stored); skipped > 0 {
			s.logger.WarnContext(ctx, "Budget alerts already stored by another check",
				log.FieldPeriod, period.Key(),
				log.FieldAlertCount, skipped)
		}
		result.Evaluation.Alerts = stored
		result.Inserted = len(stored)
		if len(stored) == 0 {
			result.Evaluation.Notice = core.NoticeAllAlreadyAlerted
		} else {
			s.publish(ctx, period, stored)
		}
	}

	s.logger.InfoContext(ctx, "Budget check completed",
		log.NewFields().
			WithPeriod(period).
			WithEvaluation(result.Evaluation).
			WithLimit(limit.Amount).
			ToSlice()...)

	return result, nil
}

// publish mirrors new alerts to the sinks. Sink failures never undo stored alerts.
func (s *BudgetService) publish(ctx context.Context, period core.Period, alerts []core.BudgetAlert) {
	for _, sink := range s.sinks {
		if err := sink.PublishAlerts(ctx, alerts); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish budget alerts",
				log.NewFields().WithPeriod(period).WithError(err).ToSlice()...)
		}
	}
}

// Overview summarizes per-vehicle spending against the limit without writing anything.
func (s *BudgetService) Overview(ctx context.Context, period core.Period) (core.SpendingOverview, error) {
	limit, err := s.Limit(ctx)
	if err != nil {
		return core.SpendingOverview{}, err
	}
	spending, err := s.spending.MonthlySpending(ctx, period)
	if err != nil {
		return core.SpendingOverview{}, fmt.Errorf("read monthly spending: %w", err)
	}
	return core.SummarizeSpending(period, limit, spending), nil
}

func (s *BudgetService) Limit(ctx context.Context) (core.BudgetLimit, error) {
	l, err := s.limits.BudgetLimit(ctx)
	if err != nil {
		return core.BudgetLimit{}, fmt.Errorf("read budget limit: %w", err)
	}
	if l.CurrencyCode == "" {
		l.CurrencyCode = s.currency
	}
	return l, nil
}

// SetLimit replaces the global limit. Zero disables alerting.
func (s *BudgetService) SetLimit(ctx context.Context, amount decimal.Decimal) (core.BudgetLimit, error) {
	l := core.BudgetLimit{
		Amount:       amount,
		CurrencyCode: s.currency,
		UpdatedAt:    s.now().UTC(),
	}
	if err := l.Validate(); err != nil {
		return core.BudgetLimit{}, err
	}
	if err := s.limits.SetBudgetLimit(ctx, l); err != nil {
		return core.BudgetLimit{}, fmt.Errorf("store budget limit: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget limit updated", log.NewFields().WithLimit(amount).WithOperation(log.OpSetLimit).ToSlice()...)
	return l, nil
}

func (s *BudgetService) ListAlerts(ctx context.Context, filter core.AlertFilter) ([]core.BudgetAlert, error) {
	alerts, err := s.alerts.ListAlerts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// AcknowledgeAlert is the only transition an alert has: active to acknowledged.
func (s *BudgetService) AcknowledgeAlert(ctx context.Context, id string) (core.BudgetAlert, error) {
	a, err := s.alerts.AcknowledgeAlert(ctx, id, s.now().UTC())
	if err != nil {
		return core.BudgetAlert{}, err
	}
	s.logger.InfoContext(ctx, "Budget alert acknowledged",
		log.FieldAlertID, a.ID,
		log.FieldVehicleID, string(a.VehicleID),
		log.FieldPeriod, a.PeriodStart.Format("2006-01"))
	return a, nil
}
