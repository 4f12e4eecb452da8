package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// EvaluationNotice explains why an evaluation produced no alerts. It is not an error.
type EvaluationNotice string

const (
	NoticeNone              EvaluationNotice = ""
	NoticeNoLimitConfigured EvaluationNotice = "no_limit_configured"
	NoticeNoSpendingData    EvaluationNotice = "no_spending_data"
	NoticeNoneOverBudget    EvaluationNotice = "none_over_budget"
	NoticeAllAlreadyAlerted EvaluationNotice = "all_already_alerted"
)

// VehicleSet is the set of vehicles already alerted for a period.
type VehicleSet map[VehicleID]struct{}

func NewVehicleSet(ids ...VehicleID) VehicleSet {
	s := make(VehicleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s VehicleSet) Has(id VehicleID) bool {
	_, ok := s[id]
	return ok
}

func (s VehicleSet) Add(id VehicleID) {
	s[id] = struct{}{}
}

// EvaluationInput carries everything the evaluator needs. AsOf becomes CreatedAt
// on new alerts; the evaluator never reads the clock itself.
type EvaluationInput struct {
	Spending       []VehicleMonthlySpending
	Limit          BudgetLimit
	AlreadyAlerted VehicleSet
	Period         Period
	AsOf           time.Time
}

// Evaluation holds either new alerts or the notice explaining their absence.
type Evaluation struct {
	Alerts     []BudgetAlert
	Notice     EvaluationNotice
	OverBudget int // vehicles strictly over the limit, alerted before or not
}

func (e Evaluation) HasAlerts() bool {
	return len(e.Alerts) > 0
}

// EvaluateBudget returns the alerts to raise for vehicles whose spending in the
// period is strictly above the global limit and that have no alert yet.
//
// Vehicles are judged independently. Applying the returned alerts on top of the
// ones behind AlreadyAlerted never yields two alerts for one vehicle and period.
func EvaluateBudget(in EvaluationInput) Evaluation {
	if !in.Limit.Configured() {
		return Evaluation{Notice: NoticeNoLimitConfigured}
	}
	if len(in.Spending) == 0 {
		return Evaluation{Notice: NoticeNoSpendingData}
	}

	var over []VehicleMonthlySpending
	for _, s := range in.Spending {
		if s.TotalSpent.GreaterThan(in.Limit.Amount) {
			over = append(over, s)
		}
	}
	if len(over) == 0 {
		return Evaluation{Notice: NoticeNoneOverBudget}
	}

	emitted := NewVehicleSet()
	var alerts []BudgetAlert
	for _, s := range over {
		if in.AlreadyAlerted.Has(s.VehicleID) || emitted.Has(s.VehicleID) {
			continue
		}
		emitted.Add(s.VehicleID)
		alerts = append(alerts, newBudgetAlert(s.VehicleID, s.TotalSpent, in))
	}
	if len(alerts) == 0 {
		return Evaluation{Notice: NoticeAllAlreadyAlerted, OverBudget: len(over)}
	}
	return Evaluation{Alerts: alerts, OverBudget: len(over)}
}

func newBudgetAlert(vehicle VehicleID, spent decimal.Decimal, in EvaluationInput) BudgetAlert {
	return BudgetAlert{
		VehicleID:      vehicle,
		AlertType:      AlertBudgetExceeded,
		PeriodStart:    in.Period.Start,
		PeriodEnd:      in.Period.End,
		ThresholdValue: in.Limit.Amount,
		ActualValue:    spent,
		CurrencyCode:   in.Limit.CurrencyCode,
		CreatedAt:      in.AsOf,
	}
}
