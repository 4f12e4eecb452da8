package core

import "github.com/shopspring/decimal"

// VehicleSpendingRow is one vehicle's spend in a period, compared with the limit.
type VehicleSpendingRow struct {
	VehicleID  VehicleID
	TotalSpent decimal.Decimal
	OverBudget bool
}

// SpendingOverview is a compact fleet summary for one period.
type SpendingOverview struct {
	Period     Period
	Limit      BudgetLimit
	FleetTotal decimal.Decimal
	Vehicles   []VehicleSpendingRow
	OverBudget int
}

// SummarizeSpending builds the overview shown next to a budget check. The fleet
// total is informational only; alerts are always decided per vehicle.
func SummarizeSpending(period Period, limit BudgetLimit, spending []VehicleMonthlySpending) SpendingOverview {
	ov := SpendingOverview{Period: period, Limit: limit, FleetTotal: decimal.Zero}
	for _, s := range spending {
		over := limit.Configured() && s.TotalSpent.GreaterThan(limit.Amount)
		if over {
			ov.OverBudget++
		}
		ov.FleetTotal = ov.FleetTotal.Add(s.TotalSpent)
		ov.Vehicles = append(ov.Vehicles, VehicleSpendingRow{
			VehicleID:  s.VehicleID,
			TotalSpent: s.TotalSpent,
			OverBudget: over,
		})
	}
	return ov
}
