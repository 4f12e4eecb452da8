// Package report renders spending overviews and budget alerts as XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"fleetbudget/internal/core"

	"github.com/xuri/excelize/v2"
)

const (
	SpendingSheet = "Spending"
	AlertsSheet   = "Alerts"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	spendingHeader = []any{"Vehicle", "Total spent", "Limit", "Over budget"}
	alertsHeader   = []any{"Alert ID", "Vehicle", "Period", "Threshold", "Actual", "Currency", "Acknowledged", "Created at"}
)

// Filename is the suggested download name for a period's report.
func Filename(p core.Period) string {
	return fmt.Sprintf("fleet-budget-%s.xlsx", p.Key())
}

// Workbook builds the two-sheet report. The caller must Close the file.
func Workbook(ov core.SpendingOverview, alerts []core.BudgetAlert) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SpendingSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(AlertsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSpending(f, ov); err != nil {
		f.Close()
		return nil, fmt.Errorf("write spending sheet: %w", err)
	}
	if err := writeAlerts(f, alerts); err != nil {
		f.Close()
		return nil, fmt.Errorf("write alerts sheet: %w", err)
	}
	return f, nil
}

func writeSpending(f *excelize.File, ov core.SpendingOverview) error {
	limit := ov.Limit.Amount.InexactFloat64()
	if err := setRow(f, SpendingSheet, 1, spendingHeader); err != nil {
		return err
	}
	row := 2
	for _, v := range ov.Vehicles {
		values := []any{string(v.VehicleID), v.TotalSpent.InexactFloat64(), limit, yesNo(v.OverBudget)}
		if err := setRow(f, SpendingSheet, row, values); err != nil {
			return err
		}
		row++
	}
	// fleet total is informational; the limit applies per vehicle
	return setRow(f, SpendingSheet, row, []any{"Fleet total " + ov.Period.Key(), ov.FleetTotal.InexactFloat64(), "", fmt.Sprintf("%d over", ov.OverBudget)})
}

func writeAlerts(f *excelize.File, alerts []core.BudgetAlert) error {
	if err := setRow(f, AlertsSheet, 1, alertsHeader); err != nil {
		return err
	}
	for i, a := range alerts {
		values := []any{
			a.ID,
			string(a.VehicleID),
			a.PeriodStart.Format("2006-01"),
			a.ThresholdValue.InexactFloat64(),
			a.ActualValue.InexactFloat64(),
			a.CurrencyCode,
			yesNo(a.Acknowledged),
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := setRow(f, AlertsSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Write streams the workbook to w.
func Write(w io.Writer, ov core.SpendingOverview, alerts []core.BudgetAlert) error {
	f, err := Workbook(ov, alerts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveAs writes the workbook to path.
func SaveAs(path string, ov core.SpendingOverview, alerts []core.BudgetAlert) error {
	f, err := Workbook(ov, alerts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}
