package google

import (
	"fmt"
	"strings"
	"time"

	"fleetbudget/internal/core"
)

var headerRow = []any{"Alert ID", "Vehicle", "Period", "Threshold", "Actual", "Overrun", "Currency", "Created at", "Acknowledged"}

func alertRow(a core.BudgetAlert) []any {
	return []any{
		a.ID,
		string(a.VehicleID),
		a.PeriodStart.Format("2006-01"),
		a.ThresholdValue.StringFixed(2),
		a.ActualValue.String(),
		a.Overrun().StringFixed(2),
		a.CurrencyCode,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.Acknowledged,
	}
}

// existingIDs reads column A as returned by the Values API. The header cell is
// included but never collides with a uuid.
func existingIDs(values [][]any) map[string]bool {
	ids := make(map[string]bool, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		if id := strings.TrimSpace(fmt.Sprint(row[0])); id != "" {
			ids[id] = true
		}
	}
	return ids
}

// buildRows returns the rows to append: a header when the sheet is empty, then
// every alert not yet present.
func buildRows(current [][]any, alerts []core.BudgetAlert) [][]any {
	seen := existingIDs(current)
	var rows [][]any
	if len(current) == 0 {
		rows = append(rows, headerRow)
	}
	for _, a := range alerts {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		rows = append(rows, alertRow(a))
	}
	if len(rows) == 1 && len(current) == 0 {
		return nil // header alone
	}
	return rows
}
