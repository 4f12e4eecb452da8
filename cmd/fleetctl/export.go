package main

import (
	"fmt"

	"fleetbudget/internal/core"
	"fleetbudget/internal/report"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export budget data",
	}

	xlsx := &cobra.Command{
		Use:     "xlsx",
		Short:   "Write a month's spending and alerts to an Excel workbook",
		Example: `  fleetctl export xlsx --period 2025-03 -o march.xlsx`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			periodStr, _ := cmd.Flags().GetString("period")
			path, _ := cmd.Flags().GetString("output")

			period, err := a.period(periodStr)
			if err != nil {
				return err
			}
			if path == "" {
				path = report.Filename(period)
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			ov, err := b.Budget.Overview(cmd.Context(), period)
			if err != nil {
				return err
			}
			alerts, err := b.Budget.ListAlerts(cmd.Context(), core.AlertFilter{Period: &period})
			if err != nil {
				return err
			}
			if err := report.SaveAs(path, ov, alerts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	xlsx.Flags().String("period", "", "month YYYY-MM (default current)")
	xlsx.Flags().StringP("output", "o", "", "output file (default fleet-budget-YYYY-MM.xlsx)")

	cmd.AddCommand(xlsx)
	return cmd
}
