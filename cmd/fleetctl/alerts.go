package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"fleetbudget/internal/core"

	"github.com/spf13/cobra"
)

func newAlertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and acknowledge budget alerts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored alerts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			periodStr, _ := cmd.Flags().GetString("period")
			vehicle, _ := cmd.Flags().GetString("vehicle")
			open, _ := cmd.Flags().GetBool("open")

			filter := core.AlertFilter{VehicleID: core.VehicleID(vehicle), UnacknowledgedOnly: open}
			if periodStr != "" {
				p, err := core.ParsePeriod(periodStr)
				if err != nil {
					return err
				}
				filter.Period = &p
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			alerts, err := b.Budget.ListAlerts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printAlerts(cmd.OutOrStdout(), alerts)
		},
	}
	list.Flags().String("period", "", "only this month YYYY-MM")
	list.Flags().String("vehicle", "", "only this vehicle")
	list.Flags().Bool("open", false, "only unacknowledged alerts")

	ack := &cobra.Command{
		Use:   "ack ID",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			alert, err := b.Budget.AcknowledgeAlert(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Acknowledged alert %s for %s\n", alert.ID, alert.VehicleID)
			return nil
		},
	}

	cmd.AddCommand(list, ack)
	return cmd
}

func printAlerts(w io.Writer, alerts []core.BudgetAlert) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVEHICLE\tPERIOD\tLIMIT\tSPENT\tSTATUS")
	for _, al := range alerts {
		status := "open"
		if al.Acknowledged {
			status = "acknowledged"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", al.ID, al.VehicleID,
			core.PeriodOf(al.PeriodStart.Time).Key(),
			core.FormatAmount(al.ThresholdValue, al.CurrencyCode),
			core.FormatAmount(al.ActualValue, al.CurrencyCode),
			status)
	}
	return tw.Flush()
}
