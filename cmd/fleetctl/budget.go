package main

import (
	"fmt"
	"text/tabwriter"

	"fleetbudget/internal/core"

	"github.com/spf13/cobra"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage the monthly limit and run budget checks",
	}

	limit := &cobra.Command{
		Use:   "limit",
		Short: "Show or change the per-vehicle monthly limit",
	}
	limit.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Show the current limit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				l, err := b.Budget.Limit(cmd.Context())
				if err != nil {
					return err
				}
				if !l.Configured() {
					fmt.Fprintln(cmd.OutOrStdout(), "No limit configured, alerting is off")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Monthly limit per vehicle: %s\n", core.FormatAmount(l.Amount, l.CurrencyCode))
				return nil
			},
		},
		&cobra.Command{
			Use:     "set AMOUNT",
			Short:   "Replace the limit; 0 turns alerting off",
			Example: `  fleetctl budget limit set 2500.00`,
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := core.ParseAmount(args[0])
				if err != nil {
					return err
				}
				b, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				l, err := b.Budget.SetLimit(cmd.Context(), amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Monthly limit per vehicle set to %s\n", core.FormatAmount(l.Amount, l.CurrencyCode))
				return nil
			},
		},
	)

	check := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a month and store alerts for vehicles newly over the limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			periodStr, _ := cmd.Flags().GetString("period")
			period, err := a.period(periodStr)
			if err != nil {
				return err
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := b.Budget.CheckBudget(cmd.Context(), period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Evaluation.Notice != "" {
				fmt.Fprintf(out, "%s: %s\n", period.Key(), res.Evaluation.Notice)
				return nil
			}
			fmt.Fprintf(out, "%s: %d vehicle(s) over budget, %d new alert(s)\n", period.Key(), res.Evaluation.OverBudget, res.Inserted)
			return printAlerts(out, res.Evaluation.Alerts)
		},
	}
	check.Flags().String("period", "", "month YYYY-MM (default current)")

	spending := &cobra.Command{
		Use:   "spending",
		Short: "Show gross spending per vehicle for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			periodStr, _ := cmd.Flags().GetString("period")
			period, err := a.period(periodStr)
			if err != nil {
				return err
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			ov, err := b.Budget.Overview(cmd.Context(), period)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VEHICLE\tSPENT\tOVER")
			for _, v := range ov.Vehicles {
				over := ""
				if v.OverBudget {
					over = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.VehicleID, core.FormatAmount(v.TotalSpent, ov.Limit.CurrencyCode), over)
			}
			fmt.Fprintf(tw, "Fleet total %s\t%s\t%d\n", period.Key(), core.FormatAmount(ov.FleetTotal, ov.Limit.CurrencyCode), ov.OverBudget)
			return tw.Flush()
		},
	}
	spending.Flags().String("period", "", "month YYYY-MM (default current)")

	cmd.AddCommand(limit, check, spending)
	return cmd
}
