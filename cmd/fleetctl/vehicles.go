package main

import (
	"fmt"
	"text/tabwriter"

	"fleetbudget/internal/core"

	"github.com/spf13/cobra"
)

func newVehiclesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "Manage the vehicle registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			vehicles, err := b.Fleet.Vehicles(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREGISTRATION\tNAME\tBRANCH")
			for _, v := range vehicles {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Registration, v.Name, v.Branch)
			}
			return tw.Flush()
		},
	}

	add := &cobra.Command{
		Use:     "add",
		Short:   "Register a vehicle",
		Example: `  fleetctl vehicles add --registration "WX 1001" --name "Transit van" --branch Warsaw`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			reg, _ := cmd.Flags().GetString("registration")
			name, _ := cmd.Flags().GetString("name")
			branch, _ := cmd.Flags().GetString("branch")

			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			v, err := b.Fleet.AddVehicle(cmd.Context(), core.Vehicle{
				ID:           core.VehicleID(id),
				Registration: reg,
				Name:         name,
				Branch:       branch,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", v.Registration, v.ID)
			return nil
		},
	}
	add.Flags().String("id", "", "vehicle id (generated when empty)")
	add.Flags().String("registration", "", "registration plate")
	add.Flags().String("name", "", "display name")
	add.Flags().String("branch", "", "branch or depot")
	add.MarkFlagRequired("registration")

	cmd.AddCommand(list, add)
	return cmd
}
