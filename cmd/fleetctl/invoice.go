package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"fleetbudget/internal/core"
	"fleetbudget/internal/services"

	"github.com/spf13/cobra"
)

func newInvoiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Compute, record and list invoices",
	}
	cmd.AddCommand(newInvoiceComputeCmd(a), newInvoiceAddCmd(a), newInvoiceListCmd(a))
	return cmd
}

func newInvoiceComputeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Print line and invoice totals for a list of items",
		Long: `Reads line items as JSON and prints the gross unit price, line totals and
invoice totals. Nothing is stored.

Each item has quantity, unit_price_net and vat_rate (percent); name and sku
are optional. Prices may be JSON numbers or strings.`,
		Example: `  fleetctl invoice compute -f items.json
  echo '[{"quantity":2,"unit_price_net":"10.005","vat_rate":23}]' | fleetctl invoice compute -f -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			asJSON, _ := cmd.Flags().GetBool("json")

			items, err := readItemsFile(path, cmd.InOrStdin())
			if err != nil {
				return err
			}
			inv, err := core.ComputeInvoice(items)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), newInvoiceOutput(inv))
			}
			return printInvoice(cmd.OutOrStdout(), inv, "")
		},
	}
	cmd.Flags().StringP("file", "f", "-", "items file, - for stdin")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func newInvoiceAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an invoice for a vehicle and check its month",
		Example: `  fleetctl invoice add --vehicle v1 --date 2025-03-14 --supplier Orlen -f items.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicle, _ := cmd.Flags().GetString("vehicle")
			dateStr, _ := cmd.Flags().GetString("date")
			supplier, _ := cmd.Flags().GetString("supplier")
			description, _ := cmd.Flags().GetString("description")
			currency, _ := cmd.Flags().GetString("currency")
			path, _ := cmd.Flags().GetString("file")

			date := core.DateOf(a.now())
			if dateStr != "" {
				d, err := core.ParseDate(dateStr)
				if err != nil {
					return err
				}
				date = d
			}
			items, err := readItemsFile(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			order, err := b.Invoices.CreateInvoice(cmd.Context(), services.InvoiceDraft{
				VehicleID:    core.VehicleID(vehicle),
				OrderDate:    date,
				Supplier:     supplier,
				Description:  description,
				CurrencyCode: currency,
				Items:        items,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded invoice %s for %s on %s\n", order.ID, order.VehicleID, order.OrderDate)
			return printInvoice(cmd.OutOrStdout(), order.Invoice, order.CurrencyCode)
		},
	}
	cmd.Flags().String("vehicle", "", "vehicle id")
	cmd.Flags().String("date", "", "order date YYYY-MM-DD (default today)")
	cmd.Flags().String("supplier", "", "supplier name")
	cmd.Flags().String("description", "", "free text description")
	cmd.Flags().String("currency", "", "currency code, must match $CURRENCY_CODE")
	cmd.Flags().StringP("file", "f", "-", "items file, - for stdin")
	cmd.MarkFlagRequired("vehicle")
	return cmd
}

func newInvoiceListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicle, _ := cmd.Flags().GetString("vehicle")
			periodStr, _ := cmd.Flags().GetString("period")

			period, err := a.period(periodStr)
			if err != nil {
				return err
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			orders, err := b.Invoices.ListOrders(cmd.Context(), core.VehicleID(vehicle), period)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVEHICLE\tDATE\tSUPPLIER\tNET\tGROSS")
			for _, o := range orders {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", o.ID, o.VehicleID, o.OrderDate, o.Supplier,
					core.FormatAmount(o.Invoice.Totals.TotalNet, o.CurrencyCode),
					core.FormatAmount(o.Invoice.Totals.TotalGross, o.CurrencyCode))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("vehicle", "", "only this vehicle")
	cmd.Flags().String("period", "", "month YYYY-MM (default current)")
	return cmd
}

func printInvoice(w io.Writer, inv core.Invoice, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tQTY\tNET\tVAT %\tGROSS\tTOTAL NET\tTOTAL GROSS")
	for i, it := range inv.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n", i+1, it.Name, it.Quantity,
			it.UnitPriceNet.String(), it.VATRate.String(),
			core.FormatAmount(it.UnitPriceGross, ""),
			core.FormatAmount(it.TotalNet, ""),
			core.FormatAmount(it.TotalGross, ""))
	}
	fmt.Fprintf(tw, "\t\t\t\t\t\t%s\t%s\n",
		core.FormatAmount(inv.Totals.TotalNet, currency),
		core.FormatAmount(inv.Totals.TotalGross, currency))
	return tw.Flush()
}

type lineOutput struct {
	Name           string `json:"name,omitempty"`
	SKU            string `json:"sku,omitempty"`
	Quantity       int64  `json:"quantity"`
	UnitPriceNet   string `json:"unit_price_net"`
	VATRate        string `json:"vat_rate"`
	UnitPriceGross string `json:"unit_price_gross"`
	TotalNet       string `json:"total_net"`
	TotalGross     string `json:"total_gross"`
}

type invoiceOutput struct {
	Items      []lineOutput `json:"items"`
	TotalNet   string       `json:"total_net"`
	TotalGross string       `json:"total_gross"`
}

func newInvoiceOutput(inv core.Invoice) invoiceOutput {
	out := invoiceOutput{
		Items:      make([]lineOutput, 0, len(inv.Items)),
		TotalNet:   core.FormatAmount(inv.Totals.TotalNet, ""),
		TotalGross: core.FormatAmount(inv.Totals.TotalGross, ""),
	}
	for _, it := range inv.Items {
		out.Items = append(out.Items, lineOutput{
			Name:           it.Name,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPriceNet:   it.UnitPriceNet.String(),
			VATRate:        it.VATRate.String(),
			UnitPriceGross: core.FormatAmount(it.UnitPriceGross, ""),
			TotalNet:       core.FormatAmount(it.TotalNet, ""),
			TotalGross:     core.FormatAmount(it.TotalGross, ""),
		})
	}
	return out
}
