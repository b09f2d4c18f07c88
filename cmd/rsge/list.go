package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetrisge/rsge/rsge"
)

var (
	listFrom string
	listTo   string
)

var waybillsCmd = &cobra.Command{
	Use:   "waybills",
	Short: "List waybills in a date range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		from, to, err := rsge.ParseDateRange(listFrom, listTo, time.Now())
		if err != nil {
			return err
		}
		creds, err := a.localCredentials(cmd.Context())
		if err != nil {
			return err
		}
		items, err := rsge.New(a.soap, rsge.WithLogger(a.logger)).GetWaybills(cmd.Context(), creds, from, to)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNUMBER\tCREATED\tBUYER TIN\tBUYER\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, it.Number, it.CreateDate, it.BuyerTin, it.BuyerName, rsge.StatusLabel(it.Status))
		}
		return w.Flush()
	},
}

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List VAT invoices in a date range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		from, to, err := rsge.ParseDateRange(listFrom, listTo, time.Now())
		if err != nil {
			return err
		}
		creds, err := a.localCredentials(cmd.Context())
		if err != nil {
			return err
		}
		items, err := rsge.New(a.soap, rsge.WithLogger(a.logger)).GetInvoices(cmd.Context(), creds, from, to)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNUMBER\tCREATED\tBUYER TIN\tBUYER\tTOTAL\tVAT\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
				it.ID, it.Number, it.CreateDate, it.BuyerTin, it.BuyerName, it.TotalAmount, it.VATAmount, it.Status)
		}
		return w.Flush()
	},
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List waybill measurement units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		creds, err := a.localCredentials(cmd.Context())
		if err != nil {
			return err
		}
		units, err := rsge.New(a.soap, rsge.WithLogger(a.logger)).GetWaybillUnits(cmd.Context(), creds)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(units)
		}
		for _, u := range units {
			fmt.Printf("%s\t%s\n", u.ID, u.Name)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{waybillsCmd, invoicesCmd} {
		c.Flags().StringVar(&listFrom, "from", "", "Start date (2006-01-02 or 2006-01-02T15:04:05); defaults to the first of the month")
		c.Flags().StringVar(&listTo, "to", "", "End date; defaults to now")
	}
	rootCmd.AddCommand(waybillsCmd, invoicesCmd, unitsCmd)
}
