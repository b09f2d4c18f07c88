package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetrisge/rsge/rsge"
)

var tinCmd = &cobra.Command{
	Use:   "tin <tin>",
	Short: "Look up a taxpayer's name and VAT status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		res, err := rsge.New(a.soap, rsge.WithLogger(a.logger)).LookupTin(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		name := res.Name
		if name == "" {
			name = "(not registered)"
		}
		fmt.Printf("%s\t%s\tVAT payer: %t\n", res.Tin, name, res.IsVATPayer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tinCmd)
}
