package main

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func routesCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the dispatch table",
		Long:  `Print filters and routes in the order requests try them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			app, err := buildApp(fc, services{})
			if err != nil {
				return err
			}

			reg := app.Routes()
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Stage", "Method", "Pattern"})
			table.SetAutoWrapText(false)
			table.SetBorder(false)

			for _, f := range reg.BeforeFilters() {
				table.Append([]string{"before", "*", f.String()})
			}
			for _, e := range reg.Entries() {
				table.Append([]string{"route", e.Method, e.Pattern})
			}
			for _, f := range reg.AfterFilters() {
				table.Append([]string{"after", "*", f.String()})
			}
			table.Render()
			return nil
		},
	}
}
