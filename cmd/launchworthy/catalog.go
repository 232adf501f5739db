package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the bookable services and prices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		services := types.Services()
		if catalogJSON {
			return writeJSON(cmd.OutOrStdout(), "", services)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRICE")
		for _, svc := range services {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", svc.ID, svc.Name, svc.DisplayPrice())
		}
		return tw.Flush()
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print the catalog as JSON")
	rootCmd.AddCommand(catalogCmd)
}
