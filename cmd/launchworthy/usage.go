package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect or adjust a visitor's optimizer usage",
	Long:  "Show, credit or reset the optimizer usage record of one visitor in the configured state store.",
}

var usageVisitor string

var usageShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a visitor's usage and whether the optimizer may run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withTracker(cmd, func(t *usage.Tracker) error {
			data, err := t.Data(commandContext(cmd))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), "", struct {
				types.UsageDecision
				Usage types.UsageData `json:"usage"`
			}{usage.Decide(data), data})
		})
	},
}

var usageAddCount int

var usageAddCmd = &cobra.Command{
	Use:   "add-credits",
	Short: "Grant paid optimizer credits to a visitor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withTracker(cmd, func(t *usage.Tracker) error {
			data, err := t.AddCredits(commandContext(cmd), usageAddCount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visitor %s now has %d paid credits\n", usageVisitor, data.PaidCredits)
			return nil
		})
	},
}

var usageResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a visitor's usage record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withTracker(cmd, func(t *usage.Tracker) error {
			if err := t.Reset(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Usage reset for visitor %s\n", usageVisitor)
			return nil
		})
	},
}

func init() {
	usageCmd.PersistentFlags().StringVar(&usageVisitor, "visitor", "", "Visitor ID (required)")
	_ = usageCmd.MarkPersistentFlagRequired("visitor")
	usageAddCmd.Flags().IntVarP(&usageAddCount, "count", "n", 1, "Number of credits to add")

	usageCmd.AddCommand(usageShowCmd, usageAddCmd, usageResetCmd)
	rootCmd.AddCommand(usageCmd)
}

// withTracker opens the configured store and runs fn on the visitor's tracker
func withTracker(cmd *cobra.Command, fn func(*usage.Tracker) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(usage.NewTracker(usage.NewStore(a.backend, usageVisitor)))
}
