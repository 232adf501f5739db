// Package main provides the entry point for the LaunchWorthy API server and tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "launchworthy",
	Short: "LaunchWorthy booking and resume optimizer API",
	Long: "LaunchWorthy serves the paid-service booking wizard and the resume bullet optimizer, " +
		"and ships offline tools for parsing job descriptions and running optimizations.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
