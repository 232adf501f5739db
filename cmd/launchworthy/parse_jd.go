package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/fetch"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/parsing"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/schemas"
)

var parseJDCmd = &cobra.Command{
	Use:   "parse-jd",
	Short: "Parse a job description into structured fields",
	Long: "Parse a job description into title, seniority, skills, tools and requirements. " +
		"The text is read from --in (or stdin) or fetched from --url.",
	RunE: runParseJD,
}

var (
	parseJDInput   string
	parseJDOutput  string
	parseJDURL     string
	parseJDBrowser bool
)

func init() {
	parseJDCmd.Flags().StringVarP(&parseJDInput, "in", "i", "", "Path to a job description text file (default stdin)")
	parseJDCmd.Flags().StringVarP(&parseJDOutput, "out", "o", "", "Path to output JSON file (default stdout)")
	parseJDCmd.Flags().StringVar(&parseJDURL, "url", "", "Fetch the job description from this posting URL")
	parseJDCmd.Flags().BoolVar(&parseJDBrowser, "browser", false, "Render the posting in headless Chrome when the static page has too little text")

	rootCmd.AddCommand(parseJDCmd)
}

func runParseJD(cmd *cobra.Command, _ []string) error {
	if parseJDURL != "" && parseJDInput != "" {
		return fmt.Errorf("cannot use --url with --in")
	}

	var text string
	if parseJDURL != "" {
		fetcher := fetch.NewJDFetcher(nil)
		if parseJDBrowser {
			fetcher.Renderer = fetch.NewChromeRenderer()
		}
		fetched, err := fetcher.FetchText(commandContext(cmd), parseJDURL)
		if err != nil {
			return fmt.Errorf("failed to fetch job description: %w", err)
		}
		text = fetched
	} else {
		input, err := readInput(cmd.InOrStdin(), parseJDInput)
		if err != nil {
			return err
		}
		text = input
	}

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("job description is empty")
	}

	parsed := parsing.Parse(text)
	if err := schemas.ValidateValue(schemas.ParsedJD, parsed); err != nil {
		return fmt.Errorf("parsed job description failed schema validation: %w", err)
	}

	return writeJSON(cmd.OutOrStdout(), parseJDOutput, parsed)
}
