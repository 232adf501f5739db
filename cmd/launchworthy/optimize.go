package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Rewrite resume bullets against a job description",
	Long: "Submit resume bullets and a job description to the optimization job service, wait for it to " +
		"finish and print the rewritten variants. Uses JOB_SERVICE_URL (with JOB_SERVICE_KEY) when set, otherwise runs the job in process.",
	RunE: runOptimize,
}

var (
	optimizeBullets  string
	optimizeJD       string
	optimizeOutput   string
	optimizeTone     string
	optimizeMaxLen   int
	optimizeVariants int
	optimizeJSON     bool
)

func init() {
	defaults := types.DefaultSettings()
	optimizeCmd.Flags().StringVarP(&optimizeBullets, "bullets", "b", "", "Path to a file of resume bullets, one per line (required)")
	optimizeCmd.Flags().StringVarP(&optimizeJD, "jd", "j", "", "Path to a job description text file (default stdin)")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "out", "o", "", "Path to output JSON file (implies --json)")
	optimizeCmd.Flags().StringVar(&optimizeTone, "tone", defaults.Tone, "Tone: professional, confident or concise")
	optimizeCmd.Flags().IntVar(&optimizeMaxLen, "max-len", defaults.MaxLen, "Maximum characters per bullet (60-300)")
	optimizeCmd.Flags().IntVar(&optimizeVariants, "variants", defaults.Variants, "Variants per bullet (1-3)")
	optimizeCmd.Flags().BoolVar(&optimizeJSON, "json", false, "Print results as JSON")

	_ = optimizeCmd.MarkFlagRequired("bullets")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	if (optimizeJD == "" || optimizeJD == "-") && optimizeBullets == "-" {
		return fmt.Errorf("bullets and job description cannot both come from stdin")
	}

	bulletText, err := readInput(cmd.InOrStdin(), optimizeBullets)
	if err != nil {
		return err
	}
	bullets := optimizer.SplitBullets(bulletText)
	if len(bullets) == 0 {
		return fmt.Errorf("no bullets found in %s", optimizeBullets)
	}

	jd, err := readInput(cmd.InOrStdin(), optimizeJD)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.jobClient(ctx)
	if err != nil {
		return err
	}

	submitted, err := client.Submit(ctx, types.JobRequest{
		JobDescription: strings.TrimSpace(jd),
		Bullets:        bullets,
		Settings: types.JobSettings{
			Tone:     optimizeTone,
			MaxLen:   optimizeMaxLen,
			Variants: optimizeVariants,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Submitted job %s (%d candidates)\n", submitted.JobID, submitted.TotalCandidates)

	poll := a.pollConfig()
	poll.OnProgress = func(_ int, p types.JobProcessing) {
		fmt.Fprintf(cmd.ErrOrStderr(), "  processed %d/%d\n", p.Processed, p.Total)
	}
	completed, err := optimizer.PollJob(ctx, client, submitted.JobID, poll)
	if err != nil {
		return err
	}

	results := optimizer.FirstCandidateResults(submitted.JobID, completed)
	if optimizeJSON || optimizeOutput != "" {
		return writeJSON(cmd.OutOrStdout(), optimizeOutput, results)
	}
	printResults(cmd.OutOrStdout(), results)
	return nil
}

func printResults(w io.Writer, results *types.OptimizerResults) {
	for i, b := range results.Bullets {
		fmt.Fprintf(w, "%d. %s\n", i+1, b.Original)
		for _, v := range b.Revised {
			fmt.Fprintf(w, "   -> %s\n", v)
		}
		if b.Score != nil {
			fmt.Fprintf(w, "   score: %.2f\n", *b.Score)
		}
	}
}
