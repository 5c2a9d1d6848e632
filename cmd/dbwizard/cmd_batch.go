package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dbwizard/dbwizard/internal/orchestration"
	"github.com/spf13/cobra"
)

func newBatchCommand() *cobra.Command {
	var parallel bool
	var workers int
	var questionFilters []string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "batch <script.yaml>",
		Short: "Run a batch of questions from a script file",
		Long: `Run a batch of questions from a YAML script file.

Each question runs in its own session. A failed question never aborts
the batch unless the script sets fail_fast. With --parallel, sessions
run concurrently on a bounded worker pool; they share nothing but the
connection pool.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := orchestration.LoadScript(args[0])
			if err != nil {
				return fmt.Errorf("failed to load script: %w", err)
			}

			if len(questionFilters) > 0 {
				script.Questions, err = orchestration.FilterQuestions(script.Questions, questionFilters)
				if err != nil {
					return err
				}
				if len(script.Questions) == 0 {
					return fmt.Errorf("no questions match the given filters")
				}
			}

			// CLI flags override script config
			if parallel {
				script.Config.Concurrent = true
			}
			if workers > 0 {
				script.Config.Workers = workers
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			adapter, err := openAdapter(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer adapter.Close() //nolint:errcheck

			p, err := buildPlanner(cfg)
			if err != nil {
				return err
			}
			w := buildWizard(adapter, p, cfg)

			runner := orchestration.NewRunner(w)
			runner.OnProgress(batchProgressListener(cmd.OutOrStdout()))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running batch: %s\n", script.Name)
			fmt.Fprintf(out, "Questions: %d\n", len(script.Questions))
			if script.Config.Concurrent {
				fmt.Fprintf(out, "Parallel: %d workers\n", script.Config.Workers)
			}
			fmt.Fprintln(out)

			batch, err := runner.Run(ctx, script)
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			printBatchSummary(out, batch)

			if outputPath != "" {
				if err := saveBatchOutcome(batch, outputPath); err != nil {
					return fmt.Errorf("failed to save output: %w", err)
				}
				fmt.Fprintf(out, "\nResults saved to: %s\n", outputPath)
			}

			// Return batch failure as error so main maps it to exit code 1
			if batch.Failed > 0 {
				return &BatchFailureError{
					Message: fmt.Sprintf("batch completed with %d failed question(s)", batch.Failed),
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&parallel, "parallel", false, "Run questions concurrently")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent workers (default: 4, requires --parallel)")
	cmd.Flags().StringArrayVar(&questionFilters, "question", nil, "Filter questions by id glob pattern (can be repeated)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON file for results")

	return cmd
}

func saveBatchOutcome(batch *orchestration.BatchOutcome, path string) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
