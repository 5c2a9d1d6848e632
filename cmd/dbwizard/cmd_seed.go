package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dbwizard/dbwizard/internal/seed"
	"github.com/dbwizard/dbwizard/internal/wizard"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var datasets []string
	var reset bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo datasets in the configured database",
		Long: `Create demo datasets in the configured database.

Available datasets: ecommerce, blog, library. Seeding is safe to
repeat; existing rows are left alone. --reset drops the dataset tables
first, after a confirmation prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(datasets) == 0 {
				datasets = []string{"ecommerce"}
			}
			selected, err := seed.ByName(datasets...)
			if err != nil {
				return err
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

			conn := adapter.Conn()
			defer conn.Close() //nolint:errcheck

			out := cmd.OutOrStdout()

			if reset {
				if !yes {
					approved, err := wizard.Confirm(os.Stdin, os.Stdout,
						"Drop existing tables?",
						fmt.Sprintf("This drops every table in: %s", strings.Join(datasets, ", ")))
					if err != nil {
						return err
					}
					if !approved {
						fmt.Fprintln(out, "Aborted.")
						return nil
					}
				}
				if err := seed.Reset(ctx, conn, selected...); err != nil {
					return err
				}
				fmt.Fprintf(out, "Dropped tables for: %s\n\n", strings.Join(datasets, ", "))
			}

			counts, err := seed.Apply(ctx, conn, selected...)
			if err != nil {
				return err
			}

			printSeedCounts(out, counts)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&datasets, "dataset", nil, "Dataset to seed: ecommerce, blog, library (can be repeated, default: ecommerce)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop the dataset tables before seeding")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt for --reset")

	return cmd
}
