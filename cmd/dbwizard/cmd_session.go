package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dbwizard/dbwizard/internal/session"
	"github.com/spf13/cobra"
)

func newSessionCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and maintain session audit logs",
		Long: `Inspect and maintain the append-only session audit logs.

Every question session writes one NDJSON log file. list shows them
newest first, view renders one as a timeline, and compact compresses
old logs with zstd.`,
	}

	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Session log directory (default: wizard.log_dir from config)")

	cmd.AddCommand(newSessionListCommand(&dir))
	cmd.AddCommand(newSessionViewCommand(&dir))
	cmd.AddCommand(newSessionCompactCommand(&dir))

	return cmd
}

// resolveLogDir prefers the --dir flag, then the configured log dir.
func resolveLogDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Wizard.LogDir, nil
}

func newSessionListCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logDir, err := resolveLogDir(*dir)
			if err != nil {
				return err
			}

			files, err := session.List(logDir)
			if err != nil {
				return err
			}

			printSessionTable(cmd.OutOrStdout(), files)
			return nil
		},
	}
}

func newSessionViewCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "view <session-id>",
		Short: "Show one session as a timeline",
		Long: `Show one session as a timeline of audit records.

The session id may be a unique prefix of the full id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logDir, err := resolveLogDir(*dir)
			if err != nil {
				return err
			}

			file, err := session.Find(logDir, args[0])
			if err != nil {
				return err
			}

			records, err := session.ReadRecords(file.Path)
			if err != nil {
				return err
			}

			session.RenderTimeline(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func newSessionCompactCommand(dir *string) *cobra.Command {
	var minAge time.Duration

	cmd := &cobra.Command{
		Use:   "compact [session-id]",
		Short: "Compress session logs with zstd",
		Long: `Compress session logs with zstd.

Without arguments, every plain log older than --min-age is compacted.
With a session id, that log is compacted regardless of age. Compacted
logs stay readable by view and the HTTP API.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logDir, err := resolveLogDir(*dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				file, err := session.Find(logDir, args[0])
				if err != nil {
					return err
				}
				result, err := session.CompactFile(file.Path)
				if err != nil {
					return err
				}
				printCompactResults(out, []session.CompactResult{result})
				return nil
			}

			results, err := session.CompactDir(logDir, minAge)
			if err != nil {
				return err
			}
			printCompactResults(out, results)
			return nil
		},
	}

	cmd.Flags().DurationVar(&minAge, "min-age", 24*time.Hour, "Only compact logs older than this")

	return cmd
}

func printCompactResults(out io.Writer, results []session.CompactResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "Nothing to compact.")
		return
	}

	var before, after int64
	for _, r := range results {
		before += r.SizeBefore
		after += r.SizeAfter
		fmt.Fprintf(out, "%s: %s -> %s\n", r.Path, formatBytes(r.SizeBefore), formatBytes(r.SizeAfter))
	}
	fmt.Fprintf(out, "Compacted %d log(s), %s -> %s\n", len(results), formatBytes(before), formatBytes(after))
}
