package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dbwizard/dbwizard/internal/wizard"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAskCommand() *cobra.Command {
	var questionFlag string
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the database a question",
		Long: `Ask the database a question in plain language.

The question comes from the argument, --question, or an interactive
prompt when run in a terminal. The wizard plans operations with the
configured engine, executes them, and prints the answer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := questionFlag
			if len(args) > 0 {
				question = args[0]
			}

			if strings.TrimSpace(question) == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("no question given: pass it as an argument or with --question")
				}
				var err error
				question, err = wizard.PromptQuestion(os.Stdin, os.Stdout)
				if err != nil {
					return err
				}
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
			if !jsonOutput {
				w.OnProgress(askProgressListener(cmd.OutOrStdout(), verbose))
			}

			answer, err := w.Ask(ctx, question)
			if err != nil {
				// Session failures map to exit code 1 in main.
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), answer)
			}
			printAnswer(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&questionFlag, "question", "q", "", "Question to ask (skips the interactive prompt)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the answer as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each planned operation and its result")

	return cmd
}
