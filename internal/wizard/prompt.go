package wizard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// PromptQuestion runs an interactive form to collect a question when none
// was given on the command line.
func PromptQuestion(in io.Reader, out io.Writer) (string, error) {
	var question string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ask the database").
				Description("Describe what you want to know or change in plain language").
				Placeholder("How many customers ordered this month?").
				Value(&question).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a question is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("question prompt failed: %w", err)
	}

	return strings.TrimSpace(question), nil
}

// Confirm asks the user to approve a destructive action.
func Confirm(in io.Reader, out io.Writer, title, description string) (bool, error) {
	var approved bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&approved),
		),
	).
		WithInput(in).
		WithOutput(out)

	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	return approved, nil
}
