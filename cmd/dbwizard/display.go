package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/orchestration"
	"github.com/dbwizard/dbwizard/internal/seed"
	"github.com/dbwizard/dbwizard/internal/session"
	"github.com/dbwizard/dbwizard/internal/wizard"
	"github.com/mattn/go-runewidth"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// askProgressListener prints session progress as the loop advances.
// Failed operations always print; successful ones only with verbose.
func askProgressListener(w io.Writer, verbose bool) wizard.ProgressListener {
	return func(event wizard.ProgressEvent) {
		switch event.Type {
		case wizard.EventPlan:
			fmt.Fprintf(w, "[step %d] %d operation(s) planned\n", event.Step, len(event.ToolCalls))
			if verbose {
				for _, call := range event.ToolCalls {
					fmt.Fprintf(w, "    %s\n", describeCall(call))
				}
			}
		case wizard.EventToolResults:
			for _, res := range event.Results {
				if !verbose && res.Success {
					continue
				}
				icon := "✓"
				if !res.Success {
					icon = "✗"
				}
				fmt.Fprintf(w, "    %s %s%s\n", icon, res.Operation, resultSuffix(res))
			}
		case wizard.EventPlannerRetry:
			fmt.Fprintf(w, "    engine retry: %s\n", event.Message)
		case wizard.EventFailure:
			fmt.Fprintf(w, "    session failed: %s\n", event.Message)
		}
	}
}

func describeCall(call models.ToolCall) string {
	if table, ok := call.Arguments["table"].(string); ok && table != "" {
		return call.Operation + " " + table
	}
	return call.Operation
}

func resultSuffix(res models.ToolResult) string {
	switch {
	case res.Error != nil:
		return fmt.Sprintf(" [%s] %s", res.Error.Kind, res.Error.Message)
	case res.RowCount > 0:
		return fmt.Sprintf(" (%d rows)", res.RowCount)
	case res.Affected > 0:
		return fmt.Sprintf(" (%d affected)", res.Affected)
	default:
		return ""
	}
}

func printAnswer(w io.Writer, answer *models.Answer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, answer.Text)
	fmt.Fprintln(w)

	duration := time.Duration(answer.DurationMs) * time.Millisecond
	fmt.Fprintf(w, "session %s  steps %d  tokens %d  %v\n",
		shortID(answer.SessionID), answer.Steps, answer.Usage.TotalTokens, duration.Round(time.Millisecond))
}

// shortID is the 8-character session id prefix used in log file names.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func batchProgressListener(w io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventQuestionComplete:
			icon := "✓"
			switch event.Status {
			case orchestration.StatusFailed:
				icon = "✗"
			case orchestration.StatusSkipped:
				icon = "-"
			}
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(w, "%s [%d/%d] %s (%v)\n",
				icon, event.QuestionNum, event.TotalQuestions, event.QuestionID, duration.Round(time.Millisecond))
		case orchestration.EventBatchStopped:
			fmt.Fprintln(w, "fail_fast stopped the batch")
		}
	}
}

func printBatchSummary(w io.Writer, batch *orchestration.BatchOutcome) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " BATCH RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	const (
		colID       = 10
		colStatus   = 10
		colDuration = 10
	)
	fmt.Fprintf(w, "%s %s %s %s\n",
		padRight("ID", colID), padRight("STATUS", colStatus), padRight("DURATION", colDuration), "QUESTION")
	for _, o := range batch.Outcomes {
		duration := time.Duration(o.DurationMs) * time.Millisecond
		fmt.Fprintf(w, "%s %s %s %s\n",
			padRight(truncateText(o.ID, colID-1), colID),
			padRight(string(o.Status), colStatus),
			padRight(duration.Round(time.Millisecond).String(), colDuration),
			truncateText(o.Question, 60))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Answered: %d  Failed: %d  Skipped: %d\n", batch.Answered, batch.Failed, batch.Skipped)
	fmt.Fprintf(w, "Tokens:   %d\n", batch.Usage.TotalTokens)
	fmt.Fprintf(w, "Duration: %v\n", (time.Duration(batch.DurationMs) * time.Millisecond).Round(time.Millisecond))

	if batch.Failed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed questions:")
		for _, o := range batch.Outcomes {
			if o.Status != orchestration.StatusFailed {
				continue
			}
			fmt.Fprintf(w, "  - %s", o.ID)
			if o.FailureKind != "" {
				fmt.Fprintf(w, " [%s]", o.FailureKind)
			}
			fmt.Fprintf(w, ": %s\n", truncateText(o.ErrorMsg, 100))
		}
	}
}

func printSeedCounts(w io.Writer, counts []seed.TableCount) {
	const (
		colDataset = 11
		colTable   = 11
	)
	fmt.Fprintf(w, "%s %s %s\n", padRight("DATASET", colDataset), padRight("TABLE", colTable), "ROWS")
	for _, c := range counts {
		fmt.Fprintf(w, "%s %s %d\n", padRight(c.Dataset, colDataset), padRight(c.Table, colTable), c.Rows)
	}
}

func printSessionTable(w io.Writer, files []session.File) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No session logs found.")
		return
	}

	const (
		colSession = 10
		colRecords = 8
		colSize    = 9
		colAge     = 8
	)
	fmt.Fprintf(w, "%s %s %s %s %s\n",
		padRight("SESSION", colSession), padRight("RECORDS", colRecords),
		padRight("SIZE", colSize), padRight("AGE", colAge), "FILE")
	for _, f := range files {
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			padRight(f.SessionID, colSession),
			padRight(strconv.Itoa(f.NumRecords), colRecords),
			padRight(formatBytes(f.Size), colSize),
			padRight(formatAge(time.Since(f.ModTime)), colAge),
			f.Name)
	}
	fmt.Fprintf(w, "\n%d session(s)\n", len(files))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// truncateText shortens s to maxLen runes, replacing the last rune with
// "…" if needed.
func truncateText(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
