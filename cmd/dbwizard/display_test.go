package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/orchestration"
	"github.com/dbwizard/dbwizard/internal/seed"
	"github.com/dbwizard/dbwizard/internal/session"
	"github.com/dbwizard/dbwizard/internal/wizard"
	"github.com/stretchr/testify/assert"
)

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 5))
	// Wide runes count as two columns.
	assert.Equal(t, "表 ", padRight("表", 3))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "long str…", truncateText("long string", 9))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "2.0KB", formatBytes(2048))
	assert.Equal(t, "1.5MB", formatBytes(3*1<<20/2))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "now", formatAge(30*time.Second))
	assert.Equal(t, "5m", formatAge(5*time.Minute))
	assert.Equal(t, "3h", formatAge(3*time.Hour))
	assert.Equal(t, "2d", formatAge(49*time.Hour))
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &models.Answer{
		SessionID:  "0193e4a2-1111-7000-8000-000000000000",
		Text:       "There are 5 customers.",
		Steps:      2,
		Usage:      models.Usage{TotalTokens: 340},
		DurationMs: 1200,
	})

	out := buf.String()
	assert.Contains(t, out, "There are 5 customers.")
	assert.Contains(t, out, "session 0193e4a2")
	assert.Contains(t, out, "steps 2")
	assert.Contains(t, out, "tokens 340")
}

func TestAskProgressListener(t *testing.T) {
	var buf bytes.Buffer
	listener := askProgressListener(&buf, false)

	listener(wizard.ProgressEvent{
		Type: wizard.EventPlan,
		Step: 1,
		ToolCalls: []models.ToolCall{
			{Operation: "describe_database"},
		},
	})
	listener(wizard.ProgressEvent{
		Type: wizard.EventToolResults,
		Results: []models.ToolResult{
			{Operation: "describe_database", Success: true},
			{Operation: "read_records", Success: false, Error: &models.ToolError{
				Kind: "syntax_or_schema", Message: `relation "ghosts" does not exist`,
			}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "[step 1] 1 operation(s) planned")
	// Successful results stay quiet without verbose; failures always print.
	assert.NotContains(t, out, "✓ describe_database")
	assert.Contains(t, out, `✗ read_records [syntax_or_schema] relation "ghosts" does not exist`)
}

func TestAskProgressListenerVerbose(t *testing.T) {
	var buf bytes.Buffer
	listener := askProgressListener(&buf, true)

	listener(wizard.ProgressEvent{
		Type: wizard.EventPlan,
		Step: 1,
		ToolCalls: []models.ToolCall{
			{Operation: "read_records", Arguments: map[string]any{"table": "customers"}},
		},
	})
	listener(wizard.ProgressEvent{
		Type: wizard.EventToolResults,
		Results: []models.ToolResult{
			{Operation: "read_records", Success: true, RowCount: 5},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "read_records customers")
	assert.Contains(t, out, "✓ read_records (5 rows)")
}

func TestBatchProgressListener(t *testing.T) {
	var buf bytes.Buffer
	listener := batchProgressListener(&buf)

	listener(orchestration.ProgressEvent{
		EventType:      orchestration.EventQuestionComplete,
		QuestionID:     "q-1",
		QuestionNum:    1,
		TotalQuestions: 3,
		Status:         orchestration.StatusAnswered,
		DurationMs:     850,
	})
	listener(orchestration.ProgressEvent{
		EventType:      orchestration.EventQuestionComplete,
		QuestionID:     "q-2",
		QuestionNum:    2,
		TotalQuestions: 3,
		Status:         orchestration.StatusFailed,
	})

	out := buf.String()
	assert.Contains(t, out, "✓ [1/3] q-1")
	assert.Contains(t, out, "✗ [2/3] q-2")
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	printBatchSummary(&buf, &orchestration.BatchOutcome{
		Name: "smoke",
		Outcomes: []orchestration.Outcome{
			{ID: "q-1", Question: "What tables exist?", Status: orchestration.StatusAnswered, DurationMs: 900},
			{ID: "q-2", Question: "Break things", Status: orchestration.StatusFailed,
				FailureKind: "cycle_detected", ErrorMsg: "cycle_detected: stuck"},
		},
		Answered:   1,
		Failed:     1,
		Usage:      models.Usage{TotalTokens: 512},
		DurationMs: 2000,
	})

	out := buf.String()
	assert.Contains(t, out, "BATCH RESULTS")
	assert.Contains(t, out, "What tables exist?")
	assert.Contains(t, out, "Answered: 1  Failed: 1  Skipped: 0")
	assert.Contains(t, out, "Tokens:   512")
	assert.Contains(t, out, "Failed questions:")
	assert.Contains(t, out, "q-2 [cycle_detected]")
}

func TestPrintSeedCounts(t *testing.T) {
	var buf bytes.Buffer
	printSeedCounts(&buf, []seed.TableCount{
		{Dataset: "ecommerce", Table: "customers", Rows: 5},
		{Dataset: "ecommerce", Table: "orders", Rows: 10},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "DATASET")
	assert.Contains(t, lines[1], "customers")
	assert.Contains(t, lines[2], "10")
}

func TestPrintSessionTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	printSessionTable(&buf, nil)

	assert.Contains(t, buf.String(), "No session logs found.")
}

func TestPrintSessionTable(t *testing.T) {
	var buf bytes.Buffer
	printSessionTable(&buf, []session.File{
		{
			Name:       "ask-20260110T120000Z-abcd1234.jsonl",
			SessionID:  "abcd1234",
			Size:       2048,
			ModTime:    time.Now().Add(-2 * time.Hour),
			NumRecords: 6,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "abcd1234")
	assert.Contains(t, out, "2.0KB")
	assert.Contains(t, out, "2h")
	assert.Contains(t, out, "1 session(s)")
}
