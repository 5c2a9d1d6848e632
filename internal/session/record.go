// Package session persists the audit trail of agent sessions: one NDJSON
// file per session, one record per transcript turn, written immediately so
// a crashed session still leaves a usable trace.
package session

import (
	"time"

	"github.com/dbwizard/dbwizard/internal/models"
)

// Direction marks whether a record is planner input or planner/execution
// output.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// RecordType identifies what a record holds.
type RecordType string

const (
	RecordQuestion     RecordType = "question"
	RecordPlan         RecordType = "plan"
	RecordToolResults  RecordType = "tool_results"
	RecordAnswer       RecordType = "answer"
	RecordPlannerError RecordType = "planner_error"
	RecordFailure      RecordType = "failure"
	RecordRollback     RecordType = "rollback"
)

// Record is a single timestamped entry in a session audit log, keyed by
// session id and turn index.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Turn      int            `json:"turn"`
	Direction Direction      `json:"direction"`
	Type      RecordType     `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewRecord creates a record with the current timestamp.
func NewRecord(sessionID string, turn int, dir Direction, t RecordType, data map[string]any) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Turn:      turn,
		Direction: dir,
		Type:      t,
		Data:      data,
	}
}

// QuestionData returns record data for the user's question.
func QuestionData(question string) map[string]any {
	return map[string]any{
		"question": question,
	}
}

// PlanData returns record data for a proposed tool-call batch.
func PlanData(model string, calls []models.ToolCall, usage models.Usage) map[string]any {
	return map[string]any{
		"model":      model,
		"tool_calls": calls,
		"usage":      usage,
	}
}

// ToolResultsData returns record data for one dispatched batch.
func ToolResultsData(results []models.ToolResult) map[string]any {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	return map[string]any{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	}
}

// AnswerData returns record data for the final answer.
func AnswerData(model, answer string, usage models.Usage) map[string]any {
	return map[string]any{
		"model":  model,
		"answer": answer,
		"usage":  usage,
	}
}

// PlannerErrorData returns record data for a malformed engine response.
func PlannerErrorData(message string, attempt int) map[string]any {
	return map[string]any{
		"message": message,
		"attempt": attempt,
	}
}

// FailureData returns record data for a fatal session failure.
func FailureData(kind, message string) map[string]any {
	return map[string]any{
		"kind":    kind,
		"message": message,
	}
}

// RollbackData returns record data for the implicit end-of-session rollback.
func RollbackData(reason string) map[string]any {
	return map[string]any{
		"reason": reason,
	}
}
