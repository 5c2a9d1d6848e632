package models

import (
	"encoding/json"
	"time"
)

// TurnKind identifies what a transcript turn holds.
type TurnKind string

const (
	// TurnQuestion is the user's question, always the first turn.
	TurnQuestion TurnKind = "question"
	// TurnPlan is planner output proposing one or more tool calls.
	TurnPlan TurnKind = "plan"
	// TurnAnswer is planner output carrying the final answer text.
	TurnAnswer TurnKind = "answer"
	// TurnToolResults holds the outcomes of one dispatched batch.
	TurnToolResults TurnKind = "tool_results"
	// TurnPlannerError records malformed planner output fed back for retry.
	TurnPlannerError TurnKind = "planner_error"
)

// Turn is one step in a transcript. Immutable once appended.
type Turn struct {
	Index     int          `json:"index"`
	Kind      TurnKind     `json:"kind"`
	Content   string       `json:"content,omitempty"`
	ToolCalls []ToolCall   `json:"tool_calls,omitempty"`
	Results   []ToolResult `json:"results,omitempty"`
	Usage     *Usage       `json:"usage,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Transcript is the ordered, append-only sequence of turns for one session.
// Order is semantically meaningful: it is the conversation the planner sees.
type Transcript struct {
	turns []Turn
}

// Append adds a turn, assigning the next index, and returns the stored copy.
func (t *Transcript) Append(turn Turn) Turn {
	turn.Index = len(t.turns)
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Turns returns the recorded turns in order. The slice is shared; callers
// must not mutate it.
func (t *Transcript) Turns() []Turn {
	return t.turns
}

// Len returns the number of recorded turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns the most recent turn, or a zero Turn when empty.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// ToolCall is an operation proposed by the planner. Arguments are untyped
// and untrusted until they pass registry validation.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
}

// ToolSpec describes one registered operation to the planner:
// its name, a short description, and a JSON Schema for its arguments.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Usage holds reasoning-engine token counts for one call or a whole session.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage sample into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
