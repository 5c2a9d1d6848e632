package models

// ToolResult is the outcome of executing one validated operation.
// Read and describe operations carry rows plus column metadata; mutations
// carry an affected-row count (create_record also returns the inserted row).
type ToolResult struct {
	CallID    string           `json:"call_id,omitempty"`
	Operation string           `json:"operation"`
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	RowCount  int              `json:"row_count,omitempty"`
	Affected  int64            `json:"affected,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
	Data      any              `json:"data,omitempty"`
	Error     *ToolError       `json:"error,omitempty"`
}

// ToolError is the normalized failure carried by an unsuccessful ToolResult.
// Kind is one of the validation or database error kinds; Message never
// contains raw driver text. Hint, when set, tells the planner how to recover.
type ToolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// FailResult builds an error result for the given call.
func FailResult(call ToolCall, kind, message, hint string) ToolResult {
	return ToolResult{
		CallID:    call.ID,
		Operation: call.Operation,
		Success:   false,
		Error:     &ToolError{Kind: kind, Message: message, Hint: hint},
	}
}
