package models

// Answer is the successful outcome of a session: the synthesized
// natural-language response plus loop accounting.
type Answer struct {
	SessionID  string `json:"session_id"`
	Question   string `json:"question"`
	Text       string `json:"answer"`
	Steps      int    `json:"steps"`
	Turns      int    `json:"turns"`
	Usage      Usage  `json:"usage"`
	DurationMs int64  `json:"duration_ms"`
}

// FailureKind is the machine-readable reason a session terminated without
// an answer.
type FailureKind string

const (
	// FailureRecursionLimit means the loop hit the configured step maximum.
	FailureRecursionLimit FailureKind = "recursion_limit_exceeded"
	// FailureCycleDetected means the planner repeated an identical failing
	// batch enough times to prove it is stuck.
	FailureCycleDetected FailureKind = "cycle_detected"
	// FailurePlanner means the reasoning engine failed repeatedly or the
	// transport to it broke.
	FailurePlanner FailureKind = "planner_error"
)
