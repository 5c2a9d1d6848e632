// Package models defines the core data types shared across the wizard:
// sessions, transcripts, tool calls and results, and transaction state.
package models

import "github.com/google/uuid"

// SessionState is the terminal disposition of a session.
type SessionState string

const (
	SessionPending  SessionState = "pending"
	SessionAnswered SessionState = "answered"
	SessionFailed   SessionState = "failed"
)

// Session is the lifecycle of one natural-language request through the loop.
// It is owned by the loop controller for its duration and never shared
// between goroutines.
type Session struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Steps    int              `json:"steps"`
	State    SessionState     `json:"state"`
	TxState  TransactionState `json:"tx_state"`
}

// NewSession creates a pending session for the given question.
func NewSession(question string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Question: question,
		State:    SessionPending,
		TxState:  TxNone,
	}
}
