package webapi

import (
	"time"

	"github.com/dbwizard/dbwizard/internal/session"
)

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// WelcomeResponse greets API clients at the root path.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the health check response. Database is "ok" when the
// pool answered a ping, otherwise the error text.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database,omitempty"`
}

// SessionSummary describes one session audit log in the list endpoint.
type SessionSummary struct {
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"modified"`
	NumRecords int       `json:"num_records"`
	Compacted  bool      `json:"compacted"`
}

// SessionDetail is the full audit trail of one session.
type SessionDetail struct {
	SessionID string           `json:"session_id"`
	Records   []session.Record `json:"records"`
}

// ErrorResponse is returned for errors. Kind carries the session failure
// kind when one applies, so clients never have to parse the message.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Code      int    `json:"code"`
}
