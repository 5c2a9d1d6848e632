// Package planner turns a session transcript into the next proposal by
// consulting a reasoning engine. Engine output is untrusted: it is parsed
// and normalized here, and anything malformed becomes a planner Error the
// loop can feed back instead of crashing the session.
package planner

import (
	"context"
	"fmt"

	"github.com/dbwizard/dbwizard/internal/models"
)

// Proposal is one engine response: either a final answer or a batch of
// tool calls, never both.
type Proposal struct {
	Answer    string
	ToolCalls []models.ToolCall
	Usage     models.Usage
	Model     string
}

// IsFinal reports whether the proposal answers the question rather than
// requesting tool calls.
func (p *Proposal) IsFinal() bool {
	return len(p.ToolCalls) == 0
}

// Error is an engine-side failure: malformed output, an API rejection, or
// an unreachable endpoint. The loop retries these a bounded number of
// times; they are never treated as bugs in the caller.
type Error struct {
	Message string
	cause   error
}

func (e *Error) Error() string {
	return "planner: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Planner proposes the next step for a session.
type Planner interface {
	Propose(ctx context.Context, transcript *models.Transcript, specs []models.ToolSpec) (*Proposal, error)
}
