package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dbwizard/dbwizard/internal/wizard"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0 // Question answered
	ExitSessionFailure = 1 // Session terminated with a failure kind
	ExitError          = 2 // Configuration or runtime error
)

// BatchFailureError indicates that a batch ran to completion, but one or
// more questions ended in a failed session.
type BatchFailureError struct {
	Message string
}

func (e *BatchFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var sessionErr *wizard.SessionError
		if errors.As(err, &sessionErr) {
			os.Exit(ExitSessionFailure)
		}
		var batchErr *BatchFailureError
		if errors.As(err, &batchErr) {
			os.Exit(ExitSessionFailure)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
