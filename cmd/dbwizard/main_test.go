package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/wizard"
	"github.com/stretchr/testify/assert"
)

func TestBatchFailureError(t *testing.T) {
	err := &BatchFailureError{
		Message: "batch completed with 2 failed question(s)",
	}

	assert.Equal(t, "batch completed with 2 failed question(s)", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name: "session failure",
			err: &wizard.SessionError{
				Kind:    models.FailureRecursionLimit,
				Message: "exceeded 15 steps",
			},
			wantCode: ExitSessionFailure,
		},
		{
			name: "wrapped session failure",
			err: fmt.Errorf("ask failed: %w", &wizard.SessionError{
				Kind:    models.FailureCycleDetected,
				Message: "stuck",
			}),
			wantCode: ExitSessionFailure,
		},
		{
			name:     "batch failure",
			err:      &BatchFailureError{Message: "1 failed"},
			wantCode: ExitSessionFailure,
		},
		{
			name:     "regular error",
			err:      errors.New("config error"),
			wantCode: ExitError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := ExitError
			var sessionErr *wizard.SessionError
			var batchErr *BatchFailureError
			if errors.As(tt.err, &sessionErr) || errors.As(tt.err, &batchErr) {
				code = ExitSessionFailure
			}

			assert.Equal(t, tt.wantCode, code)
		})
	}
}
