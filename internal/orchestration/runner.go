package orchestration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/wizard"
)

// Status is the disposition of one batch question.
type Status string

const (
	StatusAnswered Status = "answered"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Outcome is the result of one question in a batch.
type Outcome struct {
	ID          string         `json:"id"`
	Question    string         `json:"question"`
	Status      Status         `json:"status"`
	Answer      *models.Answer `json:"answer,omitempty"`
	FailureKind string         `json:"failure_kind,omitempty"`
	ErrorMsg    string         `json:"error,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
}

// BatchOutcome aggregates a whole script run.
type BatchOutcome struct {
	Name       string       `json:"name"`
	Outcomes   []Outcome    `json:"outcomes"`
	Answered   int          `json:"answered"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Usage      models.Usage `json:"usage"`
	DurationMs int64        `json:"duration_ms"`
}

// EventType identifies a batch progress event.
type EventType string

const (
	EventBatchStart       EventType = "batch_start"
	EventQuestionStart    EventType = "question_start"
	EventQuestionComplete EventType = "question_complete"
	EventBatchStopped     EventType = "batch_stopped"
	EventBatchComplete    EventType = "batch_complete"
)

// ProgressEvent reports batch progress to listeners.
type ProgressEvent struct {
	EventType      EventType
	QuestionID     string
	Question       string
	QuestionNum    int
	TotalQuestions int
	Status         Status
	DurationMs     int64
}

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// Asker runs one question session per call. Satisfied by wizard.Wizard.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// Runner executes batch scripts through one Asker.
type Runner struct {
	asker Asker

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// NewRunner creates a batch runner.
func NewRunner(asker Asker) *Runner {
	return &Runner{asker: asker}
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run executes every question in the script and aggregates the outcomes.
// A failed question never aborts the batch unless fail_fast is set; a
// cancelled context stops scheduling and marks the rest skipped.
func (r *Runner) Run(ctx context.Context, script *Script) (*BatchOutcome, error) {
	start := time.Now()

	r.notifyProgress(ProgressEvent{
		EventType:      EventBatchStart,
		TotalQuestions: len(script.Questions),
	})

	var outcomes []Outcome
	if script.Config.Concurrent {
		outcomes = r.runConcurrent(ctx, script)
	} else {
		outcomes = r.runSequential(ctx, script)
	}

	batch := &BatchOutcome{
		Name:       script.Name,
		Outcomes:   outcomes,
		DurationMs: time.Since(start).Milliseconds(),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusAnswered:
			batch.Answered++
			batch.Usage.Add(o.Answer.Usage)
		case StatusFailed:
			batch.Failed++
		case StatusSkipped:
			batch.Skipped++
		}
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventBatchComplete,
		DurationMs: batch.DurationMs,
	})

	return batch, nil
}

func (r *Runner) runSequential(ctx context.Context, script *Script) []Outcome {
	outcomes := make([]Outcome, 0, len(script.Questions))

	for i, q := range script.Questions {
		if ctx.Err() != nil {
			outcomes = append(outcomes, skipped(q, "batch cancelled"))
			continue
		}

		r.notifyProgress(ProgressEvent{
			EventType:      EventQuestionStart,
			QuestionID:     q.ID,
			Question:       q.Text,
			QuestionNum:    i + 1,
			TotalQuestions: len(script.Questions),
		})

		outcome := r.runQuestion(ctx, q)
		outcomes = append(outcomes, outcome)

		r.notifyProgress(ProgressEvent{
			EventType:      EventQuestionComplete,
			QuestionID:     q.ID,
			QuestionNum:    i + 1,
			TotalQuestions: len(script.Questions),
			Status:         outcome.Status,
			DurationMs:     outcome.DurationMs,
		})

		if script.Config.StopOnError && outcome.Status == StatusFailed {
			r.notifyProgress(ProgressEvent{EventType: EventBatchStopped})
			for _, rest := range script.Questions[i+1:] {
				outcomes = append(outcomes, skipped(rest, "fail_fast stopped the batch"))
			}
			break
		}
	}

	return outcomes
}

func (r *Runner) runConcurrent(ctx context.Context, script *Script) []Outcome {
	workers := script.Config.Workers
	if workers <= 0 {
		workers = 4
	}

	outcomes := make([]Outcome, len(script.Questions))
	semaphore := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, q := range script.Questions {
		wg.Add(1)
		go func(idx int, q Question) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				outcomes[idx] = skipped(q, "batch cancelled")
				return
			}

			r.notifyProgress(ProgressEvent{
				EventType:      EventQuestionStart,
				QuestionID:     q.ID,
				Question:       q.Text,
				QuestionNum:    idx + 1,
				TotalQuestions: len(script.Questions),
			})

			outcome := r.runQuestion(ctx, q)
			outcomes[idx] = outcome

			r.notifyProgress(ProgressEvent{
				EventType:      EventQuestionComplete,
				QuestionID:     q.ID,
				QuestionNum:    idx + 1,
				TotalQuestions: len(script.Questions),
				Status:         outcome.Status,
				DurationMs:     outcome.DurationMs,
			})
		}(i, q)
	}
	wg.Wait()

	return outcomes
}

func (r *Runner) runQuestion(ctx context.Context, q Question) Outcome {
	start := time.Now()

	answer, err := r.asker.Ask(ctx, q.Text)
	if err != nil {
		outcome := Outcome{
			ID:         q.ID,
			Question:   q.Text,
			Status:     StatusFailed,
			ErrorMsg:   err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		var se *wizard.SessionError
		if errors.As(err, &se) {
			outcome.FailureKind = string(se.Kind)
		}
		return outcome
	}

	return Outcome{
		ID:         q.ID,
		Question:   q.Text,
		Status:     StatusAnswered,
		Answer:     answer,
		DurationMs: answer.DurationMs,
	}
}

func skipped(q Question, reason string) Outcome {
	return Outcome{
		ID:       q.ID,
		Question: q.Text,
		Status:   StatusSkipped,
		ErrorMsg: reason,
	}
}
