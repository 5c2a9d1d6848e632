// Package wizard runs the agent loop: it takes a natural-language
// question, asks the reasoning engine for the next batch of tool calls,
// executes them against the database, and repeats until the engine
// answers or a hard bound trips. One Wizard serves many sessions;
// concurrent sessions share only the connection pool.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dbwizard/dbwizard/internal/database"
	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/planner"
	"github.com/dbwizard/dbwizard/internal/session"
	"github.com/dbwizard/dbwizard/internal/tools"
)

// Loop bounds. Every session terminates within these no matter what the
// engine proposes.
const (
	DefaultMaxSteps       = 15
	DefaultCycleLimit     = 3
	DefaultPlannerRetries = 3
)

// SessionError is a fatal session failure. Kind is machine-readable so
// callers can map it to an exit code or HTTP status without parsing text.
type SessionError struct {
	Kind      models.FailureKind
	Message   string
	SessionID string
	Steps     int
	Usage     models.Usage
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// RecorderFactory opens the audit recorder for a new session.
type RecorderFactory func(sessionID string) (session.Recorder, error)

// EventType identifies a progress event in a running session.
type EventType string

const (
	EventPlan         EventType = "plan"
	EventToolResults  EventType = "tool_results"
	EventAnswer       EventType = "answer"
	EventPlannerRetry EventType = "planner_retry"
	EventFailure      EventType = "failure"
)

// ProgressEvent is a progress update emitted as a session advances.
type ProgressEvent struct {
	Type      EventType
	SessionID string
	Step      int
	ToolCalls []models.ToolCall
	Results   []models.ToolResult
	Message   string
}

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// Wizard answers natural-language questions about one database.
type Wizard struct {
	adapter    *database.Adapter
	planner    planner.Planner
	dispatcher *tools.Dispatcher

	maxSteps       int
	cycleLimit     int
	plannerRetries int
	newRecorder    RecorderFactory

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithMaxSteps bounds how many plan-execute rounds a session may take.
func WithMaxSteps(n int) Option {
	return func(w *Wizard) {
		if n > 0 {
			w.maxSteps = n
		}
	}
}

// WithCycleLimit sets how many identical consecutive plans prove the
// engine is stuck.
func WithCycleLimit(n int) Option {
	return func(w *Wizard) {
		if n > 0 {
			w.cycleLimit = n
		}
	}
}

// WithPlannerRetries sets how many consecutive engine failures are
// tolerated before the session fails.
func WithPlannerRetries(n int) Option {
	return func(w *Wizard) {
		if n > 0 {
			w.plannerRetries = n
		}
	}
}

// WithLogDir writes one NDJSON audit log per session under dir.
func WithLogDir(dir string) Option {
	return func(w *Wizard) {
		w.newRecorder = func(sessionID string) (session.Recorder, error) {
			return session.NewJSONRecorder(session.LogPath(dir, sessionID))
		}
	}
}

// WithRecorderFactory overrides how session audit recorders are created.
func WithRecorderFactory(f RecorderFactory) Option {
	return func(w *Wizard) {
		w.newRecorder = f
	}
}

// New creates a Wizard over the given database, engine, and dispatcher.
// Auditing is off until WithLogDir or WithRecorderFactory enables it.
func New(adapter *database.Adapter, p planner.Planner, d *tools.Dispatcher, opts ...Option) *Wizard {
	w := &Wizard{
		adapter:        adapter,
		planner:        p,
		dispatcher:     d,
		maxSteps:       DefaultMaxSteps,
		cycleLimit:     DefaultCycleLimit,
		plannerRetries: DefaultPlannerRetries,
		newRecorder: func(string) (session.Recorder, error) {
			return session.NopRecorder{}, nil
		},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// OnProgress registers a progress listener.
func (w *Wizard) OnProgress(listener ProgressListener) {
	w.progressMu.Lock()
	defer w.progressMu.Unlock()
	w.listeners = append(w.listeners, listener)
}

func (w *Wizard) notifyProgress(event ProgressEvent) {
	w.progressMu.Lock()
	listeners := make([]ProgressListener, len(w.listeners))
	copy(listeners, w.listeners)
	w.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Ask executes one session to completion. Each session reserves its own
// pool connection for the duration; a transaction still open when the
// loop ends is rolled back before the connection is released.
//
// Failure kinds map to error types: loop-bound and engine failures return
// *SessionError; a cancelled context returns the context's error. The
// context is checked at turn boundaries only, so a running batch always
// finishes and lands in the audit log.
func (w *Wizard) Ask(ctx context.Context, question string) (*models.Answer, error) {
	start := time.Now()
	sess := models.NewSession(question)

	rec, err := w.newRecorder(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	defer rec.Close() //nolint:errcheck

	transcript := &models.Transcript{}

	conn := w.adapter.Conn()
	defer func() {
		if sess.TxState.Open() {
			if err := conn.Rollback(); err != nil {
				slog.Warn("end-of-session rollback failed", "session", sess.ID, "error", err)
			}
			sess.TxState = models.TxRolledBack
			// A failed session already wrote its failure record at the
			// transcript's next index; the rollback takes the one after.
			turn := transcript.Len()
			if sess.State == models.SessionFailed {
				turn++
			}
			w.recordTurn(rec, sess, turn, session.DirectionOutput, session.RecordRollback,
				session.RollbackData("session ended with the transaction open"))
		}
		conn.Close() //nolint:errcheck
	}()

	turn := transcript.Append(models.Turn{Kind: models.TurnQuestion, Content: question})
	w.recordTurn(rec, sess, turn.Index, session.DirectionInput, session.RecordQuestion,
		session.QuestionData(question))

	specs := w.dispatcher.Registry().Specs()

	var usage models.Usage
	lastPlan := ""
	lastResults := ""
	repeats := 0
	plannerFailures := 0

	for step := 1; step <= w.maxSteps; step++ {
		// Cancellation is honored between turns, never mid-batch.
		if err := ctx.Err(); err != nil {
			sess.State = models.SessionFailed
			return nil, err
		}
		sess.Steps = step

		proposal, err := w.planner.Propose(ctx, transcript, specs)
		if err != nil {
			var pErr *planner.Error
			if !errors.As(err, &pErr) {
				// Cancellation and other caller-side errors are not retryable.
				sess.State = models.SessionFailed
				return nil, err
			}

			// An engine failure consumes a step like any other turn. The
			// failure text goes back into the transcript so the engine sees
			// what went wrong on the retry.
			plannerFailures++
			turn := transcript.Append(models.Turn{Kind: models.TurnPlannerError, Content: pErr.Message})
			w.recordTurn(rec, sess, turn.Index, session.DirectionOutput, session.RecordPlannerError,
				session.PlannerErrorData(pErr.Message, plannerFailures))
			w.notifyProgress(ProgressEvent{Type: EventPlannerRetry, SessionID: sess.ID, Step: step, Message: pErr.Message})
			slog.Debug("engine failure, retrying", "session", sess.ID, "attempt", plannerFailures, "error", pErr)

			if plannerFailures >= w.plannerRetries {
				return nil, w.fail(rec, sess, transcript.Len(), usage, models.FailurePlanner,
					fmt.Sprintf("engine failed %d times in a row: %s", plannerFailures, pErr.Message))
			}
			continue
		}
		plannerFailures = 0
		usage.Add(proposal.Usage)

		if proposal.IsFinal() {
			u := proposal.Usage
			turn := transcript.Append(models.Turn{Kind: models.TurnAnswer, Content: proposal.Answer, Usage: &u})
			w.recordTurn(rec, sess, turn.Index, session.DirectionOutput, session.RecordAnswer,
				session.AnswerData(proposal.Model, proposal.Answer, proposal.Usage))
			w.notifyProgress(ProgressEvent{Type: EventAnswer, SessionID: sess.ID, Step: step, Message: proposal.Answer})

			sess.State = models.SessionAnswered
			return &models.Answer{
				SessionID:  sess.ID,
				Question:   question,
				Text:       proposal.Answer,
				Steps:      step,
				Turns:      transcript.Len(),
				Usage:      usage,
				DurationMs: time.Since(start).Milliseconds(),
			}, nil
		}

		u := proposal.Usage
		turn := transcript.Append(models.Turn{Kind: models.TurnPlan, ToolCalls: proposal.ToolCalls, Usage: &u})
		w.recordTurn(rec, sess, turn.Index, session.DirectionOutput, session.RecordPlan,
			session.PlanData(proposal.Model, proposal.ToolCalls, proposal.Usage))
		w.notifyProgress(ProgressEvent{Type: EventPlan, SessionID: sess.ID, Step: step, ToolCalls: proposal.ToolCalls})

		// An identical plan whose executions keep producing identical
		// results will not start producing new ones on another round.
		fp := planFingerprint(proposal.ToolCalls)
		if fp == lastPlan {
			repeats++
		} else {
			lastPlan, repeats = fp, 1
		}
		if repeats >= w.cycleLimit {
			return nil, w.fail(rec, sess, transcript.Len(), usage, models.FailureCycleDetected,
				fmt.Sprintf("engine proposed the same plan %d times in a row", repeats))
		}

		results := w.dispatcher.DispatchAll(ctx, conn, sess, proposal.ToolCalls)
		turn = transcript.Append(models.Turn{Kind: models.TurnToolResults, Results: results})
		w.recordTurn(rec, sess, turn.Index, session.DirectionInput, session.RecordToolResults,
			session.ToolResultsData(results))
		w.notifyProgress(ProgressEvent{Type: EventToolResults, SessionID: sess.ID, Step: step, Results: results})

		// A changed outcome is progress, not a cycle; the streak restarts
		// at the latest execution.
		rfp := resultsFingerprint(results)
		if repeats > 1 && rfp != lastResults {
			repeats = 1
		}
		lastResults = rfp
	}

	return nil, w.fail(rec, sess, transcript.Len(), usage, models.FailureRecursionLimit,
		fmt.Sprintf("no answer after %d steps", w.maxSteps))
}

// fail marks the session failed, records the failure at the transcript's
// next index, and returns it. Terminal records never share a turn key with
// a transcript-backed record.
func (w *Wizard) fail(rec session.Recorder, sess *models.Session, turn int, usage models.Usage, kind models.FailureKind, message string) error {
	sess.State = models.SessionFailed
	w.recordTurn(rec, sess, turn, session.DirectionOutput, session.RecordFailure,
		session.FailureData(string(kind), message))
	w.notifyProgress(ProgressEvent{Type: EventFailure, SessionID: sess.ID, Message: fmt.Sprintf("[%s] %s", kind, message)})
	return &SessionError{
		Kind:      kind,
		Message:   message,
		SessionID: sess.ID,
		Steps:     sess.Steps,
		Usage:     usage,
	}
}

// recordTurn writes an audit record keyed by the session id and turn index.
// Auditing is best-effort: a write failure is logged, never fatal.
func (w *Wizard) recordTurn(rec session.Recorder, sess *models.Session, turn int, dir session.Direction, t session.RecordType, data map[string]any) {
	if err := rec.Record(session.NewRecord(sess.ID, turn, dir, t, data)); err != nil {
		slog.Warn("audit record write failed", "session", sess.ID, "type", t, "error", err)
	}
}

// planFingerprint serializes a batch for cycle comparison. Call IDs are
// excluded: the engine mints fresh ones on every response.
func planFingerprint(calls []models.ToolCall) string {
	type callShape struct {
		Operation string         `json:"op"`
		Arguments map[string]any `json:"args"`
	}
	shapes := make([]callShape, len(calls))
	for i, c := range calls {
		shapes[i] = callShape{Operation: c.Operation, Arguments: c.Arguments}
	}
	b, err := json.Marshal(shapes)
	if err != nil {
		return fmt.Sprintf("%v", shapes)
	}
	return string(b)
}

// resultsFingerprint serializes a batch outcome for cycle comparison,
// again without the per-response call IDs.
func resultsFingerprint(results []models.ToolResult) string {
	shapes := make([]models.ToolResult, len(results))
	for i, r := range results {
		r.CallID = ""
		shapes[i] = r
	}
	b, err := json.Marshal(shapes)
	if err != nil {
		return fmt.Sprintf("%v", shapes)
	}
	return string(b)
}
