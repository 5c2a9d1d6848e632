package planner

import (
	"context"
	"sync"

	"github.com/dbwizard/dbwizard/internal/models"
)

// Step is one scripted mock response: a proposal or an error.
type Step struct {
	Proposal *Proposal
	Err      error
}

// MockPlanner replays a scripted sequence of steps. When the script runs
// out it repeats the last step, which makes loop-guard tests (identical
// proposals forever) a one-line script. It records every Propose call for
// assertions.
type MockPlanner struct {
	mu    sync.Mutex
	steps []Step
	next  int

	// Calls holds a snapshot of the transcript length and specs count for
	// each Propose invocation.
	Calls []MockCall
}

// MockCall records what one Propose invocation saw.
type MockCall struct {
	TranscriptLen int
	SpecCount     int
}

// NewMockPlanner scripts a sequence of successful proposals.
func NewMockPlanner(proposals ...*Proposal) *MockPlanner {
	steps := make([]Step, len(proposals))
	for i, p := range proposals {
		steps[i] = Step{Proposal: p}
	}
	return &MockPlanner{steps: steps}
}

// NewMockPlannerSteps scripts proposals and errors in one sequence.
func NewMockPlannerSteps(steps ...Step) *MockPlanner {
	return &MockPlanner{steps: steps}
}

// AnswerProposal is a convenience for scripting a final answer.
func AnswerProposal(text string) *Proposal {
	return &Proposal{Answer: text}
}

// CallsProposal is a convenience for scripting a tool-call batch.
func CallsProposal(calls ...models.ToolCall) *Proposal {
	return &Proposal{ToolCalls: calls}
}

func (m *MockPlanner) Propose(ctx context.Context, transcript *models.Transcript, specs []models.ToolSpec) (*Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{
		TranscriptLen: transcript.Len(),
		SpecCount:     len(specs),
	})

	if len(m.steps) == 0 {
		return nil, errorf("mock planner has no scripted steps")
	}

	step := m.steps[m.next]
	if m.next < len(m.steps)-1 {
		m.next++
	}

	if step.Err != nil {
		return nil, step.Err
	}

	// Copy so callers cannot mutate the script through the result.
	p := *step.Proposal
	p.ToolCalls = append([]models.ToolCall(nil), step.Proposal.ToolCalls...)
	return &p, nil
}

// ProposeCount reports how many times Propose ran.
func (m *MockPlanner) ProposeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
