package agents

import "context"

// ThreadID identifies one remote conversational thread.
type ThreadID string

// RunID identifies one execution on a thread.
type RunID string

// AgentID identifies a remote agent definition.
type AgentID string

// RunState mirrors the remote run lifecycle.
type RunState string

const (
	RunStateQueued     RunState = "queued"
	RunStateInProgress RunState = "in_progress"
	RunStateCompleted  RunState = "completed"
	RunStateFailed     RunState = "failed"
	RunStateCancelled  RunState = "cancelled"
	RunStateExpired    RunState = "expired"
)

// Terminal reports whether the state ends an attempt without a result.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateFailed, RunStateCancelled, RunStateExpired:
		return true
	}
	return false
}

// Agent is a remote agent definition bound to a model deployment.
type Agent struct {
	ID    AgentID
	Name  string
	Model string
}

// Gateway port over the remote conversational service. Thread create,
// message post, run create/poll and message list are treated as an opaque
// capability; credential and transport setup live in the adapter.
type Gateway interface {
	CreateThread(ctx context.Context) (ThreadID, error)
	PostMessage(ctx context.Context, thread ThreadID, text string) error
	ListAgents(ctx context.Context) ([]Agent, error)
	CreateAgent(ctx context.Context, name, description, model string) (Agent, error)
	// CreateRun starts a run against an agent, or directly against the
	// model deployment when agent is empty.
	CreateRun(ctx context.Context, thread ThreadID, agent AgentID, model string) (RunID, error)
	RunState(ctx context.Context, thread ThreadID, run RunID) (RunState, error)
	// LatestAssistantText returns the text of the most recent
	// assistant-authored message on the thread, or "" if none exists.
	LatestAssistantText(ctx context.Context, thread ThreadID) (string, error)
}
