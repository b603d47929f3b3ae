package agents

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/auditops/envsegd/internal/domain/agents"
)

type fakeGateway struct {
	mu sync.Mutex

	agents         []domain.Agent
	listErr        error
	createAgentErr error

	// stickyState, when set, is returned by every RunState call.
	// Otherwise stateQueue is consumed one state per call and an empty
	// queue means completed.
	stickyState domain.RunState
	stateQueue  []domain.RunState

	text    string
	textErr error

	listCalls        int
	createAgentCalls int
	threadsCreated   int
	runAgents        []domain.AgentID
	runModels        []string
}

func (g *fakeGateway) CreateThread(ctx context.Context) (domain.ThreadID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threadsCreated++
	return domain.ThreadID("thread-x"), nil
}

func (g *fakeGateway) PostMessage(ctx context.Context, thread domain.ThreadID, text string) error {
	return nil
}

func (g *fakeGateway) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	return g.agents, g.listErr
}

func (g *fakeGateway) CreateAgent(ctx context.Context, name, description, model string) (domain.Agent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createAgentCalls++
	if g.createAgentErr != nil {
		return domain.Agent{}, g.createAgentErr
	}
	return domain.Agent{ID: "agent-new", Name: name, Model: model}, nil
}

func (g *fakeGateway) CreateRun(ctx context.Context, thread domain.ThreadID, agent domain.AgentID, model string) (domain.RunID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runAgents = append(g.runAgents, agent)
	g.runModels = append(g.runModels, model)
	return domain.RunID("run-x"), nil
}

func (g *fakeGateway) RunState(ctx context.Context, thread domain.ThreadID, run domain.RunID) (domain.RunState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stickyState != "" {
		return g.stickyState, nil
	}
	if len(g.stateQueue) > 0 {
		s := g.stateQueue[0]
		g.stateQueue = g.stateQueue[1:]
		return s, nil
	}
	return domain.RunStateCompleted, nil
}

func (g *fakeGateway) LatestAssistantText(ctx context.Context, thread domain.ThreadID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text, g.textErr
}

func newTestClient(gw *fakeGateway) *RunClient {
	c := NewRunClient(gw, "gpt-4o", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.MaxRetries = 2
	c.PollAttempts = 2
	c.PollInterval = time.Millisecond
	c.RetryBackoff = time.Millisecond
	return c
}

func TestSubmitCompletedRun(t *testing.T) {
	gw := &fakeGateway{
		agents: []domain.Agent{{ID: "agent-1", Name: "Environment Segregation Analyzer"}},
		text:   `[{"System_Name": "SAP FI", "Verdict": "OK"}]`,
	}
	c := newTestClient(gw)

	records, err := c.Submit(context.Background(), "system", "user")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SAP FI", records[0]["System_Name"])
	assert.Equal(t, 1, gw.threadsCreated)
	assert.Equal(t, []domain.AgentID{"agent-1"}, gw.runAgents)
}

func TestSubmitRetriesTerminalRunOnFreshThread(t *testing.T) {
	gw := &fakeGateway{
		agents:     []domain.Agent{{ID: "agent-1"}},
		stateQueue: []domain.RunState{domain.RunStateFailed},
		text:       `[{"System_Name": "CRM", "Verdict": "OK"}]`,
	}
	c := newTestClient(gw)

	records, err := c.Submit(context.Background(), "system", "user")
	require.NoError(t, err)
	require.Len(t, records, 1)
	// failed first attempt, clean second attempt on a new thread
	assert.Equal(t, 2, gw.threadsCreated)
}

func TestSubmitExhaustsRetriesOnTerminalRuns(t *testing.T) {
	gw := &fakeGateway{
		agents:      []domain.Agent{{ID: "agent-1"}},
		stickyState: domain.RunStateFailed,
	}
	c := newTestClient(gw)

	records, err := c.Submit(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 2, gw.threadsCreated)
}

func TestSubmitPollTimeoutCountsAsEmptyAttempt(t *testing.T) {
	gw := &fakeGateway{
		agents:      []domain.Agent{{ID: "agent-1"}},
		stickyState: domain.RunStateInProgress,
	}
	c := newTestClient(gw)

	records, err := c.Submit(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 2, gw.threadsCreated)
}

func TestSubmitRetriesEmptyAssistantText(t *testing.T) {
	gw := &fakeGateway{agents: []domain.Agent{{ID: "agent-1"}}}
	c := newTestClient(gw)

	records, err := c.Submit(context.Background(), "system", "user")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no results")
	assert.Empty(t, records)
}

func TestSubmitHonorsCancellation(t *testing.T) {
	gw := &fakeGateway{
		agents:      []domain.Agent{{ID: "agent-1"}},
		stickyState: domain.RunStateInProgress,
	}
	c := newTestClient(gw)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx, "system", "user")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveAgentUsesFirstExisting(t *testing.T) {
	gw := &fakeGateway{agents: []domain.Agent{{ID: "agent-1"}, {ID: "agent-2"}}}
	c := newTestClient(gw)

	assert.Equal(t, domain.AgentID("agent-1"), c.ResolveAgent(context.Background()))
	assert.Equal(t, 0, gw.createAgentCalls)
}

func TestResolveAgentCreatesWhenNoneExist(t *testing.T) {
	gw := &fakeGateway{text: `[{"System_Name": "A"}]`}
	c := newTestClient(gw)

	assert.Equal(t, domain.AgentID("agent-new"), c.ResolveAgent(context.Background()))
	assert.Equal(t, 1, gw.createAgentCalls)
}

func TestResolveAgentHappensOnce(t *testing.T) {
	gw := &fakeGateway{
		agents: []domain.Agent{{ID: "agent-1"}},
		text:   `[{"System_Name": "A"}]`,
	}
	c := newTestClient(gw)

	_, err := c.Submit(context.Background(), "s", "u")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.listCalls)
}

func TestResolveAgentFailureFallsBackToModel(t *testing.T) {
	gw := &fakeGateway{
		listErr: assert.AnError,
		text:    `[{"System_Name": "A"}]`,
	}
	c := newTestClient(gw)

	records, err := c.Submit(context.Background(), "s", "u")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, gw.runAgents, 1)
	assert.Equal(t, domain.AgentID(""), gw.runAgents[0])
	assert.Equal(t, "gpt-4o", gw.runModels[0])
}
