package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domain "github.com/auditops/envsegd/internal/domain/agents"
	"github.com/auditops/envsegd/internal/domain/analysis"
)

const (
	defaultMaxRetries   = 5
	defaultPollAttempts = 30
	defaultPollInterval = 2 * time.Second
	defaultRetryBackoff = 2 * time.Second

	agentName        = "Environment Segregation Analyzer"
	agentDescription = "Analyzes environment segregation deviations in IT system inventories"
)

// RunClient drives one synchronous conversational call: thread, message,
// run, bounded polling. Every retry is a clean independent attempt on a
// brand-new thread; partially completed runs are never resumed.
type RunClient struct {
	gateway domain.Gateway
	model   string
	log     *slog.Logger

	MaxRetries   int
	PollAttempts int
	PollInterval time.Duration
	RetryBackoff time.Duration

	// Agent resolution is shared remote state: it happens at most once per
	// client, under the lock, before any batch can race to create
	// duplicates.
	mu       sync.Mutex
	resolved bool
	agentID  domain.AgentID
}

var _ analysis.Classifier = (*RunClient)(nil)

// NewRunClient wires the client against a gateway and model deployment.
func NewRunClient(gateway domain.Gateway, model string, log *slog.Logger) *RunClient {
	return &RunClient{
		gateway:      gateway,
		model:        model,
		log:          log,
		MaxRetries:   defaultMaxRetries,
		PollAttempts: defaultPollAttempts,
		PollInterval: defaultPollInterval,
		RetryBackoff: defaultRetryBackoff,
	}
}

// ResolveAgent picks the execution target: the first existing remote agent,
// or a newly created one bound to the configured deployment. A failed
// resolution is not fatal; runs then go directly against the model name.
func (c *RunClient) ResolveAgent(ctx context.Context) domain.AgentID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return c.agentID
	}
	c.resolved = true

	list, err := c.gateway.ListAgents(ctx)
	if err != nil {
		c.log.Error("listing agents failed, falling back to model deployment", "error", err)
		return ""
	}
	if len(list) == 0 {
		agent, err := c.gateway.CreateAgent(ctx, agentName, agentDescription, c.model)
		if err != nil {
			c.log.Error("creating agent failed, falling back to model deployment", "error", err)
			return ""
		}
		c.log.Info("created agent", "agent_id", agent.ID)
		c.agentID = agent.ID
		return c.agentID
	}
	c.agentID = list[0].ID
	c.log.Info("using existing agent", "agent_id", c.agentID)
	return c.agentID
}

// Submit sends the combined prompt and returns the recovered records.
// Exhausting all retries yields an empty slice plus an error the caller may
// log; it is non-fatal by contract.
func (c *RunClient) Submit(ctx context.Context, systemPrompt, userPrompt string) ([]analysis.RawRecord, error) {
	agentID := c.ResolveAgent(ctx)
	combined := systemPrompt + "\n\n" + userPrompt

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		records, err := c.attempt(ctx, agentID, combined)
		if err == nil && len(records) > 0 {
			return records, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.Error("analysis attempt failed", "attempt", attempt, "max_retries", c.MaxRetries, "error", err)
		} else {
			c.log.Warn("analysis attempt returned no results", "attempt", attempt, "max_retries", c.MaxRetries)
		}
		if attempt < c.MaxRetries {
			select {
			case <-time.After(c.RetryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("analysis failed after %d attempts: %w", c.MaxRetries, lastErr)
	}
	return nil, fmt.Errorf("analysis returned no results after %d attempts", c.MaxRetries)
}

// attempt runs the full thread/message/run/poll sequence once.
func (c *RunClient) attempt(ctx context.Context, agentID domain.AgentID, prompt string) ([]analysis.RawRecord, error) {
	thread, err := c.gateway.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	c.log.Debug("created thread", "thread_id", thread)

	if err := c.gateway.PostMessage(ctx, thread, prompt); err != nil {
		return nil, err
	}

	run, err := c.gateway.CreateRun(ctx, thread, agentID, c.model)
	if err != nil {
		return nil, err
	}
	c.log.Debug("created run", "thread_id", thread, "run_id", run)

	return c.poll(ctx, thread, run)
}

// poll checks the run state at a fixed interval up to the attempt bound.
// Terminal failure states abort immediately; exceeding the bound is a
// timeout. Both come back as empty without an error so the outer loop
// retries from scratch.
func (c *RunClient) poll(ctx context.Context, thread domain.ThreadID, run domain.RunID) ([]analysis.RawRecord, error) {
	for i := 0; i < c.PollAttempts; i++ {
		state, err := c.gateway.RunState(ctx, thread, run)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Error("polling run state failed", "run_id", run, "error", err)
		} else {
			c.log.Debug("run status", "run_id", run, "status", state)
			switch {
			case state == domain.RunStateCompleted:
				text, err := c.gateway.LatestAssistantText(ctx, thread)
				if err != nil {
					return nil, err
				}
				if text == "" {
					c.log.Warn("no assistant message found in thread", "thread_id", thread)
					return nil, nil
				}
				return Extract(text), nil
			case state.Terminal():
				c.log.Error("run ended without result", "run_id", run, "status", state)
				return nil, nil
			}
		}
		select {
		case <-time.After(c.PollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.log.Error("run timed out", "run_id", run, "waited", time.Duration(c.PollAttempts)*c.PollInterval)
	return nil, nil
}
