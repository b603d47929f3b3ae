package agents

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	domain "github.com/auditops/envsegd/internal/domain/agents"
)

// Gateway adapts the hosted assistants API (threads, messages, runs,
// agents) to the domain port. Credentials and endpoint come from process
// configuration; construction fails fast when they are missing.
type Gateway struct {
	client *openai.Client
}

var _ domain.Gateway = (*Gateway)(nil)

// NewGateway builds the adapter against an Azure-hosted deployment.
func NewGateway(apiKey, endpoint string) (*Gateway, error) {
	if apiKey == "" || endpoint == "" {
		return nil, fmt.Errorf("agents gateway: api key and endpoint are required")
	}
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	return &Gateway{client: openai.NewClientWithConfig(cfg)}, nil
}

func (g *Gateway) CreateThread(ctx context.Context) (domain.ThreadID, error) {
	thread, err := g.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return domain.ThreadID(thread.ID), nil
}

func (g *Gateway) PostMessage(ctx context.Context, thread domain.ThreadID, text string) error {
	_, err := g.client.CreateMessage(ctx, string(thread), openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (g *Gateway) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	list, err := g.client.ListAssistants(ctx, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	out := make([]domain.Agent, 0, len(list.Assistants))
	for _, a := range list.Assistants {
		agent := domain.Agent{ID: domain.AgentID(a.ID), Model: a.Model}
		if a.Name != nil {
			agent.Name = *a.Name
		}
		out = append(out, agent)
	}
	return out, nil
}

func (g *Gateway) CreateAgent(ctx context.Context, name, description, model string) (domain.Agent, error) {
	a, err := g.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:       model,
		Name:        &name,
		Description: &description,
	})
	if err != nil {
		return domain.Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return domain.Agent{ID: domain.AgentID(a.ID), Name: name, Model: a.Model}, nil
}

func (g *Gateway) CreateRun(ctx context.Context, thread domain.ThreadID, agent domain.AgentID, model string) (domain.RunID, error) {
	req := openai.RunRequest{AssistantID: string(agent)}
	if agent == "" {
		// fallback: issue the run directly against the model deployment
		req.Model = model
	}
	run, err := g.client.CreateRun(ctx, string(thread), req)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return domain.RunID(run.ID), nil
}

func (g *Gateway) RunState(ctx context.Context, thread domain.ThreadID, run domain.RunID) (domain.RunState, error) {
	r, err := g.client.RetrieveRun(ctx, string(thread), string(run))
	if err != nil {
		return "", fmt.Errorf("retrieve run: %w", err)
	}
	return domain.RunState(r.Status), nil
}

func (g *Gateway) LatestAssistantText(ctx context.Context, thread domain.ThreadID) (string, error) {
	list, err := g.client.ListMessage(ctx, string(thread), nil, nil, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	// the API returns newest first; take the first assistant message
	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil {
				return part.Text.Value, nil
			}
		}
	}
	return "", nil
}
