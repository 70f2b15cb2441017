package agentflow

import (
	"context"
	"fmt"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

const plannerSystemPrompt = `You are the task planning agent of a geospatial analysis team.
Given a user's mission, produce a short numbered plan covering:
1. What to research (methodology, prior work).
2. Which Earth Engine datasets look relevant.
3. What the analysis script must compute and visualize.
4. What the final report should explain.
Keep the plan under 10 steps. Mention concrete dataset IDs only when you are
confident they exist.`

// Planner decomposes the mission into a stage plan for the rest of the crew.
type Planner struct {
	gateway domain.ModelGateway
	bus     domain.EventPublisher
}

func NewPlanner(gateway domain.ModelGateway, bus domain.EventPublisher) *Planner {
	return &Planner{gateway: gateway, bus: bus}
}

func (p *Planner) Name() domain.AgentName { return domain.AgentPlanner }

func (p *Planner) Capabilities() Capabilities { return Capabilities{} }

func (p *Planner) Run(ctx context.Context, in AgentInput) (*domain.AgentResult, error) {
	prompt := fmt.Sprintf("%sMission:\n%s\n\nWrite the plan.", formatHistory(in.History), in.Mission)

	gen, err := generate(ctx, p.gateway, p.bus, in.RunID, p.Name(), domain.GenerateRequest{
		System: plannerSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return failedResult(p.Name(), err), err
	}

	return &domain.AgentResult{
		Agent:    p.Name(),
		Text:     gen.Text,
		Datasets: extractDatasetIDs(gen.Text),
		Thinking: gen.Thinking,
	}, nil
}
