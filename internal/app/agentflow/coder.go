package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/app/tools"
	"github.com/geomind-labs/geomind-agent/internal/domain"
)

const coderSystemPrompt = `You are the coding agent of a geospatial analysis team.
Write a complete, runnable Earth Engine JavaScript script for the Code Editor.
Use ONLY the verified dataset IDs and band names you are given. The script
must filter by the mission's region and dates, compute the analysis, and add
result layers to the map with sensible visualization parameters. Return only
the script, no surrounding prose.`

// verifyBudget caps how many datasets the coder verifies per run.
const verifyBudget = 3

// Coder turns the research into a runnable script. It verifies dataset
// schemas through the catalog tool before generating and streams its thinking
// trace while it writes.
type Coder struct {
	gateway domain.ModelGateway
	tool    tools.Tool
	bus     domain.EventPublisher
}

func NewCoder(gateway domain.ModelGateway, tool tools.Tool, bus domain.EventPublisher) *Coder {
	return &Coder{gateway: gateway, tool: tool, bus: bus}
}

func (c *Coder) Name() domain.AgentName { return domain.AgentCoder }

func (c *Coder) Capabilities() Capabilities {
	return Capabilities{StreamThoughts: true, CallTools: true}
}

func (c *Coder) Run(ctx context.Context, in AgentInput) (*domain.AgentResult, error) {
	candidates := c.candidateDatasets(in)
	verified, schemas, toolCalls := c.verifyDatasets(ctx, in, candidates)

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Mission:\n%s\n\n", in.Mission)
	if in.Plan != nil && in.Plan.Text != "" {
		fmt.Fprintf(&prompt, "Plan:\n%s\n\n", in.Plan.Text)
	}
	if in.Research != nil && in.Research.Text != "" {
		fmt.Fprintf(&prompt, "Research findings:\n%s\n\n", in.Research.Text)
	}
	if len(schemas) > 0 {
		prompt.WriteString("Verified datasets and bands:\n")
		for _, s := range schemas {
			prompt.WriteString(s)
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}
	prompt.WriteString("Write the script now.")

	gen, err := generate(ctx, c.gateway, c.bus, in.RunID, c.Name(), domain.GenerateRequest{
		System:          coderSystemPrompt,
		Prompt:          prompt.String(),
		IncludeThoughts: true,
	})
	if err != nil {
		return failedResult(c.Name(), err), err
	}

	code := cleanCode(gen.Text)
	return &domain.AgentResult{
		Agent:     c.Name(),
		Text:      gen.Text,
		Code:      code,
		Datasets:  mergeDatasets(verified, extractDatasetIDs(code)),
		ToolCalls: append(toolCalls, gen.ToolCalls...),
		Thinking:  gen.Thinking,
	}, nil
}

// candidateDatasets prefers the researcher's recommendations, then the
// planner's mentions.
func (c *Coder) candidateDatasets(in AgentInput) []string {
	if in.Research != nil && len(in.Research.Datasets) > 0 {
		return in.Research.Datasets
	}
	if in.Plan != nil && len(in.Plan.Datasets) > 0 {
		return in.Plan.Datasets
	}
	return nil
}

// verifyDatasets checks up to verifyBudget candidates against the catalog and
// renders a schema line for each one that exists. A dataset that fails
// verification is dropped rather than failing the stage.
func (c *Coder) verifyDatasets(
	ctx context.Context,
	in AgentInput,
	candidates []string,
) (verified []string, schemas []string, calls []domain.ToolCall) {

	tctx := tools.ToolContext{RunID: string(in.RunID), Agent: string(c.Name())}

	for _, id := range candidates {
		if len(verified) >= verifyBudget {
			break
		}

		call := domain.ToolCall{
			Tool:        tools.OpVerifyDataset,
			Description: fmt.Sprintf("verified schema of %s", id),
		}
		c.bus.Publish(domain.ToolCallEvent(in.RunID, c.Name(), call))
		calls = append(calls, call)

		out, err := c.tool.Call(ctx, tctx, map[string]any{
			"op":         tools.OpVerifyDataset,
			"dataset_id": id,
		})
		if err != nil {
			continue
		}
		exists, _ := out["exists"].(bool)
		if !exists {
			continue
		}

		verified = append(verified, id)
		schemas = append(schemas, renderSchema(id, out))
	}
	return verified, schemas, calls
}

func renderSchema(id string, out map[string]any) string {
	var names []string
	if bands, ok := out["bands"].([]map[string]any); ok {
		for _, b := range bands {
			names = append(names, str(b["name"]))
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("- %s", id)
	}
	return fmt.Sprintf("- %s: bands %s", id, strings.Join(names, ", "))
}
