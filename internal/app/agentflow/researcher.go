package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/app/tools"
	"github.com/geomind-labs/geomind-agent/internal/domain"
)

const researcherSystemPrompt = `You are the research agent of a geospatial analysis team.
Use web search to find established methodologies for the mission and recommend
specific Earth Engine datasets by their exact catalog IDs. Structure your
report as: methodology summary, a "Datasets:" list of IDs, preprocessing
steps, and analysis approach. Cite the sources you used.`

const groundingRetryAddendum = `
Your previous attempt cited no sources. This time you MUST issue web searches
and ground every recommendation in a cited source.`

// Researcher finds methodology and candidate datasets, grounded in web
// search. It consults the dataset catalog before generating so the model sees
// real catalog entries.
type Researcher struct {
	gateway domain.ModelGateway
	tool    tools.Tool
	bus     domain.EventPublisher
}

func NewResearcher(gateway domain.ModelGateway, tool tools.Tool, bus domain.EventPublisher) *Researcher {
	return &Researcher{gateway: gateway, tool: tool, bus: bus}
}

func (r *Researcher) Name() domain.AgentName { return domain.AgentResearcher }

func (r *Researcher) Capabilities() Capabilities {
	return Capabilities{CallTools: true, SearchGrounding: true}
}

func (r *Researcher) Run(ctx context.Context, in AgentInput) (*domain.AgentResult, error) {
	candidates, toolCalls := r.searchCatalog(ctx, in)

	var prompt strings.Builder
	if in.Plan != nil && in.Plan.Text != "" {
		fmt.Fprintf(&prompt, "Plan:\n%s\n\n", in.Plan.Text)
	}
	fmt.Fprintf(&prompt, "Mission:\n%s\n\n", in.Mission)
	if len(candidates) > 0 {
		prompt.WriteString("Catalog candidates:\n")
		for _, d := range candidates {
			fmt.Fprintf(&prompt, "- %s (%s)\n", d.ID, d.Kind)
		}
		prompt.WriteString("\n")
	}
	prompt.WriteString("Research the methodology and recommend datasets.")

	system := researcherSystemPrompt
	if in.GroundingRetry {
		system += groundingRetryAddendum
	}

	gen, err := generate(ctx, r.gateway, r.bus, in.RunID, r.Name(), domain.GenerateRequest{
		System:       system,
		Prompt:       prompt.String(),
		EnableSearch: true,
	})
	if err != nil {
		return failedResult(r.Name(), err), err
	}

	datasets := make([]string, 0, len(candidates))
	for _, d := range candidates {
		datasets = append(datasets, d.ID)
	}

	return &domain.AgentResult{
		Agent:         r.Name(),
		Text:          gen.Text,
		Datasets:      mergeDatasets(extractDatasetIDs(gen.Text), datasets),
		Sources:       gen.Sources,
		SearchQueries: gen.Queries,
		ToolCalls:     append(toolCalls, gen.ToolCalls...),
		Thinking:      gen.Thinking,
	}, nil
}

// searchCatalog queries the dataset tool with the mission text. Tool failures
// degrade to an empty candidate list; research can still proceed on search
// grounding alone.
func (r *Researcher) searchCatalog(ctx context.Context, in AgentInput) ([]domain.Dataset, []domain.ToolCall) {
	tctx := tools.ToolContext{RunID: string(in.RunID), Agent: string(r.Name())}
	out, err := r.tool.Call(ctx, tctx, map[string]any{
		"op":       tools.OpSearchDatasets,
		"keywords": in.Mission,
	})

	call := domain.ToolCall{
		Tool:        tools.OpSearchDatasets,
		Description: fmt.Sprintf("searched catalog for %q", truncate(in.Mission, 80)),
	}
	r.bus.Publish(domain.ToolCallEvent(in.RunID, r.Name(), call))

	if err != nil {
		return nil, []domain.ToolCall{call}
	}

	var candidates []domain.Dataset
	if items, ok := out["datasets"].([]map[string]any); ok {
		for _, item := range items {
			candidates = append(candidates, domain.Dataset{
				ID:   str(item["id"]),
				Name: str(item["name"]),
				Kind: str(item["kind"]),
			})
		}
	}
	return candidates, []domain.ToolCall{call}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
