package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

const synthesizerSystemPrompt = `You are the research synthesizer of a geospatial analysis team.
Write the final methodology report in markdown with numbered sections:
Overview, Data Sources, Methodology, Expected Outputs, References. Use
bracketed citation markers like [1] that refer to the numbered source list you
are given, and keep the report faithful to the research findings and the
generated script.`

// Synthesizer writes the cited methodology report that accompanies the
// script.
type Synthesizer struct {
	gateway domain.ModelGateway
	bus     domain.EventPublisher
}

func NewSynthesizer(gateway domain.ModelGateway, bus domain.EventPublisher) *Synthesizer {
	return &Synthesizer{gateway: gateway, bus: bus}
}

func (s *Synthesizer) Name() domain.AgentName { return domain.AgentSynthesizer }

func (s *Synthesizer) Capabilities() Capabilities { return Capabilities{} }

func (s *Synthesizer) Run(ctx context.Context, in AgentInput) (*domain.AgentResult, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Mission:\n%s\n\n", in.Mission)
	if in.Research != nil && in.Research.Text != "" {
		fmt.Fprintf(&prompt, "Research findings:\n%s\n\n", in.Research.Text)
	}
	if in.Research != nil && len(in.Research.Sources) > 0 {
		prompt.WriteString("Sources:\n")
		for i, src := range in.Research.Sources {
			fmt.Fprintf(&prompt, "[%d] %s (%s)\n", i+1, src.Title, src.URI)
		}
		prompt.WriteString("\n")
	}
	if in.Code != nil && in.Code.Code != "" {
		fmt.Fprintf(&prompt, "Generated script:\n```javascript\n%s\n```\n\n", in.Code.Code)
	}
	prompt.WriteString("Write the report.")

	gen, err := generate(ctx, s.gateway, s.bus, in.RunID, s.Name(), domain.GenerateRequest{
		System: synthesizerSystemPrompt,
		Prompt: prompt.String(),
	})
	if err != nil {
		return failedResult(s.Name(), err), err
	}

	sources := []domain.Source(nil)
	if in.Research != nil {
		sources = in.Research.Sources
	}

	return &domain.AgentResult{
		Agent:    s.Name(),
		Text:     gen.Text,
		Sources:  sources,
		Thinking: gen.Thinking,
	}, nil
}
