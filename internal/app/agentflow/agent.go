// Package agentflow contains the agent crew and the pipeline orchestrator
// that turn a geospatial mission into a script plus a cited methodology
// report, streaming intermediate reasoning onto the event bus as they go.
package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

// Capabilities describes which gateway features a role uses.
type Capabilities struct {
	StreamThoughts  bool
	CallTools       bool
	SearchGrounding bool
}

// AgentInput is the accumulated upstream context for one agent invocation.
// Each pipeline stage sees the results of every stage before it.
type AgentInput struct {
	RunID   domain.RunID
	Mission string
	History []*domain.Message

	Plan     *domain.AgentResult
	Research *domain.AgentResult
	Code     *domain.AgentResult

	// GroundingRetry strengthens the researcher's prompt on the one-shot
	// retry after a first attempt with zero sources.
	GroundingRetry bool
}

// Agent is one role in the pipeline. Run recovers gateway failures into a
// degraded result whose Text is a user-visible error description; the error
// return lets the orchestrator decide whether the stage was load-bearing.
type Agent interface {
	Name() domain.AgentName
	Capabilities() Capabilities
	Run(ctx context.Context, in AgentInput) (*domain.AgentResult, error)
}

// generation is the collected output of one gateway call.
type generation struct {
	Text      string
	Thinking  string
	Sources   []domain.Source
	Queries   []string
	ToolCalls []domain.ToolCall
}

// generate runs one gateway call, republishing every fragment as an event on
// the bus before awaiting the next one. Text fragments become thought_stream
// deltas; complete thoughts, sources, search queries and tool calls map to
// their own event types. On gateway failure the partial collection is still
// returned alongside the error.
func generate(
	ctx context.Context,
	gateway domain.ModelGateway,
	bus domain.EventPublisher,
	runID domain.RunID,
	agent domain.AgentName,
	req domain.GenerateRequest,
) (*generation, error) {

	frags, errc, err := gateway.GenerateStream(ctx, req)
	if err != nil {
		return &generation{}, fmt.Errorf("gateway start: %w", err)
	}

	var (
		out      generation
		text     strings.Builder
		thinking strings.Builder
	)

	for frag := range frags {
		switch frag.Kind {
		case domain.FragmentText:
			text.WriteString(frag.Text)
			bus.Publish(domain.ThoughtDeltaEvent(runID, agent, frag.Text))
		case domain.FragmentThought:
			if thinking.Len() > 0 {
				thinking.WriteString("\n")
			}
			thinking.WriteString(frag.Text)
			bus.Publish(domain.ThoughtEvent(runID, agent, frag.Text))
		case domain.FragmentSource:
			if frag.Source != nil {
				out.Sources = append(out.Sources, *frag.Source)
				bus.Publish(domain.SourceEvent(runID, agent, *frag.Source))
			}
		case domain.FragmentSearchQuery:
			out.Queries = append(out.Queries, frag.Query)
			bus.Publish(domain.SearchQueryEvent(runID, agent, frag.Query))
		case domain.FragmentToolCall:
			if frag.Tool != nil {
				out.ToolCalls = append(out.ToolCalls, *frag.Tool)
				bus.Publish(domain.ToolCallEvent(runID, agent, *frag.Tool))
			}
		}
	}

	out.Text = text.String()
	out.Thinking = thinking.String()

	if genErr := <-errc; genErr != nil {
		return &out, genErr
	}
	return &out, nil
}

// failedResult builds the degraded result for a gateway failure: the text is
// a user-visible description and every structured field stays empty.
func failedResult(agent domain.AgentName, err error) *domain.AgentResult {
	return &domain.AgentResult{
		Agent: agent,
		Text:  fmt.Sprintf("The %s agent could not complete its step: %v", agent, err),
	}
}

// formatHistory renders prior turns for inclusion in a prompt.
func formatHistory(history []*domain.Message) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		role := "user"
		if m.Author == domain.RoleAssistant {
			role = "assistant"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
