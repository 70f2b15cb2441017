package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/geomind-labs/geomind-agent/internal/domain"
)

// Intent classifies what a free-form chat message is asking for.
type Intent string

const (
	// IntentNewAnalysis requests a fresh pipeline run.
	IntentNewAnalysis Intent = "new_analysis"
	// IntentRefine asks to modify the session's current script.
	IntentRefine Intent = "refine"
	// IntentQuestion asks about the existing analysis or methodology.
	IntentQuestion Intent = "question"
	// IntentGeneral is anything else.
	IntentGeneral Intent = "general"
)

var (
	newAnalysisKeywords = []string{
		"analyze", "analyse", "map ", "detect", "monitor", "assess",
		"measure", "quantify", "study ", "new analysis", "show me the",
	}
	refineKeywords = []string{
		"change", "modify", "instead", "update the", "adjust", "tweak",
		"add a", "add the", "remove", "different color", "rename",
		"extend the date", "narrow the date", "zoom",
	}
	questionKeywords = []string{
		"why", "how does", "how do", "what is", "what does", "explain",
		"which dataset", "can you tell",
	}
)

// ClassifyIntent keyword-matches the message. Refinement only makes sense
// once the session holds a script, so without one those messages fall through
// to a new analysis.
func ClassifyIntent(message string, hasScript bool) Intent {
	lower := strings.ToLower(message)

	if hasScript {
		for _, kw := range refineKeywords {
			if strings.Contains(lower, kw) {
				return IntentRefine
			}
		}
	}
	for _, kw := range questionKeywords {
		if strings.Contains(lower, kw) {
			return IntentQuestion
		}
	}
	for _, kw := range newAnalysisKeywords {
		if strings.Contains(lower, kw) {
			return IntentNewAnalysis
		}
	}
	if strings.HasSuffix(strings.TrimSpace(lower), "?") {
		return IntentQuestion
	}
	if !hasScript {
		// A first message in an empty session is treated as a mission.
		return IntentNewAnalysis
	}
	return IntentGeneral
}

const chatSystemPrompt = `You are the conversational agent of a geospatial analysis team.
Answer questions about the session's current analysis and refine its script on
request. When refining, return the FULL updated script in a single
` + "```javascript" + ` fenced block followed by a one-paragraph summary of the
change. Never invent dataset IDs that were not already in the script.`

// ChatInput is the session context a chat turn runs against.
type ChatInput struct {
	RunID        domain.RunID
	Message      string
	Intent       Intent
	History      []*domain.Message
	LastCode     string
	LastDatasets []string
}

// ChatAgent handles refinement turns and questions against an existing
// session without rerunning the pipeline.
type ChatAgent struct {
	gateway domain.ModelGateway
	bus     domain.EventPublisher
}

func NewChatAgent(gateway domain.ModelGateway, bus domain.EventPublisher) *ChatAgent {
	return &ChatAgent{gateway: gateway, bus: bus}
}

func (c *ChatAgent) Name() domain.AgentName { return domain.AgentChat }

func (c *ChatAgent) Run(ctx context.Context, in ChatInput) (*domain.AgentResult, error) {
	// History travels as structured turns on the request; the prompt only
	// carries the session's script context and the new message.
	var prompt strings.Builder
	if in.LastCode != "" {
		fmt.Fprintf(&prompt, "Current script:\n```javascript\n%s\n```\n\n", in.LastCode)
	}
	if len(in.LastDatasets) > 0 {
		fmt.Fprintf(&prompt, "Datasets in use: %s\n\n", strings.Join(in.LastDatasets, ", "))
	}

	switch in.Intent {
	case IntentRefine:
		fmt.Fprintf(&prompt, "Refine the script as requested:\n%s", in.Message)
	case IntentQuestion:
		fmt.Fprintf(&prompt, "Answer this question about the analysis:\n%s", in.Message)
	default:
		prompt.WriteString(in.Message)
	}

	gen, err := generate(ctx, c.gateway, c.bus, in.RunID, c.Name(), domain.GenerateRequest{
		System:  chatSystemPrompt,
		Prompt:  prompt.String(),
		History: in.History,
	})
	if err != nil {
		return failedResult(c.Name(), err), err
	}

	result := &domain.AgentResult{
		Agent:    c.Name(),
		Text:     gen.Text,
		Thinking: gen.Thinking,
	}
	// A refinement reply carries the updated script in a fenced block.
	if code, ok := extractFencedCode(gen.Text); ok {
		result.Code = code
		result.Datasets = extractDatasetIDs(code)
	}
	return result, nil
}
