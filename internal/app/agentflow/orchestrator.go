package agentflow

import (
	"context"
	"time"

	"github.com/geomind-labs/geomind-agent/internal/app/tools"
	"github.com/geomind-labs/geomind-agent/internal/domain"
	"github.com/geomind-labs/geomind-agent/internal/observability"
)

// PipelineResult is the materialized outcome of one full pipeline run.
type PipelineResult struct {
	Stage    domain.Stage
	Content  string
	Code     string
	Datasets []string

	Plan      *domain.AgentResult
	Research  *domain.AgentResult
	Coding    *domain.AgentResult
	Synthesis *domain.AgentResult
}

// Orchestrator drives the four-stage pipeline. Stages run strictly in order;
// a failing stage degrades the run unless everything downstream depends on
// its output, in which case the run fails.
type Orchestrator struct {
	planner     Agent
	researcher  Agent
	coder       Agent
	synthesizer Agent
}

// NewOrchestrator wires an explicit crew, mainly for tests.
func NewOrchestrator(planner, researcher, coder, synthesizer Agent) *Orchestrator {
	return &Orchestrator{
		planner:     planner,
		researcher:  researcher,
		coder:       coder,
		synthesizer: synthesizer,
	}
}

// NewDefaultOrchestrator builds the standard crew on a shared gateway,
// dataset tool and event bus.
func NewDefaultOrchestrator(gateway domain.ModelGateway, tool tools.Tool, bus domain.EventPublisher) *Orchestrator {
	return NewOrchestrator(
		NewPlanner(gateway, bus),
		NewResearcher(gateway, tool, bus),
		NewCoder(gateway, tool, bus),
		NewSynthesizer(gateway, bus),
	)
}

// Run executes the pipeline for one mission. It always returns a result; a
// run that cannot produce a script comes back with StageFailed and a
// user-visible explanation as Content.
func (o *Orchestrator) Run(
	ctx context.Context,
	runID domain.RunID,
	mission string,
	history []*domain.Message,
) *PipelineResult {

	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	in := AgentInput{RunID: runID, Mission: mission, History: history}

	// PLANNING. A failed plan degrades: research can work from the raw
	// mission alone.
	logger.Info("pipeline stage", "stage", domain.StagePlanning)
	plan, err := o.planner.Run(ctx, in)
	if err != nil {
		logger.Warn("planner degraded", "error", err)
	}
	in.Plan = plan

	// RESEARCHING, with the one-shot grounding retry: a clean result with
	// zero sources gets exactly one stronger-prompted retry, then the run
	// proceeds with whatever it has.
	logger.Info("pipeline stage", "stage", domain.StageResearching)
	research, err := o.researcher.Run(ctx, in)
	if err != nil {
		logger.Warn("researcher degraded", "error", err)
	} else if !research.Grounded() {
		logger.Info("research ungrounded, retrying once")
		in.GroundingRetry = true
		retried, retryErr := o.researcher.Run(ctx, in)
		in.GroundingRetry = false
		if retryErr != nil {
			logger.Warn("grounding retry failed, keeping first attempt", "error", retryErr)
		} else {
			research = retried
		}
	}
	in.Research = research

	// CODING is load-bearing: without a script there is nothing to refine,
	// report on, or hand to the user.
	logger.Info("pipeline stage", "stage", domain.StageCoding)
	coding, err := o.coder.Run(ctx, in)
	if err != nil {
		logger.Error("coder failed, aborting run", "error", err)
		return &PipelineResult{
			Stage:    domain.StageFailed,
			Content:  coding.Text,
			Plan:     plan,
			Research: research,
			Coding:   coding,
		}
	}
	in.Code = coding

	// SYNTHESIZING. On failure the research narrative stands in for the
	// report; the script and datasets still reach the user.
	logger.Info("pipeline stage", "stage", domain.StageSynthesizing)
	synthesis, err := o.synthesizer.Run(ctx, in)
	content := synthesis.Text
	if err != nil {
		logger.Warn("synthesizer degraded", "error", err)
		content = research.Text
	}

	logger.Info("pipeline done", "elapsed", time.Since(start))
	return &PipelineResult{
		Stage:     domain.StageDone,
		Content:   content,
		Code:      coding.Code,
		Datasets:  mergeDatasets(plan.Datasets, research.Datasets, coding.Datasets),
		Plan:      plan,
		Research:  research,
		Coding:    coding,
		Synthesis: synthesis,
	}
}
