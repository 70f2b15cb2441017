package agentflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomind-labs/geomind-agent/internal/app/stream"
	"github.com/geomind-labs/geomind-agent/internal/app/tools"
	"github.com/geomind-labs/geomind-agent/internal/domain"
)

// scriptedGateway replays a fixed sequence of generations, one per call.
type scriptedGateway struct {
	mu    sync.Mutex
	steps []scriptedStep
	calls []domain.GenerateRequest
}

type scriptedStep struct {
	frags []domain.Fragment
	err   error
}

func textStep(chunks ...string) scriptedStep {
	var frags []domain.Fragment
	for _, c := range chunks {
		frags = append(frags, domain.Fragment{Kind: domain.FragmentText, Text: c})
	}
	return scriptedStep{frags: frags}
}

func (g *scriptedGateway) GenerateStream(
	ctx context.Context,
	req domain.GenerateRequest,
) (<-chan domain.Fragment, <-chan error, error) {

	g.mu.Lock()
	g.calls = append(g.calls, req)
	if len(g.steps) == 0 {
		g.mu.Unlock()
		return nil, nil, fmt.Errorf("no scripted step left for request %q", req.Prompt)
	}
	step := g.steps[0]
	g.steps = g.steps[1:]
	g.mu.Unlock()

	frags := make(chan domain.Fragment)
	errc := make(chan error, 1)
	go func() {
		defer close(frags)
		defer close(errc)
		for _, f := range step.frags {
			frags <- f
		}
		errc <- step.err
	}()
	return frags, errc, nil
}

// searchRequests returns the recorded calls that had grounding enabled, i.e.
// researcher attempts.
func (g *scriptedGateway) searchRequests() []domain.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.GenerateRequest
	for _, r := range g.calls {
		if r.EnableSearch {
			out = append(out, r)
		}
	}
	return out
}

// stubTool serves canned catalog responses.
type stubTool struct{}

func (stubTool) Name() string { return "dataset_catalog" }

func (stubTool) Call(_ context.Context, _ tools.ToolContext, input map[string]any) (map[string]any, error) {
	switch input["op"] {
	case tools.OpSearchDatasets:
		return map[string]any{
			"datasets": []map[string]any{
				{"id": "COPERNICUS/S1_GRD", "name": "Sentinel-1 GRD", "kind": "sar"},
			},
			"count": 1,
		}, nil
	case tools.OpVerifyDataset:
		return map[string]any{
			"dataset_id": input["dataset_id"],
			"exists":     true,
			"bands":      []map[string]any{{"name": "VV", "data_type": "float"}},
			"docs_url":   "https://example.org/docs",
		}, nil
	}
	return nil, fmt.Errorf("unknown op")
}

func collectEvents(t *testing.T, bus *stream.Bus) (drain func() []domain.Event) {
	t.Helper()
	ch, cancel := bus.Subscribe()
	t.Cleanup(cancel)
	return func() []domain.Event {
		var events []domain.Event
		for {
			select {
			case ev := <-ch:
				events = append(events, ev)
			default:
				return events
			}
		}
	}
}

const runID = domain.RunID("run-1")

func groundedResearchStep() scriptedStep {
	return scriptedStep{frags: []domain.Fragment{
		{Kind: domain.FragmentSearchQuery, Query: "sar flood mapping methodology"},
		{Kind: domain.FragmentSource, Source: &domain.Source{Title: "S1 flood guide", URI: "https://example.org/s1"}},
		{Kind: domain.FragmentText, Text: "Use COPERNICUS/S1_GRD with VH thresholding.\nDatasets:\n- COPERNICUS/S1_GRD\n"},
	}}
}

func coderStep() scriptedStep {
	code := "```javascript\nvar s1 = ee.ImageCollection('COPERNICUS/S1_GRD');\nMap.addLayer(s1.median());\n```"
	return scriptedStep{frags: []domain.Fragment{
		{Kind: domain.FragmentThought, Text: "Filtering by VV and VH polarization."},
		{Kind: domain.FragmentText, Text: code[:len(code)/2]},
		{Kind: domain.FragmentText, Text: code[len(code)/2:]},
	}}
}

func TestPipelineHappyPath(t *testing.T) {
	gw := &scriptedGateway{steps: []scriptedStep{
		textStep("Plan:\n1. Research SAR flood mapping.\n2. Use JRC/GSW1_4/GlobalSurfaceWater as reference.\n"),
		groundedResearchStep(),
		coderStep(),
		textStep("## 1. Overview\nFlood mapping with Sentinel-1 [1].\n"),
	}}
	bus := stream.NewBus(256)
	drain := collectEvents(t, bus)

	orch := NewDefaultOrchestrator(gw, stubTool{}, bus)
	res := orch.Run(context.Background(), runID, "Map flood extent in Sylhet, Bangladesh, June 2022", nil)

	require.Equal(t, domain.StageDone, res.Stage)
	assert.Contains(t, res.Content, "Overview")
	assert.True(t, strings.HasPrefix(res.Code, "var s1"), "fences must be stripped: %q", res.Code)

	// First appearance wins: the planner mentioned the JRC layer first.
	require.NotEmpty(t, res.Datasets)
	assert.Equal(t, []string{"JRC/GSW1_4/GlobalSurfaceWater", "COPERNICUS/S1_GRD"}, res.Datasets)

	events := drain()
	require.NotEmpty(t, events)

	byType := map[domain.EventType][]domain.Event{}
	for _, ev := range events {
		assert.Equal(t, runID, ev.RunID)
		assert.False(t, ev.Timestamp.IsZero())
		byType[ev.Type] = append(byType[ev.Type], ev)
	}
	assert.NotEmpty(t, byType[domain.EventSearchQuery])
	assert.NotEmpty(t, byType[domain.EventSource])
	assert.NotEmpty(t, byType[domain.EventToolCall])
	assert.NotEmpty(t, byType[domain.EventThought])

	// Concatenating the coder's deltas reproduces its raw output.
	var coderText strings.Builder
	for _, ev := range byType[domain.EventThoughtDelta] {
		if ev.Agent == domain.AgentCoder {
			coderText.WriteString(ev.Content)
		}
	}
	assert.Equal(t, res.Coding.Text, coderText.String())
}

func TestGroundingRetryRunsExactlyOnce(t *testing.T) {
	gw := &scriptedGateway{steps: []scriptedStep{
		textStep("plan"),
		textStep("ungrounded findings, no citations"),
		groundedResearchStep(),
		coderStep(),
		textStep("report"),
	}}
	bus := stream.NewBus(256)

	orch := NewDefaultOrchestrator(gw, stubTool{}, bus)
	res := orch.Run(context.Background(), runID, "flood mapping", nil)

	require.Equal(t, domain.StageDone, res.Stage)
	assert.True(t, res.Research.Grounded())

	searches := gw.searchRequests()
	require.Len(t, searches, 2)
	assert.NotContains(t, searches[0].System, "previous attempt")
	assert.Contains(t, searches[1].System, "previous attempt")
}

func TestGroundingRetryExhaustedProceedsDegraded(t *testing.T) {
	gw := &scriptedGateway{steps: []scriptedStep{
		textStep("plan"),
		textStep("still ungrounded"),
		textStep("ungrounded again"),
		coderStep(),
		textStep("report"),
	}}
	bus := stream.NewBus(256)

	orch := NewDefaultOrchestrator(gw, stubTool{}, bus)
	res := orch.Run(context.Background(), runID, "flood mapping", nil)

	require.Equal(t, domain.StageDone, res.Stage)
	assert.False(t, res.Research.Grounded())
	assert.Len(t, gw.searchRequests(), 2, "exactly one retry, never more")
	assert.NotEmpty(t, res.Code)
}

func TestCoderFailureFailsRun(t *testing.T) {
	gw := &scriptedGateway{steps: []scriptedStep{
		textStep("plan"),
		groundedResearchStep(),
		{err: errors.New("deadline exceeded")},
		// No synthesizer step: the run must stop at the coder.
	}}
	bus := stream.NewBus(256)

	orch := NewDefaultOrchestrator(gw, stubTool{}, bus)
	res := orch.Run(context.Background(), runID, "flood mapping", nil)

	require.Equal(t, domain.StageFailed, res.Stage)
	assert.Empty(t, res.Code)
	assert.Contains(t, res.Content, "coder")
	assert.Nil(t, res.Synthesis)
}

func TestSynthesizerFailureFallsBackToResearchNarrative(t *testing.T) {
	gw := &scriptedGateway{steps: []scriptedStep{
		textStep("plan"),
		groundedResearchStep(),
		coderStep(),
		{err: errors.New("model unavailable")},
	}}
	bus := stream.NewBus(256)

	orch := NewDefaultOrchestrator(gw, stubTool{}, bus)
	res := orch.Run(context.Background(), runID, "flood mapping", nil)

	require.Equal(t, domain.StageDone, res.Stage)
	assert.Equal(t, res.Research.Text, res.Content)
	assert.NotEmpty(t, res.Code)
}
