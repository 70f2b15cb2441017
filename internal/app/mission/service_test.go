package mission

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomind-labs/geomind-agent/internal/adapters/catalog"
	"github.com/geomind-labs/geomind-agent/internal/adapters/llm"
	memstore "github.com/geomind-labs/geomind-agent/internal/adapters/storage/memory"
	"github.com/geomind-labs/geomind-agent/internal/app/agentflow"
	"github.com/geomind-labs/geomind-agent/internal/app/stream"
	"github.com/geomind-labs/geomind-agent/internal/app/tools"
	"github.com/geomind-labs/geomind-agent/internal/domain"
)

func newTestService() (*Service, *stream.Bus) {
	bus := stream.NewBus(1024)
	gateway := llm.NewMockGateway()
	datasetTool := tools.NewDatasetTool(catalog.NewStatic())

	orch := agentflow.NewDefaultOrchestrator(gateway, datasetTool, bus)
	chat := agentflow.NewChatAgent(gateway, bus)

	return NewService(memstore.NewSessionStore(), memstore.NewMessageStore(), orch, chat), bus
}

func floodBrief() *Brief {
	return &Brief{
		Objective: "Map flood extent after the 2022 monsoon",
		Latitude:  "24.89",
		Longitude: "91.87",
		StartDate: "2022-06-01",
		EndDate:   "2022-07-31",
		Notes:     "Sylhet, Bangladesh; prefer radar so clouds do not matter",
	}
}

func TestBriefRunsFullPipeline(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "Flood analysis")
	require.NoError(t, err)

	out, err := svc.HandleMessage(ctx, session.ID, "", floodBrief())
	require.NoError(t, err)

	assert.Equal(t, domain.StageDone, out.Stage)
	assert.NotEmpty(t, out.RunID)
	assert.Contains(t, out.Content, "Overview")
	assert.Contains(t, out.Code, "ee.ImageCollection('COPERNICUS/S1_GRD')")
	assert.NotContains(t, out.Code, "```", "fences must be stripped")
	assert.Contains(t, out.Datasets, "COPERNICUS/S1_GRD")

	// The session keeps the artifacts for later refinement turns.
	updated, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Code, updated.LastCode)
	assert.Equal(t, out.Datasets, updated.LastDatasets)

	// The timeline holds the user turn and the assistant turn.
	msgs, err := svc.GetTimeline(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Author)
	assert.Contains(t, msgs[0].Text, "Objective:")
	assert.Equal(t, domain.RoleAssistant, msgs[1].Author)
	assert.Equal(t, out.Code, msgs[1].Code)
}

func TestPipelinePublishesAllEventKinds(t *testing.T) {
	svc, bus := newTestService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "")
	require.NoError(t, err)

	events, cancel := bus.Subscribe()
	defer cancel()

	out, err := svc.HandleMessage(ctx, session.ID, "", floodBrief())
	require.NoError(t, err)

	seen := map[domain.EventType]bool{}
	var coderDeltas strings.Builder
drain:
	for {
		select {
		case ev := <-events:
			assert.Equal(t, out.RunID, ev.RunID)
			seen[ev.Type] = true
			if ev.Type == domain.EventThoughtDelta && ev.Agent == domain.AgentCoder {
				coderDeltas.WriteString(ev.Content)
			}
		default:
			break drain
		}
	}

	for _, want := range []domain.EventType{
		domain.EventThought,
		domain.EventThoughtDelta,
		domain.EventSource,
		domain.EventSearchQuery,
		domain.EventToolCall,
	} {
		assert.True(t, seen[want], "missing event type %s", want)
	}
	assert.Contains(t, coderDeltas.String(), "ee.ImageCollection")
}

func TestQuestionTurnDoesNotTouchArtifacts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "")
	require.NoError(t, err)
	first, err := svc.HandleMessage(ctx, session.ID, "", floodBrief())
	require.NoError(t, err)

	out, err := svc.HandleMessage(ctx, session.ID, "Why did you pick Sentinel-1 for this?", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, out.Content)
	assert.Empty(t, out.Code)

	updated, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, updated.LastCode)
}

func TestRefineTurnUpdatesScript(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "")
	require.NoError(t, err)
	first, err := svc.HandleMessage(ctx, session.ID, "", floodBrief())
	require.NoError(t, err)

	out, err := svc.HandleMessage(ctx, session.ID, "Change the water layer color to cyan instead", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, out.Code)
	assert.NotEqual(t, first.Code, out.Code)

	updated, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Code, updated.LastCode)

	msgs, err := svc.GetTimeline(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestFirstFreeFormMessageStartsPipeline(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "")
	require.NoError(t, err)

	out, err := svc.HandleMessage(ctx, session.ID,
		"Show me deforestation around Rondonia since 2015", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StageDone, out.Stage)
	assert.Contains(t, out.Code, "UMD/hansen")
}

func TestHandleMessageUnknownSession(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.HandleMessage(context.Background(), "missing", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
