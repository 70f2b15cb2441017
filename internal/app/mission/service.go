// Package mission is the application service behind the HTTP surface: it owns
// sessions, routes each user message to the pipeline or the chat agent, and
// persists the resulting timeline.
package mission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geomind-labs/geomind-agent/internal/app/agentflow"
	"github.com/geomind-labs/geomind-agent/internal/domain"
	"github.com/geomind-labs/geomind-agent/internal/observability"
)

// historyWindow caps how many prior turns a generation sees.
const historyWindow = 20

// Brief is the structured mission form. A message carrying a brief always
// starts a pipeline run, regardless of its wording.
type Brief struct {
	Objective string
	Latitude  string
	Longitude string
	StartDate string
	EndDate   string
	Notes     string
}

// Format renders the brief as the mission text handed to the pipeline.
func (b *Brief) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Objective: %s\n", b.Objective)
	if b.Latitude != "" && b.Longitude != "" {
		fmt.Fprintf(&sb, "Area of interest: lat %s, lon %s\n", b.Latitude, b.Longitude)
	}
	if b.StartDate != "" || b.EndDate != "" {
		fmt.Fprintf(&sb, "Time window: %s to %s\n", b.StartDate, b.EndDate)
	}
	if b.Notes != "" {
		fmt.Fprintf(&sb, "Notes: %s\n", b.Notes)
	}
	return sb.String()
}

// Service coordinates one conversation turn end to end.
type Service struct {
	sessions domain.SessionStore
	messages domain.MessageStore
	orch     *agentflow.Orchestrator
	chat     *agentflow.ChatAgent

	now func() time.Time

	// Turns within a session run serially; concurrent messages to the same
	// session would interleave pipeline artifacts.
	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func NewService(
	sessions domain.SessionStore,
	messages domain.MessageStore,
	orch *agentflow.Orchestrator,
	chat *agentflow.ChatAgent,
) *Service {
	return &Service{
		sessions: sessions,
		messages: messages,
		orch:     orch,
		chat:     chat,
		now:      time.Now,
		locks:    make(map[domain.SessionID]*sync.Mutex),
	}
}

func (s *Service) sessionLock(id domain.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// StartSession creates an empty session.
func (s *Service) StartSession(ctx context.Context, title string) (*domain.Session, error) {
	if title == "" {
		title = "Untitled analysis"
	}
	now := s.now()
	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.CreateSession(session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("session created", "session_id", session.ID)
	return session, nil
}

// GetSession returns the session with its current artifacts.
func (s *Service) GetSession(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	return s.sessions.GetSession(id)
}

// GetTimeline returns the session's messages, oldest first.
func (s *Service) GetTimeline(_ context.Context, id domain.SessionID, limit int) ([]*domain.Message, error) {
	if _, err := s.sessions.GetSession(id); err != nil {
		return nil, err
	}
	return s.messages.GetMessagesBySession(id, limit)
}

// TurnResult is what a handled message produces.
type TurnResult struct {
	RunID    domain.RunID
	Stage    domain.Stage
	Content  string
	Code     string
	Datasets []string
}

// HandleMessage routes one user turn. A structured brief, or a message
// classified as a new analysis, runs the full pipeline; everything else goes
// to the chat agent against the session's current artifacts.
func (s *Service) HandleMessage(
	ctx context.Context,
	sessionID domain.SessionID,
	message string,
	brief *Brief,
) (*TurnResult, error) {

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.messages.GetMessagesBySession(sessionID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	runID := domain.RunID(uuid.NewString())
	ctx = observability.WithRunID(ctx, string(runID))
	logger := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	mission := message
	runPipeline := false
	if brief != nil {
		mission = brief.Format()
		runPipeline = true
	} else if agentflow.ClassifyIntent(message, session.LastCode != "") == agentflow.IntentNewAnalysis {
		runPipeline = true
	}

	if runPipeline {
		logger.Info("running pipeline")
		return s.runPipeline(ctx, session, history, runID, mission)
	}
	logger.Info("running chat turn")
	return s.runChat(ctx, session, history, runID, message)
}

func (s *Service) runPipeline(
	ctx context.Context,
	session *domain.Session,
	history []*domain.Message,
	runID domain.RunID,
	mission string,
) (*TurnResult, error) {

	res := s.orch.Run(ctx, runID, mission, history)

	if err := s.recordTurn(session, mission, res.Content, res.Code, res.Datasets); err != nil {
		return nil, err
	}

	// A failed run leaves the session's artifacts untouched.
	if res.Stage == domain.StageDone && res.Code != "" {
		session.LastCode = res.Code
		session.LastDatasets = res.Datasets
	}
	session.UpdatedAt = s.now()
	if err := s.sessions.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}

	return &TurnResult{
		RunID:    runID,
		Stage:    res.Stage,
		Content:  res.Content,
		Code:     res.Code,
		Datasets: res.Datasets,
	}, nil
}

func (s *Service) runChat(
	ctx context.Context,
	session *domain.Session,
	history []*domain.Message,
	runID domain.RunID,
	message string,
) (*TurnResult, error) {

	intent := agentflow.ClassifyIntent(message, session.LastCode != "")
	result, err := s.chat.Run(ctx, agentflow.ChatInput{
		RunID:        runID,
		Message:      message,
		Intent:       intent,
		History:      history,
		LastCode:     session.LastCode,
		LastDatasets: session.LastDatasets,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("chat turn degraded", "error", err)
	}

	if recErr := s.recordTurn(session, message, result.Text, result.Code, result.Datasets); recErr != nil {
		return nil, recErr
	}

	// A refinement that produced a new script becomes the session's current one.
	if result.Code != "" {
		session.LastCode = result.Code
		if len(result.Datasets) > 0 {
			session.LastDatasets = result.Datasets
		}
	}
	session.UpdatedAt = s.now()
	if updErr := s.sessions.UpdateSession(session); updErr != nil {
		return nil, fmt.Errorf("updating session: %w", updErr)
	}

	return &TurnResult{
		RunID:    runID,
		Stage:    domain.StageDone,
		Content:  result.Text,
		Code:     result.Code,
		Datasets: result.Datasets,
	}, nil
}

// recordTurn appends the user message and the assistant reply to the
// timeline.
func (s *Service) recordTurn(session *domain.Session, userText, reply, code string, datasets []string) error {
	now := s.now()
	userMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Author:    domain.RoleUser,
		Text:      userText,
		CreatedAt: now,
	}
	if err := s.messages.AppendMessage(userMsg); err != nil {
		return fmt.Errorf("appending user message: %w", err)
	}

	assistantMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Author:    domain.RoleAssistant,
		Text:      reply,
		CreatedAt: now,
		Code:      code,
		Datasets:  datasets,
	}
	if err := s.messages.AppendMessage(assistantMsg); err != nil {
		return fmt.Errorf("appending assistant message: %w", err)
	}
	return nil
}
