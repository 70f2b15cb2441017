package domain

import "time"

type SessionID string
type MessageID string
type RunID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AgentName identifies which agent produced a piece of output.
type AgentName string

const (
	AgentPlanner     AgentName = "planner"
	AgentResearcher  AgentName = "researcher"
	AgentCoder       AgentName = "coder"
	AgentSynthesizer AgentName = "synthesizer"
	AgentChat        AgentName = "chat"
)

// Stage is the orchestrator's pipeline state.
type Stage string

const (
	StagePlanning     Stage = "planning"
	StageResearching  Stage = "researching"
	StageCoding       Stage = "coding"
	StageSynthesizing Stage = "synthesizing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

type Timestamp = time.Time
