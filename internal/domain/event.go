package domain

import "time"

// EventType discriminates the streaming event union.
type EventType string

const (
	// EventThought is a complete reasoning fragment from an agent.
	EventThought EventType = "thought"
	// EventThoughtDelta appends to the most recent same-agent thought.
	EventThoughtDelta EventType = "thought_stream"
	// EventSource is a grounding source surfaced during generation.
	EventSource EventType = "source"
	// EventSearchQuery is a web search query the agent issued.
	EventSearchQuery EventType = "search_query"
	// EventToolCall is a tool invocation the agent made.
	EventToolCall EventType = "tool_call"
)

// Event is one item on the live stream. Events are transient: they exist only
// while in flight on the bus and are never retained by the session.
//
// RunID makes every event attributable to the pipeline run or chat turn that
// produced it, so observers of a shared bus can demultiplex streams.
type Event struct {
	Type      EventType `json:"type"`
	RunID     RunID     `json:"run_id"`
	Agent     AgentName `json:"agent"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the thought text for thought/thought_stream events.
	Content string `json:"content,omitempty"`

	// Title and URI are set for source events.
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`

	// Query is set for search_query events.
	Query string `json:"query,omitempty"`

	// Tool and Description are set for tool_call events.
	Tool        string `json:"tool,omitempty"`
	Description string `json:"description,omitempty"`
}

func ThoughtEvent(runID RunID, agent AgentName, content string) Event {
	return Event{Type: EventThought, RunID: runID, Agent: agent, Content: content}
}

func ThoughtDeltaEvent(runID RunID, agent AgentName, fragment string) Event {
	return Event{Type: EventThoughtDelta, RunID: runID, Agent: agent, Content: fragment}
}

func SourceEvent(runID RunID, agent AgentName, src Source) Event {
	return Event{Type: EventSource, RunID: runID, Agent: agent, Title: src.Title, URI: src.URI}
}

func SearchQueryEvent(runID RunID, agent AgentName, query string) Event {
	return Event{Type: EventSearchQuery, RunID: runID, Agent: agent, Query: query}
}

func ToolCallEvent(runID RunID, agent AgentName, call ToolCall) Event {
	return Event{Type: EventToolCall, RunID: runID, Agent: agent, Tool: call.Tool, Description: call.Description}
}
