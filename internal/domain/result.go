package domain

// Source is a web grounding citation surfaced during generation.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ToolCall records one invocation of an external tool by an agent.
type ToolCall struct {
	Tool        string `json:"tool"`
	Description string `json:"description,omitempty"`
}

// AgentResult is the materialized output of a single agent invocation.
// It is immutable once returned: later stages read it, never modify it.
type AgentResult struct {
	Agent AgentName

	// Text is the full narrative output. On gateway failure it holds a
	// user-visible error description instead.
	Text string

	// Code is the extracted script body, empty when the role produces none.
	Code string

	Datasets      []string
	Sources       []Source
	SearchQueries []string
	ToolCalls     []ToolCall

	// Thinking is the concatenated thinking trace, when the model emitted one.
	Thinking string
}

// Grounded reports whether the result carries at least one citation.
func (r *AgentResult) Grounded() bool {
	return r != nil && len(r.Sources) > 0
}
