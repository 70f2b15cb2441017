package domain

import "context"

// FragmentKind discriminates the incremental output of a generation.
type FragmentKind string

const (
	FragmentText        FragmentKind = "text"
	FragmentThought     FragmentKind = "thought"
	FragmentSource      FragmentKind = "source"
	FragmentSearchQuery FragmentKind = "search_query"
	FragmentToolCall    FragmentKind = "tool_call"
)

// Fragment is one incremental piece of model output.
type Fragment struct {
	Kind   FragmentKind
	Text   string
	Source *Source
	Query  string
	Tool   *ToolCall
}

// GenerateRequest describes one generation against the model provider.
type GenerateRequest struct {
	System  string
	Prompt  string
	History []*Message

	Temperature *float32

	// IncludeThoughts asks the provider for a thinking trace.
	IncludeThoughts bool

	// EnableSearch turns on web-search grounding.
	EnableSearch bool
}

// ModelGateway is the capability boundary to the LLM provider.
//
// GenerateStream returns a fragment channel that is closed when the
// generation finishes, and an error channel that delivers exactly one value
// (nil on success) before closing. The fragment sequence is lazy, finite and
// non-restartable.
type ModelGateway interface {
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan Fragment, <-chan error, error)
}

// Dataset is one catalog entry candidate.
type Dataset struct {
	ID   string
	Name string
	Kind string // optical, sar, climate, ...
}

// Band describes one band or field of a dataset's schema.
type Band struct {
	Name     string
	DataType string
}

// DatasetInfo is the result of verifying a dataset against the catalog.
type DatasetInfo struct {
	Exists  bool
	Bands   []Band
	DocsURL string
}

// DatasetCatalog exposes dataset discovery and schema verification. It is
// the external Tool Provider the Coder (and Researcher) depend on
// synchronously during generation.
type DatasetCatalog interface {
	SearchDatasets(ctx context.Context, keywords string) ([]Dataset, error)
	VerifyDataset(ctx context.Context, id string) (*DatasetInfo, error)
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(session *Session) error
	UpdateSession(session *Session) error
	GetSession(id SessionID) (*Session, error)
}

// MessageStore defines message persistence.
type MessageStore interface {
	AppendMessage(msg *Message) error
	GetMessagesBySession(sessionID SessionID, limit int) ([]*Message, error)
}

// EventPublisher is the side channel agents emit progress onto. Publish must
// never block the caller.
type EventPublisher interface {
	Publish(ev Event)
}
