package domain

// Message represents one turn in a session's timeline (user or assistant).
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp

	// Code carries the Earth Engine script attached to an assistant turn,
	// when the turn produced one.
	Code string

	// Datasets lists the Earth Engine dataset IDs referenced by this turn.
	Datasets []string
}

// Session is one conversation between a user and the agent crew. It also
// tracks the most recent pipeline artifacts so refinement turns can see them.
type Session struct {
	ID        SessionID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp

	// LastCode is the most recently generated script, overwritten whenever a
	// pipeline run or a chat refinement produces a new one.
	LastCode string

	// LastDatasets are the dataset IDs surfaced by the last pipeline run.
	LastDatasets []string
}
