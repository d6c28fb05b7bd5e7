package model

import "time"

// QueryStatus is the lifecycle state of a query.
type QueryStatus string

const (
	// QueryStatusProcessing means the query has been accepted and is running.
	QueryStatusProcessing QueryStatus = "processing"
	// QueryStatusCompleted means the query finished with an outcome.
	QueryStatusCompleted QueryStatus = "completed"
	// QueryStatusFailed means processing hit an unexpected failure.
	QueryStatusFailed QueryStatus = "failed"
)

// Query is a single question asked within a chat session. Queries move
// processing -> completed|failed and are never reopened.
type Query struct {
	ID             string            `json:"id"`
	SessionID      string            `json:"session_id"`
	Requester      string            `json:"requester"`
	Question       string            `json:"question"`
	MetadataFilter map[string]string `json:"metadata_filter,omitempty"`
	Status         QueryStatus       `json:"status"`
	Outcome        *Outcome          `json:"outcome,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}
