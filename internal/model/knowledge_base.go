package model

import "time"

// KnowledgeBase groups documents under an owning organization.
// DocumentCount is derived: incremented on each successful upload and
// never decremented (document deletion is not modeled).
type KnowledgeBase struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organization_id"`
	DocumentCount  int       `json:"document_count"`
	CreatedAt      time.Time `json:"created_at"`
}
