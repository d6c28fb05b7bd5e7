package model

import "time"

// ChatSession scopes queries to an ordered list of knowledge bases and a
// target AI model. It references both by id only; no cascading follows
// when a referent changes.
type ChatSession struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	OrganizationID   string    `json:"organization_id"`
	KnowledgeBaseIDs []string  `json:"knowledge_base_ids"`
	ModelID          string    `json:"model_id"`
	Owner            string    `json:"owner"`
	CreatedAt        time.Time `json:"created_at"`
}
