package model

import "time"

// Document is an immutable piece of content owned by a knowledge base.
// Metadata is an open mapping used for exact-match search filtering.
type Document struct {
	ID              string            `json:"id"`
	KnowledgeBaseID string            `json:"knowledge_base_id"`
	Title           string            `json:"title"`
	Content         string            `json:"content,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedBy       string            `json:"created_by"`
	CreatedAt       time.Time         `json:"created_at"`
}
