// Package model defines the data models for the RAG agent.
package model

// Principal is the authenticated caller of a request. The ID is opaque;
// it is rendered as "user:" + ID when crossing the authorization boundary.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
