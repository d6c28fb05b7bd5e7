// Package fga is a thin client for a Zanzibar-style ReBAC engine speaking
// the OpenFGA HTTP API.
package fga

import "strings"

// ObjectType enumerates the resource types known to the authorization model.
type ObjectType string

const (
	TypeOrganization  ObjectType = "organization"
	TypeKnowledgeBase ObjectType = "knowledge_base"
	TypeDocument      ObjectType = "document"
	TypeAIModel       ObjectType = "ai_model"
	TypeChatSession   ObjectType = "chat_session"
	TypeQuery         ObjectType = "query"
)

// Relations used by the authorization model.
const (
	RelationViewer       = "viewer"
	RelationOwner        = "owner"
	RelationCurator      = "curator"
	RelationUser         = "user"
	RelationRequester    = "requester"
	RelationParent       = "parent"
	RelationOrganization = "organization"
)

// User renders a principal identifier. The format must match the engine
// byte for byte.
func User(id string) string {
	return "user:" + id
}

// Object renders a resource identifier as "type:id".
func Object(t ObjectType, id string) string {
	return string(t) + ":" + id
}

// ObjectID strips the type prefix from a rendered identifier. Identifiers
// without a prefix are returned unchanged.
func ObjectID(object string) string {
	if i := strings.IndexByte(object, ':'); i >= 0 {
		return object[i+1:]
	}
	return object
}

// Tuple is the atomic (principal, relation, resource) fact stored by the
// authorization engine.
type Tuple struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}
