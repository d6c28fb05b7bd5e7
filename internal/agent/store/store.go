// Package store holds knowledge bases, documents, sessions, and queries,
// and performs metadata-filtered similarity search over document content.
package store

import (
	"context"

	"github.com/kart-io/rag-agent/internal/model"
)

// SearchResult is one ranked hit from SearchDocuments.
type SearchResult struct {
	Document *model.Document
	Score    float64
	Excerpt  string
}

// Store is the knowledge-base and document contract consumed by the
// retrieval pipeline.
type Store interface {
	CreateKnowledgeBase(ctx context.Context, id, name, description, orgID string) (*model.KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, id string) (*model.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context) []*model.KnowledgeBase
	UploadDocument(ctx context.Context, id, kbID, title, content string, metadata map[string]string, creator string) (*model.Document, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, kbID string) ([]*model.Document, error)

	// SearchDocuments ranks documents belonging to kbIDs against the query.
	// The metadata filter requires equal values for every listed key;
	// a missing key rejects the document. Results are sorted descending
	// by score with insertion-order tie break and truncated to limit.
	SearchDocuments(ctx context.Context, kbIDs []string, query string, limit int, metadataFilter map[string]string) ([]SearchResult, error)
}

// SessionStore keeps chat sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.ChatSession) error
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
}

// QueryStore keeps query records through their processing -> completed|failed
// lifecycle. Completed queries are never reopened.
type QueryStore interface {
	CreateQuery(ctx context.Context, q *model.Query) error
	GetQuery(ctx context.Context, id string) (*model.Query, error)
	CompleteQuery(ctx context.Context, id string, outcome *model.Outcome) error
	FailQuery(ctx context.Context, id string, outcome *model.Outcome) error
}

// ModelCatalog is the fixed demo AI model catalog.
type ModelCatalog interface {
	RegisterModel(ctx context.Context, m *model.AIModel) error
	GetModel(ctx context.Context, id string) (*model.AIModel, error)
	ListModels(ctx context.Context) []*model.AIModel
}

// Vectorizer turns text into a fixed-length vector. The default is a
// deterministic content-hash fingerprint; a real embedding backend can be
// substituted without touching the retrieval pipeline.
type Vectorizer interface {
	Vector(ctx context.Context, text string) ([]float64, error)
}

// VectorSearcher ranks a scoped candidate set against a query vector,
// returning one score per candidate in the same order.
type VectorSearcher interface {
	Index(ctx context.Context, doc *model.Document, vector []float64) error
	Rank(ctx context.Context, queryVector []float64, candidates []*model.Document) ([]float64, error)
}
