package store

import (
	"context"
	"sort"
	"time"

	"github.com/kart-io/rag-agent/internal/model"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

// CreateSession registers a chat session.
func (s *MemoryStore) CreateSession(_ context.Context, session *model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return apierrors.ErrAlreadyExists.WithMessagef("session %q already exists", session.ID)
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetSession returns the chat session or a NotFound errno.
func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apierrors.ErrSessionNotFound.WithMessagef("session %q not found", id)
	}
	return cloneSession(session), nil
}

// CreateQuery registers a query record, normally in processing state.
func (s *MemoryStore) CreateQuery(_ context.Context, q *model.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queries[q.ID]; ok {
		return apierrors.ErrAlreadyExists.WithMessagef("query %q already exists", q.ID)
	}
	s.queries[q.ID] = cloneQuery(q)
	return nil
}

// GetQuery returns the query record or a NotFound errno.
func (s *MemoryStore) GetQuery(_ context.Context, id string) (*model.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.queries[id]
	if !ok {
		return nil, apierrors.ErrQueryNotFound.WithMessagef("query %q not found", id)
	}
	return cloneQuery(q), nil
}

// CompleteQuery transitions a processing query to completed.
func (s *MemoryStore) CompleteQuery(_ context.Context, id string, outcome *model.Outcome) error {
	return s.finishQuery(id, model.QueryStatusCompleted, outcome)
}

// FailQuery transitions a processing query to failed.
func (s *MemoryStore) FailQuery(_ context.Context, id string, outcome *model.Outcome) error {
	return s.finishQuery(id, model.QueryStatusFailed, outcome)
}

func (s *MemoryStore) finishQuery(id string, status model.QueryStatus, outcome *model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[id]
	if !ok {
		return apierrors.ErrQueryNotFound.WithMessagef("query %q not found", id)
	}
	if q.Status != model.QueryStatusProcessing {
		// Queries are never reopened.
		return apierrors.ErrQueryFailed.WithMessagef("query %q already %s", id, q.Status)
	}

	now := time.Now()
	q.Status = status
	q.Outcome = outcome
	q.CompletedAt = &now
	return nil
}

// RegisterModel adds an entry to the demo model catalog.
func (s *MemoryStore) RegisterModel(_ context.Context, m *model.AIModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[m.ID]; ok {
		return apierrors.ErrAlreadyExists.WithMessagef("model %q already exists", m.ID)
	}
	copied := *m
	s.models[m.ID] = &copied
	s.modelOrder = append(s.modelOrder, m.ID)
	return nil
}

// GetModel returns the catalog entry or a NotFound errno.
func (s *MemoryStore) GetModel(_ context.Context, id string) (*model.AIModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, apierrors.ErrModelNotFound.WithMessagef("model %q not found", id)
	}
	copied := *m
	return &copied, nil
}

// ListModels returns the catalog in registration order.
func (s *MemoryStore) ListModels(_ context.Context) []*model.AIModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.AIModel, 0, len(s.modelOrder))
	for _, id := range s.modelOrder {
		copied := *s.models[id]
		out = append(out, &copied)
	}
	return out
}

// SessionIDs returns every session id, sorted. Debug stats only.
func (s *MemoryStore) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns collection sizes for the stats endpoint.
func (s *MemoryStore) Counts() (kbs, docs, sessions, queries int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.kbs), len(s.docs), len(s.sessions), len(s.queries)
}

func cloneSession(session *model.ChatSession) *model.ChatSession {
	out := *session
	out.KnowledgeBaseIDs = append([]string(nil), session.KnowledgeBaseIDs...)
	return &out
}

func cloneQuery(q *model.Query) *model.Query {
	out := *q
	out.MetadataFilter = cloneMetadata(q.MetadataFilter)
	return &out
}
