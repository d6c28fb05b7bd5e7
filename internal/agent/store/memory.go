package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/rag-agent/internal/model"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

// MemoryStore is the in-memory implementation of every store contract.
// All collections live behind one RWMutex; the store is safe for
// concurrent queries and uploads. Construction is two-phase: build and
// seed first, publish to the router after, so no caller ever observes a
// partially seeded store.
type MemoryStore struct {
	mu sync.RWMutex

	kbs      map[string]*model.KnowledgeBase
	docs     map[string]*model.Document
	docOrder []string
	sessions map[string]*model.ChatSession
	queries  map[string]*model.Query

	models     map[string]*model.AIModel
	modelOrder []string

	vectorizer Vectorizer
	searcher   VectorSearcher
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ SessionStore = (*MemoryStore)(nil)
	_ QueryStore   = (*MemoryStore)(nil)
	_ ModelCatalog = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store. A nil vectorizer or searcher
// selects the deterministic hash implementation.
func NewMemoryStore(vectorizer Vectorizer, searcher VectorSearcher) *MemoryStore {
	if vectorizer == nil {
		vectorizer = HashVectorizer{}
	}
	if searcher == nil {
		searcher = NewLocalSearcher()
	}
	return &MemoryStore{
		kbs:        make(map[string]*model.KnowledgeBase),
		docs:       make(map[string]*model.Document),
		sessions:   make(map[string]*model.ChatSession),
		queries:    make(map[string]*model.Query),
		models:     make(map[string]*model.AIModel),
		vectorizer: vectorizer,
		searcher:   searcher,
	}
}

// CreateKnowledgeBase registers a new knowledge base. Duplicate ids are
// rejected rather than silently overwritten.
func (s *MemoryStore) CreateKnowledgeBase(_ context.Context, id, name, description, orgID string) (*model.KnowledgeBase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kbs[id]; ok {
		return nil, apierrors.ErrKnowledgeBaseExists.WithMessagef("knowledge base %q already exists", id)
	}

	kb := &model.KnowledgeBase{
		ID:             id,
		Name:           name,
		Description:    description,
		OrganizationID: orgID,
		CreatedAt:      time.Now(),
	}
	s.kbs[id] = kb
	return cloneKB(kb), nil
}

// GetKnowledgeBase returns the knowledge base or a NotFound errno.
func (s *MemoryStore) GetKnowledgeBase(_ context.Context, id string) (*model.KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kb, ok := s.kbs[id]
	if !ok {
		return nil, apierrors.ErrKnowledgeBaseNotFound.WithMessagef("knowledge base %q not found", id)
	}
	return cloneKB(kb), nil
}

// ListKnowledgeBases returns every knowledge base, sorted by id for a
// stable listing.
func (s *MemoryStore) ListKnowledgeBases(_ context.Context) []*model.KnowledgeBase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.KnowledgeBase, 0, len(s.kbs))
	for _, kb := range s.kbs {
		out = append(out, cloneKB(kb))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UploadDocument stores a document under an existing knowledge base,
// increments the owning KB's document count, and indexes the content
// vector. The document is immutable afterwards.
func (s *MemoryStore) UploadDocument(ctx context.Context, id, kbID, title, content string, metadata map[string]string, creator string) (*model.Document, error) {
	vector, err := s.vectorizer.Vector(ctx, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kb, ok := s.kbs[kbID]
	if !ok {
		return nil, apierrors.ErrKnowledgeBaseNotFound.WithMessagef("knowledge base %q not found", kbID)
	}
	if _, ok := s.docs[id]; ok {
		return nil, apierrors.ErrAlreadyExists.WithMessagef("document %q already exists", id)
	}

	doc := &model.Document{
		ID:              id,
		KnowledgeBaseID: kbID,
		Title:           title,
		Content:         content,
		Metadata:        cloneMetadata(metadata),
		CreatedBy:       creator,
		CreatedAt:       time.Now(),
	}
	if err := s.searcher.Index(ctx, doc, vector); err != nil {
		return nil, err
	}

	s.docs[id] = doc
	s.docOrder = append(s.docOrder, id)
	kb.DocumentCount++

	return cloneDoc(doc), nil
}

// GetDocument returns the document or a NotFound errno.
func (s *MemoryStore) GetDocument(_ context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, apierrors.ErrDocumentNotFound.WithMessagef("document %q not found", id)
	}
	return cloneDoc(doc), nil
}

// ListDocuments returns the documents of one knowledge base in upload order.
func (s *MemoryStore) ListDocuments(_ context.Context, kbID string) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.kbs[kbID]; !ok {
		return nil, apierrors.ErrKnowledgeBaseNotFound.WithMessagef("knowledge base %q not found", kbID)
	}

	var out []*model.Document
	for _, id := range s.docOrder {
		if doc := s.docs[id]; doc.KnowledgeBaseID == kbID {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

// SearchDocuments implements the similarity search contract: the scope is
// the union of documents in kbIDs, the metadata filter is exact-match with
// missing keys rejected, and ties keep upload order.
func (s *MemoryStore) SearchDocuments(ctx context.Context, kbIDs []string, query string, limit int, metadataFilter map[string]string) ([]SearchResult, error) {
	queryVector, err := s.vectorizer.Vector(ctx, query)
	if err != nil {
		return nil, err
	}

	scope := make(map[string]struct{}, len(kbIDs))
	for _, id := range kbIDs {
		scope[id] = struct{}{}
	}

	s.mu.RLock()
	var candidates []*model.Document
	for _, id := range s.docOrder {
		doc := s.docs[id]
		if _, ok := scope[doc.KnowledgeBaseID]; !ok {
			continue
		}
		if !matchesMetadata(doc.Metadata, metadataFilter) {
			continue
		}
		candidates = append(candidates, cloneDoc(doc))
	}
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, nil
	}

	scores, err := s.searcher.Rank(ctx, queryVector, candidates)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(candidates))
	for i, doc := range candidates {
		results[i] = SearchResult{
			Document: doc,
			Score:    scores[i],
			Excerpt:  extractExcerpt(doc.Content, query),
		}
	}

	// Stable sort keeps insertion order between equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matchesMetadata(metadata, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func cloneKB(kb *model.KnowledgeBase) *model.KnowledgeBase {
	out := *kb
	return &out
}

func cloneDoc(doc *model.Document) *model.Document {
	out := *doc
	out.Metadata = cloneMetadata(doc.Metadata)
	return &out
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
