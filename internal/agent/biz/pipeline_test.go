package biz

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/rag-agent/internal/agent/store"
	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/authz/fga"
	"github.com/kart-io/rag-agent/pkg/llm"
)

// stubAuthz answers checks from a static allow set keyed
// "user|relation|object" and records every check it receives.
type stubAuthz struct {
	mu      sync.Mutex
	allowed map[string]bool
	checks  []string
	writes  [][]fga.Tuple
}

func newStubAuthz() *stubAuthz {
	return &stubAuthz{allowed: map[string]bool{}}
}

func (s *stubAuthz) allow(user, relation, object string) {
	s.allowed[user+"|"+relation+"|"+object] = true
}

func (s *stubAuthz) Check(_ context.Context, user, relation, object string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := user + "|" + relation + "|" + object
	s.checks = append(s.checks, key)
	return s.allowed[key]
}

func (s *stubAuthz) ListObjects(context.Context, string, string, fga.ObjectType) []string {
	return nil
}

func (s *stubAuthz) WriteTuples(_ context.Context, tuples []fga.Tuple) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, tuples)
	return true
}

func (s *stubAuthz) checkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.checks)
}

// spyStore records the knowledge-base scope of every search so tests can
// prove denied knowledge bases never reach retrieval.
type spyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	searches [][]string
}

func (s *spyStore) SearchDocuments(ctx context.Context, kbIDs []string, query string, limit int, filter map[string]string) ([]store.SearchResult, error) {
	s.mu.Lock()
	s.searches = append(s.searches, append([]string(nil), kbIDs...))
	s.mu.Unlock()
	return s.MemoryStore.SearchDocuments(ctx, kbIDs, query, limit, filter)
}

// fakeChatProvider returns a canned answer or a fixed error.
type fakeChatProvider struct {
	answer string
	err    error
	panics bool
}

func (f *fakeChatProvider) Chat(context.Context, []llm.Message) (string, error) {
	return f.answer, f.err
}

func (f *fakeChatProvider) Generate(context.Context, string, string) (string, error) {
	if f.panics {
		panic("generation backend exploded")
	}
	return f.answer, f.err
}

func (f *fakeChatProvider) Name() string { return "fake" }

type fixture struct {
	agent *Agent
	authz *stubAuthz
	store *spyStore
	audit *bytes.Buffer
}

// newFixture builds an agent over seeded demo data: kb_demo with three
// documents, kb_private with one. alice can view kb_demo and two of its
// three documents; bob can view nothing.
func newFixture(t *testing.T, provider llm.ChatProvider) *fixture {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemoryStore(nil, nil)
	st := &spyStore{MemoryStore: mem}

	_, err := mem.CreateKnowledgeBase(ctx, "kb_demo", "Demo KB", "", "org_demo")
	require.NoError(t, err)
	_, err = mem.CreateKnowledgeBase(ctx, "kb_private", "Private KB", "", "org_demo")
	require.NoError(t, err)

	docs := []struct {
		id, kb, title, content string
		meta                   map[string]string
	}{
		{"doc_demo_1", "kb_demo", "OpenFGA Basics", "OpenFGA implements relationship based access control.", map[string]string{"topic": "authz"}},
		{"doc_demo_2", "kb_demo", "RAG Pipelines", "Retrieval augmented generation grounds answers in documents.", map[string]string{"topic": "rag"}},
		{"doc_demo_3", "kb_demo", "Security Model", "Every retrieval stage performs a permission check.", map[string]string{"topic": "authz"}},
		{"doc_private_1", "kb_private", "Secret Plans", "Confidential roadmap content.", nil},
	}
	for _, d := range docs {
		_, err := mem.UploadDocument(ctx, d.id, d.kb, d.title, d.content, d.meta, "admin")
		require.NoError(t, err)
	}

	require.NoError(t, mem.RegisterModel(ctx, &model.AIModel{ID: "gpt-demo", Name: "GPT Demo", Provider: "openai"}))

	authz := newStubAuthz()
	authz.allow("user:alice", "viewer", "knowledge_base:kb_demo")
	authz.allow("user:alice", "viewer", "document:doc_demo_2")
	authz.allow("user:alice", "viewer", "document:doc_demo_3")
	authz.allow("user:alice", "user", "ai_model:gpt-demo")

	require.NoError(t, mem.CreateSession(ctx, &model.ChatSession{
		ID:               "session_alice",
		OrganizationID:   "org_demo",
		KnowledgeBaseIDs: []string{"kb_demo"},
		ModelID:          "gpt-demo",
		Owner:            "alice",
	}))
	require.NoError(t, mem.CreateSession(ctx, &model.ChatSession{
		ID:               "session_bob",
		OrganizationID:   "org_demo",
		KnowledgeBaseIDs: []string{"kb_private"},
		ModelID:          "gpt-demo",
		Owner:            "bob",
	}))
	require.NoError(t, mem.CreateSession(ctx, &model.ChatSession{
		ID:               "session_empty",
		OrganizationID:   "org_demo",
		KnowledgeBaseIDs: nil,
		ModelID:          "gpt-demo",
		Owner:            "alice",
	}))

	auditBuf := &bytes.Buffer{}
	agent := NewAgent(Config{
		Store:       st,
		Checker:     NewChecker(authz, nil),
		Synthesizer: NewSynthesizer(provider, "gpt-demo"),
		Cache:       NewAnswerCache(nil, time.Minute),
		Audit:       NewAuditSink(auditBuf),
	})
	return &fixture{agent: agent, authz: authz, store: st, audit: auditBuf}
}

var alice = model.Principal{ID: "alice", Email: "alice@example.com", Role: "member"}
var bob = model.Principal{ID: "bob", Email: "bob@example.com", Role: "member"}

func TestProcessQueryFiltersDeniedDocument(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "Grounded answer."})

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_alice", "how does access control work", nil)

	require.Equal(t, model.OutcomeCompleted, outcome.Kind)
	assert.Equal(t, "Grounded answer.", outcome.Answer)
	assert.Equal(t, []string{"kb_demo"}, outcome.KnowledgeBaseIDs)

	// Three documents match in kb_demo; doc_demo_1 has no viewer tuple and
	// must be dropped while the other two keep their rank order.
	require.Len(t, outcome.Sources, 2)
	for _, src := range outcome.Sources {
		assert.NotEqual(t, "doc_demo_1", src.DocumentID)
	}
	assert.Equal(t, 2, outcome.DocumentsUsed)
}

func TestProcessQueryDeniedScopeNeverSearched(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	outcome := f.agent.ProcessQuery(context.Background(), bob, "session_bob", "what are the secret plans", nil)

	assert.Equal(t, model.OutcomeNoAuthorizedKnowledgeBases, outcome.Kind)
	assert.Equal(t, model.AnswerNoAuthorizedKnowledgeBases, outcome.Answer)
	assert.Empty(t, outcome.Sources)
	// Retrieval must not run at all when the whole scope is denied.
	assert.Empty(t, f.store.searches)
}

func TestProcessQueryEmptyScope(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_empty", "anything", nil)

	assert.Equal(t, model.OutcomeScopeEmpty, outcome.Kind)
	assert.Equal(t, model.AnswerScopeEmpty, outcome.Answer)
	assert.Empty(t, f.store.searches)
	// No checks should be issued for an empty scope.
	assert.Zero(t, f.authz.checkCount())
}

func TestProcessQuerySearchesOnlyAuthorizedScope(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	f.agent.ProcessQuery(context.Background(), alice, "session_alice", "retrieval", nil)

	require.Len(t, f.store.searches, 1)
	assert.Equal(t, []string{"kb_demo"}, f.store.searches[0])
}

func TestProcessQueryEveryKnowledgeBaseChecked(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	ctx := context.Background()

	require.NoError(t, f.store.CreateSession(ctx, &model.ChatSession{
		ID:               "session_mixed",
		KnowledgeBaseIDs: []string{"kb_private", "kb_demo"},
		ModelID:          "gpt-demo",
		Owner:            "alice",
	}))

	f.agent.ProcessQuery(ctx, alice, "session_mixed", "retrieval", nil)

	// Both knowledge bases are checked even though the first is denied:
	// a denial narrows the scope, it never short-circuits the batch.
	assert.Contains(t, f.authz.checks, "user:alice|viewer|knowledge_base:kb_private")
	assert.Contains(t, f.authz.checks, "user:alice|viewer|knowledge_base:kb_demo")
	require.Len(t, f.store.searches, 1)
	assert.Equal(t, []string{"kb_demo"}, f.store.searches[0])
}

func TestProcessQueryAllDocumentsDenied(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	// Revoke alice's document grants, keep the knowledge base grant.
	f.authz.allowed = map[string]bool{
		"user:alice|viewer|knowledge_base:kb_demo": true,
	}

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_alice", "retrieval", nil)

	assert.Equal(t, model.OutcomeNoAuthorizedDocuments, outcome.Kind)
	assert.Equal(t, model.AnswerNoAuthorizedDocuments, outcome.Answer)
	assert.Equal(t, []string{"kb_demo"}, outcome.KnowledgeBaseIDs)
	assert.Empty(t, outcome.Sources)
}

func TestProcessQueryPreservesRankOrder(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	ctx := context.Background()
	question := "access control retrieval"

	ranked, err := f.store.MemoryStore.SearchDocuments(ctx, []string{"kb_demo"}, question, 5, nil)
	require.NoError(t, err)

	var expected []string
	for _, r := range ranked {
		if r.Document.ID != "doc_demo_1" {
			expected = append(expected, r.Document.ID)
		}
	}

	outcome := f.agent.ProcessQuery(ctx, alice, "session_alice", question, nil)
	require.Equal(t, model.OutcomeCompleted, outcome.Kind)
	assert.Equal(t, expected, outcome.SourceDocumentIDs())
}

func TestProcessQueryMetadataFilter(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	f.authz.allow("user:alice", "viewer", "document:doc_demo_1")

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_alice", "security",
		map[string]string{"topic": "authz"})

	require.Equal(t, model.OutcomeCompleted, outcome.Kind)
	// Only the two authz-tagged documents match the filter.
	assert.Len(t, outcome.Sources, 2)
	for _, src := range outcome.Sources {
		assert.Equal(t, "authz", src.Metadata["topic"])
	}
}

func TestProcessQueryGenerationFailureKeepsSources(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{err: errors.New("upstream timeout")})

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_alice", "retrieval", nil)

	// A generation failure is recoverable: the outcome is still completed,
	// the answer degrades to the apology, and the sources remain attached.
	require.Equal(t, model.OutcomeCompleted, outcome.Kind)
	assert.Equal(t, ApologyAnswer, outcome.Answer)
	assert.Len(t, outcome.Sources, 2)
	assert.Equal(t, "gpt-demo", outcome.ModelUsed)
}

func TestProcessQueryPanicBecomesFailedOutcome(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{panics: true})

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_alice", "retrieval", nil)

	require.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, model.AnswerProcessingFailed, outcome.Answer)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "panic")
}

func TestProcessQueryUnknownSessionFails(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	outcome := f.agent.ProcessQuery(context.Background(), alice, "session_missing", "q", nil)

	assert.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, model.AnswerProcessingFailed, outcome.Answer)
	assert.Error(t, outcome.Err)
}

func TestProcessQueryAuditsEveryPath(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	ctx := context.Background()

	f.agent.ProcessQuery(ctx, alice, "session_alice", "retrieval", nil)
	f.agent.ProcessQuery(ctx, bob, "session_bob", "secrets", nil)
	f.agent.ProcessQuery(ctx, alice, "session_empty", "anything", nil)
	f.agent.ProcessQuery(ctx, alice, "session_missing", "q", nil)

	lines := strings.Split(strings.TrimSpace(f.audit.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"outcome":"completed"`)
	assert.Contains(t, lines[1], `"outcome":"no_authorized_knowledge_bases"`)
	assert.Contains(t, lines[2], `"outcome":"scope_empty"`)
	assert.Contains(t, lines[3], `"outcome":"failed"`)
}

func TestCheckBatchChecksEveryObject(t *testing.T) {
	authz := newStubAuthz()
	authz.allow("user:alice", "viewer", "document:d2")
	checker := NewChecker(authz, nil)

	results := checker.CheckBatch(context.Background(), "user:alice", "viewer",
		[]string{"document:d1", "document:d2", "document:d3"})

	assert.Equal(t, map[string]bool{
		"document:d1": false,
		"document:d2": true,
		"document:d3": false,
	}, results)
	assert.Equal(t, 3, authz.checkCount())
}
