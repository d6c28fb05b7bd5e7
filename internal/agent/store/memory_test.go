package store

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/rag-agent/internal/model"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(nil, nil)
	_, err := s.CreateKnowledgeBase(context.Background(), "kb_demo", "Demo KB", "demo documents", "org_demo")
	require.NoError(t, err)
	return s
}

func TestCreateKnowledgeBaseRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateKnowledgeBase(context.Background(), "kb_demo", "again", "", "org_demo")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrKnowledgeBaseExists.Code))
}

func TestUploadDocumentUnknownKB(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UploadDocument(context.Background(), "doc1", "kb_missing", "t", "c", nil, "alice")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrKnowledgeBaseNotFound.Code))
}

func TestUploadDocumentIncrementsCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"doc1", "doc2", "doc3"} {
		_, err := s.UploadDocument(ctx, id, "kb_demo", "title", "content "+id, nil, "alice")
		require.NoError(t, err)

		kb, err := s.GetKnowledgeBase(ctx, "kb_demo")
		require.NoError(t, err)
		assert.Equal(t, i+1, kb.DocumentCount)
	}
}

func TestHashVectorizerDeterministic(t *testing.T) {
	v := HashVectorizer{}
	a, err := v.Vector(context.Background(), "the same content")
	require.NoError(t, err)
	b, err := v.Vector(context.Background(), "the same content")
	require.NoError(t, err)

	assert.Len(t, a, EmbeddingDim)
	assert.Equal(t, a, b)

	c, err := v.Vector(context.Background(), "different content")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	for _, f := range a {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestSimilarityClipped(t *testing.T) {
	assert.Equal(t, 1.0, Similarity([]float64{1, 1, 1}, []float64{1, 1, 1}))
	assert.Equal(t, 0.0, Similarity([]float64{0, 0}, []float64{1, 1}))
	assert.InDelta(t, 0.5, Similarity([]float64{0.5}, []float64{1}), 1e-9)
	assert.InDelta(t, 0.75, Similarity([]float64{1, 1}, []float64{1, 0.5}), 1e-9)
	assert.Equal(t, 0.0, Similarity(nil, []float64{1}))
}

func TestSimilarityDoesNotSaturate(t *testing.T) {
	// The dot product of two 48-dim hash vectors averages well above 1, so
	// an unnormalized score would clip to 1.0 for unrelated content and
	// ranking would collapse to insertion order.
	v := HashVectorizer{}
	query, err := v.Vector(context.Background(), "how does relationship based access control work")
	require.NoError(t, err)
	related, err := v.Vector(context.Background(), "relationship based access control checks tuples")
	require.NoError(t, err)
	unrelated, err := v.Vector(context.Background(), "banana smoothie recipe with oat milk")
	require.NoError(t, err)

	relScore := Similarity(query, related)
	unrelScore := Similarity(query, unrelated)
	assert.Less(t, relScore, 1.0)
	assert.Less(t, unrelScore, 1.0)
	assert.NotEqual(t, relScore, unrelScore)
}

func TestSearchDocumentsMetadataFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []struct {
		id       string
		metadata map[string]string
	}{
		{"doc1", map[string]string{"category": "demo"}},
		{"doc2", map[string]string{"category": "internal"}},
		{"doc3", map[string]string{"category": "demo"}},
		{"doc4", nil},
		{"doc5", map[string]string{"category": "demo", "lang": "en"}},
	}
	for _, d := range docs {
		_, err := s.UploadDocument(ctx, d.id, "kb_demo", "title "+d.id, "content about authorization "+d.id, d.metadata, "alice")
		require.NoError(t, err)
	}

	results, err := s.SearchDocuments(ctx, []string{"kb_demo"}, "authorization", 10, map[string]string{"category": "demo"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Equal(t, "demo", r.Document.Metadata["category"])
	}
}

func TestSearchDocumentsScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateKnowledgeBase(ctx, "kb_private", "Private KB", "", "org_demo")
	require.NoError(t, err)

	_, err = s.UploadDocument(ctx, "doc_pub", "kb_demo", "public doc", "openfga relationship tuples", nil, "alice")
	require.NoError(t, err)
	_, err = s.UploadDocument(ctx, "doc_priv", "kb_private", "private doc", "openfga relationship tuples secret", nil, "alice")
	require.NoError(t, err)

	results, err := s.SearchDocuments(ctx, []string{"kb_demo"}, "openfga", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_pub", results[0].Document.ID)
}

func TestSearchDocumentsRankingAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	contents := map[string]string{
		"doc1": "unique content for doc1",
		"doc2": "unique content for doc2",
		"doc3": "unique content for doc3",
		"doc4": "unique content for doc4",
	}
	for _, id := range []string{"doc1", "doc2", "doc3", "doc4"} {
		_, err := s.UploadDocument(ctx, id, "kb_demo", "title", contents[id], nil, "alice")
		require.NoError(t, err)
	}

	// Expected order is by similarity against the query vector, not by
	// upload order: compute it independently of the store.
	v := HashVectorizer{}
	query, err := v.Vector(ctx, "unique content")
	require.NoError(t, err)
	scores := map[string]float64{}
	for id, content := range contents {
		vec, err := v.Vector(ctx, content)
		require.NoError(t, err)
		scores[id] = Similarity(query, vec)
	}
	expected := []string{"doc1", "doc2", "doc3", "doc4"}
	sort.SliceStable(expected, func(i, j int) bool { return scores[expected[i]] > scores[expected[j]] })

	results, err := s.SearchDocuments(ctx, []string{"kb_demo"}, "unique content", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, expected[0], results[0].Document.ID)
	assert.Equal(t, expected[1], results[1].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Less(t, results[0].Score, 1.0)
}

func TestSearchDocumentsTieBreakInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Identical content scores identically; upload order must decide.
	_, err := s.UploadDocument(ctx, "doc_first", "kb_demo", "a", "identical content", nil, "alice")
	require.NoError(t, err)
	_, err = s.UploadDocument(ctx, "doc_second", "kb_demo", "b", "identical content", nil, "alice")
	require.NoError(t, err)

	results, err := s.SearchDocuments(ctx, []string{"kb_demo"}, "identical", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc_first", results[0].Document.ID)
	assert.Equal(t, "doc_second", results[1].Document.ID)
}

func TestExtractExcerpt(t *testing.T) {
	long := strings.Repeat("x", 100) + "OpenFGA is a flexible authorization system. " + strings.Repeat("y", 300)

	excerpt := extractExcerpt(long, "openfga")
	assert.Len(t, excerpt, excerptLength+3)
	assert.True(t, strings.HasSuffix(excerpt, "..."))
	assert.Contains(t, excerpt, "OpenFGA")

	// No token hit: leading characters.
	lead := extractExcerpt(long, "zzzz")
	assert.True(t, strings.HasPrefix(lead, "xxxx"))

	// Short content comes back whole.
	assert.Equal(t, "short", extractExcerpt("short", "anything"))
}

func TestQueryLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := &model.Query{
		ID:        "query_1",
		SessionID: "session_1",
		Requester: "alice",
		Question:  "what is openfga?",
		Status:    model.QueryStatusProcessing,
	}
	require.NoError(t, s.CreateQuery(ctx, q))

	got, err := s.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Question, got.Question)

	require.NoError(t, s.CompleteQuery(ctx, q.ID, nil))

	got, err = s.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	// Never reopened.
	err = s.FailQuery(ctx, q.ID, nil)
	assert.Error(t, err)
}
