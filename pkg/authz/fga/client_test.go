package fga

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fgaopts "github.com/kart-io/rag-agent/pkg/options/fga"
)

func testOptions(apiURL, storeID, modelID string) *fgaopts.Options {
	return &fgaopts.Options{
		APIURL:               apiURL,
		StoreID:              storeID,
		AuthorizationModelID: modelID,
		Timeout:              2 * time.Second,
		MaxRetries:           0,
	}
}

func TestIdentifierRendering(t *testing.T) {
	assert.Equal(t, "user:alice", User("alice"))
	assert.Equal(t, "knowledge_base:kb_demo", Object(TypeKnowledgeBase, "kb_demo"))
	assert.Equal(t, "document:doc_demo_1", Object(TypeDocument, "doc_demo_1"))
	assert.Equal(t, "kb_demo", ObjectID("knowledge_base:kb_demo"))
	assert.Equal(t, "plain", ObjectID("plain"))
}

func TestCheckFailOpenWhenUnconfigured(t *testing.T) {
	// No store/model id: permissive by design, and no HTTP traffic.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unconfigured client must not call the engine")
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "", ""))
	assert.True(t, c.Check(context.Background(), "user:alice", RelationViewer, "knowledge_base:kb_demo"))
	assert.Empty(t, c.ListObjects(context.Background(), "user:alice", RelationViewer, TypeKnowledgeBase))
	assert.False(t, c.WriteTuples(context.Background(), []Tuple{{User: "user:alice", Relation: RelationViewer, Object: "knowledge_base:kb_demo"}}))
}

func TestCheckFailClosedOnEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	assert.False(t, c.Check(context.Background(), "user:alice", RelationViewer, "knowledge_base:kb_demo"))
}

func TestCheckFailClosedOnUnreachableEngine(t *testing.T) {
	c := NewClient(testOptions("http://127.0.0.1:1", "store1", "model1"))
	assert.False(t, c.Check(context.Background(), "user:alice", RelationViewer, "knowledge_base:kb_demo"))
}

func TestCheckWireFormat(t *testing.T) {
	var got checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/store1/check", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"allowed": true}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	allowed := c.Check(context.Background(), "user:alice", RelationViewer, "document:doc_demo_2")

	assert.True(t, allowed)
	assert.Equal(t, "user:alice", got.TupleKey.User)
	assert.Equal(t, "viewer", got.TupleKey.Relation)
	assert.Equal(t, "document:doc_demo_2", got.TupleKey.Object)
	assert.Equal(t, "model1", got.AuthorizationModelID)
}

func TestCheckDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"allowed": false}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	assert.False(t, c.Check(context.Background(), "user:bob", RelationViewer, "knowledge_base:kb_private"))
}

func TestListObjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/store1/list-objects", r.URL.Path)
		var req listObjectsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "knowledge_base", req.Type)
		_, _ = w.Write([]byte(`{"objects": ["knowledge_base:kb_demo", "knowledge_base:kb_eng"]}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	objects := c.ListObjects(context.Background(), "user:alice", RelationViewer, TypeKnowledgeBase)
	assert.Equal(t, []string{"knowledge_base:kb_demo", "knowledge_base:kb_eng"}, objects)
}

func TestListObjectsEmptyOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	assert.Empty(t, c.ListObjects(context.Background(), "user:alice", RelationViewer, TypeKnowledgeBase))
}

func TestWriteTuples(t *testing.T) {
	var got writeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/store1/write", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	ok := c.WriteTuples(context.Background(), []Tuple{
		{User: "user:alice", Relation: RelationViewer, Object: "knowledge_base:kb_demo"},
	})

	assert.True(t, ok)
	require.NotNil(t, got.Writes)
	require.Len(t, got.Writes.TupleKeys, 1)
	assert.Equal(t, "user:alice", got.Writes.TupleKeys[0].User)
	assert.Nil(t, got.Deletes)
}

func TestDeleteTuples(t *testing.T) {
	var got writeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	ok := c.DeleteTuples(context.Background(), []Tuple{
		{User: "user:alice", Relation: RelationViewer, Object: "document:doc_demo_1"},
	})

	assert.True(t, ok)
	assert.Nil(t, got.Writes)
	require.NotNil(t, got.Deletes)
	require.Len(t, got.Deletes.TupleKeys, 1)
}

func TestWriteTuplesFalseOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", "model1"))
	ok := c.WriteTuples(context.Background(), []Tuple{
		{User: "user:alice", Relation: RelationViewer, Object: "knowledge_base:kb_demo"},
	})
	assert.False(t, ok)
}

func TestCreateStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores", r.URL.Path)
		var req createStoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rag-agent-demo", req.Name)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "store-xyz"}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "", ""))
	storeID, err := c.CreateStore(context.Background(), "rag-agent-demo")
	require.NoError(t, err)
	assert.Equal(t, "store-xyz", storeID)
}

func TestWriteAuthorizationModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/store1/authorization-models", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"authorization_model_id": "model-xyz"}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions(srv.URL, "store1", ""))
	modelID, err := c.WriteAuthorizationModel(context.Background(), DemoAuthorizationModel())
	require.NoError(t, err)
	assert.Equal(t, "model-xyz", modelID)

	c.SetStore("store1", modelID)
	assert.True(t, c.Configured())
}

func TestWriteAuthorizationModelRequiresStore(t *testing.T) {
	c := NewClient(testOptions("http://127.0.0.1:1", "", ""))
	_, err := c.WriteAuthorizationModel(context.Background(), DemoAuthorizationModel())
	assert.Error(t, err)
}
