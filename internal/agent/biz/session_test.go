package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/rag-agent/internal/model"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

func TestCreateSessionRequiresKnowledgeBaseAccess(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	ctx := context.Background()

	// bob has no viewer tuple on kb_demo.
	_, err := f.agent.CreateSession(ctx, bob, "bob session", "org_demo", []string{"kb_demo"}, "gpt-demo")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrKnowledgeBaseAccessDenied.Code))
}

func TestCreateSessionRequiresModelAccess(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	ctx := context.Background()

	require.NoError(t, f.store.RegisterModel(ctx, &model.AIModel{ID: "gpt-restricted", Name: "Restricted"}))

	_, err := f.agent.CreateSession(ctx, alice, "s", "org_demo", []string{"kb_demo"}, "gpt-restricted")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrModelAccessDenied.Code))
}

func TestCreateSessionUnknownKnowledgeBase(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	_, err := f.agent.CreateSession(context.Background(), alice, "s", "org_demo", []string{"kb_missing"}, "gpt-demo")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrKnowledgeBaseNotFound.Code))
}

func TestCreateSessionWritesOwnershipTuples(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	session, err := f.agent.CreateSession(context.Background(), alice, "research", "org_demo", []string{"kb_demo"}, "gpt-demo")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "alice", session.Owner)

	require.Len(t, f.authz.writes, 1)
	tuples := f.authz.writes[0]
	require.Len(t, tuples, 2)
	assert.Equal(t, "user:alice", tuples[0].User)
	assert.Equal(t, "owner", tuples[0].Relation)
	assert.Equal(t, "chat_session:"+session.ID, tuples[0].Object)
	assert.Equal(t, "organization:org_demo", tuples[1].User)
}

func TestSubmitQueryProcessesInline(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "grounded"})
	ctx := context.Background()

	query, err := f.agent.SubmitQuery(ctx, alice, "session_alice", "how does retrieval work", nil)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusProcessing, query.Status)

	// No pool configured, so processing ran synchronously.
	stored, err := f.agent.GetQuery(ctx, alice, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, stored.Status)
	require.NotNil(t, stored.Outcome)
	assert.Equal(t, "grounded", stored.Outcome.Answer)
	require.NotNil(t, stored.CompletedAt)
}

func TestSubmitQueryDeniedSession(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})

	_, err := f.agent.SubmitQuery(context.Background(), bob, "session_alice", "q", nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQueryAccessDenied.Code))
}

func TestSubmitQueryFailedPipelineMarksQueryFailed(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{panics: true})
	ctx := context.Background()

	query, err := f.agent.SubmitQuery(ctx, alice, "session_alice", "boom", nil)
	require.NoError(t, err)

	stored, err := f.agent.GetQuery(ctx, alice, query.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusFailed, stored.Status)
	require.NotNil(t, stored.Outcome)
	assert.Equal(t, model.AnswerProcessingFailed, stored.Outcome.Answer)
}

func TestGetQueryRequesterOnly(t *testing.T) {
	f := newFixture(t, &fakeChatProvider{answer: "x"})
	ctx := context.Background()

	query, err := f.agent.SubmitQuery(ctx, alice, "session_alice", "q", nil)
	require.NoError(t, err)

	_, err = f.agent.GetQuery(ctx, bob, query.ID)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQueryAccessDenied.Code))

	// An explicit requester grant opens access for another principal.
	f.authz.allow("user:bob", "requester", "query:"+query.ID)
	got, err := f.agent.GetQuery(ctx, bob, query.ID)
	require.NoError(t, err)
	assert.Equal(t, query.ID, got.ID)
}
