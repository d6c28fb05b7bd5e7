package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/authz/fga"
	"github.com/kart-io/rag-agent/pkg/id"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

// CreateSession creates a chat session after verifying the caller may view
// every requested knowledge base and use the requested model. On success
// the session's ownership tuples are written to the engine so later query
// checks can resolve them.
func (a *Agent) CreateSession(ctx context.Context, user model.Principal, name, orgID string, kbIDs []string, modelID string) (*model.ChatSession, error) {
	for _, kbID := range kbIDs {
		if _, err := a.store.GetKnowledgeBase(ctx, kbID); err != nil {
			return nil, err
		}
		if !a.checker.Check(ctx, fga.User(user.ID), fga.RelationViewer, fga.Object(fga.TypeKnowledgeBase, kbID)) {
			return nil, apierrors.ErrKnowledgeBaseAccessDenied.WithMessagef("no viewer access to knowledge base %q", kbID)
		}
	}

	if _, err := a.store.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	if !a.checker.Check(ctx, fga.User(user.ID), fga.RelationUser, fga.Object(fga.TypeAIModel, modelID)) {
		return nil, apierrors.ErrModelAccessDenied.WithMessagef("no access to model %q", modelID)
	}

	session := &model.ChatSession{
		ID:               id.NewWithPrefix("session"),
		Name:             name,
		OrganizationID:   orgID,
		KnowledgeBaseIDs: append([]string(nil), kbIDs...),
		ModelID:          modelID,
		Owner:            user.ID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	sessionObj := fga.Object(fga.TypeChatSession, session.ID)
	tuples := []fga.Tuple{
		{User: fga.User(user.ID), Relation: fga.RelationOwner, Object: sessionObj},
		{User: fga.Object(fga.TypeOrganization, orgID), Relation: fga.RelationOrganization, Object: sessionObj},
	}
	if !a.checker.authz.WriteTuples(ctx, tuples) {
		logger.Warnw("session ownership tuples not written",
			"session", session.ID, "owner", user.ID)
	}
	return session, nil
}

// GetSession returns a session the caller owns or can view.
func (a *Agent) GetSession(ctx context.Context, user model.Principal, sessionID string) (*model.ChatSession, error) {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Owner != user.ID &&
		!a.checker.Check(ctx, fga.User(user.ID), fga.RelationViewer, fga.Object(fga.TypeChatSession, sessionID)) {
		return nil, apierrors.ErrQueryAccessDenied.WithMessagef("no access to session %q", sessionID)
	}
	return session, nil
}

// SubmitQuery records a query against a session and processes it in the
// background. The returned query is in processing state; poll GetQuery for
// the outcome.
func (a *Agent) SubmitQuery(ctx context.Context, user model.Principal, sessionID, question string, metadataFilter map[string]string) (*model.Query, error) {
	if _, err := a.GetSession(ctx, user, sessionID); err != nil {
		return nil, err
	}

	query := &model.Query{
		ID:             id.NewWithPrefix("query"),
		SessionID:      sessionID,
		Requester:      user.ID,
		Question:       question,
		MetadataFilter: metadataFilter,
		Status:         model.QueryStatusProcessing,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateQuery(ctx, query); err != nil {
		return nil, err
	}

	queryObj := fga.Object(fga.TypeQuery, query.ID)
	if !a.checker.authz.WriteTuples(ctx, []fga.Tuple{
		{User: fga.User(user.ID), Relation: fga.RelationRequester, Object: queryObj},
		{User: fga.Object(fga.TypeChatSession, sessionID), Relation: fga.RelationParent, Object: queryObj},
	}) {
		logger.Warnw("query ownership tuples not written", "query", query.ID)
	}

	run := func() {
		runCtx, cancel := context.WithTimeout(context.Background(), a.queryTimeout)
		defer cancel()
		a.runQuery(runCtx, user, query)
	}

	if a.queryPool != nil {
		if err := a.queryPool.Submit(run); err != nil {
			logger.Warnw("query pool rejected task, running inline",
				"query", query.ID, "error", err)
			run()
		}
	} else {
		run()
	}
	return query, nil
}

// runQuery executes the pipeline for a submitted query and records its
// terminal state.
func (a *Agent) runQuery(ctx context.Context, user model.Principal, query *model.Query) {
	outcome := a.ProcessQuery(ctx, user, query.SessionID, query.Question, query.MetadataFilter)

	var err error
	if outcome.Kind == model.OutcomeFailed {
		err = a.store.FailQuery(ctx, query.ID, outcome)
	} else {
		err = a.store.CompleteQuery(ctx, query.ID, outcome)
	}
	if err != nil {
		logger.Errorw("query state transition failed",
			"query", query.ID, "outcome", outcome.Kind, "error", err)
	}
}

// GetQuery returns a query visible to the caller: its requester, or anyone
// the engine grants requester on it.
func (a *Agent) GetQuery(ctx context.Context, user model.Principal, queryID string) (*model.Query, error) {
	query, err := a.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if query.Requester != user.ID &&
		!a.checker.Check(ctx, fga.User(user.ID), fga.RelationRequester, fga.Object(fga.TypeQuery, queryID)) {
		return nil, apierrors.ErrQueryAccessDenied.WithMessagef("no access to query %q", queryID)
	}
	return query, nil
}
