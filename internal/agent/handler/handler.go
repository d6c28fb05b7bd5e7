// Package handler exposes the agent over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/agent/biz"
	"github.com/kart-io/rag-agent/internal/agent/metrics"
	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/internal/pkg/httputils"
	"github.com/kart-io/rag-agent/pkg/authz/fga"
	"github.com/kart-io/rag-agent/pkg/id"
	obsmetrics "github.com/kart-io/rag-agent/pkg/observability/metrics"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

// Handler wires the HTTP surface to the agent and its storage.
type Handler struct {
	agent      *biz.Agent
	store      biz.DataStore
	checker    *biz.Checker
	authz      biz.AuthzClient
	defaultOrg string
}

// New creates a Handler.
func New(agent *biz.Agent, store biz.DataStore, checker *biz.Checker, authz biz.AuthzClient, defaultOrg string) *Handler {
	return &Handler{
		agent:      agent,
		store:      store,
		checker:    checker,
		authz:      authz,
		defaultOrg: defaultOrg,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	httputils.WriteResponse(c, nil, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateKnowledgeBaseRequest is the create-KB payload. ID is optional; a
// ULID-based id is generated when absent.
type CreateKnowledgeBaseRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateKnowledgeBase creates a knowledge base and registers the caller as
// its curator in the authorization engine.
func (h *Handler) CreateKnowledgeBase(c *gin.Context) {
	var req CreateKnowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrAgentInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	user := PrincipalFrom(c)
	kbID := req.ID
	if kbID == "" {
		kbID = id.NewWithPrefix("kb")
	}

	kb, err := h.store.CreateKnowledgeBase(c.Request.Context(), kbID, req.Name, req.Description, h.defaultOrg)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	kbObj := fga.Object(fga.TypeKnowledgeBase, kb.ID)
	if !h.authz.WriteTuples(c.Request.Context(), []fga.Tuple{
		{User: fga.User(user.ID), Relation: fga.RelationCurator, Object: kbObj},
		{User: fga.Object(fga.TypeOrganization, h.defaultOrg), Relation: fga.RelationOrganization, Object: kbObj},
	}) {
		logger.Warnw("knowledge base tuples not written", "kb", kb.ID, "creator", user.ID)
	}

	httputils.WriteResponse(c, nil, kb)
}

// KnowledgeBaseView decorates a knowledge base with the caller's access.
type KnowledgeBaseView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	DocumentCount int    `json:"document_count"`
	Accessible    bool   `json:"accessible"`
}

// ListKnowledgeBases lists every knowledge base with a per-entry
// accessibility flag resolved through the engine.
func (h *Handler) ListKnowledgeBases(c *gin.Context) {
	user := PrincipalFrom(c)
	ctx := c.Request.Context()
	principal := fga.User(user.ID)
	kbs := h.store.ListKnowledgeBases(ctx)

	// Union of list-objects and per-KB checks: list-objects may lag behind
	// freshly written tuples, the direct checks are authoritative.
	listed := make(map[string]bool)
	for _, obj := range h.authz.ListObjects(ctx, principal, fga.RelationViewer, fga.TypeKnowledgeBase) {
		listed[obj] = true
	}

	objects := make([]string, 0, len(kbs))
	for _, kb := range kbs {
		objects = append(objects, fga.Object(fga.TypeKnowledgeBase, kb.ID))
	}
	decisions := h.checker.CheckBatch(ctx, principal, fga.RelationViewer, objects)

	views := make([]KnowledgeBaseView, 0, len(kbs))
	for i, kb := range kbs {
		views = append(views, KnowledgeBaseView{
			ID:            kb.ID,
			Name:          kb.Name,
			Description:   kb.Description,
			DocumentCount: kb.DocumentCount,
			Accessible:    decisions[objects[i]] || listed[objects[i]],
		})
	}
	httputils.WriteResponse(c, nil, views)
}

// UploadDocumentRequest is the upload payload.
type UploadDocumentRequest struct {
	ID       string            `json:"id"`
	Title    string            `json:"title" binding:"required"`
	Content  string            `json:"content" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

// UploadDocument adds a document to a knowledge base the caller curates and
// grants the caller owner on it.
func (h *Handler) UploadDocument(c *gin.Context) {
	var req UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrAgentInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	user := PrincipalFrom(c)
	kbID := c.Param("id")
	ctx := c.Request.Context()

	if !h.checker.Check(ctx, fga.User(user.ID), fga.RelationCurator, fga.Object(fga.TypeKnowledgeBase, kbID)) {
		httputils.WriteResponse(c, apierrors.ErrKnowledgeBaseAccessDenied.WithMessagef("not a curator of knowledge base %q", kbID), nil)
		return
	}

	docID := req.ID
	if docID == "" {
		docID = id.NewWithPrefix("doc")
	}

	doc, err := h.store.UploadDocument(ctx, docID, kbID, req.Title, req.Content, req.Metadata, user.ID)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	docObj := fga.Object(fga.TypeDocument, doc.ID)
	if !h.authz.WriteTuples(ctx, []fga.Tuple{
		{User: fga.User(user.ID), Relation: fga.RelationOwner, Object: docObj},
		{User: fga.Object(fga.TypeKnowledgeBase, kbID), Relation: fga.RelationParent, Object: docObj},
	}) {
		logger.Warnw("document tuples not written", "document", doc.ID, "creator", user.ID)
	}

	httputils.WriteResponse(c, nil, doc)
}

// ListDocuments lists the documents of a knowledge base the caller can
// view, filtered down to the documents the caller can view individually.
func (h *Handler) ListDocuments(c *gin.Context) {
	user := PrincipalFrom(c)
	kbID := c.Param("id")
	ctx := c.Request.Context()

	if !h.checker.Check(ctx, fga.User(user.ID), fga.RelationViewer, fga.Object(fga.TypeKnowledgeBase, kbID)) {
		httputils.WriteResponse(c, apierrors.ErrKnowledgeBaseAccessDenied.WithMessagef("no viewer access to knowledge base %q", kbID), nil)
		return
	}

	docs, err := h.store.ListDocuments(ctx, kbID)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	objects := make([]string, 0, len(docs))
	for _, doc := range docs {
		objects = append(objects, fga.Object(fga.TypeDocument, doc.ID))
	}
	decisions := h.checker.CheckBatch(ctx, fga.User(user.ID), fga.RelationViewer, objects)

	visible := docs[:0]
	for i, doc := range docs {
		if decisions[objects[i]] {
			visible = append(visible, doc)
		}
	}
	httputils.WriteResponse(c, nil, visible)
}

// CreateSessionRequest is the create-session payload.
type CreateSessionRequest struct {
	Name             string   `json:"name"`
	KnowledgeBaseIDs []string `json:"knowledge_base_ids" binding:"required"`
	ModelID          string   `json:"model_id" binding:"required"`
}

// CreateSession creates a chat session scoped to knowledge bases and a model.
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrAgentInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	user := PrincipalFrom(c)
	session, err := h.agent.CreateSession(c.Request.Context(), user, req.Name, h.defaultOrg, req.KnowledgeBaseIDs, req.ModelID)
	httputils.WriteResponse(c, err, session)
}

// QueryRequest is the submit-query payload.
type QueryRequest struct {
	SessionID      string            `json:"session_id" binding:"required"`
	Question       string            `json:"question" binding:"required"`
	MetadataFilter map[string]string `json:"metadata_filter"`
}

// QueryAccepted acknowledges an accepted query.
type QueryAccepted struct {
	QueryID string `json:"query_id"`
	Status  string `json:"status"`
}

// SubmitQuery accepts a question for asynchronous processing and returns
// the query id to poll.
func (h *Handler) SubmitQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, apierrors.ErrAgentInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	user := PrincipalFrom(c)
	query, err := h.agent.SubmitQuery(c.Request.Context(), user, req.SessionID, req.Question, req.MetadataFilter)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, QueryAccepted{QueryID: query.ID, Status: string(query.Status)})
}

// GetQuery returns a query with its outcome once processing finishes.
func (h *Handler) GetQuery(c *gin.Context) {
	user := PrincipalFrom(c)
	query, err := h.agent.GetQuery(c.Request.Context(), user, c.Param("id"))
	httputils.WriteResponse(c, err, query)
}

// ListModels returns the models the caller is allowed to use.
func (h *Handler) ListModels(c *gin.Context) {
	user := PrincipalFrom(c)
	ctx := c.Request.Context()
	models := h.store.ListModels(ctx)

	objects := make([]string, 0, len(models))
	for _, m := range models {
		objects = append(objects, fga.Object(fga.TypeAIModel, m.ID))
	}
	decisions := h.checker.CheckBatch(ctx, fga.User(user.ID), fga.RelationUser, objects)

	usable := models[:0]
	for i, m := range models {
		if decisions[objects[i]] {
			usable = append(usable, m)
		}
	}
	httputils.WriteResponse(c, nil, usable)
}

// UserSummary describes the caller and what the engine lets them reach.
type UserSummary struct {
	User                     model.Principal `json:"user"`
	AccessibleKnowledgeBases []string        `json:"accessible_knowledge_bases"`
	AccessibleDocuments      []string        `json:"accessible_documents"`
	AccessibleModels         []string        `json:"accessible_models"`
}

// Me returns the authenticated principal and its permission summary,
// resolved through list-objects on the engine.
func (h *Handler) Me(c *gin.Context) {
	user := PrincipalFrom(c)
	ctx := c.Request.Context()
	principal := fga.User(user.ID)

	httputils.WriteResponse(c, nil, UserSummary{
		User:                     user,
		AccessibleKnowledgeBases: h.authz.ListObjects(ctx, principal, fga.RelationViewer, fga.TypeKnowledgeBase),
		AccessibleDocuments:      h.authz.ListObjects(ctx, principal, fga.RelationViewer, fga.TypeDocument),
		AccessibleModels:         h.authz.ListObjects(ctx, principal, fga.RelationUser, fga.TypeAIModel),
	})
}

// Metrics exports all registered metrics in Prometheus text format.
func (h *Handler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, obsmetrics.Export())
}

// Stats reports store sizes and pipeline counters.
func (h *Handler) Stats(c *gin.Context) {
	stats := metrics.GetAgentMetrics().Stats()
	if counter, ok := h.store.(interface {
		Counts() (kbs, docs, sessions, queries int)
	}); ok {
		kbs, docs, sessions, queries := counter.Counts()
		stats["store"] = map[string]any{
			"knowledge_bases": kbs,
			"documents":       docs,
			"sessions":        sessions,
			"queries":         queries,
		}
	}
	if lister, ok := h.store.(interface{ SessionIDs() []string }); ok {
		stats["session_ids"] = lister.SessionIDs()
	}
	httputils.WriteResponse(c, nil, stats)
}
