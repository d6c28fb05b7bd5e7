package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/agent/metrics"
	"github.com/kart-io/rag-agent/internal/agent/store"
	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/authz/fga"
)

// DataStore is everything the agent needs from the storage layer.
type DataStore interface {
	store.Store
	store.SessionStore
	store.QueryStore
	store.ModelCatalog
}

// Agent runs the authorization-aware retrieval pipeline: the knowledge-base
// scope and every retrieved document are checked against the relationship
// engine before they can influence the answer.
type Agent struct {
	store        DataStore
	checker      *Checker
	synthesizer  *Synthesizer
	cache        *AnswerCache
	audit        *AuditSink
	metrics      *metrics.AgentMetrics
	maxDocuments int
	queryTimeout time.Duration
	queryPool    TaskRunner
}

// TaskRunner submits background work, typically a bounded goroutine pool.
type TaskRunner interface {
	Submit(task func()) error
}

// Config wires an Agent.
type Config struct {
	Store       DataStore
	Checker     *Checker
	Synthesizer *Synthesizer
	Cache       *AnswerCache
	Audit       *AuditSink

	// MaxDocuments caps how many candidates search returns before the
	// document-level checks. Defaults to 5.
	MaxDocuments int

	// QueryTimeout bounds background query processing. Defaults to 60s.
	QueryTimeout time.Duration

	// QueryPool runs queries asynchronously. Nil means queries run on the
	// caller's goroutine.
	QueryPool TaskRunner
}

// NewAgent assembles the pipeline.
func NewAgent(cfg Config) *Agent {
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 5
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 60 * time.Second
	}
	return &Agent{
		store:        cfg.Store,
		checker:      cfg.Checker,
		synthesizer:  cfg.Synthesizer,
		cache:        cfg.Cache,
		audit:        cfg.Audit,
		metrics:      metrics.GetAgentMetrics(),
		maxDocuments: cfg.MaxDocuments,
		queryTimeout: cfg.QueryTimeout,
		queryPool:    cfg.QueryPool,
	}
}

// ProcessQuery runs one question through the full pipeline and returns its
// outcome. Every invocation is audited, denials and failures included, and
// a panic anywhere in the pipeline degrades to a failed outcome instead of
// crossing the API boundary.
func (a *Agent) ProcessQuery(ctx context.Context, user model.Principal, sessionID, question string, metadataFilter map[string]string) (outcome *model.Outcome) {
	a.metrics.QueryStarted()
	defer a.metrics.QueryFinished()

	cacheKey := a.cache.Key(user.ID, sessionID, question, metadataFilter)
	if cached := a.cache.Get(ctx, cacheKey); cached != nil {
		a.metrics.RecordQuery(true)
		a.audit.Record(user, sessionID, question, cached)
		return cached
	}
	a.metrics.RecordQuery(false)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("query pipeline panicked",
				"user", user.ID, "session", sessionID, "panic", r)
			outcome = model.FailedOutcome(fmt.Errorf("query pipeline panic: %v", r))
		}
		a.metrics.RecordOutcome(string(outcome.Kind))
		a.audit.Record(user, sessionID, question, outcome)
		a.cache.Set(ctx, cacheKey, outcome)
	}()

	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return model.FailedOutcome(err)
	}

	// Stage 1: authorize the knowledge-base scope. Every knowledge base in
	// the session is checked independently; one denial never aborts the
	// batch, it just narrows the search scope.
	if len(session.KnowledgeBaseIDs) == 0 {
		return model.ScopeEmptyOutcome()
	}

	authorizedKBs := a.filterAuthorized(ctx, user, fga.TypeKnowledgeBase, session.KnowledgeBaseIDs)
	a.metrics.RecordKBDenied(len(session.KnowledgeBaseIDs) - len(authorizedKBs))
	if len(authorizedKBs) == 0 {
		return model.NoAuthorizedKnowledgeBasesOutcome()
	}

	// Retrieval sees only the authorized scope: a denied knowledge base
	// must not contribute candidates.
	searchStart := time.Now()
	results, err := a.store.SearchDocuments(ctx, authorizedKBs, question, a.maxDocuments, metadataFilter)
	a.metrics.RecordSearch(time.Since(searchStart))
	if err != nil {
		return model.FailedOutcome(err)
	}

	// Stage 2: authorize each retrieved document, preserving rank order.
	docIDs := make([]string, 0, len(results))
	for _, r := range results {
		docIDs = append(docIDs, r.Document.ID)
	}
	authorizedDocs := a.filterAuthorized(ctx, user, fga.TypeDocument, docIDs)
	a.metrics.RecordDocDenied(len(docIDs) - len(authorizedDocs))
	if len(authorizedDocs) == 0 {
		return model.NoAuthorizedDocumentsOutcome(authorizedKBs)
	}

	allowed := make(map[string]bool, len(authorizedDocs))
	for _, id := range authorizedDocs {
		allowed[id] = true
	}
	kept := results[:0]
	for _, r := range results {
		if allowed[r.Document.ID] {
			kept = append(kept, r)
		}
	}

	outcome = a.synthesizer.Synthesize(ctx, question, kept)
	outcome.KnowledgeBaseIDs = authorizedKBs
	return outcome
}

// filterAuthorized batch-checks viewer on every id and returns the allowed
// subset in the original order.
func (a *Agent) filterAuthorized(ctx context.Context, user model.Principal, objType fga.ObjectType, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	objects := make([]string, 0, len(ids))
	for _, id := range ids {
		objects = append(objects, fga.Object(objType, id))
	}

	decisions := a.checker.CheckBatch(ctx, fga.User(user.ID), fga.RelationViewer, objects)

	denied := 0
	authorized := make([]string, 0, len(ids))
	for i, object := range objects {
		if decisions[object] {
			authorized = append(authorized, ids[i])
		} else {
			denied++
		}
	}
	a.metrics.RecordChecks(len(objects), denied)
	return authorized
}
