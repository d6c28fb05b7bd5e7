package biz

import (
	"io"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/utils/json"
)

// AuditEntry is one JSON line in the audit log.
type AuditEntry struct {
	Timestamp          time.Time `json:"timestamp"`
	UserID             string    `json:"user_id"`
	SessionID          string    `json:"session_id"`
	Question           string    `json:"question"`
	Outcome            string    `json:"outcome"`
	ResponseGenerated  bool      `json:"response_generated"`
	DocumentsAccessed  []string  `json:"documents_accessed,omitempty"`
	KnowledgeBasesUsed []string  `json:"knowledge_bases_used,omitempty"`
	ModelUsed          string    `json:"model_used,omitempty"`
	Error              string    `json:"error,omitempty"`
}

// AuditSink appends one entry per query attempt, denials and failures
// included. Recording never fails outward: an audit write error is logged
// and swallowed so it cannot disturb the query path.
type AuditSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewAuditSink writes JSON lines to out.
func NewAuditSink(out io.Writer) *AuditSink {
	return &AuditSink{out: out}
}

// Record appends the outcome of one query attempt.
func (s *AuditSink) Record(user model.Principal, sessionID, question string, outcome *model.Outcome) {
	entry := AuditEntry{
		Timestamp:          time.Now().UTC(),
		UserID:             user.ID,
		SessionID:          sessionID,
		Question:           question,
		Outcome:            string(outcome.Kind),
		ResponseGenerated:  outcome.Completed(),
		DocumentsAccessed:  outcome.SourceDocumentIDs(),
		KnowledgeBasesUsed: outcome.KnowledgeBaseIDs,
		ModelUsed:          outcome.ModelUsed,
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		logger.Warnw("audit entry marshal failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(line, '\n')); err != nil {
		logger.Warnw("audit write failed", "error", err)
	}
}
