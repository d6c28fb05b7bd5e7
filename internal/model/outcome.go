package model

// OutcomeKind tags the possible results of query processing. Denial
// outcomes are legitimate terminal results, not errors.
type OutcomeKind string

const (
	// OutcomeScopeEmpty means the session has no knowledge bases at all.
	OutcomeScopeEmpty OutcomeKind = "scope_empty"
	// OutcomeNoAuthorizedKnowledgeBases means knowledge bases exist but
	// every KB-level check was denied.
	OutcomeNoAuthorizedKnowledgeBases OutcomeKind = "no_authorized_knowledge_bases"
	// OutcomeNoAuthorizedDocuments means search produced candidates but
	// every document-level check was denied (or search matched nothing).
	OutcomeNoAuthorizedDocuments OutcomeKind = "no_authorized_documents"
	// OutcomeCompleted means an answer was synthesized.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeFailed means an unexpected internal failure was caught.
	OutcomeFailed OutcomeKind = "failed"
)

// Fixed user-visible answers for the non-completed outcomes.
const (
	AnswerScopeEmpty                 = "This chat session has no knowledge bases associated with it. Add a knowledge base to the session and try again."
	AnswerNoAuthorizedKnowledgeBases = "You don't have access to any of the knowledge bases in this chat session."
	AnswerNoAuthorizedDocuments      = "No documents you are authorized to read matched your question."
	AnswerProcessingFailed           = "Sorry, something went wrong while processing your query. Please try again."
)

// Source describes one document that contributed to an answer, in the
// same order as the authorized search results.
type Source struct {
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Outcome is the tagged result of running the retrieval pipeline.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Answer is always set: the synthesized answer for Completed, a
	// fixed explanatory text otherwise.
	Answer string `json:"answer"`

	// Sources, DocumentsUsed and ModelUsed are populated for Completed.
	Sources       []Source `json:"sources,omitempty"`
	DocumentsUsed int      `json:"documents_used"`
	ModelUsed     string   `json:"model_used,omitempty"`

	// KnowledgeBaseIDs are the authorized knowledge bases the query
	// actually searched.
	KnowledgeBaseIDs []string `json:"knowledge_base_ids,omitempty"`

	// Err holds failure detail for Failed. Not serialized; the Answer
	// carries the user-safe message.
	Err error `json:"-"`
}

// ScopeEmptyOutcome reports a session with zero knowledge bases.
func ScopeEmptyOutcome() *Outcome {
	return &Outcome{Kind: OutcomeScopeEmpty, Answer: AnswerScopeEmpty}
}

// NoAuthorizedKnowledgeBasesOutcome reports that every KB check was denied.
func NoAuthorizedKnowledgeBasesOutcome() *Outcome {
	return &Outcome{Kind: OutcomeNoAuthorizedKnowledgeBases, Answer: AnswerNoAuthorizedKnowledgeBases}
}

// NoAuthorizedDocumentsOutcome reports that no authorized documents survived.
func NoAuthorizedDocumentsOutcome(kbIDs []string) *Outcome {
	return &Outcome{
		Kind:             OutcomeNoAuthorizedDocuments,
		Answer:           AnswerNoAuthorizedDocuments,
		KnowledgeBaseIDs: kbIDs,
	}
}

// FailedOutcome wraps an unexpected processing failure with a user-safe answer.
func FailedOutcome(err error) *Outcome {
	return &Outcome{Kind: OutcomeFailed, Answer: AnswerProcessingFailed, Err: err}
}

// SourceDocumentIDs returns the document ids of the sources, in order.
func (o *Outcome) SourceDocumentIDs() []string {
	if len(o.Sources) == 0 {
		return nil
	}
	ids := make([]string, 0, len(o.Sources))
	for _, s := range o.Sources {
		ids = append(ids, s.DocumentID)
	}
	return ids
}

// Completed reports whether the outcome carries a synthesized answer.
func (o *Outcome) Completed() bool {
	return o.Kind == OutcomeCompleted
}
