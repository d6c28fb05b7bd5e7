package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/agent/metrics"
	"github.com/kart-io/rag-agent/internal/agent/store"
	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/llm"
)

// FallbackModelID is attributed to answers produced without a generation
// backend.
const FallbackModelID = "fallback"

// ApologyAnswer is returned verbatim when a configured generation backend
// fails; sources stay populated so the degraded answer is still grounded.
const ApologyAnswer = "I apologize, but I could not generate an answer right now. The relevant sources are listed below; please try again in a moment."

// Canned fallback answers, selected deterministically by question keyword.
const (
	fallbackAnswerReBAC = "OpenFGA is a relationship-based access control (ReBAC) system inspired by Google Zanzibar. " +
		"Permissions are derived from relationship tuples such as (user, viewer, document) rather than static roles, " +
		"which is what lets this agent check access to every knowledge base and document individually."

	fallbackAnswerRAG = "Retrieval-Augmented Generation (RAG) answers questions by first retrieving relevant documents " +
		"and then generating a response grounded in them. In this system every retrieval stage is also an authorization stage: " +
		"only knowledge bases and documents you are permitted to view ever reach the generator."

	fallbackAnswerSecurity = "This system enforces permissions with relationship-based checks at two independent checkpoints: " +
		"each knowledge base in your session scope and each retrieved document is checked before use. " +
		"Denied resources are filtered out silently, so answers are always built from authorized material only."

	fallbackAnswerGeneric = "I can answer questions about the documents you have access to. " +
		"Please ask something more specific about their content."
)

// Synthesizer builds a grounding prompt from authorized documents and
// produces the final answer, falling back to deterministic canned text
// when no generation backend is configured.
type Synthesizer struct {
	provider llm.ChatProvider
	modelID  string
	metrics  *metrics.AgentMetrics
}

// NewSynthesizer creates a synthesizer. provider may be nil, which selects
// the keyword fallback; modelID is the identifier attributed to generated
// answers.
func NewSynthesizer(provider llm.ChatProvider, modelID string) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		modelID:  modelID,
		metrics:  metrics.GetAgentMetrics(),
	}
}

// Synthesize produces the completed outcome for the authorized, ranked
// documents. Generation failure is recoverable: the caller always gets an
// answer, degraded to the fixed apology text when the backend errors.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, docs []store.SearchResult) *model.Outcome {
	sources := make([]model.Source, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, model.Source{
			DocumentID: d.Document.ID,
			Title:      d.Document.Title,
			Score:      d.Score,
			Metadata:   d.Document.Metadata,
		})
	}

	outcome := &model.Outcome{
		Kind:          model.OutcomeCompleted,
		Sources:       sources,
		DocumentsUsed: len(docs),
	}

	if s.provider == nil {
		outcome.Answer = fallbackAnswer(question)
		outcome.ModelUsed = FallbackModelID
		return outcome
	}

	answer, err := s.provider.Generate(ctx, buildPrompt(question, docs), "")
	s.metrics.RecordGeneration(err)
	if err != nil {
		logger.Warnw("answer generation failed, returning apology",
			"model", s.modelID, "error", err)
		outcome.Answer = ApologyAnswer
	} else {
		outcome.Answer = answer
	}
	outcome.ModelUsed = s.modelID
	return outcome
}

// buildPrompt concatenates a labeled block per document inside fixed
// instructional scaffolding and appends the question.
func buildPrompt(question string, docs []store.SearchResult) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context does not contain enough information, say so explicitly. ")
	b.WriteString("Cite the sources you used by their titles.\n\nContext:\n\n")

	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, d.Document.Title, d.Excerpt)
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// fallbackAnswer selects a canned answer by keyword. Literal and
// reproducible: the same question always yields the same text.
func fallbackAnswer(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "openfga"):
		return fallbackAnswerReBAC
	case strings.Contains(q, "rag"), strings.Contains(q, "retrieval"):
		return fallbackAnswerRAG
	case strings.Contains(q, "security"), strings.Contains(q, "permission"):
		return fallbackAnswerSecurity
	default:
		return fallbackAnswerGeneric
	}
}
