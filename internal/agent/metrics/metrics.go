// Package metrics 提供检索代理的业务指标收集。
package metrics

import (
	"sync"
	"time"

	"github.com/kart-io/rag-agent/pkg/observability/metrics"
)

// AgentMetrics collects counters for the retrieval pipeline checkpoints.
type AgentMetrics struct {
	queriesTotal     metrics.Counter
	queriesInFlight  metrics.Gauge
	cacheHits        metrics.Counter
	cacheMisses      metrics.Counter
	checksTotal      metrics.Counter
	checksDenied     metrics.Counter
	kbDenied         metrics.Counter
	docDenied        metrics.Counter
	outcomes         metrics.CounterVec
	generationTotal  metrics.Counter
	generationErrors metrics.Counter
	searchDuration   metrics.Histogram
}

var (
	instance *AgentMetrics
	mu       sync.Mutex
)

// GetAgentMetrics returns the process-wide metrics instance.
func GetAgentMetrics() *AgentMetrics {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = newAgentMetrics()
	}
	return instance
}

func newAgentMetrics() *AgentMetrics {
	m := &AgentMetrics{
		queriesTotal:     metrics.NewCounter("agent_queries_total", "Total queries processed"),
		queriesInFlight:  metrics.NewGauge("agent_queries_in_flight", "Queries currently being processed"),
		cacheHits:        metrics.NewCounter("agent_queries_cache_hits_total", "Answer cache hits"),
		cacheMisses:      metrics.NewCounter("agent_queries_cache_misses_total", "Answer cache misses"),
		checksTotal:      metrics.NewCounter("agent_authz_checks_total", "Authorization checks issued"),
		checksDenied:     metrics.NewCounter("agent_authz_denied_total", "Authorization checks denied"),
		kbDenied:         metrics.NewCounter("agent_kb_denied_total", "Knowledge bases filtered at the KB checkpoint"),
		docDenied:        metrics.NewCounter("agent_doc_denied_total", "Documents filtered at the document checkpoint"),
		outcomes:         metrics.NewCounterVec("agent_query_outcomes_total", "Query outcomes by kind"),
		generationTotal:  metrics.NewCounter("agent_generation_total", "Answer generation attempts"),
		generationErrors: metrics.NewCounter("agent_generation_errors_total", "Answer generation failures"),
		searchDuration:   metrics.NewHistogram("agent_search_duration_seconds", "Document search duration", nil),
	}

	metrics.Register(m.queriesTotal)
	metrics.Register(m.queriesInFlight)
	metrics.Register(m.cacheHits)
	metrics.Register(m.cacheMisses)
	metrics.Register(m.checksTotal)
	metrics.Register(m.checksDenied)
	metrics.Register(m.kbDenied)
	metrics.Register(m.docDenied)
	metrics.Register(m.outcomes)
	metrics.Register(m.generationTotal)
	metrics.Register(m.generationErrors)
	metrics.Register(m.searchDuration)

	return m
}

// QueryStarted marks a query as in flight.
func (m *AgentMetrics) QueryStarted() {
	m.queriesInFlight.Inc()
}

// QueryFinished marks an in-flight query as done.
func (m *AgentMetrics) QueryFinished() {
	m.queriesInFlight.Dec()
}

// RecordQuery counts one processed query and its cache disposition.
func (m *AgentMetrics) RecordQuery(cacheHit bool) {
	m.queriesTotal.Inc()
	if cacheHit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordChecks counts a batch of authorization checks.
func (m *AgentMetrics) RecordChecks(total, denied int) {
	m.checksTotal.Add(float64(total))
	m.checksDenied.Add(float64(denied))
}

// RecordKBDenied counts knowledge bases removed at the KB checkpoint.
func (m *AgentMetrics) RecordKBDenied(n int) {
	m.kbDenied.Add(float64(n))
}

// RecordDocDenied counts documents removed at the document checkpoint.
func (m *AgentMetrics) RecordDocDenied(n int) {
	m.docDenied.Add(float64(n))
}

// RecordOutcome counts a query outcome by kind.
func (m *AgentMetrics) RecordOutcome(kind string) {
	m.outcomes.With(map[string]string{"kind": kind}).Inc()
}

// RecordGeneration counts one generation attempt.
func (m *AgentMetrics) RecordGeneration(err error) {
	m.generationTotal.Inc()
	if err != nil {
		m.generationErrors.Inc()
	}
}

// RecordSearch observes one search duration.
func (m *AgentMetrics) RecordSearch(d time.Duration) {
	m.searchDuration.Observe(d.Seconds())
}

// Stats returns a snapshot for the debug stats endpoint.
func (m *AgentMetrics) Stats() map[string]any {
	return map[string]any{
		"queries": map[string]any{
			"total":        m.queriesTotal.Get(),
			"in_flight":    m.queriesInFlight.Get(),
			"cache_hits":   m.cacheHits.Get(),
			"cache_misses": m.cacheMisses.Get(),
		},
		"authz": map[string]any{
			"checks":       m.checksTotal.Get(),
			"denied":       m.checksDenied.Get(),
			"kb_filtered":  m.kbDenied.Get(),
			"doc_filtered": m.docDenied.Get(),
		},
		"generation": map[string]any{
			"total":  m.generationTotal.Get(),
			"errors": m.generationErrors.Get(),
		},
	}
}
