package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_questions_total",
			Help: "Natural-language questions processed, by outcome.",
		},
		[]string{"outcome"},
	)
	questionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_question_duration_seconds",
			Help:    "End-to-end ask pipeline latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
	)
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_llm_requests_total",
			Help: "Completion API calls, by status.",
		},
		[]string{"status"},
	)
	llmLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_llm_latency_seconds",
			Help:    "Completion API round-trip latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
	)
	gatewayQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_gateway_queries_total",
			Help: "SQL statements handled by the execution gateway, by result code.",
		},
		[]string{"code"},
	)
	gatewayQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_gateway_query_duration_seconds",
			Help:    "SQL execution latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	gatewayRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_gateway_rows_returned",
			Help:    "Rows returned per executed statement.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500, 1000},
		},
	)
	statementsRefusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_statements_refused_total",
			Help: "Statements rejected by the read-only guard.",
		},
	)
	historyWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_history_write_failures_total",
			Help: "Best-effort history appends that failed.",
		},
	)
	redactedValuesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_redacted_values_total",
			Help: "Result-set values replaced by the sensitive-field mask.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		questionDurationSeconds,
		llmRequestsTotal,
		llmLatencySeconds,
		gatewayQueriesTotal,
		gatewayQueryDurationSeconds,
		gatewayRowsReturned,
		statementsRefusedTotal,
		historyWriteFailuresTotal,
		redactedValuesTotal,
	)
}

func ObserveQuestion(outcome string, elapsed time.Duration) {
	questionsTotal.WithLabelValues(outcome).Inc()
	questionDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveLLMRequest(status string, elapsed time.Duration) {
	llmRequestsTotal.WithLabelValues(status).Inc()
	llmLatencySeconds.Observe(elapsed.Seconds())
}

func ObserveGatewayQuery(code string, rows int, elapsed time.Duration) {
	gatewayQueriesTotal.WithLabelValues(code).Inc()
	gatewayQueryDurationSeconds.Observe(elapsed.Seconds())
	if rows >= 0 {
		gatewayRowsReturned.Observe(float64(rows))
	}
}

func IncrementStatementRefused() {
	statementsRefusedTotal.Inc()
}

func IncrementHistoryWriteFailure() {
	historyWriteFailuresTotal.Inc()
}

func AddRedactedValues(count int) {
	if count > 0 {
		redactedValuesTotal.Add(float64(count))
	}
}
