package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_evaluations_total",
			Help: "Total number of scenario evaluations (count)",
		},
		[]string{"status"},
	)

	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenario_evaluation_duration_ms",
			Help:    "Duration of a single scenario evaluation in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	RuleWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluation_warnings_total",
			Help: "Total number of non-fatal rule evaluation warnings (count)",
		},
		[]string{"rule_type"},
	)

	DedupChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_checks_total",
			Help: "Total number of at-most-once window checks (count)",
		},
		[]string{"status"},
	)

	DedupCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dedup_check_duration_ms",
			Help:    "Duration of dedup store checks in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times a fallback policy was applied (count)",
		},
		[]string{"component", "action", "reason"},
	)

	DispatchedIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_intents_total",
			Help: "Total number of notification intents produced (count)",
		},
		[]string{"channel", "risk_level"},
	)

	SuppressedAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suppressed_alerts_total",
			Help: "Total number of triggered classifications suppressed by cooldown (count)",
		},
		[]string{"risk_level"},
	)

	RegistryActiveScenarios = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_scenarios",
			Help: "Number of enabled scenarios in the current snapshot (count)",
		},
	)

	RegistryActiveBindings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_bindings",
			Help: "Number of enabled camera bindings in the current snapshot (count)",
		},
	)

	TriggerFiringsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_trigger_firings_total",
			Help: "Total number of pattern trigger firings (count)",
		},
		[]string{"trigger"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests seen by the rate limiter (count)",
		},
		[]string{"status"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(RuleWarningsTotal)
	prometheus.MustRegister(DispatchedIntentsTotal)
	prometheus.MustRegister(SuppressedAlertsTotal)
	prometheus.MustRegister(RegistryActiveScenarios)
	prometheus.MustRegister(RegistryActiveBindings)
}

func RegisterDedupMetrics() {
	prometheus.MustRegister(DedupChecksTotal)
	prometheus.MustRegister(DedupCheckDuration)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterTriggerMetrics() {
	prometheus.MustRegister(TriggerFiringsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveEvaluationDuration(duration time.Duration, status string) {
	EvaluationDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveDedupDuration(duration time.Duration, status string) {
	DedupCheckDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetRegistrySize(scenarios, bindings int) {
	RegistryActiveScenarios.Set(float64(scenarios))
	RegistryActiveBindings.Set(float64(bindings))
}
