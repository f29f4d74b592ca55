package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_generations_total",
			Help: "Generation requests by final state",
		},
		[]string{"model", "state"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "landy_generation_duration_seconds",
			Help:    "Time from request to end of the streamed page",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_tokens_total",
			Help: "Tokens billed, split by direction and by whether the count was reported or estimated",
		},
		[]string{"model", "type", "source"},
	)

	CostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_cost_usd_total",
			Help: "Total cost in USD",
		},
		[]string{"model"},
	)

	BillingReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_billing_reports_total",
			Help: "Cost report outcomes (delivered, failed, duplicate)",
		},
		[]string{"status"},
	)

	OutboxRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_billing_outbox_relayed_total",
			Help: "Queued cost reports relayed to the billing sink",
		},
		[]string{"status"},
	)

	ImageCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "landy_image_cache_hits_total",
			Help: "Image searches answered from cache",
		},
	)

	ImageCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "landy_image_cache_misses_total",
			Help: "Image searches that went to the image API",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "landy_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"dependency"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_provider_errors_total",
			Help: "Total number of provider errors",
		},
		[]string{"provider", "error_type"},
	)

	MalformedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "landy_stream_malformed_lines_total",
			Help: "Provider stream lines that could not be decoded",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landy_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"route"},
	)

	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "landy_active_streams",
			Help: "Number of generations currently streaming",
		},
		[]string{"pod"},
	)

	InstanceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "landy_instance_info",
			Help: "Instance information (always 1)",
		},
		[]string{"pod", "version"},
	)
)

func RecordGeneration(model, state string, durationSec float64) {
	GenerationsTotal.WithLabelValues(model, state).Inc()
	GenerationDuration.WithLabelValues(model).Observe(durationSec)
}

func RecordTokens(model, source string, promptTokens, completionTokens int) {
	TokensTotal.WithLabelValues(model, "prompt", source).Add(float64(promptTokens))
	TokensTotal.WithLabelValues(model, "completion", source).Add(float64(completionTokens))
}

func RecordCost(model string, costUSD float64) {
	CostTotal.WithLabelValues(model).Add(costUSD)
}

func RecordBillingReport(status string) {
	BillingReports.WithLabelValues(status).Inc()
}

func RecordOutboxRelay(status string) {
	OutboxRelayed.WithLabelValues(status).Inc()
}

func RecordImageCache(hit bool) {
	if hit {
		ImageCacheHits.Inc()
		return
	}
	ImageCacheMisses.Inc()
}

func RecordProviderError(provider, errorType string) {
	ProviderErrors.WithLabelValues(provider, errorType).Inc()
}

func RecordMalformedLines(n int) {
	if n > 0 {
		MalformedLines.Add(float64(n))
	}
}

func RecordRateLimitHit(route string) {
	RateLimitHits.WithLabelValues(route).Inc()
}

func SetCircuitBreakerState(dependency string, state int) {
	CircuitBreakerState.WithLabelValues(dependency).Set(float64(state))
}

var currentPodName string

// InitInstanceMetrics should be called once at startup.
func InitInstanceMetrics(podName, version string) {
	currentPodName = podName
	InstanceInfo.WithLabelValues(podName, version).Set(1)
}

func IncrementActiveStreams() {
	ActiveStreams.WithLabelValues(currentPodName).Inc()
}

func DecrementActiveStreams() {
	ActiveStreams.WithLabelValues(currentPodName).Dec()
}
