package metrics

import "github.com/prometheus/client_golang/prometheus"

// Trainer provider Prometheus metrics.
var (
	TrainerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunex",
			Name:      "trainer_requests_total",
			Help:      "Total number of trainer provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	TrainerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunex",
			Name:      "trainer_request_duration_seconds",
			Help:      "Trainer provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	TrainerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunex",
			Name:      "trainer_tokens_total",
			Help:      "Total provider tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	TrainerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunex",
			Name:      "trainer_errors_total",
			Help:      "Total trainer provider errors",
		},
		[]string{"provider", "model", "error_type"},
	)
)

var trainerMetricsRegistered bool

// RegisterTrainerMetrics registers Prometheus trainer metrics. Must be called once from main.
func RegisterTrainerMetrics() {
	if trainerMetricsRegistered {
		return
	}
	prometheus.MustRegister(TrainerRequestsTotal)
	prometheus.MustRegister(TrainerRequestDuration)
	prometheus.MustRegister(TrainerTokensTotal)
	prometheus.MustRegister(TrainerErrorsTotal)
	trainerMetricsRegistered = true
}
