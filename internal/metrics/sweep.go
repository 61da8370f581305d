package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sweep Prometheus metrics.
var (
	SweepTrialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunex",
			Name:      "sweep_trials_total",
			Help:      "Total number of finished trials",
		},
		[]string{"study", "status"},
	)

	TrialDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunex",
			Name:      "trial_duration_seconds",
			Help:      "Trial wall time in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		},
		[]string{"study"},
	)

	TrialCheckpointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunex",
			Name:      "trial_checkpoints_total",
			Help:      "Total checkpoint evaluations",
		},
		[]string{"study"},
	)

	SweepActiveWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tunex",
			Name:      "sweep_active_workers",
			Help:      "Workers currently evaluating candidates",
		},
		[]string{"study"},
	)

	BudgetCheckpointsRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tunex",
			Name:      "budget_checkpoints_remaining",
			Help:      "Remaining checkpoint budget",
		},
		[]string{"scope", "period"},
	)
)

var sweepMetricsRegistered bool

// RegisterSweepMetrics registers Prometheus sweep metrics. Must be called once from main.
func RegisterSweepMetrics() {
	if sweepMetricsRegistered {
		return
	}
	prometheus.MustRegister(SweepTrialsTotal)
	prometheus.MustRegister(TrialDuration)
	prometheus.MustRegister(TrialCheckpointsTotal)
	prometheus.MustRegister(SweepActiveWorkers)
	prometheus.MustRegister(BudgetCheckpointsRemaining)
	sweepMetricsRegistered = true
}
