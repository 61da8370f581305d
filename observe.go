package tunex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	trials     *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		// Operations range from single store reads to whole sweeps, so
		// the buckets run from a millisecond to minutes.
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tunex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"operation"}),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunex",
			Subsystem: "sdk",
			Name:      "trials_total",
			Help:      "Trials produced by sweeps, by outcome.",
		}, []string{"status"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.trials); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("tunex: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("tunex: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one point operation: a study or trial read, a ping.
func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	o.record(op, dur, err)

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("operation failed",
				"op", op,
				"duration", dur,
				"error", err,
			)
		} else {
			o.logger.Debug("operation completed",
				"op", op,
				"duration", dur,
			)
		}
	}
}

// observeSweep records a finished sweep together with its trial
// outcomes. Completions log at Info: sweeps are rare and expensive
// enough that each one is worth a line.
func (o *observer) observeSweep(op string, start time.Time, scored, failed int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	o.record(op, dur, err)

	if o.metrics != nil {
		o.metrics.trials.WithLabelValues("scored").Add(float64(scored))
		o.metrics.trials.WithLabelValues("failed").Add(float64(failed))
	}

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("sweep failed",
				"op", op,
				"duration", dur,
				"scored", scored,
				"failed", failed,
				"error", err,
			)
		} else {
			o.logger.Info("sweep completed",
				"op", op,
				"duration", dur,
				"scored", scored,
				"failed", failed,
			)
		}
	}
}

func (o *observer) record(op string, dur time.Duration, err error) {
	if o.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.metrics.operations.WithLabelValues(op, status).Inc()
	o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
}
