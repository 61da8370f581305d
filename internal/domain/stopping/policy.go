// Package stopping implements per-trial early stopping: a validated
// policy (window, patience, minimum delta) and a monitor that applies
// it to a stream of checkpoint metric values.
package stopping

import (
	"errors"
	"fmt"
	"math"
)

// Policy defaults and limits.
const (
	DefaultMetric   = "score"
	DefaultWindow   = 1
	DefaultPatience = 3
	MaxWindow       = 256
	MaxPatience     = 1024
)

// Policy describes when a trial should be cut short: smooth the metric
// over a moving window and halt after patience consecutive checkpoints
// without an improvement greater than minDelta.
//
// The zero Policy is disabled; a disabled monitor never halts.
type Policy struct {
	metric   string
	window   int
	patience int
	minDelta float64
	enabled  bool
}

// New validates and creates an enabled policy. Zero window or patience
// fall back to defaults; negatives and non-finite deltas are rejected.
func New(metric string, window, patience int, minDelta float64) (Policy, error) {
	if window < 0 {
		return Policy{}, errors.New("window must not be negative")
	}
	if window > MaxWindow {
		return Policy{}, fmt.Errorf("window exceeds %d", MaxWindow)
	}
	if patience < 0 {
		return Policy{}, errors.New("patience must not be negative")
	}
	if patience > MaxPatience {
		return Policy{}, fmt.Errorf("patience exceeds %d", MaxPatience)
	}
	if math.IsNaN(minDelta) || math.IsInf(minDelta, 0) {
		return Policy{}, errors.New("min delta must be finite")
	}
	if minDelta < 0 {
		return Policy{}, errors.New("min delta must not be negative")
	}

	if metric == "" {
		metric = DefaultMetric
	}
	if window == 0 {
		window = DefaultWindow
	}
	if patience == 0 {
		patience = DefaultPatience
	}

	return Policy{
		metric:   metric,
		window:   window,
		patience: patience,
		minDelta: minDelta,
		enabled:  true,
	}, nil
}

// Disabled returns a policy whose monitor never halts.
func Disabled() Policy { return Policy{} }

// Reconstruct restores a policy from storage without validation.
func Reconstruct(metric string, window, patience int, minDelta float64, enabled bool) Policy {
	return Policy{metric: metric, window: window, patience: patience, minDelta: minDelta, enabled: enabled}
}

// Metric returns the name of the monitored metric.
func (p Policy) Metric() string { return p.metric }

// Window returns the moving average window size.
func (p Policy) Window() int { return p.window }

// Patience returns how many stale checkpoints are tolerated.
func (p Policy) Patience() int { return p.patience }

// MinDelta returns the smallest improvement that counts.
func (p Policy) MinDelta() float64 { return p.minDelta }

// Enabled reports whether the policy can halt a trial.
func (p Policy) Enabled() bool { return p.enabled }
