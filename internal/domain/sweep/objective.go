package sweep

import (
	"errors"
	"fmt"
)

// DefaultMetric is the metric name used when a study does not name one.
const DefaultMetric = "score"

// MaxMetricLength bounds metric names for storage and labels.
const MaxMetricLength = 64

// Objective pairs a metric name with an optimization direction.
type Objective struct {
	metric string
	goal   Goal
}

// NewObjective validates and creates an objective. An empty metric
// falls back to DefaultMetric; an empty goal defaults to maximize.
func NewObjective(metric string, goal Goal) (Objective, error) {
	if metric == "" {
		metric = DefaultMetric
	}
	if len(metric) > MaxMetricLength {
		return Objective{}, fmt.Errorf("metric name exceeds %d characters", MaxMetricLength)
	}
	if goal == "" {
		goal = GoalMaximize
	}
	if !goal.IsValid() {
		return Objective{}, errors.New("goal must be maximize or minimize")
	}
	return Objective{metric: metric, goal: goal}, nil
}

// ReconstructObjective restores an objective from storage without validation.
func ReconstructObjective(metric string, goal Goal) Objective {
	return Objective{metric: metric, goal: goal}
}

// Metric returns the optimized metric name.
func (o Objective) Metric() string { return o.metric }

// Goal returns the optimization direction.
func (o Objective) Goal() Goal { return o.goal }

// Maximize reports whether larger values are better.
func (o Objective) Maximize() bool { return o.goal != GoalMinimize }

// Better reports whether score a is strictly better than b under the
// objective. Strictness matters: ties never displace an incumbent, so
// the earliest candidate wins equal scores.
func (o Objective) Better(a, b float64) bool {
	if o.Maximize() {
		return a > b
	}
	return a < b
}
