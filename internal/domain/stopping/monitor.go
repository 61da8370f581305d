package stopping

// Monitor applies a Policy to one trial's checkpoint stream. Values
// are smoothed over the policy window (partial windows average what
// has been seen so far), and the smoothed value is compared against
// the best smoothed value observed.
//
// The stale counter resets only on improvements strictly greater than
// minDelta; the best value itself always tracks the best average seen,
// significant or not. The first checkpoint initializes the best and
// never counts as stale.
//
// A Monitor is not safe for concurrent use.
type Monitor struct {
	policy   Policy
	maximize bool

	ring  []float64
	head  int
	n     int
	total int
	sum   float64

	best    float64
	hasBest bool
	stale   int
	halted  bool
}

// NewMonitor creates a monitor for one trial. The direction must match
// the study objective: maximize=true treats larger values as better.
func NewMonitor(policy Policy, maximize bool) *Monitor {
	window := policy.Window()
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{
		policy:   policy,
		maximize: maximize,
		ring:     make([]float64, window),
	}
}

// Observe records one checkpoint value and returns whether the trial
// should halt. Once halted the monitor stays halted.
func (m *Monitor) Observe(value float64) bool {
	if m.halted {
		return true
	}

	if m.n == len(m.ring) {
		m.sum -= m.ring[m.head]
	} else {
		m.n++
	}
	m.ring[m.head] = value
	m.sum += value
	m.head = (m.head + 1) % len(m.ring)
	m.total++

	avg := m.sum / float64(m.n)

	if !m.hasBest {
		m.best = avg
		m.hasBest = true
		return false
	}

	improvement := avg - m.best
	if !m.maximize {
		improvement = m.best - avg
	}

	if improvement > m.policy.MinDelta() {
		m.stale = 0
	} else {
		m.stale++
	}

	if m.better(avg) {
		m.best = avg
	}

	if m.policy.Enabled() && m.stale >= m.policy.Patience() {
		m.halted = true
	}
	return m.halted
}

func (m *Monitor) better(avg float64) bool {
	if m.maximize {
		return avg > m.best
	}
	return avg < m.best
}

// Halted reports whether the policy has fired.
func (m *Monitor) Halted() bool { return m.halted }

// Best returns the best moving average observed so far. It is only
// meaningful after at least one observation.
func (m *Monitor) Best() float64 { return m.best }

// Average returns the current moving average.
func (m *Monitor) Average() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Observations returns how many checkpoints were observed, including
// those evicted from the window.
func (m *Monitor) Observations() int { return m.total }

// SinceImprovement returns consecutive checkpoints without a
// significant improvement.
func (m *Monitor) SinceImprovement() int { return m.stale }
