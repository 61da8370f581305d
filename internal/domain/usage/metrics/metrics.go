package metrics

// Metrics holds training activity for a time period.
type Metrics struct {
	trials         int
	checkpoints    int64
	trainingMillis int64
}

// New creates a Metrics snapshot.
func New(trials int, checkpoints, trainingMillis int64) Metrics {
	return Metrics{trials: trials, checkpoints: checkpoints, trainingMillis: trainingMillis}
}

// Trials returns the number of trials run.
func (m Metrics) Trials() int { return m.trials }

// Checkpoints returns the number of checkpoint evaluations.
func (m Metrics) Checkpoints() int64 { return m.checkpoints }

// TrainingMillis returns wall time spent training, in milliseconds.
func (m Metrics) TrainingMillis() int64 { return m.trainingMillis }
