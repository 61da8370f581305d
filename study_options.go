package tunex

// StudyOption configures study creation.
type StudyOption func(*studyConfig)

type studyConfig struct {
	params   []paramSpec
	metric   string
	goal     Goal
	stopping *StoppingPolicy
}

// paramSpec carries one parameter declaration until Create validates
// it against the domain rules.
type paramSpec struct {
	name   string
	kind   ParamKind
	values []any
	min    float64
	max    float64
	low    int64
	high   int64
	step   int64
}

// Choice declares an explicit list of values to try. Values must share
// one scalar type: string, float64, int/int64 or bool.
func Choice(name string, values ...any) StudyOption {
	return func(c *studyConfig) {
		c.params = append(c.params, paramSpec{name: name, kind: ParamChoice, values: values})
	}
}

// Uniform declares a continuous range sampled uniformly.
func Uniform(name string, min, max float64) StudyOption {
	return func(c *studyConfig) {
		c.params = append(c.params, paramSpec{name: name, kind: ParamUniform, min: min, max: max})
	}
}

// LogUniform declares a continuous range sampled uniformly in log
// space. Both bounds must be positive.
func LogUniform(name string, min, max float64) StudyOption {
	return func(c *studyConfig) {
		c.params = append(c.params, paramSpec{name: name, kind: ParamLogUniform, min: min, max: max})
	}
}

// IntRange declares an integer range walked with a fixed step.
// Pass step 1 for a dense range.
func IntRange(name string, low, high, step int64) StudyOption {
	return func(c *studyConfig) {
		c.params = append(c.params, paramSpec{name: name, kind: ParamInt, low: low, high: high, step: step})
	}
}

// Maximize sets the objective: larger values of metric win.
// This is the default, with metric "score".
func Maximize(metric string) StudyOption {
	return func(c *studyConfig) {
		c.metric = metric
		c.goal = GoalMaximize
	}
}

// Minimize sets the objective: smaller values of metric win.
func Minimize(metric string) StudyOption {
	return func(c *studyConfig) {
		c.metric = metric
		c.goal = GoalMinimize
	}
}

// WithEarlyStopping enables per-trial early stopping: scores are
// smoothed over a moving window and the trial halts after patience
// consecutive checkpoints without an improvement greater than
// minDelta. Zero window or patience fall back to the built-in
// defaults (window 1, patience 3).
func WithEarlyStopping(window, patience int, minDelta float64) StudyOption {
	return func(c *studyConfig) {
		c.stopping = &StoppingPolicy{Window: window, Patience: patience, MinDelta: minDelta}
	}
}
