package tunex

// Goal is the optimization direction of a study.
type Goal string

// Goal constants.
const (
	GoalMaximize Goal = "maximize"
	GoalMinimize Goal = "minimize"
)

// ParamKind is the sampling domain of a hyperparameter.
type ParamKind string

// Parameter kind constants.
const (
	ParamChoice     ParamKind = "choice"
	ParamUniform    ParamKind = "uniform"
	ParamLogUniform ParamKind = "log_uniform"
	ParamInt        ParamKind = "int"
)

// TrialStatus is the lifecycle state of a trial.
type TrialStatus string

// Trial status constants.
const (
	TrialPending      TrialStatus = "pending"
	TrialTraining     TrialStatus = "training"
	TrialConverged    TrialStatus = "converged"
	TrialStoppedEarly TrialStatus = "stopped_early"
	TrialFailed       TrialStatus = "failed"
	TrialScored       TrialStatus = "scored"
)

// Params is one candidate assignment, keyed by parameter name. Values
// are native Go scalars: string, float64, int64 or bool.
type Params map[string]any

// Float returns the named parameter as a float64. Integer values are
// widened; missing names and other kinds return 0.
func (p Params) Float(name string) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int returns the named parameter as an int64. Float values are
// truncated; missing names and other kinds return 0.
func (p Params) Int(name string) int64 {
	switch v := p[name].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// String returns the named string parameter, or "" for other kinds.
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Bool returns the named bool parameter, or false for other kinds.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// ParamInfo describes one hyperparameter of a study.
type ParamInfo struct {
	Name   string
	Kind   ParamKind
	Values []any   // choice
	Min    float64 // uniform / log_uniform
	Max    float64
	Low    int64 // int range
	High   int64
	Step   int64
}

// StoppingPolicy describes a study's early stopping rule.
type StoppingPolicy struct {
	Metric   string
	Window   int
	Patience int
	MinDelta float64
}

// StudyInfo represents study metadata.
type StudyInfo struct {
	Name      string
	Params    []ParamInfo
	Metric    string
	Goal      Goal
	Stopping  *StoppingPolicy // nil when disabled
	Revision  int
	CreatedAt int64 // unix millis
}

// StudyListResult is a paginated list of studies.
type StudyListResult struct {
	Studies    []StudyInfo
	NextCursor string
	HasMore    bool
}

// TrialInfo represents one candidate evaluation.
type TrialInfo struct {
	ID          string
	Study       string
	Ordinal     uint64
	Params      Params
	Status      TrialStatus
	Score       float64 // meaningful for scored trials only
	Checkpoints int
	History     []float64
	StartedAt   int64 // unix millis, 0 until started
	FinishedAt  int64 // unix millis, 0 until terminal
	Failure     string
	Revision    int
}

// TrialListResult is a paginated list of trials.
type TrialListResult struct {
	Trials     []TrialInfo
	NextCursor string
}

// LeaderboardEntry is one ranked row of a study leaderboard.
type LeaderboardEntry struct {
	Rank    int
	TrialID string
	Score   float64
	Params  Params
}

// SweepFailure records one candidate that could not be scored.
type SweepFailure struct {
	Ordinal     uint64
	Fingerprint string
	Reason      string
}

// SweepResult aggregates a finished search run. Trials are ordered by
// candidate ordinal; Best is nil when nothing scored.
type SweepResult struct {
	Study    string
	Best     *TrialInfo
	Trials   []TrialInfo
	Failures []SweepFailure
}
