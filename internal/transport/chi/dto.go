package chi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
	domusage "github.com/kailas-cloud/tunex/internal/domain/usage"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
)

// ErrorCode identifies an API error class.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeInvalidSpace     ErrorCode = "invalid_space"
	CodeInvalidPolicy    ErrorCode = "invalid_policy"
	CodeStudyNotFound    ErrorCode = "study_not_found"
	CodeTrialNotFound    ErrorCode = "trial_not_found"
	CodeSweepNotFound    ErrorCode = "sweep_not_found"
	CodeTrainerNotFound  ErrorCode = "trainer_not_found"
	CodeStudyExists      ErrorCode = "study_already_exists"
	CodeSweepRunning     ErrorCode = "sweep_already_running"
	CodeRevisionConflict ErrorCode = "revision_conflict"
	CodeSearchExhausted  ErrorCode = "search_exhausted"
	CodeBudgetExceeded   ErrorCode = "budget_exceeded"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeTrainerProvider  ErrorCode = "trainer_provider_error"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ParamDef describes one hyperparameter in a create-study request.
// Choice values arrive as raw JSON scalars and are sniffed into the
// native kind.
type ParamDef struct {
	Name   string            `json:"name"`
	Kind   string            `json:"kind"`
	Values []json.RawMessage `json:"values,omitempty"`
	Min    *float64          `json:"min,omitempty"`
	Max    *float64          `json:"max,omitempty"`
	Low    *int64            `json:"low,omitempty"`
	High   *int64            `json:"high,omitempty"`
	Step   *int64            `json:"step,omitempty"`
}

// StoppingDef carries early-stopping settings; zero fields fall back to
// the server defaults.
type StoppingDef struct {
	Metric   string  `json:"metric,omitempty"`
	Window   int     `json:"window,omitempty"`
	Patience int     `json:"patience,omitempty"`
	MinDelta float64 `json:"min_delta,omitempty"`
}

// CreateStudyRequest is the POST /studies body.
type CreateStudyRequest struct {
	Name     string       `json:"name"`
	Params   []ParamDef   `json:"params"`
	Metric   string       `json:"metric"`
	Goal     string       `json:"goal"`
	Stopping *StoppingDef `json:"stopping,omitempty"`
}

// ParamResponse mirrors ParamDef for responses; param.Value marshals to
// its native JSON scalar.
type ParamResponse struct {
	Name   string        `json:"name"`
	Kind   string        `json:"kind"`
	Values []param.Value `json:"values,omitempty"`
	Min    *float64      `json:"min,omitempty"`
	Max    *float64      `json:"max,omitempty"`
	Low    *int64        `json:"low,omitempty"`
	High   *int64        `json:"high,omitempty"`
	Step   *int64        `json:"step,omitempty"`
}

// StudyResponse is the API representation of a study.
type StudyResponse struct {
	Name       string          `json:"name"`
	Params     []ParamResponse `json:"params"`
	Metric     string          `json:"metric"`
	Goal       string          `json:"goal"`
	Stopping   *StoppingDef    `json:"stopping,omitempty"`
	TrialCount *int            `json:"trial_count,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Revision   int             `json:"revision"`
}

// StudyCursorListResponse is a cursor page of studies.
type StudyCursorListResponse struct {
	Items      []StudyResponse `json:"items"`
	NextCursor *string         `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// StartSweepRequest is the POST /studies/{study}/sweeps body.
type StartSweepRequest struct {
	Mode      string `json:"mode"`
	Samples   int    `json:"samples,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	MaxTrials int    `json:"max_trials,omitempty"`
	Trainer   string `json:"trainer,omitempty"`
}

// SweepResponse is a point-in-time view of an asynchronous sweep.
type SweepResponse struct {
	ID         string     `json:"id"`
	Study      string     `json:"study"`
	Mode       string     `json:"mode"`
	State      string     `json:"state"`
	Planned    uint64     `json:"planned"`
	Dispatched int64      `json:"dispatched"`
	Completed  int64      `json:"completed"`
	Failed     int64      `json:"failed"`
	BestTrial  *string    `json:"best_trial,omitempty"`
	BestScore  *float64   `json:"best_score,omitempty"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SweepListResponse lists a study's sweeps, newest first.
type SweepListResponse struct {
	Items []SweepResponse `json:"items"`
}

// TrialResponse is the API representation of a trial.
type TrialResponse struct {
	ID          string                 `json:"id"`
	Study       string                 `json:"study"`
	Ordinal     uint64                 `json:"ordinal"`
	Params      map[string]param.Value `json:"params"`
	Fingerprint string                 `json:"fingerprint"`
	Status      string                 `json:"status"`
	Score       *float64               `json:"score,omitempty"`
	Checkpoints int                    `json:"checkpoints"`
	History     []float64              `json:"history,omitempty"`
	Failure     *string                `json:"failure,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
	Revision    int                    `json:"revision"`
}

// TrialCursorListResponse is a cursor page of trials.
type TrialCursorListResponse struct {
	Items      []TrialResponse `json:"items"`
	NextCursor *string         `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// LeaderboardEntry is one ranked row of a study leaderboard.
type LeaderboardEntry struct {
	Rank    int                    `json:"rank"`
	TrialID string                 `json:"trial_id"`
	Ordinal uint64                 `json:"ordinal"`
	Params  map[string]param.Value `json:"params"`
	Score   float64                `json:"score"`
}

// LeaderboardResponse ranks a study's scored trials by objective.
type LeaderboardResponse struct {
	Study   string             `json:"study"`
	Metric  string             `json:"metric"`
	Goal    string             `json:"goal"`
	Entries []LeaderboardEntry `json:"entries"`
}

// UsageMetrics is the usage section of a usage report.
type UsageMetrics struct {
	Trials         int   `json:"trials"`
	Checkpoints    int64 `json:"checkpoints"`
	TrainingMillis int64 `json:"training_millis"`
}

// BudgetStatus is the budget section of a usage report.
type BudgetStatus struct {
	CheckpointsLimit     int64      `json:"checkpoints_limit"`
	CheckpointsRemaining int64      `json:"checkpoints_remaining"`
	IsExhausted          *bool      `json:"is_exhausted,omitempty"`
	ResetsAt             *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the GET /usage body.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// paramFromDef builds a validated domain parameter from its DTO.
// Choice values arrive as raw JSON scalars; param.Value sniffs them
// into the native kind.
func paramFromDef(d ParamDef) (param.Param, error) {
	switch param.Kind(d.Kind) {
	case param.Choice:
		values := make([]param.Value, len(d.Values))
		for i, raw := range d.Values {
			if err := json.Unmarshal(raw, &values[i]); err != nil {
				return param.Param{}, fmt.Errorf("parameter %q: %w", d.Name, err)
			}
		}
		return param.NewChoice(d.Name, values)
	case param.Uniform:
		return param.NewUniform(d.Name, derefF64(d.Min), derefF64(d.Max))
	case param.LogUniform:
		return param.NewLogUniform(d.Name, derefF64(d.Min), derefF64(d.Max))
	case param.IntRange:
		step := derefI64(d.Step)
		if step == 0 {
			step = 1
		}
		return param.NewInt(d.Name, derefI64(d.Low), derefI64(d.High), step)
	default:
		return param.Param{}, fmt.Errorf("parameter %q: unknown kind %q", d.Name, d.Kind)
	}
}

func paramsFromDefs(defs []ParamDef) ([]param.Param, error) {
	params := make([]param.Param, len(defs))
	for i, d := range defs {
		p, err := paramFromDef(d)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return params, nil
}

func paramToResponse(p param.Param) ParamResponse {
	resp := ParamResponse{Name: p.Name(), Kind: string(p.Kind())}
	switch p.Kind() {
	case param.Choice:
		resp.Values = p.Values()
	case param.Uniform, param.LogUniform:
		min, max := p.Bounds()
		resp.Min, resp.Max = &min, &max
	case param.IntRange:
		low, high, step := p.IntBounds()
		resp.Low, resp.High, resp.Step = &low, &high, &step
	}
	return resp
}

func studyToResponse(st domstudy.Study) StudyResponse {
	params := st.Space().Params()
	out := make([]ParamResponse, len(params))
	for i, p := range params {
		out[i] = paramToResponse(p)
	}

	resp := StudyResponse{
		Name:      st.Name(),
		Params:    out,
		Metric:    st.Objective().Metric(),
		Goal:      string(st.Objective().Goal()),
		CreatedAt: time.UnixMilli(st.CreatedAt()).UTC(),
		Revision:  st.Revision(),
	}
	if pol := st.Policy(); pol.Enabled() {
		resp.Stopping = &StoppingDef{
			Metric:   pol.Metric(),
			Window:   pol.Window(),
			Patience: pol.Patience(),
			MinDelta: pol.MinDelta(),
		}
	}
	return resp
}

func trialToResponse(t domtrial.Trial, withHistory bool) TrialResponse {
	resp := TrialResponse{
		ID:          t.ID(),
		Study:       t.Study(),
		Ordinal:     t.Candidate().Ordinal(),
		Params:      t.Candidate().Values(),
		Fingerprint: t.Candidate().Fingerprint(),
		Status:      string(t.Status()),
		Checkpoints: t.Checkpoints(),
		Revision:    t.Revision(),
	}
	if t.Status() == domtrial.StatusScored {
		score := t.Score()
		resp.Score = &score
	}
	if withHistory && len(t.History()) > 0 {
		resp.History = t.History()
	}
	if f := t.Failure(); f != "" {
		resp.Failure = &f
	}
	if t.StartedAt() > 0 {
		started := time.UnixMilli(t.StartedAt()).UTC()
		resp.StartedAt = &started
	}
	if t.FinishedAt() > 0 {
		finished := time.UnixMilli(t.FinishedAt()).UTC()
		resp.FinishedAt = &finished
	}
	return resp
}

func sweepToResponse(s sweepuc.Snapshot) SweepResponse {
	resp := SweepResponse{
		ID:         s.ID,
		Study:      s.Study,
		Mode:       string(s.Mode),
		State:      string(s.State),
		Planned:    s.Planned,
		Dispatched: s.Dispatched,
		Completed:  s.Completed,
		Failed:     s.Failed,
		StartedAt:  time.UnixMilli(s.StartedAt).UTC(),
	}
	if s.HasBest {
		best := s.BestTrial
		score := s.BestScore
		resp.BestTrial = &best
		resp.BestScore = &score
	}
	if s.Error != "" {
		msg := s.Error
		resp.Error = &msg
	}
	if s.FinishedAt > 0 {
		finished := time.UnixMilli(s.FinishedAt).UTC()
		resp.FinishedAt = &finished
	}
	return resp
}

func usageToResponse(r *domusage.Report) UsageResponse {
	isExhausted := r.Budget().IsExhausted()
	resp := UsageResponse{
		Period: string(r.Period()),
		Usage: UsageMetrics{
			Trials:         r.Metrics().Trials(),
			Checkpoints:    r.Metrics().Checkpoints(),
			TrainingMillis: r.Metrics().TrainingMillis(),
		},
		Budget: BudgetStatus{
			CheckpointsLimit:     r.Budget().CheckpointsLimit(),
			CheckpointsRemaining: r.Budget().CheckpointsRemaining(),
			IsExhausted:          &isExhausted,
		},
	}
	if r.PeriodStart() > 0 {
		start := time.UnixMilli(r.PeriodStart()).UTC()
		end := time.UnixMilli(r.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if r.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(r.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}
	return resp
}

func derefF64(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefI64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
