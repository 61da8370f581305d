package domain

import (
	"context"
	"errors"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
)

// Trainer builds a trainable model for one candidate assignment.
// Implementations live at the edges (benchmark functions, remote
// providers, user code behind the SDK).
type Trainer interface {
	Fit(ctx context.Context, cand candidate.Candidate) (Model, error)
}

// Model advances training one checkpoint at a time. Step returns done
// once the model's own iteration budget is exhausted; the runner may
// stop earlier when the stopping policy fires.
type Model interface {
	Step(ctx context.Context) (done bool, err error)
}

// Evaluator scores a model's current checkpoint. The value feeds the
// stopping monitor and, ultimately, the leaderboard.
type Evaluator interface {
	Score(ctx context.Context, m Model) (float64, error)
}

// HealthChecker verifies connectivity to a trainer's backing provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// TrainerRef couples a trainer with the evaluator that scores its
// models, for registry lookups by name.
type TrainerRef struct {
	Trainer   Trainer
	Evaluator Evaluator
}

// ObjectiveFunc is a plain objective: evaluate a candidate to a single
// scalar in one shot.
type ObjectiveFunc func(ctx context.Context, cand candidate.Candidate) (float64, error)

// FuncTrainer adapts an ObjectiveFunc into a single-checkpoint trainer
// and its evaluator: Fit captures the candidate, the first Step runs
// the function and reports done, Score returns the computed value.
type FuncTrainer struct {
	fn ObjectiveFunc
}

// NewFuncTrainer wraps a plain objective function.
func NewFuncTrainer(fn ObjectiveFunc) *FuncTrainer {
	return &FuncTrainer{fn: fn}
}

// Fit returns a single-checkpoint model for the candidate.
func (t *FuncTrainer) Fit(_ context.Context, cand candidate.Candidate) (Model, error) {
	if t.fn == nil {
		return nil, errors.New("objective function is nil")
	}
	return &funcModel{fn: t.fn, cand: cand}, nil
}

// Score returns the value computed by the model's single step.
func (t *FuncTrainer) Score(_ context.Context, m Model) (float64, error) {
	fm, ok := m.(*funcModel)
	if !ok {
		return 0, errors.New("model was not produced by this trainer")
	}
	if !fm.done {
		return 0, errors.New("model has not been stepped")
	}
	return fm.score, nil
}

type funcModel struct {
	fn    ObjectiveFunc
	cand  candidate.Candidate
	score float64
	done  bool
}

func (m *funcModel) Step(ctx context.Context) (bool, error) {
	score, err := m.fn(ctx, m.cand)
	if err != nil {
		return false, err
	}
	m.score = score
	m.done = true
	return true, nil
}
