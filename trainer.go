package tunex

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
)

// Trainer builds a trainable model for one candidate assignment.
// Implement it when training runs in checkpoints and early stopping
// should be able to cut a trial short.
type Trainer interface {
	Fit(ctx context.Context, params Params) (Model, error)
}

// Model advances training one checkpoint at a time. Step returns done
// once the model's own iteration budget is exhausted; the runner may
// stop earlier when the study's stopping policy fires.
type Model interface {
	Step(ctx context.Context) (done bool, err error)
}

// Evaluator scores a model's current checkpoint. The value feeds the
// stopping monitor and, ultimately, the leaderboard.
type Evaluator interface {
	Score(ctx context.Context, m Model) (float64, error)
}

// Objective is a plain scoring function for single-shot sweeps: one
// candidate in, one scalar out. An error fails that trial only; the
// sweep moves on to the next candidate.
type Objective func(ctx context.Context, params Params) (float64, error)

// FuncTrainer adapts an Objective into a single-checkpoint Trainer and
// its Evaluator: Fit captures the assignment, the first Step runs the
// function and reports done, Score returns the computed value.
type FuncTrainer struct {
	fn Objective
}

// NewFuncTrainer wraps a plain objective function.
func NewFuncTrainer(fn Objective) *FuncTrainer {
	return &FuncTrainer{fn: fn}
}

// Fit returns a single-checkpoint model for the assignment.
func (t *FuncTrainer) Fit(_ context.Context, params Params) (Model, error) {
	if t.fn == nil {
		return nil, errors.New("objective function is nil")
	}
	return &funcModel{fn: t.fn, params: params}, nil
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
	fn     Objective
	params Params
	score  float64
	done   bool
}

func (m *funcModel) Step(ctx context.Context) (bool, error) {
	score, err := m.fn(ctx, m.params)
	if err != nil {
		return false, err
	}
	m.score = score
	m.done = true
	return true, nil
}

// trainerAdapter wraps a public Trainer to satisfy internal
// domain.Trainer. Model passes through unchanged: the two interfaces
// share the Step signature.
type trainerAdapter struct {
	inner Trainer
}

func (a *trainerAdapter) Fit(ctx context.Context, cand candidate.Candidate) (domain.Model, error) {
	m, err := a.inner.Fit(ctx, fromCandidate(cand))
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	return m, nil
}

// evaluatorAdapter wraps a public Evaluator to satisfy internal
// domain.Evaluator.
type evaluatorAdapter struct {
	inner Evaluator
}

func (a *evaluatorAdapter) Score(ctx context.Context, m domain.Model) (float64, error) {
	return a.inner.Score(ctx, m)
}

// fromCandidate flattens a candidate assignment into native scalars.
func fromCandidate(cand candidate.Candidate) Params {
	values := cand.Values()
	p := make(Params, len(values))
	for name, v := range values {
		p[name] = fromValue(v)
	}
	return p
}

func fromValue(v param.Value) any {
	switch v.Kind() {
	case param.KindString:
		return v.String()
	case param.KindFloat:
		return v.Float()
	case param.KindInt:
		return v.Int()
	case param.KindBool:
		return v.Bool()
	default:
		return nil
	}
}

// toValue converts a native Go scalar into a parameter value. Plain
// ints are accepted alongside int64 because untyped literals arrive
// as int.
func toValue(v any) (param.Value, error) {
	switch x := v.(type) {
	case string:
		return param.String(x), nil
	case float64:
		return param.Float(x), nil
	case float32:
		return param.Float(float64(x)), nil
	case int:
		return param.Int(int64(x)), nil
	case int64:
		return param.Int(x), nil
	case bool:
		return param.Bool(x), nil
	default:
		return param.Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}
