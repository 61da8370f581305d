package tunex

import (
	"context"
	"fmt"
)

// TypedTrainer starts a training session from a decoded configuration.
type TypedTrainer[T any] interface {
	Fit(ctx context.Context, cfg T) (Model, error)
}

// TypedTrainerFunc adapts a function to TypedTrainer.
type TypedTrainerFunc[T any] func(ctx context.Context, cfg T) (Model, error)

// Fit calls f.
func (f TypedTrainerFunc[T]) Fit(ctx context.Context, cfg T) (Model, error) {
	return f(ctx, cfg)
}

// SweepBuilder is a fluent builder for typed sweeps.
type SweepBuilder[T any] struct {
	study *TypedStudy[T]

	objective func(ctx context.Context, cfg T) (float64, error)
	trainer   TypedTrainer[T]
	eval      Evaluator

	workers   int
	seed      int64
	maxTrials int
}

// Objective sets a plain objective evaluated once per candidate.
// Checkpoints and early stopping do not apply to it.
func (b *SweepBuilder[T]) Objective(
	fn func(ctx context.Context, cfg T) (float64, error),
) *SweepBuilder[T] {
	b.objective = fn
	return b
}

// Trainer sets an iterative trainer and the evaluator scoring its
// models at every checkpoint.
func (b *SweepBuilder[T]) Trainer(tr TypedTrainer[T], eval Evaluator) *SweepBuilder[T] {
	b.trainer = tr
	b.eval = eval
	return b
}

// Workers sets the number of parallel evaluations.
func (b *SweepBuilder[T]) Workers(n int) *SweepBuilder[T] {
	b.workers = n
	return b
}

// Seed fixes the random sampler seed. Grid mode ignores it.
func (b *SweepBuilder[T]) Seed(seed int64) *SweepBuilder[T] {
	b.seed = seed
	return b
}

// MaxTrials caps how many candidates are dispatched.
func (b *SweepBuilder[T]) MaxTrials(n int) *SweepBuilder[T] {
	b.maxTrials = n
	return b
}

// Grid runs the sweep over the study's full cartesian grid.
func (b *SweepBuilder[T]) Grid(ctx context.Context) (SweepResult, error) {
	tr, ev, err := b.build()
	if err != nil {
		return SweepResult{}, err
	}
	return b.study.client.Sweep(b.study.name).Grid(ctx, tr, ev, b.options())
}

// Random runs the sweep over samples random draws from the space.
func (b *SweepBuilder[T]) Random(ctx context.Context, samples int) (SweepResult, error) {
	tr, ev, err := b.build()
	if err != nil {
		return SweepResult{}, err
	}
	return b.study.client.Sweep(b.study.name).Random(ctx, tr, ev, samples, b.options())
}

func (b *SweepBuilder[T]) build() (Trainer, Evaluator, error) {
	switch {
	case b.trainer != nil:
		if b.eval == nil {
			return nil, nil, fmt.Errorf("sweep %s: trainer needs an evaluator", b.study.name)
		}
		return &typedTrainer[T]{study: b.study, inner: b.trainer}, b.eval, nil
	case b.objective != nil:
		ft := NewFuncTrainer(func(ctx context.Context, params Params) (float64, error) {
			cfg, err := b.study.Decode(params)
			if err != nil {
				return 0, err
			}
			return b.objective(ctx, cfg)
		})
		return ft, ft, nil
	default:
		return nil, nil, fmt.Errorf("sweep %s: no objective or trainer set", b.study.name)
	}
}

func (b *SweepBuilder[T]) options() *SweepOptions {
	return &SweepOptions{Workers: b.workers, Seed: b.seed, MaxTrials: b.maxTrials}
}

// typedTrainer decodes candidate params into T before delegating.
type typedTrainer[T any] struct {
	study *TypedStudy[T]
	inner TypedTrainer[T]
}

func (t *typedTrainer[T]) Fit(ctx context.Context, params Params) (Model, error) {
	cfg, err := t.study.Decode(params)
	if err != nil {
		return nil, err
	}
	return t.inner.Fit(ctx, cfg)
}
