package tunex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
	"github.com/kailas-cloud/tunex/internal/usecase/training"
)

// SweepOptions tunes one search run.
type SweepOptions struct {
	// Workers is the number of parallel evaluations (default 1).
	Workers int
	// Seed feeds the random sampler; 0 derives one from the clock.
	// Grid mode ignores it.
	Seed int64
	// MaxTrials caps how many candidates are dispatched (0 = no cap).
	MaxTrials int
}

// SweepService runs hyperparameter searches over one study. Runs are
// synchronous: the call returns when the search is done, and every
// trial is persisted on the way, so Trials and Leaderboard see them
// immediately after.
type SweepService struct {
	study  string
	driver sweepUseCase
	budget *training.BudgetTracker // nil: unlimited
	obs    *observer
}

// Grid exhaustively evaluates the study's full cartesian grid with the
// given trainer. Every parameter must be enumerable (choice or int).
func (s *SweepService) Grid(
	ctx context.Context, trainer Trainer, eval Evaluator, opts *SweepOptions,
) (SweepResult, error) {
	start := time.Now()
	res, err := s.run(ctx, domsweep.ModeGrid, 0, trainer, eval, opts)
	s.obs.observeSweep("sweep.grid", start, len(res.Trials), len(res.Failures), err)
	return res, err
}

// Random evaluates samples seeded random draws from the study's space
// with the given trainer.
func (s *SweepService) Random(
	ctx context.Context, trainer Trainer, eval Evaluator, samples int, opts *SweepOptions,
) (SweepResult, error) {
	start := time.Now()
	res, err := s.run(ctx, domsweep.ModeRandom, samples, trainer, eval, opts)
	s.obs.observeSweep("sweep.random", start, len(res.Trials), len(res.Failures), err)
	return res, err
}

// GridFunc runs a grid sweep over a plain objective function: one call
// per candidate, no checkpoints, no early stopping.
func (s *SweepService) GridFunc(
	ctx context.Context, fn Objective, opts *SweepOptions,
) (SweepResult, error) {
	ft := NewFuncTrainer(fn)
	return s.Grid(ctx, ft, ft, opts)
}

// RandomFunc runs a random sweep over a plain objective function.
func (s *SweepService) RandomFunc(
	ctx context.Context, fn Objective, samples int, opts *SweepOptions,
) (SweepResult, error) {
	ft := NewFuncTrainer(fn)
	return s.Random(ctx, ft, ft, samples, opts)
}

// run adapts the public trainer pair to the domain interfaces and
// drives the search. On cancellation and budget stops the scored
// portion comes back alongside the error.
func (s *SweepService) run(
	ctx context.Context,
	mode domsweep.Mode,
	samples int,
	trainer Trainer,
	eval Evaluator,
	opts *SweepOptions,
) (SweepResult, error) {
	if trainer == nil || eval == nil {
		return SweepResult{}, fmt.Errorf("sweep %s: trainer and evaluator are required", s.study)
	}
	if opts == nil {
		opts = &SweepOptions{}
	}

	req := sweepuc.Request{
		Study:     s.study,
		Mode:      mode,
		Samples:   samples,
		Seed:      opts.Seed,
		Workers:   opts.Workers,
		MaxTrials: opts.MaxTrials,
	}

	var domTrainer domain.Trainer = &trainerAdapter{inner: trainer}
	var domEval domain.Evaluator = &evaluatorAdapter{inner: eval}
	if s.budget != nil {
		// Meter every checkpoint against the budget; the driver's own
		// check only gates dispatch.
		it := training.NewInstrumentedTrainer(domTrainer, domEval, budgetScope, s.budget, zap.NewNop())
		domTrainer, domEval = it, it
	}

	res, err := s.driver.Run(ctx, req, domTrainer, domEval)
	out := fromInternalResult(s.study, res)
	if err != nil {
		return out, fmt.Errorf("sweep %s: %w", s.study, err)
	}
	return out, nil
}

func fromInternalResult(study string, res domsweep.Result) SweepResult {
	trials := res.Trials()
	infos := make([]TrialInfo, len(trials))
	for i, t := range trials {
		infos[i] = fromInternalTrial(t)
	}

	failures := res.Failures()
	fails := make([]SweepFailure, len(failures))
	for i, f := range failures {
		fails[i] = SweepFailure{
			Ordinal:     f.Ordinal(),
			Fingerprint: f.Fingerprint(),
			Reason:      f.Reason(),
		}
	}

	out := SweepResult{Study: study, Trials: infos, Failures: fails}
	if best, ok := res.Best(); ok {
		info := fromInternalTrial(best)
		out.Best = &info
	}
	return out
}
