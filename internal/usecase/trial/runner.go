package trial

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// DefaultMaxCheckpoints caps runaway trainers that never report done.
const DefaultMaxCheckpoints = 1000

// Runner evaluates one candidate through the trial state machine:
// pending -> training -> converged|stopped_early|failed, then scored
// once the final value reaches the leaderboard. Every transition is
// persisted, so a crashed process leaves an honest trail.
type Runner struct {
	repo           Repository
	recorder       UsageRecorder
	logger         *zap.Logger
	maxCheckpoints int
}

// NewRunner creates a trial runner.
func NewRunner(repo Repository, logger *zap.Logger) *Runner {
	return &Runner{
		repo:           repo,
		logger:         logger,
		maxCheckpoints: DefaultMaxCheckpoints,
	}
}

// WithMaxCheckpoints overrides the checkpoint cap.
func (r *Runner) WithMaxCheckpoints(n int) *Runner {
	if n > 0 {
		r.maxCheckpoints = n
	}
	return r
}

// WithRecorder attaches a usage recorder.
func (r *Runner) WithRecorder(rec UsageRecorder) *Runner {
	r.recorder = rec
	return r
}

// Evaluate trains one candidate and records the outcome. Training and
// evaluation errors mark the trial failed and come back wrapped as
// domain.TrainingError so the sweep can skip the candidate; storage
// errors return as-is and abort the caller.
//
// A trial interrupted by context cancellation is recorded as failed,
// never partially scored.
func (r *Runner) Evaluate(
	ctx context.Context,
	st domstudy.Study,
	cand candidate.Candidate,
	trainer domain.Trainer,
	eval domain.Evaluator,
) (domtrial.Trial, error) {
	t, err := domtrial.New(st.Name(), cand)
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("new trial: %w", err)
	}
	if err := r.repo.Create(ctx, t); err != nil {
		return domtrial.Trial{}, fmt.Errorf("create trial: %w", err)
	}

	t, err = t.Begin()
	if err != nil {
		return domtrial.Trial{}, err
	}
	if err := r.repo.Update(ctx, t); err != nil {
		return domtrial.Trial{}, fmt.Errorf("persist training trial: %w", err)
	}

	model, err := trainer.Fit(ctx, cand)
	if err != nil {
		return r.fail(ctx, t, fmt.Errorf("fit: %w", err))
	}

	monitor := stopping.NewMonitor(st.Policy(), st.Objective().Maximize())
	history := make([]float64, 0, st.Policy().Window())
	status := domtrial.StatusConverged

	for {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, t, fmt.Errorf("cancelled: %w", err))
		}

		done, err := model.Step(ctx)
		if err != nil {
			return r.fail(ctx, t, fmt.Errorf("step %d: %w", len(history)+1, err))
		}
		value, err := eval.Score(ctx, model)
		if err != nil {
			return r.fail(ctx, t, fmt.Errorf("score at step %d: %w", len(history)+1, err))
		}
		history = append(history, value)

		// Patience wins over convergence on the same checkpoint.
		if monitor.Observe(value) {
			status = domtrial.StatusStoppedEarly
			break
		}
		if done || len(history) >= r.maxCheckpoints {
			break
		}
	}

	t, err = t.Complete(status, monitor.Best(), history)
	if err != nil {
		return domtrial.Trial{}, err
	}
	if err := r.repo.Update(ctx, t); err != nil {
		return domtrial.Trial{}, fmt.Errorf("persist completed trial: %w", err)
	}

	t, err = t.MarkScored()
	if err != nil {
		return domtrial.Trial{}, err
	}
	if err := r.repo.Update(ctx, t); err != nil {
		return domtrial.Trial{}, fmt.Errorf("persist scored trial: %w", err)
	}

	r.record(t)
	r.logger.Debug("Trial evaluated",
		zap.String("trial", t.ID()),
		zap.String("study", t.Study()),
		zap.Uint64("ordinal", cand.Ordinal()),
		zap.String("status", string(status)),
		zap.Float64("score", t.Score()),
		zap.Int("checkpoints", t.Checkpoints()),
	)
	return t, nil
}

// fail records a failed trial. The write uses a detached context so
// the record lands even when the failure is a cancellation.
func (r *Runner) fail(ctx context.Context, t domtrial.Trial, cause error) (domtrial.Trial, error) {
	failed, err := t.Fail(cause.Error())
	if err != nil {
		return domtrial.Trial{}, err
	}
	if err := r.repo.Update(context.WithoutCancel(ctx), failed); err != nil {
		r.logger.Warn("Failed to persist failed trial",
			zap.String("trial", t.ID()),
			zap.Error(err),
		)
	}
	r.record(failed)
	return failed, domain.NewTrainingError(t.Candidate(), cause)
}

func (r *Runner) record(t domtrial.Trial) {
	if r.recorder == nil {
		return
	}
	r.recorder.RecordTrial(t.Study(), t.Checkpoints(), t.Duration().Milliseconds())
}
