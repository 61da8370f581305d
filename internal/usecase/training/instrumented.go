package training

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(checkpoints int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedTrainer wraps a Trainer/Evaluator pair with budget
// enforcement and logging. Transport metrics (requests, duration,
// tokens) are recorded in transport/openai. This layer owns budget
// tracking and budget-related metrics only.
type InstrumentedTrainer struct {
	inner  domain.Trainer
	eval   domain.Evaluator
	name   string
	budget BudgetChecker
	logger *zap.Logger
}

// NewInstrumentedTrainer wraps a trainer with budget and observability.
// The name labels budget metrics and should match the budget scope.
func NewInstrumentedTrainer(
	inner domain.Trainer, eval domain.Evaluator, name string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedTrainer {
	return &InstrumentedTrainer{
		inner:  inner,
		eval:   eval,
		name:   name,
		budget: budget,
		logger: logger,
	}
}

// Fit checks the budget, delegates to the inner trainer, and returns a
// model whose every Step is metered against the budget.
func (t *InstrumentedTrainer) Fit(
	ctx context.Context, cand candidate.Candidate,
) (domain.Model, error) {
	if t.budget != nil {
		if err := t.budget.Check(ctx); err != nil {
			t.logger.Error("Budget exceeded",
				zap.String("trainer", t.name),
				zap.Uint64("ordinal", cand.Ordinal()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()

	model, err := t.inner.Fit(ctx, cand)

	duration := time.Since(start)

	if err != nil {
		t.logger.Error("Trainer fit failed",
			zap.String("trainer", t.name),
			zap.Uint64("ordinal", cand.Ordinal()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fit: %w", err)
	}

	t.logger.Debug("Trainer fit completed",
		zap.String("trainer", t.name),
		zap.Uint64("ordinal", cand.Ordinal()),
		zap.Duration("duration", duration),
	)

	return &instrumentedModel{inner: model, t: t}, nil
}

// Score unwraps the metered model and delegates to the inner evaluator.
func (t *InstrumentedTrainer) Score(ctx context.Context, m domain.Model) (float64, error) {
	if im, ok := m.(*instrumentedModel); ok {
		m = im.inner
	}
	return t.eval.Score(ctx, m)
}

// HealthCheck delegates to the inner trainer when it supports checks.
func (t *InstrumentedTrainer) HealthCheck(ctx context.Context) error {
	if hc, ok := t.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (t *InstrumentedTrainer) recordCheckpoint() {
	if t.budget == nil {
		return
	}
	t.budget.Record(1)
	remaining := metrics.BudgetCheckpointsRemaining
	remaining.WithLabelValues(t.name, "daily").Set(float64(t.budget.RemainingDaily()))
	remaining.WithLabelValues(t.name, "monthly").Set(float64(t.budget.RemainingMonthly()))
}

// instrumentedModel оборачивает Model: re-check бюджета перед каждым
// checkpoint, запись расхода после.
type instrumentedModel struct {
	inner domain.Model
	t     *InstrumentedTrainer
}

func (m *instrumentedModel) Step(ctx context.Context) (bool, error) {
	if m.t.budget != nil {
		if err := m.t.budget.Check(ctx); err != nil {
			m.t.logger.Error("Budget exceeded mid-training",
				zap.String("trainer", m.t.name),
				zap.Error(err),
			)
			return false, fmt.Errorf("budget check: %w", err)
		}
	}

	done, err := m.inner.Step(ctx)
	if err != nil {
		return false, err
	}

	m.t.recordCheckpoint()

	return done, nil
}
