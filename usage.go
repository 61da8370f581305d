package tunex

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/tunex/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains training usage statistics for a time period.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metrics     UsageMetrics
	Budget      BudgetStatus
}

// UsageMetrics tracks training resource consumption.
type UsageMetrics struct {
	Trials       int
	Checkpoints  int64
	TrainingTime time.Duration
}

// BudgetStatus tracks checkpoint quota state.
type BudgetStatus struct {
	CheckpointsLimit     int64
	CheckpointsRemaining int64
	IsExhausted          bool
	ResetsAt             time.Time
}

// Usage returns a training usage report for the given period. Observer
// always records success; the underlying use-case is in-memory and does
// not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	m := report.Metrics()
	b := report.Budget()

	return UsageReport{
		Period:      UsagePeriod(report.Period()),
		PeriodStart: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Metrics: UsageMetrics{
			Trials:       m.Trials(),
			Checkpoints:  m.Checkpoints(),
			TrainingTime: time.Duration(m.TrainingMillis()) * time.Millisecond,
		},
		Budget: BudgetStatus{
			CheckpointsLimit:     b.CheckpointsLimit(),
			CheckpointsRemaining: b.CheckpointsRemaining(),
			IsExhausted:          b.IsExhausted(),
			ResetsAt:             time.UnixMilli(b.ResetsAt()).UTC(),
		},
	}
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
