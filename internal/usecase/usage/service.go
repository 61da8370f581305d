// Package usage aggregates training activity (trials, checkpoints,
// wall time) per period and pairs it with checkpoint budget state for
// usage reports.
package usage

import (
	"context"
	"sync"
	"time"

	domusage "github.com/kailas-cloud/tunex/internal/domain/usage"
	"github.com/kailas-cloud/tunex/internal/domain/usage/budget"
	"github.com/kailas-cloud/tunex/internal/domain/usage/metrics"
)

type periodStats struct {
	trials         int
	checkpoints    int64
	trainingMillis int64
}

// Service counts finished trials and builds usage reports. Counters
// are in-process: they reset on restart, while the budget (persisted
// by its tracker) survives. It implements the trial runner's usage
// recorder.
type Service struct {
	br BudgetReader

	mu         sync.Mutex
	day        periodStats
	month      periodStats
	total      periodStats
	dayStart   time.Time
	monthStart time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	now := time.Now().UTC()
	return &Service{
		br:         br,
		dayStart:   truncateToDay(now),
		monthStart: truncateToMonth(now),
	}
}

// RecordTrial registers one finished trial. Called from worker
// goroutines, so it must stay cheap.
func (s *Service) RecordTrial(_ string, checkpoints int, trainingMillis int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolloverLocked(time.Now().UTC())
	for _, p := range []*periodStats{&s.day, &s.month, &s.total} {
		p.trials++
		p.checkpoints += int64(checkpoints)
		p.trainingMillis += trainingMillis
	}
}

func (s *Service) rolloverLocked(now time.Time) {
	if day := truncateToDay(now); day.After(s.dayStart) {
		s.day = periodStats{}
		s.dayStart = day
	}
	if month := truncateToMonth(now); month.After(s.monthStart) {
		s.month = periodStats{}
		s.monthStart = month
	}
}

func (s *Service) stats(period domusage.Period, now time.Time) periodStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolloverLocked(now)
	switch period {
	case domusage.PeriodDay:
		return s.day
	case domusage.PeriodMonth:
		return s.month
	default:
		return s.total
	}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := time.Now().UTC()
	var start, end int64
	var limit, used, remaining int64

	switch period {
	case domusage.PeriodDay:
		dayStart := truncateToDay(now)
		dayEnd := dayStart.Add(24 * time.Hour)
		start = dayStart.UnixMilli()
		end = dayEnd.UnixMilli()
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
			remaining = s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := truncateToMonth(now)
		monthEnd := monthStart.AddDate(0, 1, 0)
		start = monthStart.UnixMilli()
		end = monthEnd.UnixMilli()
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	default:
		// total — no period boundaries; budget shown at monthly scope
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	}

	st := s.stats(period, now)
	checkpoints := st.checkpoints
	if used > checkpoints {
		// The budget tracker is persisted; trust it over in-process
		// counters after a restart.
		checkpoints = used
	}

	exhausted := limit > 0 && remaining <= 0
	resetsAt := end

	b := budget.New(limit, remaining, exhausted, resetsAt)
	m := metrics.New(st.trials, checkpoints, st.trainingMillis)

	return domusage.NewReport(period, start, end, "", m, b)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
