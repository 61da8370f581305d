package tunex

import (
	"context"
	"fmt"
	"time"

	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// TrialService queries the trials of one study.
type TrialService struct {
	study string
	svc   trialUseCase
	obs   *observer
}

// Get retrieves a trial by id, including its checkpoint history.
func (s *TrialService) Get(
	ctx context.Context, id string,
) (_ TrialInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("trial.get", start, err) }()

	t, err := s.svc.Get(ctx, id)
	if err != nil {
		return TrialInfo{}, fmt.Errorf("get trial: %w", err)
	}
	if t.Study() != s.study {
		return TrialInfo{}, fmt.Errorf("get trial: %w: %s", ErrTrialNotFound, id)
	}
	return fromInternalTrial(t), nil
}

// List returns the study's trials in candidate order. A non-empty
// status narrows the page to matching trials; cursor and limit page
// through the full set.
func (s *TrialService) List(
	ctx context.Context, cursor string, limit int, status TrialStatus,
) (_ TrialListResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("trial.list", start, err) }()

	trials, next, err := s.svc.List(ctx, s.study, cursor, limit, domtrial.Status(status))
	if err != nil {
		return TrialListResult{}, fmt.Errorf("list trials: %w", err)
	}

	infos := make([]TrialInfo, len(trials))
	for i, t := range trials {
		infos[i] = fromInternalTrial(t)
	}
	return TrialListResult{Trials: infos, NextCursor: next}, nil
}

// Leaderboard returns the study's best trials, ranked best first under
// the study objective. Limit 0 uses the service default.
func (s *TrialService) Leaderboard(
	ctx context.Context, limit int,
) (_ []LeaderboardEntry, err error) {
	start := time.Now()
	defer func() { s.obs.observe("trial.leaderboard", start, err) }()

	trials, err := s.svc.Leaderboard(ctx, s.study, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, len(trials))
	for i, t := range trials {
		entries[i] = LeaderboardEntry{
			Rank:    i + 1,
			TrialID: t.ID(),
			Score:   t.Score(),
			Params:  fromCandidate(t.Candidate()),
		}
	}
	return entries, nil
}

// Count returns the number of trials recorded for the study.
func (s *TrialService) Count(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("trial.count", start, err) }()

	n, err := s.svc.Count(ctx, s.study)
	if err != nil {
		return 0, fmt.Errorf("count trials: %w", err)
	}
	return n, nil
}

func fromInternalTrial(t domtrial.Trial) TrialInfo {
	return TrialInfo{
		ID:          t.ID(),
		Study:       t.Study(),
		Ordinal:     t.Candidate().Ordinal(),
		Params:      fromCandidate(t.Candidate()),
		Status:      TrialStatus(t.Status()),
		Score:       t.Score(),
		Checkpoints: t.Checkpoints(),
		History:     t.History(),
		StartedAt:   t.StartedAt(),
		FinishedAt:  t.FinishedAt(),
		Failure:     t.Failure(),
		Revision:    t.Revision(),
	}
}
