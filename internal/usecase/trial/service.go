package trial

import (
	"context"
	"fmt"

	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// Service handles trial queries.
type Service struct {
	repo    Repository
	studies StudyReader
}

// NewService creates a trial query service.
func NewService(repo Repository, studies StudyReader) *Service {
	return &Service{repo: repo, studies: studies}
}

// Get retrieves a trial by id, including its checkpoint history.
func (s *Service) Get(ctx context.Context, id string) (domtrial.Trial, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("get trial: %w", err)
	}
	return t, nil
}

// List returns a study's trials in candidate order. A non-empty status
// narrows the page to matching trials.
func (s *Service) List(ctx context.Context, study, cursor string, limit int, status domtrial.Status) (
	[]domtrial.Trial, string, error,
) {
	if _, err := s.studies.Get(ctx, study); err != nil {
		return nil, "", fmt.Errorf("get study: %w", err)
	}

	trials, next, err := s.repo.ListByStudy(ctx, study, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list trials: %w", err)
	}
	if status == "" {
		return trials, next, nil
	}

	filtered := make([]domtrial.Trial, 0, len(trials))
	for _, t := range trials {
		if t.Status() == status {
			filtered = append(filtered, t)
		}
	}
	return filtered, next, nil
}

// Leaderboard returns the study's best trials, direction taken from
// the study objective.
func (s *Service) Leaderboard(ctx context.Context, study string, limit int) ([]domtrial.Trial, error) {
	st, err := s.studies.Get(ctx, study)
	if err != nil {
		return nil, fmt.Errorf("get study: %w", err)
	}

	trials, err := s.repo.Leaderboard(ctx, study, st.Objective().Maximize(), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return trials, nil
}

// Count returns the number of trials recorded for a study.
func (s *Service) Count(ctx context.Context, study string) (int, error) {
	if _, err := s.studies.Get(ctx, study); err != nil {
		return 0, fmt.Errorf("get study: %w", err)
	}

	n, err := s.repo.CountByStudy(ctx, study)
	if err != nil {
		return 0, fmt.Errorf("count trials: %w", err)
	}
	return n, nil
}
