package study

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	"github.com/kailas-cloud/tunex/internal/domain/sweep"
)

// StoppingSpec carries early-stopping inputs from the transport layer.
// The zero value means stopping is disabled.
type StoppingSpec struct {
	Enabled  bool
	Metric   string
	Window   int
	Patience int
	MinDelta float64
}

// Service handles study CRUD operations.
type Service struct {
	repo   Repository
	trials TrialCleaner
	logger *zap.Logger
}

// New creates a study service.
func New(repo Repository, trials TrialCleaner, logger *zap.Logger) *Service {
	return &Service{repo: repo, trials: trials, logger: logger}
}

// Create validates and stores a new study.
func (s *Service) Create(
	ctx context.Context,
	name string,
	params []param.Param,
	metric string,
	goal sweep.Goal,
	stop StoppingSpec,
) (domstudy.Study, error) {
	sp, err := space.New(name, params)
	if err != nil {
		return domstudy.Study{}, fmt.Errorf("validate space: %w: %w", domain.ErrInvalidSpace, err)
	}

	obj, err := sweep.NewObjective(metric, goal)
	if err != nil {
		return domstudy.Study{}, fmt.Errorf("validate objective: %w: %w", domain.ErrInvalidSpace, err)
	}

	pol := stopping.Disabled()
	if stop.Enabled {
		pol, err = stopping.New(stop.Metric, stop.Window, stop.Patience, stop.MinDelta)
		if err != nil {
			return domstudy.Study{}, fmt.Errorf("validate stopping policy: %w: %w", domain.ErrInvalidPolicy, err)
		}
	}

	st, err := domstudy.New(sp, obj, pol)
	if err != nil {
		return domstudy.Study{}, fmt.Errorf("validate study: %w: %w", domain.ErrInvalidSpace, err)
	}

	if err := s.repo.Create(ctx, st); err != nil {
		return domstudy.Study{}, fmt.Errorf("create study: %w", err)
	}
	return st, nil
}

// Get retrieves a study by name.
func (s *Service) Get(ctx context.Context, name string) (domstudy.Study, error) {
	st, err := s.repo.Get(ctx, name)
	if err != nil {
		return domstudy.Study{}, fmt.Errorf("get study: %w", err)
	}
	return st, nil
}

// List returns studies ordered by creation time with offset-cursor
// pagination. Study catalogs are small; the slice happens in memory.
func (s *Service) List(ctx context.Context, cursor string, limit int) ([]domstudy.Study, string, error) {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("cursor %q: %w: %w", cursor, domain.ErrInvalidCursor, err)
		}
		if parsed < 0 {
			return nil, "", fmt.Errorf("cursor %q: %w: negative offset", cursor, domain.ErrInvalidCursor)
		}
		offset = parsed
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list studies: %w", err)
	}
	if offset >= len(all) {
		return []domstudy.Study{}, "", nil
	}

	end := offset + limit
	var nextCursor string
	if end < len(all) {
		nextCursor = strconv.Itoa(end)
	} else {
		end = len(all)
	}
	return all[offset:end], nextCursor, nil
}

// Delete removes a study along with its trials and leaderboard.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete study: %w", err)
	}

	deleted, err := s.trials.DeleteByStudy(ctx, name)
	if err != nil {
		return fmt.Errorf("delete trials of %s: %w", name, err)
	}
	s.logger.Info("Study deleted",
		zap.String("study", name),
		zap.Int("trials_removed", deleted),
	)
	return nil
}
