package trial

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

func scoredTrial(t *testing.T, id string, status domtrial.Status) domtrial.Trial {
	t.Helper()
	return domtrial.Reconstruct(
		id, "mnist-tune", testCandidate(t), status,
		0.9, 2, nil, 1700000000000, 1700000001000, "", 3,
	)
}

func newQueryService(t *testing.T) (*Service, *mockRepo, *mockStudies) {
	t.Helper()
	repo := &mockRepo{}
	studies := &mockStudies{study: makeStudy(t, stopping.Disabled())}
	return NewService(repo, studies), repo, studies
}

func TestServiceGet_NotFound(t *testing.T) {
	svc, repo, _ := newQueryService(t)

	repo.getErr = domain.ErrTrialNotFound

	_, err := svc.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrTrialNotFound) {
		t.Fatalf("expected ErrTrialNotFound, got %v", err)
	}
}

func TestServiceList_StudyMissing(t *testing.T) {
	svc, _, studies := newQueryService(t)

	studies.err = domain.ErrStudyNotFound

	_, _, err := svc.List(context.Background(), "ghost", "", 10, "")
	if !errors.Is(err, domain.ErrStudyNotFound) {
		t.Fatalf("expected ErrStudyNotFound, got %v", err)
	}
}

func TestServiceList_FiltersByStatus(t *testing.T) {
	svc, repo, _ := newQueryService(t)

	repo.listResult = []domtrial.Trial{
		scoredTrial(t, "t1", domtrial.StatusScored),
		scoredTrial(t, "t2", domtrial.StatusFailed),
		scoredTrial(t, "t3", domtrial.StatusScored),
	}
	repo.listNext = "3"

	trials, next, err := svc.List(context.Background(), "mnist-tune", "", 10, domtrial.StatusScored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trials) != 2 || trials[0].ID() != "t1" || trials[1].ID() != "t3" {
		t.Errorf("filtered = %v", trials)
	}
	if next != "3" {
		t.Errorf("nextCursor = %q, want passthrough", next)
	}
}

func TestServiceList_NoFilterReturnsAll(t *testing.T) {
	svc, repo, _ := newQueryService(t)

	repo.listResult = []domtrial.Trial{
		scoredTrial(t, "t1", domtrial.StatusScored),
		scoredTrial(t, "t2", domtrial.StatusFailed),
	}

	trials, _, err := svc.List(context.Background(), "mnist-tune", "", 10, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trials) != 2 {
		t.Errorf("got %d trials, want 2", len(trials))
	}
}

func TestServiceLeaderboard_DirectionFromObjective(t *testing.T) {
	svc, repo, _ := newQueryService(t)

	repo.leaderboard = []domtrial.Trial{scoredTrial(t, "t1", domtrial.StatusScored)}

	got, err := svc.Leaderboard(context.Background(), "mnist-tune", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d trials, want 1", len(got))
	}
	if !repo.leaderboardRev {
		t.Error("maximize study must query the leaderboard in reverse order")
	}
}

func TestServiceCount(t *testing.T) {
	svc, repo, _ := newQueryService(t)

	repo.count = 42

	n, err := svc.Count(context.Background(), "mnist-tune")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("Count() = %d, want 42", n)
	}
}

func TestServiceCount_StudyMissing(t *testing.T) {
	svc, _, studies := newQueryService(t)

	studies.err = domain.ErrStudyNotFound

	_, err := svc.Count(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrStudyNotFound) {
		t.Fatalf("expected ErrStudyNotFound, got %v", err)
	}
}
