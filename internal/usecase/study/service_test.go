package study

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	"github.com/kailas-cloud/tunex/internal/domain/sweep"
)

// --- Mocks ---

type mockRepo struct {
	created    domstudy.Study
	getResult  domstudy.Study
	listResult []domstudy.Study
	createErr  error
	getErr     error
	listErr    error
	deleteErr  error
	deleted    string
}

func (m *mockRepo) Create(_ context.Context, st domstudy.Study) error {
	m.created = st
	return m.createErr
}

func (m *mockRepo) Get(_ context.Context, _ string) (domstudy.Study, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) List(_ context.Context) ([]domstudy.Study, error) {
	return m.listResult, m.listErr
}

func (m *mockRepo) Delete(_ context.Context, name string) error {
	m.deleted = name
	return m.deleteErr
}

type mockCleaner struct {
	study     string
	deleted   int
	deleteErr error
}

func (m *mockCleaner) DeleteByStudy(_ context.Context, study string) (int, error) {
	m.study = study
	return m.deleted, m.deleteErr
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockCleaner) {
	t.Helper()
	repo := &mockRepo{}
	cleaner := &mockCleaner{}
	return New(repo, cleaner, zap.NewNop()), repo, cleaner
}

func testParams(t *testing.T) []param.Param {
	t.Helper()
	lr, err := param.NewUniform("lr", 0.001, 0.1)
	if err != nil {
		t.Fatalf("NewUniform() error = %v", err)
	}
	layers, err := param.NewInt("layers", 2, 8, 2)
	if err != nil {
		t.Fatalf("NewInt() error = %v", err)
	}
	return []param.Param{lr, layers}
}

func makeStudy(t *testing.T, name string, createdAt int64) domstudy.Study {
	t.Helper()
	sp := space.Reconstruct(name, testParams(t))
	obj := sweep.ReconstructObjective("score", sweep.GoalMaximize)
	return domstudy.Reconstruct(sp, obj, stopping.Disabled(), createdAt, 1)
}

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, "mnist-tune", testParams(t), "accuracy", sweep.GoalMaximize, StoppingSpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Name() != "mnist-tune" {
		t.Errorf("Name() = %q", st.Name())
	}
	if st.Policy().Enabled() {
		t.Error("policy should be disabled by default")
	}
	if repo.created.Name() != "mnist-tune" {
		t.Errorf("repo received %q", repo.created.Name())
	}
}

func TestCreate_WithStoppingPolicy(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, "mnist-tune", testParams(t), "accuracy", sweep.GoalMaximize,
		StoppingSpec{Enabled: true, Metric: "accuracy", Window: 3, Patience: 5, MinDelta: 0.001})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pol := st.Policy()
	if !pol.Enabled() || pol.Window() != 3 || pol.Patience() != 5 {
		t.Errorf("policy = %+v, want enabled window=3 patience=5", pol)
	}
}

func TestCreate_InvalidSpace(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "bad name!", testParams(t), "score", sweep.GoalMaximize, StoppingSpec{})
	if !errors.Is(err, domain.ErrInvalidSpace) {
		t.Fatalf("expected ErrInvalidSpace, got %v", err)
	}

	_, err = svc.Create(ctx, "empty", nil, "score", sweep.GoalMaximize, StoppingSpec{})
	if !errors.Is(err, domain.ErrInvalidSpace) {
		t.Fatalf("expected ErrInvalidSpace for empty space, got %v", err)
	}
}

func TestCreate_InvalidObjective(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "study1", testParams(t), "score", sweep.Goal("sideways"), StoppingSpec{})
	if !errors.Is(err, domain.ErrInvalidSpace) {
		t.Fatalf("expected ErrInvalidSpace, got %v", err)
	}
}

func TestCreate_InvalidPolicy(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "study1", testParams(t), "score", sweep.GoalMaximize,
		StoppingSpec{Enabled: true, Window: -1})
	if !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestCreate_RepoErrorPropagates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.createErr = domain.ErrStudyExists

	_, err := svc.Create(ctx, "dup", testParams(t), "score", sweep.GoalMaximize, StoppingSpec{})
	if !errors.Is(err, domain.ErrStudyExists) {
		t.Fatalf("expected ErrStudyExists, got %v", err)
	}
}

// --- Get / List ---

func TestGet_NotFoundPropagates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.getErr = domain.ErrStudyNotFound

	_, err := svc.Get(ctx, "ghost")
	if !errors.Is(err, domain.ErrStudyNotFound) {
		t.Fatalf("expected ErrStudyNotFound, got %v", err)
	}
}

func TestList_Paginates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.listResult = []domstudy.Study{
		makeStudy(t, "a", 1), makeStudy(t, "b", 2), makeStudy(t, "c", 3),
	}

	page, next, err := svc.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 || page[0].Name() != "a" || page[1].Name() != "b" {
		t.Errorf("page = %v", page)
	}
	if next != "2" {
		t.Errorf("nextCursor = %q, want \"2\"", next)
	}

	page, next, err = svc.List(ctx, next, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 1 || page[0].Name() != "c" || next != "" {
		t.Errorf("last page = %v, next = %q", page, next)
	}
}

func TestList_InvalidCursor(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.List(ctx, "banana", 10)
	if !errors.Is(err, domain.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestList_OffsetPastEnd(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.listResult = []domstudy.Study{makeStudy(t, "a", 1)}

	page, next, err := svc.List(ctx, "10", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 0 || next != "" {
		t.Errorf("page = %v, next = %q; want empty", page, next)
	}
}

// --- Delete ---

func TestDelete_CascadesToTrials(t *testing.T) {
	svc, repo, cleaner := newTestService(t)
	ctx := context.Background()

	cleaner.deleted = 5

	if err := svc.Delete(ctx, "mnist-tune"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deleted != "mnist-tune" || cleaner.study != "mnist-tune" {
		t.Errorf("deleted study=%q trials=%q", repo.deleted, cleaner.study)
	}
}

func TestDelete_NotFoundSkipsTrialCleanup(t *testing.T) {
	svc, repo, cleaner := newTestService(t)
	ctx := context.Background()

	repo.deleteErr = domain.ErrStudyNotFound

	err := svc.Delete(ctx, "ghost")
	if !errors.Is(err, domain.ErrStudyNotFound) {
		t.Fatalf("expected ErrStudyNotFound, got %v", err)
	}
	if cleaner.study != "" {
		t.Error("trial cleanup must not run when the study is missing")
	}
}
