package trial

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
	"github.com/kailas-cloud/tunex/internal/domain/sweep"
)

// --- Mocks ---

type mockRepo struct {
	created []domtrial.Trial
	updates []domtrial.Trial

	createErr error
	updateErr error

	getResult  domtrial.Trial
	getErr     error
	listResult []domtrial.Trial
	listNext   string
	listErr    error

	leaderboard    []domtrial.Trial
	leaderboardErr error
	leaderboardRev bool

	count    int
	countErr error
}

func (m *mockRepo) Create(_ context.Context, t domtrial.Trial) error {
	m.created = append(m.created, t)
	return m.createErr
}

func (m *mockRepo) Update(_ context.Context, t domtrial.Trial) error {
	m.updates = append(m.updates, t)
	return m.updateErr
}

func (m *mockRepo) Get(_ context.Context, _ string) (domtrial.Trial, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) ListByStudy(_ context.Context, _, _ string, _ int) ([]domtrial.Trial, string, error) {
	return m.listResult, m.listNext, m.listErr
}

func (m *mockRepo) Leaderboard(_ context.Context, _ string, rev bool, _ int) ([]domtrial.Trial, error) {
	m.leaderboardRev = rev
	return m.leaderboard, m.leaderboardErr
}

func (m *mockRepo) CountByStudy(_ context.Context, _ string) (int, error) {
	return m.count, m.countErr
}

type mockStudies struct {
	study domstudy.Study
	err   error
}

func (m *mockStudies) Get(_ context.Context, _ string) (domstudy.Study, error) {
	return m.study, m.err
}

type mockUsage struct {
	study       string
	checkpoints int
	millis      int64
	calls       int
}

func (m *mockUsage) RecordTrial(study string, checkpoints int, trainingMillis int64) {
	m.study = study
	m.checkpoints = checkpoints
	m.millis = trainingMillis
	m.calls++
}

// curveTrainer replays a fixed score curve, one value per checkpoint.
type curveTrainer struct {
	curve     []float64
	fitErr    error
	stepErr   error
	stepErrAt int // 1-based step at which stepErr fires
	scoreErr  error
}

func (ct *curveTrainer) Fit(_ context.Context, _ candidate.Candidate) (domain.Model, error) {
	if ct.fitErr != nil {
		return nil, ct.fitErr
	}
	return &curveModel{trainer: ct}, nil
}

func (ct *curveTrainer) Score(_ context.Context, model domain.Model) (float64, error) {
	if ct.scoreErr != nil {
		return 0, ct.scoreErr
	}
	m, ok := model.(*curveModel)
	if !ok {
		return 0, errors.New("model belongs to another trainer")
	}
	return ct.curve[m.step-1], nil
}

type curveModel struct {
	trainer *curveTrainer
	step    int
}

func (m *curveModel) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.step++
	if m.trainer.stepErr != nil && m.step == m.trainer.stepErrAt {
		return false, m.trainer.stepErr
	}
	return m.step >= len(m.trainer.curve), nil
}

// --- Builders ---

func testCandidate(t *testing.T) candidate.Candidate {
	t.Helper()
	return candidate.New(3, map[string]param.Value{"lr": param.Float(0.01)})
}

// makeStudy builds a maximize study; pass stopping.Disabled() to turn
// patience off.
func makeStudy(t *testing.T, pol stopping.Policy) domstudy.Study {
	t.Helper()
	lr, err := param.NewUniform("lr", 0.001, 0.1)
	if err != nil {
		t.Fatalf("NewUniform() error = %v", err)
	}
	sp := space.Reconstruct("mnist-tune", []param.Param{lr})
	obj := sweep.ReconstructObjective("score", sweep.GoalMaximize)
	return domstudy.Reconstruct(sp, obj, pol, 1700000000000, 1)
}

func newTestRunner(t *testing.T) (*Runner, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	return NewRunner(repo, zap.NewNop()), repo
}

// statuses extracts the persisted status sequence.
func statuses(updates []domtrial.Trial) []domtrial.Status {
	out := make([]domtrial.Status, len(updates))
	for i, u := range updates {
		out[i] = u.Status()
	}
	return out
}
