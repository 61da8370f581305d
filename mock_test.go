package tunex

import (
	"context"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
	studyuc "github.com/kailas-cloud/tunex/internal/usecase/study"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
)

// --- studyUseCase mock ---

type mockStudyUC struct {
	createFn func(ctx context.Context, name string, params []param.Param, metric string, goal domsweep.Goal, stop studyuc.StoppingSpec) (domstudy.Study, error)
	getFn    func(ctx context.Context, name string) (domstudy.Study, error)
	listFn   func(ctx context.Context, cursor string, limit int) ([]domstudy.Study, string, error)
	deleteFn func(ctx context.Context, name string) error
}

func (m *mockStudyUC) Create(
	ctx context.Context, name string, params []param.Param,
	metric string, goal domsweep.Goal, stop studyuc.StoppingSpec,
) (domstudy.Study, error) {
	return m.createFn(ctx, name, params, metric, goal, stop)
}

func (m *mockStudyUC) Get(ctx context.Context, name string) (domstudy.Study, error) {
	return m.getFn(ctx, name)
}

func (m *mockStudyUC) List(ctx context.Context, cursor string, limit int) ([]domstudy.Study, string, error) {
	return m.listFn(ctx, cursor, limit)
}

func (m *mockStudyUC) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

// --- trialUseCase mock ---

type mockTrialUC struct {
	getFn         func(ctx context.Context, id string) (domtrial.Trial, error)
	listFn        func(ctx context.Context, study, cursor string, limit int, status domtrial.Status) ([]domtrial.Trial, string, error)
	leaderboardFn func(ctx context.Context, study string, limit int) ([]domtrial.Trial, error)
	countFn       func(ctx context.Context, study string) (int, error)
}

func (m *mockTrialUC) Get(ctx context.Context, id string) (domtrial.Trial, error) {
	return m.getFn(ctx, id)
}

func (m *mockTrialUC) List(
	ctx context.Context, study, cursor string, limit int, status domtrial.Status,
) ([]domtrial.Trial, string, error) {
	return m.listFn(ctx, study, cursor, limit, status)
}

func (m *mockTrialUC) Leaderboard(ctx context.Context, study string, limit int) ([]domtrial.Trial, error) {
	return m.leaderboardFn(ctx, study, limit)
}

func (m *mockTrialUC) Count(ctx context.Context, study string) (int, error) {
	return m.countFn(ctx, study)
}

// --- sweepUseCase mock ---

type mockSweepUC struct {
	runFn func(ctx context.Context, req sweepuc.Request, trainer domain.Trainer, eval domain.Evaluator) (domsweep.Result, error)
}

func (m *mockSweepUC) Run(
	ctx context.Context, req sweepuc.Request, trainer domain.Trainer, eval domain.Evaluator,
) (domsweep.Result, error) {
	return m.runFn(ctx, req, trainer, eval)
}

// --- helpers ---

func testClient(studySvc studyUseCase, trialSvc trialUseCase, sweepSvc sweepUseCase) *Client {
	return &Client{
		studySvc: studySvc,
		trialSvc: trialSvc,
		sweepSvc: sweepSvc,
	}
}

// reconstructStudy builds a study fixture with one choice parameter.
func reconstructStudy(name string) domstudy.Study {
	p, _ := param.NewChoice("optimizer", []param.Value{
		param.String("adam"), param.String("sgd"),
	})
	sp := space.Reconstruct(name, []param.Param{p})
	obj := domsweep.ReconstructObjective("score", domsweep.GoalMaximize)
	return domstudy.Reconstruct(sp, obj, stopping.Disabled(), 1700000000000, 1)
}

// reconstructTrial builds a scored trial fixture.
func reconstructTrial(id, study string, ordinal uint64, score float64) domtrial.Trial {
	cand := candidate.New(ordinal, map[string]param.Value{
		"optimizer": param.String("adam"),
	})
	return domtrial.Reconstruct(
		id, study, cand, domtrial.StatusScored,
		score, 3, []float64{score - 0.2, score - 0.1, score},
		1700000000000, 1700000001000, "", 4,
	)
}
