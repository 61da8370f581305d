package tunex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/db"
	"github.com/kailas-cloud/tunex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/tunex/internal/db/redis"
	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
	budgetrepo "github.com/kailas-cloud/tunex/internal/repository/budget"
	studyrepo "github.com/kailas-cloud/tunex/internal/repository/study"
	trialrepo "github.com/kailas-cloud/tunex/internal/repository/trial"
	healthuc "github.com/kailas-cloud/tunex/internal/usecase/health"
	studyuc "github.com/kailas-cloud/tunex/internal/usecase/study"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
	"github.com/kailas-cloud/tunex/internal/usecase/training"
	trialuc "github.com/kailas-cloud/tunex/internal/usecase/trial"
	usageuc "github.com/kailas-cloud/tunex/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// budgetScope labels the SDK's budget keys and metrics.
const budgetScope = "sdk"

// Внутренние интерфейсы для подмены в тестах.
type studyUseCase interface {
	Create(ctx context.Context, name string, params []param.Param, metric string, goal domsweep.Goal, stop studyuc.StoppingSpec) (domstudy.Study, error)
	Get(ctx context.Context, name string) (domstudy.Study, error)
	List(ctx context.Context, cursor string, limit int) ([]domstudy.Study, string, error)
	Delete(ctx context.Context, name string) error
}

type trialUseCase interface {
	Get(ctx context.Context, id string) (domtrial.Trial, error)
	List(ctx context.Context, study, cursor string, limit int, status domtrial.Status) ([]domtrial.Trial, string, error)
	Leaderboard(ctx context.Context, study string, limit int) ([]domtrial.Trial, error)
	Count(ctx context.Context, study string) (int, error)
}

type sweepUseCase interface {
	Run(ctx context.Context, req sweepuc.Request, trainer domain.Trainer, eval domain.Evaluator) (domsweep.Result, error)
}

// Client is the tunex SDK entry point. The zero-config client runs on
// an embedded in-memory store; WithValkey / WithRedis persist studies
// and trials across processes.
type Client struct {
	store    db.Store
	studySvc studyUseCase
	trialSvc trialUseCase
	sweepSvc sweepUseCase

	healthSvc healthUseCase
	usageSvc  usageUseCase
	budget    *training.BudgetTracker // nil: unlimited
	obs       *observer
}

// New creates a tunex Client. The provided context is used for the
// initial readiness check and for loading persisted budget counters.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tunex: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(ctx, store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "", driverMemory:
		return memory.NewStore(), nil
	case driverValkey, driverRedis:
		// rueidis speaks RESP3 to Redis 7+ and Valkey alike.
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("tunex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("tunex: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) *Client {
	// Internal services stay silent; the observer reports at the SDK
	// surface instead.
	logger := zap.NewNop()

	studyRepo := studyrepo.New(store)
	trialRepo := trialrepo.New(store)

	// usageuc.New takes the tracker through an interface; a typed nil
	// would dodge its nil check, so branch on the concrete pointer.
	var budget *training.BudgetTracker
	var usageSvc *usageuc.Service
	if cfg.dailyBudget > 0 || cfg.monthlyBudget > 0 {
		budget = training.NewBudgetTracker(
			budgetScope, cfg.dailyBudget, cfg.monthlyBudget,
			training.BudgetActionReject, logger,
		).WithStore(ctx, budgetrepo.New(store))
		usageSvc = usageuc.New(budget)
	} else {
		usageSvc = usageuc.New(nil)
	}

	runner := trialuc.NewRunner(trialRepo, logger).WithRecorder(usageSvc)
	if cfg.maxCheckpoints > 0 {
		runner = runner.WithMaxCheckpoints(cfg.maxCheckpoints)
	}

	driver := sweepuc.New(studyRepo, runner, logger)
	if budget != nil {
		driver = driver.WithBudget(budget)
	}
	if cfg.dispatchRate > 0 {
		driver = driver.WithDispatchRate(cfg.dispatchRate)
	}
	if cfg.queueDepth > 0 {
		driver = driver.WithQueueDepth(cfg.queueDepth)
	}
	if cfg.drainOnCancel {
		driver = driver.WithDrainOnCancel(true)
	}

	return &Client{
		store:     store,
		studySvc:  studyuc.New(studyRepo, trialRepo, logger),
		trialSvc:  trialuc.NewService(trialRepo, studyRepo),
		sweepSvc:  driver,
		healthSvc: healthuc.New(store, nil),
		usageSvc:  usageSvc,
		budget:    budget,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Studies returns the study management service.
func (c *Client) Studies() *StudyService {
	return &StudyService{svc: c.studySvc, obs: c.obs}
}

// Trials returns the trial query service for a given study.
func (c *Client) Trials(study string) *TrialService {
	return &TrialService{
		study: study,
		svc:   c.trialSvc,
		obs:   c.obs,
	}
}

// Sweep returns the search driver for a given study.
func (c *Client) Sweep(study string) *SweepService {
	return &SweepService{
		study:  study,
		driver: c.sweepSvc,
		budget: c.budget,
		obs:    c.obs,
	}
}
