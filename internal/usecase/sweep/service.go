// Package sweep drives hyperparameter search runs: it generates
// candidates from a study's space, fans them out to trial evaluations
// and aggregates scored trials into a ranked result. The Manager adds
// an asynchronous layer for the HTTP service.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
	"github.com/kailas-cloud/tunex/internal/metrics"
)

// Worker pool bounds.
const (
	// DefaultWorkers runs candidates sequentially, which keeps trial
	// ordinals aligned with completion order in tests and demos.
	DefaultWorkers = 1
	// MaxWorkers caps the pool so a bad request cannot fork-bomb the
	// process or the training backend.
	MaxWorkers = 64
	// queueFactor sizes the work channel relative to the pool so the
	// producer stays ahead of the workers without buffering the grid.
	queueFactor = 2
)

// Request describes one search run over an existing study.
type Request struct {
	Study   string
	Mode    domsweep.Mode
	Samples int   // random mode: number of draws
	Seed    int64 // random mode: 0 picks a time-based seed
	Workers int   // 0 defaults to DefaultWorkers
	// MaxTrials caps how many candidates are dispatched regardless of
	// mode. 0 means no cap.
	MaxTrials int
}

// Validate checks request shape against the study-independent rules.
func (r Request) Validate() error {
	if r.Study == "" {
		return errors.New("study name is required")
	}
	if !r.Mode.IsValid() {
		return fmt.Errorf("mode %q is not supported", r.Mode)
	}
	if r.Mode == domsweep.ModeRandom && r.Samples < 1 {
		return errors.New("random mode requires samples >= 1")
	}
	if r.Workers < 0 {
		return errors.New("workers must be non-negative")
	}
	if r.MaxTrials < 0 {
		return errors.New("max trials must be non-negative")
	}
	return nil
}

func (r Request) workers() int {
	w := r.Workers
	if w <= 0 {
		w = DefaultWorkers
	}
	if w > MaxWorkers {
		w = MaxWorkers
	}
	return w
}

// Service is the synchronous search driver. One instance is shared by
// all runs; per-run state lives on the stack of Run.
type Service struct {
	studies       StudyReader
	runner        Evaluator
	budget        BudgetChecker // nil: unlimited
	limiter       *rate.Limiter // nil: no dispatch throttle
	queueDepth    int           // 0: sized from the pool
	drainOnCancel bool
	logger        *zap.Logger
}

// New creates a sweep driver.
func New(studies StudyReader, runner Evaluator, logger *zap.Logger) *Service {
	return &Service{studies: studies, runner: runner, logger: logger}
}

// WithBudget attaches a compute budget checked before every dispatch.
func (s *Service) WithBudget(b BudgetChecker) *Service {
	s.budget = b
	return s
}

// WithDispatchRate throttles candidate dispatch to n per second.
func (s *Service) WithDispatchRate(perSecond float64) *Service {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return s
}

// WithQueueDepth overrides the work channel capacity. Deeper queues
// keep slow trainers fed at the cost of more cancelled-in-queue
// candidates on abort.
func (s *Service) WithQueueDepth(n int) *Service {
	if n > 0 {
		s.queueDepth = n
	}
	return s
}

// WithDrainOnCancel lets evaluations that already started finish after
// the run context is cancelled. Queued candidates are still dropped.
func (s *Service) WithDrainOnCancel(drain bool) *Service {
	s.drainOnCancel = drain
	return s
}

// Plan returns how many candidates the request would dispatch. Grid
// mode on a non-enumerable space reports ErrInvalidSpace.
func (s *Service) Plan(st domstudy.Study, req Request) (uint64, error) {
	var total uint64
	switch req.Mode {
	case domsweep.ModeGrid:
		cur, err := st.Space().Grid()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrInvalidSpace, err)
		}
		total = cur.Total()
	case domsweep.ModeRandom:
		total = uint64(req.Samples)
	default:
		return 0, fmt.Errorf("mode %q is not supported", req.Mode)
	}
	if req.MaxTrials > 0 && uint64(req.MaxTrials) < total {
		total = uint64(req.MaxTrials)
	}
	return total, nil
}

// Run executes the search synchronously and returns the aggregated
// result. Failed candidates become diagnostics, not errors; the run
// fails only when storage breaks, the budget rejects, the context is
// cancelled, or every single candidate failed (ErrSearchExhausted).
//
// On cancellation and budget stops the partial result is returned
// alongside the error.
func (s *Service) Run(
	ctx context.Context,
	req Request,
	trainer domain.Trainer,
	eval domain.Evaluator,
) (domsweep.Result, error) {
	return s.RunObserved(ctx, req, trainer, eval, nil)
}

// RunObserved is Run with progress callbacks, for async supervisors.
func (s *Service) RunObserved(
	ctx context.Context,
	req Request,
	trainer domain.Trainer,
	eval domain.Evaluator,
	obs Observer,
) (domsweep.Result, error) {
	if err := req.Validate(); err != nil {
		return domsweep.Result{}, fmt.Errorf("validate sweep request: %w", err)
	}
	if trainer == nil || eval == nil {
		return domsweep.Result{}, errors.New("trainer and evaluator are required")
	}

	st, err := s.studies.Get(ctx, req.Study)
	if err != nil {
		return domsweep.Result{}, fmt.Errorf("get study: %w", err)
	}

	next, total, err := s.generator(st, req)
	if err != nil {
		return domsweep.Result{}, err
	}

	workers := req.workers()
	s.logger.Info("Sweep started",
		zap.String("study", st.Name()),
		zap.String("mode", string(req.Mode)),
		zap.Uint64("planned", total),
		zap.Int("workers", workers),
	)

	// Workers cancel the producer on fatal storage errors via runCtx.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	depth := workers * queueFactor
	if s.queueDepth > 0 {
		depth = s.queueDepth
	}
	work := make(chan candidate.Candidate, depth)
	col := newCollector()
	var wg sync.WaitGroup
	var dispatched atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(runCtx, st, trainer, eval, work, col, obs, cancel)
		}()
	}

	var produceErr error
	go func() {
		defer close(work)
		produceErr = s.produce(runCtx, next, work, &dispatched, obs)
	}()

	wg.Wait()

	trials, failures, fatal := col.snapshot()
	res := domsweep.NewResult(st.Objective(), trials, failures)

	s.logger.Info("Sweep finished",
		zap.String("study", st.Name()),
		zap.Int64("dispatched", dispatched.Load()),
		zap.Int("scored", len(trials)),
		zap.Int("failed", len(failures)),
	)

	if fatal != nil {
		return domsweep.Result{}, fmt.Errorf("sweep aborted: %w", fatal)
	}
	// The producer only fails on cancellation or budget rejection;
	// either way the scored portion is still a usable partial result.
	if produceErr != nil && !errors.Is(produceErr, context.Canceled) {
		return res, produceErr
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("sweep cancelled: %w", err)
	}
	if dispatched.Load() > 0 && res.Len() == 0 {
		return res, fmt.Errorf("%w: %d candidates", domain.ErrSearchExhausted, dispatched.Load())
	}
	return res, nil
}

// generator builds the candidate source for the request. Grid mode
// walks the cartesian product lazily; random mode draws from a seeded
// sampler. Both honor MaxTrials.
func (s *Service) generator(st domstudy.Study, req Request) (func() (candidate.Candidate, bool), uint64, error) {
	total, err := s.Plan(st, req)
	if err != nil {
		return nil, 0, err
	}

	remaining := total
	switch req.Mode {
	case domsweep.ModeGrid:
		cur, err := st.Space().Grid()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", domain.ErrInvalidSpace, err)
		}
		return func() (candidate.Candidate, bool) {
			if remaining == 0 {
				return candidate.Candidate{}, false
			}
			remaining--
			return cur.Next()
		}, total, nil
	default: // ModeRandom, validated upstream
		smp := st.Space().NewSampler(req.Seed)
		s.logger.Debug("Random sampler seeded",
			zap.String("study", st.Name()),
			zap.Int64("seed", smp.Seed()),
		)
		return func() (candidate.Candidate, bool) {
			if remaining == 0 {
				return candidate.Candidate{}, false
			}
			remaining--
			return smp.Next(), true
		}, total, nil
	}
}

// produce feeds candidates into the work channel. It stops on context
// cancellation and on budget rejection; generation never waits for
// in-flight evaluations beyond the channel buffer.
func (s *Service) produce(
	ctx context.Context,
	next func() (candidate.Candidate, bool),
	work chan<- candidate.Candidate,
	dispatched *atomic.Int64,
	obs Observer,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.budget != nil {
			if err := s.budget.Check(ctx); err != nil {
				return fmt.Errorf("budget check: %w", err)
			}
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		cand, ok := next()
		if !ok {
			return nil
		}
		select {
		case work <- cand:
			dispatched.Add(1)
			if obs != nil {
				obs.CandidateDispatched(cand)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// worker evaluates candidates until the channel closes. Candidates
// picked up after cancellation are recorded as failures without
// touching the trainer; drainOnCancel only shields evaluations that
// already started.
func (s *Service) worker(
	ctx context.Context,
	st domstudy.Study,
	trainer domain.Trainer,
	eval domain.Evaluator,
	work <-chan candidate.Candidate,
	col *collector,
	obs Observer,
	abort context.CancelFunc,
) {
	for cand := range work {
		if err := ctx.Err(); err != nil {
			col.addFailure(domsweep.NewFailure(cand.Ordinal(), cand.Fingerprint(), "cancelled before evaluation"))
			continue
		}

		evalCtx := ctx
		if s.drainOnCancel {
			evalCtx = context.WithoutCancel(ctx)
		}

		metrics.SweepActiveWorkers.WithLabelValues(st.Name()).Inc()
		t, err := s.runner.Evaluate(evalCtx, st, cand, trainer, eval)
		metrics.SweepActiveWorkers.WithLabelValues(st.Name()).Dec()

		switch {
		case err == nil:
			col.addTrial(t)
			s.observeTrial(st.Name(), t)
			if obs != nil {
				obs.TrialFinished(t)
			}
		case isTrainingError(err):
			col.addFailure(domsweep.NewFailure(cand.Ordinal(), cand.Fingerprint(), err.Error()))
			s.observeTrial(st.Name(), t)
			if obs != nil {
				obs.TrialFinished(t)
			}
			s.logger.Warn("Candidate failed",
				zap.String("study", st.Name()),
				zap.Uint64("ordinal", cand.Ordinal()),
				zap.Error(err),
			)
		default:
			// Storage is broken: stop the whole run.
			col.setFatal(err)
			abort()
			return
		}
	}
}

func (s *Service) observeTrial(study string, t domtrial.Trial) {
	metrics.SweepTrialsTotal.WithLabelValues(study, string(t.Status())).Inc()
	metrics.TrialDuration.WithLabelValues(study).Observe(t.Duration().Seconds())
	metrics.TrialCheckpointsTotal.WithLabelValues(study).Add(float64(t.Checkpoints()))
}

func isTrainingError(err error) bool {
	var te *domain.TrainingError
	return errors.As(err, &te)
}

// collector serializes result appends from the worker pool. Order does
// not matter here; Result sorts by ordinal.
type collector struct {
	mu       sync.Mutex
	trials   []domtrial.Trial
	failures []domsweep.Failure
	fatal    error
}

func newCollector() *collector {
	return &collector{}
}

func (c *collector) addTrial(t domtrial.Trial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trials = append(c.trials, t)
}

func (c *collector) addFailure(f domsweep.Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

// setFatal keeps the first fatal error; later ones are usually the
// same outage repeating across workers.
func (c *collector) setFatal(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal == nil {
		c.fatal = err
	}
}

func (c *collector) snapshot() ([]domtrial.Trial, []domsweep.Failure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trials, c.failures, c.fatal
}
