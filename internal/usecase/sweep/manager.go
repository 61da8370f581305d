package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// State of an asynchronous sweep.
type State string

// Sweep lifecycle states.
const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Snapshot is a point-in-time view of an asynchronous sweep. Trials
// themselves are persisted and queried through the trial service; the
// snapshot only carries run progress.
type Snapshot struct {
	ID         string
	Study      string
	Mode       domsweep.Mode
	State      State
	Planned    uint64
	Dispatched int64
	Completed  int64
	Failed     int64
	BestTrial  string
	BestScore  float64
	HasBest    bool
	Error      string
	StartedAt  int64 // unix millis
	FinishedAt int64 // unix millis, 0 while running
}

// record tracks one background sweep. It doubles as the driver's
// Observer so counters move without polling.
type record struct {
	id        string
	study     string
	mode      domsweep.Mode
	planned   uint64
	objective domsweep.Objective
	startedAt int64
	cancel    context.CancelFunc

	dispatched atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64

	mu         sync.Mutex
	state      State
	best       domtrial.Trial
	hasBest    bool
	errMsg     string
	finishedAt int64
}

// CandidateDispatched implements Observer.
func (r *record) CandidateDispatched(candidate.Candidate) {
	r.dispatched.Add(1)
}

// TrialFinished implements Observer. Equal scores keep the candidate
// with the lower ordinal, matching Result.Best.
func (r *record) TrialFinished(t domtrial.Trial) {
	if t.Status() != domtrial.StatusScored {
		r.failed.Add(1)
		return
	}
	r.completed.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !r.hasBest:
		r.best, r.hasBest = t, true
	case r.objective.Better(t.Score(), r.best.Score()):
		r.best = t
	case t.Score() == r.best.Score() && t.Candidate().Ordinal() < r.best.Candidate().Ordinal():
		r.best = t
	}
}

func (r *record) finish(state State, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.errMsg = errMsg
	r.finishedAt = time.Now().UnixMilli()
}

func (r *record) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{
		ID:         r.id,
		Study:      r.study,
		Mode:       r.mode,
		State:      r.state,
		Planned:    r.planned,
		Dispatched: r.dispatched.Load(),
		Completed:  r.completed.Load(),
		Failed:     r.failed.Load(),
		Error:      r.errMsg,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
	if r.hasBest {
		s.BestTrial = r.best.ID()
		s.BestScore = r.best.Score()
		s.HasBest = true
	}
	return s
}

// Manager runs sweeps in the background for the HTTP service: Start
// registers a run and returns immediately, Get and List snapshot
// progress, Cancel stops a run cooperatively. Records live in process
// memory; the persisted trials and leaderboards survive restarts.
type Manager struct {
	driver  *Service
	studies StudyReader
	logger  *zap.Logger

	mu     sync.Mutex
	sweeps map[string]*record
	wg     sync.WaitGroup
}

// NewManager creates a sweep manager on top of the synchronous driver.
func NewManager(driver *Service, studies StudyReader, logger *zap.Logger) *Manager {
	return &Manager{
		driver:  driver,
		studies: studies,
		logger:  logger,
		sweeps:  make(map[string]*record),
	}
}

// Start validates the request, registers a sweep and spawns the driver
// on a background context detached from the caller's. One running
// sweep per study; a second Start reports ErrSweepRunning.
func (m *Manager) Start(
	ctx context.Context,
	req Request,
	trainer domain.Trainer,
	eval domain.Evaluator,
) (Snapshot, error) {
	if err := req.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("validate sweep request: %w", err)
	}
	if trainer == nil || eval == nil {
		return Snapshot{}, errors.New("trainer and evaluator are required")
	}

	st, err := m.studies.Get(ctx, req.Study)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get study: %w", err)
	}
	planned, err := m.driver.Plan(st, req)
	if err != nil {
		return Snapshot{}, err
	}

	// Detach from the request context: the run must outlive the HTTP
	// request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	rec := &record{
		id:        uuid.NewString(),
		study:     req.Study,
		mode:      req.Mode,
		planned:   planned,
		objective: st.Objective(),
		startedAt: time.Now().UnixMilli(),
		cancel:    cancel,
		state:     StateRunning,
	}

	m.mu.Lock()
	for _, other := range m.sweeps {
		if other.study == req.Study && other.snapshot().State == StateRunning {
			m.mu.Unlock()
			cancel()
			return Snapshot{}, fmt.Errorf("%w: study %q", domain.ErrSweepRunning, req.Study)
		}
	}
	m.sweeps[rec.id] = rec
	m.mu.Unlock()

	m.logger.Info("Sweep registered",
		zap.String("sweep", rec.id),
		zap.String("study", req.Study),
		zap.String("mode", string(req.Mode)),
		zap.Uint64("planned", planned),
	)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(runCtx, rec, req, trainer, eval)
	}()

	return rec.snapshot(), nil
}

func (m *Manager) run(ctx context.Context, rec *record, req Request, trainer domain.Trainer, eval domain.Evaluator) {
	_, err := m.driver.RunObserved(ctx, req, trainer, eval, rec)
	switch {
	case err == nil:
		rec.finish(StateCompleted, "")
	case errors.Is(err, context.Canceled):
		rec.finish(StateCancelled, "")
	default:
		rec.finish(StateFailed, err.Error())
		m.logger.Warn("Sweep failed",
			zap.String("sweep", rec.id),
			zap.String("study", rec.study),
			zap.Error(err),
		)
	}
}

// Get returns a snapshot of the sweep, scoped to the study.
func (m *Manager) Get(_ context.Context, study, id string) (Snapshot, error) {
	m.mu.Lock()
	rec, ok := m.sweeps[id]
	m.mu.Unlock()
	if !ok || rec.study != study {
		return Snapshot{}, fmt.Errorf("%w: %s", domain.ErrSweepNotFound, id)
	}
	return rec.snapshot(), nil
}

// Cancel requests cooperative cancellation and returns the current
// snapshot. Cancelling a finished sweep is a no-op.
func (m *Manager) Cancel(_ context.Context, study, id string) (Snapshot, error) {
	m.mu.Lock()
	rec, ok := m.sweeps[id]
	m.mu.Unlock()
	if !ok || rec.study != study {
		return Snapshot{}, fmt.Errorf("%w: %s", domain.ErrSweepNotFound, id)
	}
	rec.cancel()
	m.logger.Info("Sweep cancellation requested",
		zap.String("sweep", id),
		zap.String("study", study),
	)
	return rec.snapshot(), nil
}

// List returns snapshots, newest first, optionally filtered by study.
func (m *Manager) List(_ context.Context, study string) []Snapshot {
	m.mu.Lock()
	out := make([]Snapshot, 0, len(m.sweeps))
	for _, rec := range m.sweeps {
		if study != "" && rec.study != study {
			continue
		}
		out = append(out, rec.snapshot())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Shutdown cancels every running sweep and waits for the background
// goroutines to drain, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, rec := range m.sweeps {
		rec.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweep manager shutdown: %w", ctx.Err())
	}
}
