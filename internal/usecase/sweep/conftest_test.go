package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// --- Mocks ---

type mockStudies struct {
	getFunc func(ctx context.Context, name string) (domstudy.Study, error)
}

func (m *mockStudies) Get(ctx context.Context, name string) (domstudy.Study, error) {
	return m.getFunc(ctx, name)
}

// stubRunner fakes the trial runner. evalFunc builds the trial; calls
// records evaluated ordinals in completion order.
type stubRunner struct {
	mu       sync.Mutex
	calls    []uint64
	evalFunc func(ctx context.Context, st domstudy.Study, cand candidate.Candidate) (domtrial.Trial, error)
}

func (r *stubRunner) Evaluate(
	ctx context.Context,
	st domstudy.Study,
	cand candidate.Candidate,
	_ domain.Trainer,
	_ domain.Evaluator,
) (domtrial.Trial, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cand.Ordinal())
	r.mu.Unlock()
	return r.evalFunc(ctx, st, cand)
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type mockBudget struct {
	mu      sync.Mutex
	allowed int
	err     error
	checks  int
}

func (b *mockBudget) Check(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checks++
	if b.checks > b.allowed {
		return b.err
	}
	return nil
}

type countingObserver struct {
	mu         sync.Mutex
	dispatched int
	finished   int
}

func (o *countingObserver) CandidateDispatched(candidate.Candidate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dispatched++
}

func (o *countingObserver) TrialFinished(domtrial.Trial) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
}

// --- Helpers ---

// testStudy builds a 2x3 enumerable study maximizing "accuracy".
func testStudy(t *testing.T, name string) domstudy.Study {
	t.Helper()
	lr, err := param.NewChoice("lr", []param.Value{param.Float(0.01), param.Float(0.1)})
	if err != nil {
		t.Fatalf("NewChoice(lr): %v", err)
	}
	units, err := param.NewChoice("units", []param.Value{param.Int(32), param.Int(64), param.Int(128)})
	if err != nil {
		t.Fatalf("NewChoice(units): %v", err)
	}
	sp, err := space.New(name, []param.Param{lr, units})
	if err != nil {
		t.Fatalf("space.New: %v", err)
	}
	obj, err := domsweep.NewObjective("accuracy", domsweep.GoalMaximize)
	if err != nil {
		t.Fatalf("NewObjective: %v", err)
	}
	st, err := domstudy.New(sp, obj, stopping.Disabled())
	if err != nil {
		t.Fatalf("study.New: %v", err)
	}
	return st
}

// continuousStudy builds a study whose space cannot be enumerated.
func continuousStudy(t *testing.T, name string) domstudy.Study {
	t.Helper()
	lr, err := param.NewLogUniform("lr", 1e-4, 1e-1)
	if err != nil {
		t.Fatalf("NewLogUniform: %v", err)
	}
	sp, err := space.New(name, []param.Param{lr})
	if err != nil {
		t.Fatalf("space.New: %v", err)
	}
	obj, err := domsweep.NewObjective("loss", domsweep.GoalMinimize)
	if err != nil {
		t.Fatalf("NewObjective: %v", err)
	}
	st, err := domstudy.New(sp, obj, stopping.Disabled())
	if err != nil {
		t.Fatalf("study.New: %v", err)
	}
	return st
}

func scoredTrial(t *testing.T, study string, cand candidate.Candidate, score float64) domtrial.Trial {
	t.Helper()
	tr, err := domtrial.New(study, cand)
	if err != nil {
		t.Fatalf("trial.New: %v", err)
	}
	tr, err = tr.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	tr, err = tr.Complete(domtrial.StatusConverged, score, []float64{score})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	tr, err = tr.MarkScored()
	if err != nil {
		t.Fatalf("MarkScored: %v", err)
	}
	return tr
}

func failedTrial(t *testing.T, study string, cand candidate.Candidate, reason string) domtrial.Trial {
	t.Helper()
	tr, err := domtrial.New(study, cand)
	if err != nil {
		t.Fatalf("trial.New: %v", err)
	}
	tr, err = tr.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	tr, err = tr.Fail(reason)
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	return tr
}

// newTestService wires a driver over a single fixed study.
func newTestService(t *testing.T, st domstudy.Study, runner *stubRunner) *Service {
	t.Helper()
	studies := &mockStudies{
		getFunc: func(_ context.Context, name string) (domstudy.Study, error) {
			if name != st.Name() {
				return domstudy.Study{}, domain.ErrStudyNotFound
			}
			return st, nil
		},
	}
	return New(studies, runner, zap.NewNop())
}

// nopTrainer satisfies the trainer/evaluator arguments for runs whose
// runner is stubbed out.
func nopTrainer() *domain.FuncTrainer {
	return domain.NewFuncTrainer(func(context.Context, candidate.Candidate) (float64, error) {
		return 0, nil
	})
}

// waitState polls the manager until the sweep reaches the wanted state.
func waitState(t *testing.T, m *Manager, study, id string, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Get(context.Background(), study, id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if snap.State == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("sweep %s did not reach state %q", id, want)
	return Snapshot{}
}
