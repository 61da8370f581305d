package sweep

import (
	"testing"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/trial"
)

func scoredTrial(t *testing.T, ordinal uint64, score float64) trial.Trial {
	t.Helper()
	cand := candidate.New(ordinal, map[string]param.Value{"lr": param.Float(float64(ordinal) / 10)})
	return trial.Reconstruct(
		"id", "bench", cand,
		trial.StatusScored, score, 1, []float64{score},
		1, 2, "", 4,
	)
}

func TestNewResult_OrdersByOrdinal(t *testing.T) {
	obj, _ := NewObjective("score", GoalMaximize)
	// Completion order scrambled on purpose.
	trials := []trial.Trial{
		scoredTrial(t, 4, 0.2),
		scoredTrial(t, 0, 0.1),
		scoredTrial(t, 2, 0.3),
	}
	failures := []Failure{
		NewFailure(3, "lr=0.3", "boom"),
		NewFailure(1, "lr=0.1", "boom"),
	}

	r := NewResult(obj, trials, failures)

	got := r.Trials()
	for i := 1; i < len(got); i++ {
		if got[i-1].Candidate().Ordinal() > got[i].Candidate().Ordinal() {
			t.Fatalf("trials out of ordinal order: %d before %d",
				got[i-1].Candidate().Ordinal(), got[i].Candidate().Ordinal())
		}
	}

	fs := r.Failures()
	if fs[0].Ordinal() != 1 || fs[1].Ordinal() != 3 {
		t.Errorf("failures out of ordinal order: %d, %d", fs[0].Ordinal(), fs[1].Ordinal())
	}
	if fs[0].Reason() != "boom" || fs[0].Fingerprint() != "lr=0.1" {
		t.Errorf("failure diagnostics lost: %+v", fs[0])
	}
}

func TestResult_BestMaximize(t *testing.T) {
	obj, _ := NewObjective("score", GoalMaximize)
	r := NewResult(obj, []trial.Trial{
		scoredTrial(t, 0, 0.5),
		scoredTrial(t, 1, 0.9),
		scoredTrial(t, 2, 0.7),
	}, nil)

	best, ok := r.Best()
	if !ok {
		t.Fatal("Best() not found")
	}
	if best.Candidate().Ordinal() != 1 {
		t.Errorf("best ordinal = %d, want 1", best.Candidate().Ordinal())
	}
}

func TestResult_BestMinimize(t *testing.T) {
	obj, _ := NewObjective("loss", GoalMinimize)
	r := NewResult(obj, []trial.Trial{
		scoredTrial(t, 0, 0.5),
		scoredTrial(t, 1, 0.2),
		scoredTrial(t, 2, 0.7),
	}, nil)

	best, _ := r.Best()
	if best.Candidate().Ordinal() != 1 {
		t.Errorf("best ordinal = %d, want 1", best.Candidate().Ordinal())
	}
}

// Equal scores keep the earliest candidate, regardless of the order in
// which trials finished.
func TestResult_BestTieKeepsEarliestOrdinal(t *testing.T) {
	obj, _ := NewObjective("score", GoalMaximize)
	r := NewResult(obj, []trial.Trial{
		scoredTrial(t, 5, 0.90),
		scoredTrial(t, 1, 0.90),
		scoredTrial(t, 3, 0.90),
	}, nil)

	best, _ := r.Best()
	if best.Candidate().Ordinal() != 1 {
		t.Errorf("best ordinal = %d, want 1", best.Candidate().Ordinal())
	}
}

func TestResult_BestEmpty(t *testing.T) {
	obj, _ := NewObjective("score", GoalMaximize)
	r := NewResult(obj, nil, nil)
	if _, ok := r.Best(); ok {
		t.Error("Best() on an empty result should report ok=false")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestResult_AccessorsCopy(t *testing.T) {
	obj, _ := NewObjective("score", GoalMaximize)
	r := NewResult(obj, []trial.Trial{scoredTrial(t, 0, 0.5)}, []Failure{NewFailure(1, "", "x")})

	ts := r.Trials()
	ts[0] = scoredTrial(t, 9, 0.1)
	if r.Trials()[0].Candidate().Ordinal() != 0 {
		t.Error("mutation of the returned trials leaked in")
	}

	fs := r.Failures()
	fs[0] = NewFailure(7, "", "y")
	if r.Failures()[0].Ordinal() != 1 {
		t.Error("mutation of the returned failures leaked in")
	}
}
