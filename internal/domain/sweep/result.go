package sweep

import (
	"sort"

	"github.com/kailas-cloud/tunex/internal/domain/trial"
)

// Failure records one candidate that could not be scored.
type Failure struct {
	ordinal     uint64
	fingerprint string
	reason      string
}

// NewFailure creates a failure diagnostic.
func NewFailure(ordinal uint64, fingerprint, reason string) Failure {
	return Failure{ordinal: ordinal, fingerprint: fingerprint, reason: reason}
}

// Ordinal returns the failed candidate's ordinal.
func (f Failure) Ordinal() uint64 { return f.ordinal }

// Fingerprint returns the failed candidate's fingerprint.
func (f Failure) Fingerprint() string { return f.fingerprint }

// Reason returns the failure message.
func (f Failure) Reason() string { return f.reason }

// Result aggregates a finished run: scored trials ordered by candidate
// ordinal plus failure diagnostics. Accessors return copies, so a
// Result can be shared across goroutines once built.
type Result struct {
	objective Objective
	trials    []trial.Trial
	failures  []Failure
}

// NewResult builds a result. Trials and failures are cloned and sorted
// by ordinal; completion order does not leak into the result.
func NewResult(objective Objective, trials []trial.Trial, failures []Failure) Result {
	ts := make([]trial.Trial, len(trials))
	copy(ts, trials)
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].Candidate().Ordinal() < ts[j].Candidate().Ordinal()
	})

	fs := make([]Failure, len(failures))
	copy(fs, failures)
	sort.Slice(fs, func(i, j int) bool { return fs[i].ordinal < fs[j].ordinal })

	return Result{objective: objective, trials: ts, failures: fs}
}

// Objective returns the objective the run optimized.
func (r Result) Objective() Objective { return r.objective }

// Trials returns a copy of the scored trials in ordinal order.
func (r Result) Trials() []trial.Trial {
	cp := make([]trial.Trial, len(r.trials))
	copy(cp, r.trials)
	return cp
}

// Failures returns a copy of the failure diagnostics in ordinal order.
func (r Result) Failures() []Failure {
	cp := make([]Failure, len(r.failures))
	copy(cp, r.failures)
	return cp
}

// Len returns the number of scored trials.
func (r Result) Len() int { return len(r.trials) }

// Best returns the winning trial under the objective. Scanning in
// ordinal order with a strict comparison makes the earliest candidate
// win ties. ok is false when no trial was scored.
func (r Result) Best() (trial.Trial, bool) {
	if len(r.trials) == 0 {
		return trial.Trial{}, false
	}
	best := r.trials[0]
	for _, t := range r.trials[1:] {
		if r.objective.Better(t.Score(), best.Score()) {
			best = t
		}
	}
	return best, true
}
