package trial

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
)

// Trial is one evaluation of a candidate within a study. It is
// immutable: transition methods validate the move against the status
// machine and return an updated copy with a bumped revision, never
// mutating the receiver. A trial carries a score only after it has
// been completed; failed trials never carry one.
type Trial struct {
	id          string
	study       string
	cand        candidate.Candidate
	status      Status
	score       float64
	checkpoints int
	history     []float64
	startedAt   int64 // unix millis, 0 until Begin
	finishedAt  int64 // unix millis, 0 until terminal
	failure     string
	revision    int
}

// New creates a pending trial for a candidate.
func New(study string, cand candidate.Candidate) (Trial, error) {
	if study == "" {
		return Trial{}, fmt.Errorf("trial requires a study name")
	}
	return Trial{
		id:       uuid.NewString(),
		study:    study,
		cand:     cand,
		status:   StatusPending,
		revision: 1,
	}, nil
}

// Reconstruct restores a trial from storage without validation.
func Reconstruct(
	id, study string,
	cand candidate.Candidate,
	status Status,
	score float64,
	checkpoints int,
	history []float64,
	startedAt, finishedAt int64,
	failure string,
	revision int,
) Trial {
	var hist []float64
	if len(history) > 0 {
		hist = make([]float64, len(history))
		copy(hist, history)
	}
	return Trial{
		id:          id,
		study:       study,
		cand:        cand,
		status:      status,
		score:       score,
		checkpoints: checkpoints,
		history:     hist,
		startedAt:   startedAt,
		finishedAt:  finishedAt,
		failure:     failure,
		revision:    revision,
	}
}

// ID returns the trial identifier.
func (t Trial) ID() string { return t.id }

// Study returns the owning study name.
func (t Trial) Study() string { return t.study }

// Candidate returns the evaluated assignment.
func (t Trial) Candidate() candidate.Candidate { return t.cand }

// Status returns the current lifecycle state.
func (t Trial) Status() Status { return t.status }

// Score returns the recorded final value. Only meaningful for
// converged, stopped_early and scored trials.
func (t Trial) Score() float64 { return t.score }

// Checkpoints returns how many checkpoint evaluations ran.
func (t Trial) Checkpoints() int { return t.checkpoints }

// History returns a copy of the per-checkpoint metric values.
func (t Trial) History() []float64 {
	if len(t.history) == 0 {
		return nil
	}
	cp := make([]float64, len(t.history))
	copy(cp, t.history)
	return cp
}

// StartedAt returns the training start in unix millis, 0 if unstarted.
func (t Trial) StartedAt() int64 { return t.startedAt }

// FinishedAt returns the terminal timestamp in unix millis, 0 if running.
func (t Trial) FinishedAt() int64 { return t.finishedAt }

// Duration returns wall time between start and finish.
func (t Trial) Duration() time.Duration {
	if t.startedAt == 0 || t.finishedAt == 0 {
		return 0
	}
	return time.Duration(t.finishedAt-t.startedAt) * time.Millisecond
}

// Failure returns the failure reason for failed trials.
func (t Trial) Failure() string { return t.failure }

// Revision returns the optimistic concurrency revision.
func (t Trial) Revision() int { return t.revision }

// Begin moves the trial into training.
func (t Trial) Begin() (Trial, error) {
	if err := t.check(StatusTraining); err != nil {
		return Trial{}, err
	}
	t.status = StatusTraining
	t.startedAt = time.Now().UnixMilli()
	t.revision++
	return t, nil
}

// Complete finishes training with a final value. The status must be
// converged or stopped_early; the checkpoint history becomes part of
// the trial record.
func (t Trial) Complete(status Status, score float64, history []float64) (Trial, error) {
	if status != StatusConverged && status != StatusStoppedEarly {
		return Trial{}, fmt.Errorf("complete requires converged or stopped_early, got %q", status)
	}
	if err := t.check(status); err != nil {
		return Trial{}, err
	}
	t.status = status
	t.score = score
	t.checkpoints = len(history)
	t.history = make([]float64, len(history))
	copy(t.history, history)
	t.finishedAt = time.Now().UnixMilli()
	t.revision++
	return t, nil
}

// Fail marks the trial failed with a reason. Legal from any non-terminal
// state, so both setup errors and mid-training errors land here. Failed
// trials never carry a score.
func (t Trial) Fail(reason string) (Trial, error) {
	if t.status.Terminal() {
		return Trial{}, fmt.Errorf("cannot fail a %s trial", t.status)
	}
	t.status = StatusFailed
	t.failure = reason
	t.score = 0
	t.finishedAt = time.Now().UnixMilli()
	t.revision++
	return t, nil
}

// MarkScored records that the final value has been published to the
// leaderboard. Legal only from converged or stopped_early.
func (t Trial) MarkScored() (Trial, error) {
	if err := t.check(StatusScored); err != nil {
		return Trial{}, err
	}
	t.status = StatusScored
	t.revision++
	return t, nil
}

func (t Trial) check(next Status) error {
	if !t.status.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s", t.status, next)
	}
	return nil
}
