package domain

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
)

var (
	// ErrInvalidSpace signals a malformed hyperparameter space declaration.
	ErrInvalidSpace = errors.New("invalid hyperparameter space")
	// ErrInvalidPolicy signals an invalid early-stopping policy.
	ErrInvalidPolicy = errors.New("invalid stopping policy")
	// ErrSearchExhausted signals that every candidate in a sweep failed.
	ErrSearchExhausted = errors.New("search exhausted: all candidates failed")
	// ErrStudyNotFound signals a missing study.
	ErrStudyNotFound = errors.New("study not found")
	// ErrStudyExists signals a duplicate study.
	ErrStudyExists = errors.New("study already exists")
	// ErrTrialNotFound signals a missing trial.
	ErrTrialNotFound = errors.New("trial not found")
	// ErrSweepNotFound signals a missing sweep.
	ErrSweepNotFound = errors.New("sweep not found")
	// ErrSweepRunning signals that the study already has an active sweep.
	ErrSweepRunning = errors.New("sweep already running")
	// ErrInvalidCursor signals a malformed pagination cursor.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrRevisionConflict signals an optimistic locking conflict.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrBudgetExceeded signals an exhausted compute budget.
	ErrBudgetExceeded = errors.New("compute budget exceeded")
	// ErrTrainerProviderError signals a training provider failure.
	ErrTrainerProviderError = errors.New("trainer provider error")
	// ErrTrainerNotFound signals an unknown trainer name.
	ErrTrainerNotFound = errors.New("trainer not found")
)

// TrainingError wraps a train/eval failure with the offending candidate
// so the caller can skip it without aborting the whole sweep.
type TrainingError struct {
	Candidate candidate.Candidate
	Err       error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("candidate %d (%s): %v", e.Candidate.Ordinal(), e.Candidate.Fingerprint(), e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }

// NewTrainingError tags an evaluation failure with its candidate.
func NewTrainingError(c candidate.Candidate, err error) error {
	return &TrainingError{Candidate: c, Err: err}
}

// RevisionConflictError wraps ErrRevisionConflict with the current resource revision.
type RevisionConflictError struct {
	CurrentRevision int
}

func (e *RevisionConflictError) Error() string {
	return fmt.Sprintf("%s: current revision is %d", ErrRevisionConflict.Error(), e.CurrentRevision)
}

func (e *RevisionConflictError) Unwrap() error { return ErrRevisionConflict }

// NewRevisionConflict creates a revision conflict error.
func NewRevisionConflict(currentRevision int) error {
	return &RevisionConflictError{CurrentRevision: currentRevision}
}
