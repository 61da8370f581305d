// Package study defines the study aggregate: a named search space
// bound to an objective and an early stopping policy. Trials and
// leaderboards hang off a study by name.
package study

import (
	"errors"
	"time"

	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	"github.com/kailas-cloud/tunex/internal/domain/sweep"
)

// Study is an immutable definition of what to optimize and over what.
// The study name is the space name; storage keys derive from it.
type Study struct {
	space     space.Space
	objective sweep.Objective
	policy    stopping.Policy
	createdAt int64 // unix millis
	revision  int
}

// New creates a study over a validated space. The objective and policy
// are value objects validated by their own constructors.
func New(sp space.Space, obj sweep.Objective, pol stopping.Policy) (Study, error) {
	if sp.Len() == 0 {
		return Study{}, errors.New("study requires a non-empty space")
	}
	return Study{
		space:     sp,
		objective: obj,
		policy:    pol,
		createdAt: time.Now().UnixMilli(),
		revision:  1,
	}, nil
}

// Reconstruct restores a study from storage without validation.
func Reconstruct(sp space.Space, obj sweep.Objective, pol stopping.Policy, createdAt int64, revision int) Study {
	return Study{space: sp, objective: obj, policy: pol, createdAt: createdAt, revision: revision}
}

// Name returns the study name.
func (s Study) Name() string { return s.space.Name() }

// Space returns the search space.
func (s Study) Space() space.Space { return s.space }

// Objective returns the optimization objective.
func (s Study) Objective() sweep.Objective { return s.objective }

// Policy returns the early stopping policy.
func (s Study) Policy() stopping.Policy { return s.policy }

// CreatedAt returns the creation time in unix millis.
func (s Study) CreatedAt() int64 { return s.createdAt }

// Revision returns the optimistic concurrency revision.
func (s Study) Revision() int { return s.revision }
