package sweep

import (
	"context"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// Evaluator runs one candidate through the full trial lifecycle and
// persists every transition. Train/eval failures come back as
// domain.TrainingError; anything else aborts the sweep.
type Evaluator interface {
	Evaluate(
		ctx context.Context,
		st domstudy.Study,
		cand candidate.Candidate,
		trainer domain.Trainer,
		eval domain.Evaluator,
	) (domtrial.Trial, error)
}

// StudyReader resolves study definitions by name.
type StudyReader interface {
	Get(ctx context.Context, name string) (domstudy.Study, error)
}

// BudgetChecker gates candidate dispatch on the compute budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
}

// Observer receives driver progress events. Implementations must be
// safe for concurrent use: dispatch and finish events arrive from the
// producer and worker goroutines respectively.
type Observer interface {
	CandidateDispatched(cand candidate.Candidate)
	TrialFinished(t domtrial.Trial)
}
