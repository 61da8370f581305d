package trial

import (
	"context"

	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// Repository defines the storage contract for trial records.
type Repository interface {
	Create(ctx context.Context, t domtrial.Trial) error
	Update(ctx context.Context, t domtrial.Trial) error
	Get(ctx context.Context, id string) (domtrial.Trial, error)
	ListByStudy(ctx context.Context, study, cursor string, limit int) ([]domtrial.Trial, string, error)
	Leaderboard(ctx context.Context, study string, rev bool, limit int) ([]domtrial.Trial, error)
	CountByStudy(ctx context.Context, study string) (int, error)
}

// StudyReader resolves study definitions for query scoping.
type StudyReader interface {
	Get(ctx context.Context, name string) (domstudy.Study, error)
}

// UsageRecorder observes finished trials for usage accounting.
type UsageRecorder interface {
	RecordTrial(study string, checkpoints int, trainingMillis int64)
}
