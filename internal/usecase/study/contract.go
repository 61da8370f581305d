package study

import (
	"context"

	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
)

// Repository defines the storage contract for study definitions.
type Repository interface {
	Create(ctx context.Context, st domstudy.Study) error
	Get(ctx context.Context, name string) (domstudy.Study, error)
	List(ctx context.Context) ([]domstudy.Study, error)
	Delete(ctx context.Context, name string) error
}

// TrialCleaner removes the trial records of a deleted study.
type TrialCleaner interface {
	DeleteByStudy(ctx context.Context, study string) (int, error)
}
