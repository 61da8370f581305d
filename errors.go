package tunex

import "github.com/kailas-cloud/tunex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidSpace     = domain.ErrInvalidSpace
	ErrInvalidPolicy    = domain.ErrInvalidPolicy
	ErrSearchExhausted  = domain.ErrSearchExhausted
	ErrStudyNotFound    = domain.ErrStudyNotFound
	ErrStudyExists      = domain.ErrStudyExists
	ErrTrialNotFound    = domain.ErrTrialNotFound
	ErrInvalidCursor    = domain.ErrInvalidCursor
	ErrRevisionConflict = domain.ErrRevisionConflict
	ErrBudgetExceeded   = domain.ErrBudgetExceeded
)
