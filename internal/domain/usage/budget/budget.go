package budget

// Budget tracks compute budget state in checkpoint units.
type Budget struct {
	checkpointsLimit     int64
	checkpointsRemaining int64
	isExhausted          bool
	resetsAt             int64 // unix millis, converted to ISO 8601 at transport layer
}

// New creates a Budget snapshot.
func New(limit, remaining int64, isExhausted bool, resetsAt int64) Budget {
	return Budget{
		checkpointsLimit:     limit,
		checkpointsRemaining: remaining,
		isExhausted:          isExhausted,
		resetsAt:             resetsAt,
	}
}

// CheckpointsLimit returns the checkpoint cap.
func (b Budget) CheckpointsLimit() int64 { return b.checkpointsLimit }

// CheckpointsRemaining returns checkpoints left.
func (b Budget) CheckpointsRemaining() int64 { return b.checkpointsRemaining }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
