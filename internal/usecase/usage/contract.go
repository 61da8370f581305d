package usage

// BudgetReader provides read-only access to checkpoint budget state.
// The trial runner spends checkpoints; this interface reports how much
// of each window is left. A zero limit means the window is uncapped.
// Callers hold a nil reader when budgets are not configured.
type BudgetReader interface {
	DailyLimit() int64
	MonthlyLimit() int64
	// Used counters are persisted by the tracker and survive restarts,
	// unlike this service's in-process trial stats.
	DailyUsed() int64
	MonthlyUsed() int64
	RemainingDaily() int64
	RemainingMonthly() int64
}
