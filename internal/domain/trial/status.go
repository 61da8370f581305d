// Package trial defines the trial aggregate: one candidate's journey
// through the training lifecycle, from pending to a terminal status.
package trial

// Status is a trial lifecycle state.
type Status string

// Trial statuses. The legal flow is pending -> training -> one of
// {converged, stopped_early, failed}; converged and stopped_early then
// move to scored once the final value is recorded. Failed and scored
// are terminal.
const (
	StatusPending      Status = "pending"
	StatusTraining     Status = "training"
	StatusConverged    Status = "converged"
	StatusStoppedEarly Status = "stopped_early"
	StatusFailed       Status = "failed"
	StatusScored       Status = "scored"
)

// IsValid reports whether the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusTraining, StatusConverged, StatusStoppedEarly, StatusFailed, StatusScored:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusScored
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusTraining || next == StatusFailed
	case StatusTraining:
		return next == StatusConverged || next == StatusStoppedEarly || next == StatusFailed
	case StatusConverged, StatusStoppedEarly:
		return next == StatusScored || next == StatusFailed
	default:
		return false
	}
}
