package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing; the core
	// store still works and sweeps with local trainers can proceed.
	Degraded Status = "degraded"
	// Unhealthy indicates the trial store is unreachable. Nothing can
	// be read or written, so the instance should be taken out of
	// rotation.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	trainer TrainerChecker
}

// New creates a Service. trainer can be nil.
func New(db DBPinger, trainer TrainerChecker) *Service {
	return &Service{db: db, trainer: trainer}
}

// Check runs health checks against all components. The store outranks
// the trainer: a dead store makes the instance unhealthy, a dead
// trainer only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["store"] = CheckError
		status = Unhealthy
	} else {
		checks["store"] = CheckOK
	}

	if s.trainer != nil {
		if err := s.trainer.HealthCheck(ctx); err != nil {
			checks["trainer"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["trainer"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
