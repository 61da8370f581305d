package health

import "context"

// DBPinger checks trial store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// TrainerChecker probes a remote training provider. Deployments with
// only local benchmark trainers pass nil and skip the check.
type TrainerChecker interface {
	HealthCheck(ctx context.Context) error
}
