package tunex

import (
	"context"

	healthuc "github.com/kailas-cloud/tunex/internal/usecase/health"
)

// HealthStatus is the aggregated backend health. Status is "ok",
// "degraded" (an optional trainer probe failed) or "error" (the trial
// store is unreachable). With the default in-memory store it is always
// "ok"; the probe earns its keep when the client points at Valkey.
type HealthStatus struct {
	Status string
	Checks map[string]string // component → "ok"/"error"
}

// OK reports whether every probe passed.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Health probes the store behind the client.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
