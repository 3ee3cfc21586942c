package hybridsearch

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
)

// HealthStatus represents the aggregated health of the search backends.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Serving reports whether searches can run. A degraded client still serves
// keyword results.
func (h HealthStatus) Serving() bool {
	return h.Status != string(healthuc.Unhealthy)
}

// Health checks the lexical and vector backends. A vector failure reports "degraded".
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	status := statusOK
	switch report.Status {
	case healthuc.Degraded:
		status = statusDegraded
	case healthuc.Unhealthy:
		status = statusError
	}
	c.obs.observe("health", status, start, nil)

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
