package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is down; searches still work.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component is down.
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

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name     string
	checker  Checker
	critical bool
}

// Service coordinates health checks.
type Service struct {
	components []component
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Service with no components.
func New(logger *zap.Logger) *Service {
	return &Service{timeout: DefaultCheckTimeout, logger: logger}
}

// WithTimeout overrides the per-component timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Critical registers a component whose failure makes the service unhealthy.
// A nil checker is ignored.
func (s *Service) Critical(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c, critical: true})
	}
	return s
}

// Optional registers a component whose failure only degrades the service.
// A nil checker is ignored.
func (s *Service) Optional(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c})
	}
	return s
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.components))
		status = Healthy
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.components {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			err := c.checker.HealthCheck(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				checks[c.name] = CheckOK
				return nil
			}
			s.logger.Warn("Health check failed", zap.String("component", c.name), zap.Error(err))
			checks[c.name] = CheckError
			switch {
			case c.critical:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
