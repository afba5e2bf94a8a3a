package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/ports"
)

const defaultProbeTimeout = 2 * time.Second

type HealthService struct {
	service      string
	checks       map[string]ports.HealthChecker
	probeTimeout time.Duration
	now          func() time.Time
}

func NewHealthService(service string, checks map[string]ports.HealthChecker) *HealthService {
	copied := make(map[string]ports.HealthChecker, len(checks))
	for name, check := range checks {
		copied[name] = check
	}
	return &HealthService{
		service:      service,
		checks:       copied,
		probeTimeout: defaultProbeTimeout,
		now:          time.Now,
	}
}

// Check probes every collaborator concurrently. All ok is healthy, all failed
// is unhealthy, anything in between is degraded.
func (s *HealthService) Check(ctx context.Context) domain.HealthReport {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	// Probes do not cancel each other: one collaborator being down must not
	// mark the others failed.
	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		check := s.checks[name]
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
			defer cancel()

			if check == nil {
				errs[i] = errors.New("handle is not initialized")
			} else if err := check.Check(probeCtx); err != nil {
				errs[i] = err
			}
			if errs[i] != nil {
				return fmt.Errorf("%s: %w", name, errs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("health_check_failed", "first_error", err)
	}

	results := make(map[string]string, len(names))
	failed := 0
	for i, name := range names {
		if errs[i] != nil {
			results[name] = domain.CheckFailed
			failed++
			continue
		}
		results[name] = domain.CheckOK
	}

	status := domain.HealthHealthy
	switch {
	case len(names) > 0 && failed == len(names):
		status = domain.HealthUnhealthy
	case failed > 0:
		status = domain.HealthDegraded
	}

	return domain.HealthReport{
		Status:    status,
		Service:   s.service,
		Timestamp: s.now().UTC(),
		Checks:    results,
	}
}
