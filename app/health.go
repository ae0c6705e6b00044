package app

import (
	"context"
	"fmt"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/recovery"
)

// Probe status values.
const (
	healthyStatus   = "healthy"
	degradedStatus  = "degraded"
	unhealthyStatus = "unhealthy"
)

// HealthStatus captures the outcome of one readiness probe.
type HealthStatus struct {
	Name     string
	Status   string
	Details  map[string]any
	Err      error
	Critical bool
}

// HealthProbe exposes a uniform interface for readiness probes.
type HealthProbe interface {
	Run(ctx context.Context) HealthStatus
}

type healthProbeFunc struct {
	name     string
	critical bool
	fn       func(ctx context.Context) (string, map[string]any, error)
}

func (h healthProbeFunc) Run(ctx context.Context) HealthStatus {
	status, details, err := h.fn(ctx)
	if details == nil {
		details = map[string]any{}
	}
	return HealthStatus{
		Name:     h.name,
		Status:   status,
		Details:  details,
		Err:      err,
		Critical: h.critical,
	}
}

// cacheHealthProbe surfaces the cache manager's own health check.
func cacheHealthProbe(manager *cache.Manager) HealthProbe {
	return healthProbeFunc{
		name:     "cache",
		critical: true,
		fn: func(context.Context) (string, map[string]any, error) {
			health := manager.HealthStatus()
			stats := manager.Stats()

			details := map[string]any{
				"entries":  stats.Entries,
				"hit_rate": stats.HitRate,
				"avg_get":  stats.AvgGet.String(),
			}
			if len(health.Issues) > 0 {
				details["issues"] = health.Issues
			}

			var err error
			if health.Status == cache.StatusUnhealthy {
				err = fmt.Errorf("cache unhealthy: %v", health.Issues)
			}
			return health.Status, details, err
		},
	}
}

// recoveryHealthProbe reports degraded when recovery failures pile up
// past the configured error-rate threshold.
func recoveryHealthProbe(handler *recovery.Handler, errorRateThreshold int) HealthProbe {
	return healthProbeFunc{
		name: "recovery",
		fn: func(context.Context) (string, map[string]any, error) {
			analytics := handler.Analytics()

			details := map[string]any{
				"total_errors":       analytics.TotalErrors,
				"total_occurrences":  analytics.TotalOccurrences,
				"recovery_successes": analytics.RecoverySuccesses,
				"recovery_failures":  analytics.RecoveryFailures,
				"alerts_fired":       analytics.AlertsFired,
			}

			if errorRateThreshold > 0 && analytics.RecoveryFailures > errorRateThreshold {
				return degradedStatus, details, nil
			}
			return healthyStatus, details, nil
		},
	}
}

// Health runs every probe. The aggregate is unhealthy when any critical
// probe is unhealthy, degraded when any probe reports a non-healthy
// status.
func (a *App) Health(ctx context.Context) (string, []HealthStatus) {
	statuses := make([]HealthStatus, 0, len(a.probes))
	aggregate := healthyStatus

	for _, probe := range a.probes {
		status := probe.Run(ctx)
		statuses = append(statuses, status)

		switch {
		case status.Status == unhealthyStatus && status.Critical:
			aggregate = unhealthyStatus
		case status.Status != healthyStatus && aggregate == healthyStatus:
			aggregate = degradedStatus
		}
	}
	return aggregate, statuses
}
