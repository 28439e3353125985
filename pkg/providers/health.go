package providers

import (
	"context"
	"fmt"
	"time"
)

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// HealthCheck reports the health derived from recent requests. The control
// plane has no cheap unauthenticated ping, so live traffic is the probe.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h := p.GetHealth()
	if h.IsHealthy {
		return nil
	}
	return fmt.Errorf("provider %q unhealthy after %d consecutive failures: %w",
		p.config.Name, h.ConsecutiveFailures, h.LastError)
}

// updateHealth updates the provider's health status after a request.
func (p *HTTPProvider) updateHealth(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.LastCheck = time.Now()
	wasHealthy := p.health.IsHealthy

	if success {
		if !wasHealthy {
			p.logger.Info("provider marked healthy",
				"previous_failures", p.health.ConsecutiveFailures,
			)
		}
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = time.Now()
	} else {
		p.health.ConsecutiveFailures++
		p.health.LastError = err

		// Mark unhealthy after repeated failures (circuit breaker)
		if p.health.ConsecutiveFailures >= p.config.UnhealthyAfter && wasHealthy {
			p.health.IsHealthy = false
			p.logger.Warn("provider marked unhealthy",
				"consecutive_failures", p.health.ConsecutiveFailures,
				"error", err,
			)
		}
	}

	if p.observer != nil && wasHealthy != p.health.IsHealthy {
		p.observer.UpdateProviderHealth(p.config.Name, p.health.IsHealthy)
	}
}

// recordRequest counts one attempt.
func (p *HTTPProvider) recordRequest(success bool) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	if !success {
		p.health.FailedRequests++
	}
}
