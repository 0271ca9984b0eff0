package dedup

import (
	"context"
	"time"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// Service applies the availability policy on top of a Store. A store fault
// never blocks the pipeline: depending on configuration the window check
// degrades to allow (duplicate alerts possible) or deny (alerts suppressed),
// and every degraded decision is logged and counted.
type Service struct {
	store        Store
	onStoreError string
	logger       logger.Logger
}

func NewService(store Store, onStoreError string, log logger.Logger) *Service {
	if onStoreError != constants.FallbackDeny {
		onStoreError = constants.FallbackAllow
	}
	return &Service{
		store:        store,
		onStoreError: onStoreError,
		logger:       log,
	}
}

// AllowOnce reports whether the caller holds the window for key. The returned
// bool is always usable; store faults are resolved by the fallback policy.
func (s *Service) AllowOnce(ctx context.Context, key string, ttl time.Duration) bool {
	start := time.Now()
	allowed, err := s.store.AllowOnce(ctx, key, ttl)
	if err != nil {
		allowed = s.onStoreError == constants.FallbackAllow
		metrics.DedupChecksTotal.WithLabelValues("error").Inc()
		metrics.ObserveDedupDuration(time.Since(start), "error")
		metrics.FallbackUsageTotal.WithLabelValues("dedup", s.onStoreError, "store_error").Inc()
		s.logger.WarnwCtx(ctx, "dedup store unavailable, applying fallback",
			"key", key,
			"fallback", s.onStoreError,
			"error", err)
		return allowed
	}

	status := "suppressed"
	if allowed {
		status = "allowed"
	}
	metrics.DedupChecksTotal.WithLabelValues(status).Inc()
	metrics.ObserveDedupDuration(time.Since(start), status)
	return allowed
}

// RunSweeper periodically removes expired records until ctx is cancelled.
// Backends with native expiry make this a cheap no-op.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Sweep(ctx); err != nil {
				s.logger.Warnw("dedup sweep failed", "error", err)
			}
		}
	}
}

func (s *Service) Close() error {
	return s.store.Close()
}

// CooldownKey scopes an alert cooldown window to one organization, scenario
// and risk level. Tenants never share keys.
func CooldownKey(organizationID, scenarioID string, level models.RiskLevel) string {
	return constants.KeyPrefixCooldown + organizationID + ":" + scenarioID + ":" + string(level)
}

// WarnKey throttles repeated evaluation warnings for one misconfigured rule.
func WarnKey(scenarioID, ruleType string) string {
	return constants.KeyPrefixWarnThrottle + scenarioID + ":" + ruleType
}

// TriggerKey scopes a pattern-trigger firing window to one organization.
func TriggerKey(organizationID, triggerName string) string {
	return constants.KeyPrefixTrigger + organizationID + ":" + triggerName
}
