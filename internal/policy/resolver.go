package policy

import (
	"context"

	"argus/internal/config"
	"argus/internal/evaluate"
	"argus/internal/logger"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/models"
)

// Resolver answers "how should this organization be alerted at this level"
// and "where are this organization's band floors". A missing row is a normal
// condition, not an error: defaults apply.
type Resolver struct {
	repo         Repository
	defaultBands evaluate.Bands
	logger       logger.Logger
}

func NewResolver(repo Repository, cfg config.RiskConfig, log logger.Logger) *Resolver {
	bands := evaluate.Bands{
		MediumFloor:   cfg.DefaultBands.MediumFloor,
		HighFloor:     cfg.DefaultBands.HighFloor,
		CriticalFloor: cfg.DefaultBands.CriticalFloor,
	}
	if bands.MediumFloor <= 0 || bands.HighFloor <= bands.MediumFloor || bands.CriticalFloor <= bands.HighFloor {
		bands = evaluate.DefaultBands()
	}
	return &Resolver{repo: repo, defaultBands: bands, logger: log}
}

// Resolve returns the organization's policy for a risk level. When no row
// exists the hard-coded default applies; a disabled row means "do not
// notify" and resolves to a policy with no channels.
func (r *Resolver) Resolve(ctx context.Context, organizationID string, level models.RiskLevel) (AlertPolicy, error) {
	p, err := r.repo.GetPolicy(ctx, organizationID, level)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return DefaultPolicy(organizationID, level), nil
		}
		return AlertPolicy{}, err
	}
	if !p.Enabled {
		disabled := *p
		disabled.NotificationChannels = nil
		return disabled, nil
	}
	return *p, nil
}

// ResolveBands returns the organization's band floors, or the platform
// defaults when the organization has none configured. On a store error the
// defaults apply as well, so classification keeps running.
func (r *Resolver) ResolveBands(ctx context.Context, organizationID string) evaluate.Bands {
	b, err := r.repo.GetBands(ctx, organizationID)
	if err != nil {
		if !pkgerrors.IsNotFound(err) {
			r.logger.WarnwCtx(ctx, "failed to load risk bands, using platform defaults",
				"organization_id", organizationID,
				"error", err)
		}
		return r.defaultBands
	}
	return evaluate.Bands{
		MediumFloor:   b.MediumFloor,
		HighFloor:     b.HighFloor,
		CriticalFloor: b.CriticalFloor,
	}
}
