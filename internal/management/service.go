package management

import (
	"context"
	"errors"

	"argus/internal/logger"
	"argus/internal/policy"
	"argus/internal/scenario"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/models"
)

// Service is the management API's transactional surface. Every mutation
// validates, persists, then announces the change on the config topic so the
// alerting fleet reloads.
type Service interface {
	CreateScenario(ctx context.Context, req CreateScenarioRequest) (*scenario.Scenario, error)
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
	ListScenarios(ctx context.Context, organizationID string) ([]scenario.Scenario, error)
	UpdateScenario(ctx context.Context, id string, req UpdateScenarioRequest) (*scenario.Scenario, error)
	DeleteScenario(ctx context.Context, id string) error

	AddRule(ctx context.Context, scenarioID string, req CreateRuleRequest) (*scenario.Rule, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*scenario.Rule, error)
	DeleteRule(ctx context.Context, id string) error

	CreateBinding(ctx context.Context, req CreateBindingRequest) (*scenario.CameraBinding, error)
	ListBindings(ctx context.Context, scenarioID string) ([]scenario.CameraBinding, error)
	UpdateBinding(ctx context.Context, id string, req UpdateBindingRequest) (*scenario.CameraBinding, error)
	DeleteBinding(ctx context.Context, id string) error

	CreatePolicy(ctx context.Context, req CreatePolicyRequest) (*policy.AlertPolicy, error)
	ListPolicies(ctx context.Context, organizationID string) ([]policy.AlertPolicy, error)
	UpdatePolicy(ctx context.Context, id string, req UpdatePolicyRequest) (*policy.AlertPolicy, error)
	DeletePolicy(ctx context.Context, id string) error
	SeedPolicies(ctx context.Context, req SeedPoliciesRequest) ([]policy.AlertPolicy, error)

	GetBands(ctx context.Context, organizationID string) (*policy.RiskBands, error)
	UpsertBands(ctx context.Context, req UpsertBandsRequest) (*policy.RiskBands, error)
}

type service struct {
	repo       Repository
	policyRepo policy.Repository
	notifier   *ConfigEventProducer
	logger     logger.Logger
}

func NewService(repo Repository, policyRepo policy.Repository, notifier *ConfigEventProducer, log logger.Logger) Service {
	return &service{
		repo:       repo,
		policyRepo: policyRepo,
		notifier:   notifier,
		logger:     log,
	}
}

func (s *service) CreateScenario(ctx context.Context, req CreateScenarioRequest) (*scenario.Scenario, error) {
	if err := ValidateScenario(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sc := &scenario.Scenario{
		OrganizationID:    req.OrganizationID,
		Module:            req.Module,
		ScenarioType:      req.ScenarioType,
		Name:              req.Name,
		Description:       req.Description,
		Enabled:           getEnabledValue(req.Enabled),
		SeverityThreshold: req.SeverityThreshold,
		Config:            req.Config,
	}
	for _, r := range req.Rules {
		sc.Rules = append(sc.Rules, ruleFromRequest(r))
		if !IsKnownRuleType(r.RuleType) {
			s.logger.Warnw("scenario created with rule type the evaluator does not support",
				"rule_type", r.RuleType, "scenario", sc.Name)
		}
	}

	if err := s.repo.CreateScenario(ctx, sc); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeScenarioUpdated, models.ActionCreate, sc.OrganizationID, sc.ID)
	return sc, nil
}

func (s *service) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	sc, err := s.repo.GetScenario(ctx, id)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return sc, nil
}

func (s *service) ListScenarios(ctx context.Context, organizationID string) ([]scenario.Scenario, error) {
	if organizationID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "organization_id query parameter is required")
	}
	scenarios, err := s.repo.ListScenarios(ctx, organizationID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return scenarios, nil
}

func (s *service) UpdateScenario(ctx context.Context, id string, req UpdateScenarioRequest) (*scenario.Scenario, error) {
	if err := ValidateUpdateScenario(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sc, err := s.repo.GetScenario(ctx, id)
	if err != nil {
		return nil, wrapInternal(err)
	}

	if req.Name != nil {
		sc.Name = *req.Name
	}
	if req.Description != nil {
		sc.Description = *req.Description
	}
	if req.Enabled != nil {
		sc.Enabled = *req.Enabled
	}
	if req.SeverityThreshold != nil {
		sc.SeverityThreshold = *req.SeverityThreshold
	}
	if req.Config != nil {
		sc.Config = *req.Config
	}

	if err := s.repo.UpdateScenario(ctx, sc); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeScenarioUpdated, models.ActionUpdate, sc.OrganizationID, sc.ID)
	return sc, nil
}

func (s *service) DeleteScenario(ctx context.Context, id string) error {
	sc, err := s.repo.GetScenario(ctx, id)
	if err != nil {
		return wrapInternal(err)
	}
	if err := s.repo.DeleteScenario(ctx, id); err != nil {
		return wrapInternal(err)
	}
	s.publishConfigEvent(ctx, models.EventTypeScenarioUpdated, models.ActionDelete, sc.OrganizationID, id)
	return nil
}

func (s *service) AddRule(ctx context.Context, scenarioID string, req CreateRuleRequest) (*scenario.Rule, error) {
	if err := ValidateRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sc, err := s.repo.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	rule := ruleFromRequest(req)
	rule.ScenarioID = scenarioID
	if err := s.repo.CreateRule(ctx, &rule); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeScenarioUpdated, models.ActionUpdate, sc.OrganizationID, scenarioID)
	return &rule, nil
}

func (s *service) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*scenario.Rule, error) {
	if err := ValidateUpdateRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, wrapInternal(err)
	}

	if req.RuleType != nil {
		rule.RuleType = *req.RuleType
	}
	if req.RuleValue != nil {
		rule.RuleValue = *req.RuleValue
	}
	if req.Weight != nil {
		rule.Weight = *req.Weight
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Order != nil {
		rule.Order = *req.Order
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeScenarioUpdated, models.ActionUpdate, "", rule.ScenarioID)
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return wrapInternal(err)
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return wrapInternal(err)
	}
	s.publishConfigEvent(ctx, models.EventTypeScenarioUpdated, models.ActionDelete, "", rule.ScenarioID)
	return nil
}

func (s *service) CreateBinding(ctx context.Context, req CreateBindingRequest) (*scenario.CameraBinding, error) {
	sc, err := s.repo.GetScenario(ctx, req.ScenarioID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	binding := &scenario.CameraBinding{
		CameraID:             req.CameraID,
		ScenarioID:           req.ScenarioID,
		Enabled:              getEnabledValue(req.Enabled),
		CameraSpecificConfig: req.CameraSpecificConfig,
	}
	if err := s.repo.CreateBinding(ctx, binding); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeBindingUpdated, models.ActionCreate, sc.OrganizationID, binding.ID)
	return binding, nil
}

func (s *service) ListBindings(ctx context.Context, scenarioID string) ([]scenario.CameraBinding, error) {
	bindings, err := s.repo.ListBindings(ctx, scenarioID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return bindings, nil
}

func (s *service) UpdateBinding(ctx context.Context, id string, req UpdateBindingRequest) (*scenario.CameraBinding, error) {
	binding, err := s.repo.GetBinding(ctx, id)
	if err != nil {
		return nil, wrapInternal(err)
	}

	if req.Enabled != nil {
		binding.Enabled = *req.Enabled
	}
	if req.CameraSpecificConfig != nil {
		binding.CameraSpecificConfig = *req.CameraSpecificConfig
	}

	if err := s.repo.UpdateBinding(ctx, binding); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeBindingUpdated, models.ActionUpdate, "", binding.ID)
	return binding, nil
}

func (s *service) DeleteBinding(ctx context.Context, id string) error {
	if err := s.repo.DeleteBinding(ctx, id); err != nil {
		return wrapInternal(err)
	}
	s.publishConfigEvent(ctx, models.EventTypeBindingUpdated, models.ActionDelete, "", id)
	return nil
}

func (s *service) CreatePolicy(ctx context.Context, req CreatePolicyRequest) (*policy.AlertPolicy, error) {
	if err := ValidatePolicy(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	p := &policy.AlertPolicy{
		OrganizationID:       req.OrganizationID,
		RiskLevel:            req.RiskLevel,
		CooldownMinutes:      req.CooldownMinutes,
		NotificationChannels: req.NotificationChannels,
		Enabled:              getEnabledValue(req.Enabled),
	}
	if err := s.policyRepo.CreatePolicy(ctx, p); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypePolicyUpdated, models.ActionCreate, p.OrganizationID, p.ID)
	return p, nil
}

func (s *service) ListPolicies(ctx context.Context, organizationID string) ([]policy.AlertPolicy, error) {
	if organizationID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "organization_id query parameter is required")
	}
	policies, err := s.policyRepo.ListPolicies(ctx, organizationID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return policies, nil
}

func (s *service) UpdatePolicy(ctx context.Context, id string, req UpdatePolicyRequest) (*policy.AlertPolicy, error) {
	if err := ValidateUpdatePolicy(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	// Policies are keyed by org+level in the resolver; load through the list
	// to find the row being updated.
	p, err := s.findPolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CooldownMinutes != nil {
		p.CooldownMinutes = *req.CooldownMinutes
	}
	if req.NotificationChannels != nil {
		p.NotificationChannels = *req.NotificationChannels
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}

	if err := s.policyRepo.UpdatePolicy(ctx, p); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypePolicyUpdated, models.ActionUpdate, p.OrganizationID, p.ID)
	return p, nil
}

func (s *service) DeletePolicy(ctx context.Context, id string) error {
	if err := s.policyRepo.DeletePolicy(ctx, id); err != nil {
		return wrapInternal(err)
	}
	s.publishConfigEvent(ctx, models.EventTypePolicyUpdated, models.ActionDelete, "", id)
	return nil
}

func (s *service) SeedPolicies(ctx context.Context, req SeedPoliciesRequest) ([]policy.AlertPolicy, error) {
	seeded, err := s.policyRepo.SeedDefaults(ctx, req.OrganizationID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if len(seeded) > 0 {
		s.publishConfigEvent(ctx, models.EventTypePolicyUpdated, models.ActionSeed, req.OrganizationID, "")
	}
	return seeded, nil
}

func (s *service) GetBands(ctx context.Context, organizationID string) (*policy.RiskBands, error) {
	bands, err := s.policyRepo.GetBands(ctx, organizationID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return bands, nil
}

func (s *service) UpsertBands(ctx context.Context, req UpsertBandsRequest) (*policy.RiskBands, error) {
	if err := ValidateBands(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	bands := &policy.RiskBands{
		OrganizationID: req.OrganizationID,
		MediumFloor:    req.MediumFloor,
		HighFloor:      req.HighFloor,
		CriticalFloor:  req.CriticalFloor,
	}
	if err := s.policyRepo.UpsertBands(ctx, bands); err != nil {
		return nil, wrapInternal(err)
	}

	s.publishConfigEvent(ctx, models.EventTypeRiskBandsUpdated, models.ActionUpdate, req.OrganizationID, bands.ID)
	return bands, nil
}

func (s *service) findPolicy(ctx context.Context, id string) (*policy.AlertPolicy, error) {
	p, err := s.policyRepo.GetPolicyByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return p, nil
}

// publishConfigEvent is best effort: the registry also reloads on a timer,
// so a lost event delays convergence but never breaks it.
func (s *service) publishConfigEvent(ctx context.Context, eventType, action, organizationID, resourceID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, eventType, action, organizationID, resourceID); err != nil {
		s.logger.Warnw("failed to publish config update event",
			"event_type", eventType, "action", action, "error", err)
	}
}

func wrapInternal(err error) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func ruleFromRequest(req CreateRuleRequest) scenario.Rule {
	return scenario.Rule{
		RuleType:  req.RuleType,
		RuleValue: req.RuleValue,
		Weight:    req.Weight,
		Enabled:   getEnabledValue(req.Enabled),
		Order:     req.Order,
	}
}

func getEnabledValue(enabled *bool) bool {
	if enabled == nil {
		return true
	}
	return *enabled
}
