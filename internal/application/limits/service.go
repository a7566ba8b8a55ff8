package limits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service validates commercial values against the scoped rule catalog and
// routes over-threshold discounts into the approval queue
type Service struct {
	resolver  *limits.Resolver
	requests  approval.RequestRepository
	directory authority.Directory
	access    *matrix.AccessResolver
	auditor   audit.Sink
	logger    *zap.Logger
}

// NewService wires the limits validation service
func NewService(
	resolver *limits.Resolver,
	requests approval.RequestRepository,
	directory authority.Directory,
	access *matrix.AccessResolver,
	auditor audit.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{
		resolver:  resolver,
		requests:  requests,
		directory: directory,
		access:    access,
		auditor:   auditor,
		logger:    logger,
	}
}

// DiscountCheck carries one discount validation: the scope point being
// queried plus, when the caller names the entity the discount sits on, the
// identity an approval request would attach to.
type DiscountCheck struct {
	EntityType      string
	EntityID        uuid.UUID
	CategoryID      uuid.UUID
	BranchID        *uuid.UUID
	BusinessUnitID  *uuid.UUID
	DiscountPercent decimal.Decimal
}

func queryFor(principal authority.Principal, q limits.Query) limits.Query {
	q.PersonaIDs = principal.PersonaIDs()
	q.GroupCodes = principal.GroupCodes()
	return q
}

func (c DiscountCheck) query(principal authority.Principal) limits.Query {
	return queryFor(principal, limits.Query{
		CategoryID:     c.CategoryID,
		BranchID:       c.BranchID,
		BusinessUnitID: c.BusinessUnitID,
	})
}

// ValidateDiscount checks a requested discount percentage against the
// principal's resolved authority. Within the limit it passes; over the limit
// but covered by the rule's approval threshold and approvers it raises (or
// reuses) an approval request and returns ApprovalRequiredError; otherwise it
// is a flat LimitExceededError.
func (s *Service) ValidateDiscount(ctx context.Context, principal authority.Principal, check DiscountCheck) error {
	rule, err := s.resolver.ResolveDiscountRule(ctx, check.query(principal))
	if err != nil {
		return err
	}

	allowed := decimal.Zero
	if rule != nil {
		allowed = rule.Percent
	}
	if !check.DiscountPercent.GreaterThan(allowed) {
		return nil
	}

	s.logger.Info("discount over authority",
		zap.String("principal", principal.PrincipalName()),
		zap.String("requested", check.DiscountPercent.String()),
		zap.String("allowed", allowed.String()))

	if rule == nil || !rule.HasApprovers() || check.EntityID == uuid.Nil ||
		check.DiscountPercent.GreaterThan(rule.DiscountApprovalThreshold()) {
		return &limits.LimitExceededError{
			Kind:      limits.KindDiscountLimit,
			Allowed:   allowed,
			Requested: check.DiscountPercent,
		}
	}

	return s.requireDiscountApproval(ctx, principal, rule, check)
}

// requireDiscountApproval raises an approval request for a discount between
// the limit and the approval threshold. A prior approval on the same entity
// and rule lets the discount through; a pending request is reused.
func (s *Service) requireDiscountApproval(ctx context.Context, principal authority.Principal, rule *limits.ScopedRule, check DiscountCheck) error {
	approved, err := s.requests.FindApproved(ctx, check.EntityType, check.EntityID, rule.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if approved != nil {
		return nil
	}

	pending, err := s.requests.FindPending(ctx, check.EntityType, check.EntityID, rule.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if pending != nil {
		return &governance.ApprovalRequiredError{
			RuleName:  "discount_limit",
			Reference: pending.Reference,
			Message:   "Discount exceeds your authority and requires approval",
		}
	}

	approvers, err := s.resolveApprovers(ctx, principal.PrincipalID(), check.BranchID, rule.ApproverPersonaIDs, rule.ApproverGroupCodes)
	if err != nil {
		return err
	}

	reference, err := s.requests.NextReference(ctx)
	if err != nil {
		return err
	}
	request, err := approval.NewRequest(
		rule.CompanyID, reference,
		check.EntityType, check.EntityID,
		rule.ID, "discount_limit",
		principal.PrincipalID(),
		approval.ViolationDiscount, approval.SeverityMedium,
	)
	if err != nil {
		return err
	}
	request.ActualValue = check.DiscountPercent
	request.AllowedLimit = rule.Percent
	request.ApproverIDs = approvers
	request.Reason = "Discount exceeds the resolved authority"

	if err := s.requests.Save(ctx, request); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			if existing, findErr := s.requests.FindPending(ctx, check.EntityType, check.EntityID, rule.ID); findErr == nil && existing != nil {
				return &governance.ApprovalRequiredError{
					RuleName:  "discount_limit",
					Reference: existing.Reference,
					Message:   "Discount exceeds your authority and requires approval",
				}
			}
		}
		return err
	}

	_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindApprovalRequested,
		check.EntityType, check.EntityID,
		principal.PrincipalID(), principal.PrincipalName(),
		map[string]any{
			"rule":      "discount_limit",
			"reference": reference,
			"requested": check.DiscountPercent.String(),
			"allowed":   rule.Percent.String(),
		}))
	s.logger.Info("discount approval request created",
		zap.String("reference", reference),
		zap.String("entity_type", check.EntityType))

	return &governance.ApprovalRequiredError{
		RuleName:  "discount_limit",
		Reference: reference,
		Message:   "Discount exceeds your authority and requires approval",
	}
}

// resolveApprovers expands the rule's approver descriptors into concrete
// principals, dropping the requester and anyone whose matrix scope excludes
// the record's branch
func (s *Service) resolveApprovers(ctx context.Context, requesterID uuid.UUID, branchID *uuid.UUID, personaIDs []uuid.UUID, groupCodes []string) ([]uuid.UUID, error) {
	var candidates []authority.Principal
	for _, personaID := range personaIDs {
		found, err := s.directory.PrincipalsWithPersona(ctx, personaID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	for _, group := range groupCodes {
		found, err := s.directory.PrincipalsInGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}

	seen := make(map[uuid.UUID]struct{}, len(candidates))
	var approvers []uuid.UUID
	for _, candidate := range candidates {
		id := candidate.PrincipalID()
		if id == requesterID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if branchID != nil {
			grant, err := s.access.ResolveAllowedBranches(ctx, candidate)
			if err != nil {
				return nil, err
			}
			if grant.CheckBranch(branchID) != nil {
				continue
			}
		}
		approvers = append(approvers, id)
	}
	return approvers, nil
}

// ValidateMargin checks a margin percentage against the principal's floor.
// A missing rule means no margin constraint applies.
func (s *Service) ValidateMargin(ctx context.Context, principal authority.Principal, q limits.Query, margin decimal.Decimal) error {
	rule, err := s.resolver.ResolveMarginRule(ctx, queryFor(principal, q))
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}
	if margin.IsNegative() && !rule.AllowNegativeMargin {
		return &limits.LimitExceededError{Kind: limits.KindMarginRule, Allowed: rule.Percent, Requested: margin}
	}
	if rule.Percent.IsPositive() && margin.LessThan(rule.Percent) {
		s.logger.Warn("margin below floor",
			zap.String("principal", principal.PrincipalName()),
			zap.String("margin", margin.String()),
			zap.String("floor", rule.Percent.String()),
			zap.String("severity", rule.MarginSeverity(margin)))
		return &limits.LimitExceededError{Kind: limits.KindMarginRule, Allowed: rule.Percent, Requested: margin}
	}
	return nil
}

// ValidatePriceChange checks a signed price deviation percentage against the
// principal's price authority. Increases and decreases are bounded
// separately; a rule granting override passes any deviation.
func (s *Service) ValidatePriceChange(ctx context.Context, principal authority.Principal, q limits.Query, deviation decimal.Decimal) error {
	rule, err := s.resolver.ResolvePriceRule(ctx, queryFor(principal, q))
	if err != nil {
		return err
	}
	if rule == nil {
		if deviation.IsZero() {
			return nil
		}
		return &limits.LimitExceededError{Kind: limits.KindPriceAuthority, Allowed: decimal.Zero, Requested: deviation}
	}
	if rule.CanOverrideWithoutApproval {
		return nil
	}
	bound := rule.IncreaseBound()
	if deviation.IsNegative() {
		bound = rule.DecreaseBound()
	}
	if deviation.Abs().GreaterThan(bound) {
		return &limits.LimitExceededError{Kind: limits.KindPriceAuthority, Allowed: bound, Requested: deviation}
	}
	return nil
}
