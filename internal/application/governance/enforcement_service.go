package governance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"go.uber.org/zap"
)

// EnforcementService intercepts entity lifecycle operations and applies the
// governance rule catalog: block, warn, or divert into an approval request.
type EnforcementService struct {
	rules     governance.RuleRepository
	requests  approval.RequestRepository
	workflows approval.WorkflowRepository
	personas  authority.PersonaRepository
	directory authority.Directory
	access    *matrix.AccessResolver
	auditor   audit.Sink
	logger    *zap.Logger
}

// NewEnforcementService wires the enforcement engine
func NewEnforcementService(
	rules governance.RuleRepository,
	requests approval.RequestRepository,
	workflows approval.WorkflowRepository,
	personas authority.PersonaRepository,
	directory authority.Directory,
	access *matrix.AccessResolver,
	auditor audit.Sink,
	logger *zap.Logger,
) *EnforcementService {
	return &EnforcementService{
		rules:     rules,
		requests:  requests,
		workflows: workflows,
		personas:  personas,
		directory: directory,
		access:    access,
		auditor:   auditor,
		logger:    logger,
	}
}

// EnforceCreate runs on_create rules against the entity
func (s *EnforcementService) EnforceCreate(ctx context.Context, authz authority.Context, entity governance.Governed) error {
	return s.enforce(ctx, authz, entity, governance.TriggerOnCreate, nil)
}

// EnforceWrite runs on_write rules. A write to a locked record that touches
// anything beyond the lock flag voids every pending approval on the record
// and clears the lock before the rules run: the approvals were granted
// against data that no longer exists.
func (s *EnforcementService) EnforceWrite(ctx context.Context, authz authority.Context, entity governance.Governed, changedFields []string) error {
	if entity.IsApprovalLocked() && touchesBeyondLock(changedFields) {
		if err := s.voidPendingApprovals(ctx, authz, entity); err != nil {
			return err
		}
	}
	return s.enforce(ctx, authz, entity, governance.TriggerOnWrite, changedFields)
}

// EnforceUnlink runs on_unlink rules against the entity
func (s *EnforcementService) EnforceUnlink(ctx context.Context, authz authority.Context, entity governance.Governed) error {
	return s.enforce(ctx, authz, entity, governance.TriggerOnUnlink, nil)
}

func (s *EnforcementService) enforce(ctx context.Context, authz authority.Context, entity governance.Governed, trigger governance.TriggerType, changedFields []string) error {
	principal := authz.Principal()

	if authz.BypassRequested() {
		if !principal.IsAdministrator() {
			return shared.ErrForbidden
		}
		return s.recordBypass(ctx, authz, entity, trigger)
	}

	rules, err := s.rules.FindEnforced(ctx, entity.EntityType(), trigger)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	attrs := conditionAttributes(entity)
	var warnings []string
	seenWarnings := make(map[string]struct{})

	for _, rule := range rules {
		if cfgErr := rule.Validate(); cfgErr != nil {
			// A malformed rule never fires. The skip is audited so the
			// administrator sees the catalog is broken.
			s.logger.Warn("skipping malformed governance rule",
				zap.String("rule", rule.Name), zap.Error(cfgErr))
			_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindRuleSkipped,
				entity.EntityType(), entity.GetID(),
				principal.PrincipalID(), principal.PrincipalName(),
				map[string]any{"rule": rule.Name, "error": cfgErr.Error()}))
			continue
		}

		matched, err := rule.Matches(attrs)
		if err != nil {
			// Runtime evaluation failure is a configuration problem naming
			// the rule, never a generic internal error.
			return err
		}
		if !matched {
			continue
		}

		switch rule.Action {
		case governance.ActionBlock:
			return &governance.BlockedByRuleError{RuleName: rule.Name, Message: rule.MessageFor()}
		case governance.ActionWarn:
			msg := rule.MessageFor()
			if _, ok := seenWarnings[msg]; !ok {
				seenWarnings[msg] = struct{}{}
				warnings = append(warnings, msg)
			}
		case governance.ActionRequireApproval:
			approvalErr, err := s.requireApproval(ctx, authz, entity, rule)
			if err != nil {
				return err
			}
			if approvalErr != nil {
				return approvalErr
			}
			// An approved request exists: this rule passes.
		}
	}

	if len(warnings) > 0 {
		return &governance.WarningError{Warnings: warnings}
	}
	return nil
}

// requireApproval resolves one require_approval rule. Returns a non-nil
// ApprovalRequiredError (or SegregationOfDutiesError) when the operation must
// stop, (nil, nil) when a prior approval lets it through.
func (s *EnforcementService) requireApproval(ctx context.Context, authz authority.Context, entity governance.Governed, rule *governance.GovernanceRule) (error, error) {
	principal := authz.Principal()

	approved, err := s.requests.FindApproved(ctx, entity.EntityType(), entity.GetID(), rule.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if approved != nil {
		return nil, nil
	}

	// Idempotent interception: a pending request is reused, never duplicated.
	pending, err := s.requests.FindPending(ctx, entity.EntityType(), entity.GetID(), rule.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if pending != nil {
		if rule.LockOnApprovalRequest {
			entity.SetApprovalLocked(true)
		}
		return &governance.ApprovalRequiredError{
			RuleName:  rule.Name,
			Reference: pending.Reference,
			Message:   rule.MessageFor(),
		}, nil
	}

	approverPersonas := rule.ApproverPersonaIDs
	groupCodes := rule.ApproverGroupCodes
	var escalatedTo *uuid.UUID
	var sodErr *governance.SegregationOfDutiesError

	if principal.PrincipalID() == entity.CreatedByPrincipal() {
		// Four-eyes check: the record's creator can never approve their own
		// record, so the request escalates to the creator's parent persona.
		// A top-level persona has nowhere to escalate: executive deadlock.
		hierarchy, err := s.loadHierarchy(ctx)
		if err != nil {
			return nil, err
		}
		personaID := authority.PrimaryPersonaID(principal)
		if personaID == uuid.Nil {
			return nil, &governance.ConfigurationError{
				RuleName: rule.Name,
				Detail:   "requesting principal has no persona to escalate through",
			}
		}
		selfName := ""
		if self := hierarchy.Get(personaID); self != nil {
			selfName = self.Name
		}
		parent := hierarchy.ParentOf(personaID)
		if parent == nil {
			_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindSoDDeadlock,
				entity.EntityType(), entity.GetID(),
				principal.PrincipalID(), principal.PrincipalName(),
				map[string]any{"rule": rule.Name, "persona": selfName}))
			return &governance.SegregationOfDutiesError{
				PrincipalID: principal.PrincipalID(),
				PersonaName: selfName,
				Deadlock:    true,
			}, nil
		}
		approverPersonas = []uuid.UUID{parent.ID}
		groupCodes = nil
		escalatedTo = &parent.ID
		_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindSoDEscalation,
			entity.EntityType(), entity.GetID(),
			principal.PrincipalID(), principal.PrincipalName(),
			map[string]any{"rule": rule.Name, "from": selfName, "to": parent.Name}))
		sodErr = &governance.SegregationOfDutiesError{
			PrincipalID:       principal.PrincipalID(),
			PersonaName:       selfName,
			EscalationPersona: parent.Name,
		}
	} else if conflict := personaOverlap(principal.PersonaIDs(), approverPersonas); conflict != uuid.Nil {
		// Secondary guard: the requester's own persona sits in the approver
		// set, so the conflicting seat escalates one level up.
		hierarchy, err := s.loadHierarchy(ctx)
		if err != nil {
			return nil, err
		}
		selfName := ""
		if self := hierarchy.Get(conflict); self != nil {
			selfName = self.Name
		}
		parent := hierarchy.ParentOf(conflict)
		if parent == nil {
			_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindSoDDeadlock,
				entity.EntityType(), entity.GetID(),
				principal.PrincipalID(), principal.PrincipalName(),
				map[string]any{"rule": rule.Name, "persona": selfName}))
			return &governance.SegregationOfDutiesError{
				PrincipalID: principal.PrincipalID(),
				PersonaName: selfName,
				Deadlock:    true,
			}, nil
		}
		approverPersonas = replacePersona(approverPersonas, conflict, parent.ID)
		escalatedTo = &parent.ID
		_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindSoDEscalation,
			entity.EntityType(), entity.GetID(),
			principal.PrincipalID(), principal.PrincipalName(),
			map[string]any{"rule": rule.Name, "from": selfName, "to": parent.Name}))
		sodErr = &governance.SegregationOfDutiesError{
			PrincipalID:       principal.PrincipalID(),
			PersonaName:       selfName,
			EscalationPersona: parent.Name,
		}
	}

	// Escalated requests route to the parent persona directly; workflow
	// step routing applies only on the unconflicted path.
	var workflow *approval.Workflow
	if rule.WorkflowID != nil && escalatedTo == nil {
		workflow, err = s.workflows.FindByID(ctx, *rule.WorkflowID)
		if err != nil {
			return nil, err
		}
		step := workflow.StepAt(1)
		if step == nil {
			return nil, &governance.ConfigurationError{
				RuleName: rule.Name,
				Detail:   "linked approval workflow has no steps",
			}
		}
		approverPersonas = step.ApproverPersonaIDs
		groupCodes = step.ApproverGroupCodes
	}
	approvers, err := s.resolveApprovers(ctx, entity, principal.PrincipalID(), approverPersonas, groupCodes)
	if err != nil {
		return nil, err
	}

	reference, err := s.requests.NextReference(ctx)
	if err != nil {
		return nil, err
	}
	request, err := approval.NewRequest(
		requestCompanyID(entity), reference,
		entity.EntityType(), entity.GetID(),
		rule.ID, rule.Name,
		principal.PrincipalID(),
		approval.ViolationOther, approval.SeverityMedium,
	)
	if err != nil {
		return nil, err
	}
	request.ApproverIDs = approvers
	request.Reason = rule.MessageFor()
	request.LocksEntity = rule.LockOnApprovalRequest
	request.EscalatedTo = escalatedTo
	if workflow != nil {
		request.WorkflowID = rule.WorkflowID
		request.CurrentStep = 1
	}

	if err := s.requests.Save(ctx, request); err != nil {
		// A concurrent interception may have won the race; reuse its request.
		if errors.Is(err, shared.ErrAlreadyExists) {
			if existing, findErr := s.requests.FindPending(ctx, entity.EntityType(), entity.GetID(), rule.ID); findErr == nil && existing != nil {
				return &governance.ApprovalRequiredError{
					RuleName:  rule.Name,
					Reference: existing.Reference,
					Message:   rule.MessageFor(),
				}, nil
			}
		}
		return nil, err
	}

	if rule.LockOnApprovalRequest {
		entity.SetApprovalLocked(true)
	}

	_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindApprovalRequested,
		entity.EntityType(), entity.GetID(),
		principal.PrincipalID(), principal.PrincipalName(),
		map[string]any{"rule": rule.Name, "reference": reference}))
	s.logger.Info("approval request created",
		zap.String("reference", reference),
		zap.String("entity_type", entity.EntityType()),
		zap.String("rule", rule.Name))

	if sodErr != nil {
		return sodErr, nil
	}
	return &governance.ApprovalRequiredError{
		RuleName:  rule.Name,
		Reference: reference,
		Message:   rule.MessageFor(),
	}, nil
}

// resolveApprovers expands persona and group descriptors into concrete
// principals, dropping the requester and anyone whose matrix scope excludes
// the record's branch.
func (s *EnforcementService) resolveApprovers(ctx context.Context, entity governance.Governed, requesterID uuid.UUID, personaIDs []uuid.UUID, groupCodes []string) ([]uuid.UUID, error) {
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

	var branchID *uuid.UUID
	if scoped, ok := entity.(governance.MatrixScoped); ok {
		branchID = scoped.BranchID()
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

// voidPendingApprovals cancels every pending request on the entity and clears
// the approval lock
func (s *EnforcementService) voidPendingApprovals(ctx context.Context, authz authority.Context, entity governance.Governed) error {
	principal := authz.Principal()
	pendings, err := s.requests.FindPendingForEntity(ctx, entity.EntityType(), entity.GetID())
	if err != nil {
		return err
	}
	for _, request := range pendings {
		if err := request.Cancel(principal.PrincipalID(), "record modified while approval was pending"); err != nil {
			return err
		}
		if err := s.requests.Save(ctx, request); err != nil {
			return err
		}
		_ = s.auditor.Record(ctx, audit.NewEvent(audit.KindApprovalCancelled,
			entity.EntityType(), entity.GetID(),
			principal.PrincipalID(), principal.PrincipalName(),
			map[string]any{"reference": request.Reference, "cause": "record modified"}))
	}
	entity.SetApprovalLocked(false)
	return nil
}

func (s *EnforcementService) recordBypass(ctx context.Context, authz authority.Context, entity governance.Governed, trigger governance.TriggerType) error {
	principal := authz.Principal()
	s.logger.Warn("governance bypass",
		zap.String("principal", principal.PrincipalName()),
		zap.String("entity_type", entity.EntityType()),
		zap.String("reason", authz.BypassReason()))
	return s.auditor.Record(ctx, audit.NewEvent(audit.KindGovernanceBypass,
		entity.EntityType(), entity.GetID(),
		principal.PrincipalID(), principal.PrincipalName(),
		map[string]any{"trigger": string(trigger), "reason": authz.BypassReason()}))
}

func (s *EnforcementService) loadHierarchy(ctx context.Context) (*authority.Hierarchy, error) {
	personas, err := s.personas.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	return authority.NewHierarchy(personas)
}

// conditionAttributes merges the built-in attributes every condition may
// reference with the entity's own attribute map. Entity attributes win on
// collision.
func conditionAttributes(entity governance.Governed) map[string]any {
	attrs := map[string]any{
		"entity_type":      entity.EntityType(),
		"created_by":       entity.CreatedByPrincipal().String(),
		"branch_id":        "",
		"business_unit_id": "",
	}
	if scoped, ok := entity.(governance.MatrixScoped); ok {
		if id := scoped.BranchID(); id != nil {
			attrs["branch_id"] = id.String()
		}
		if id := scoped.BusinessUnitID(); id != nil {
			attrs["business_unit_id"] = id.String()
		}
	}
	for key, value := range entity.Attributes() {
		attrs[key] = value
	}
	return attrs
}

func touchesBeyondLock(changedFields []string) bool {
	for _, field := range changedFields {
		if field != governance.LockField {
			return true
		}
	}
	return false
}

func personaOverlap(principalPersonas, approverPersonas []uuid.UUID) uuid.UUID {
	for _, mine := range principalPersonas {
		for _, approver := range approverPersonas {
			if mine == approver {
				return mine
			}
		}
	}
	return uuid.Nil
}

func replacePersona(personas []uuid.UUID, from, to uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(personas))
	for _, id := range personas {
		if id == from {
			id = to
		}
		out = append(out, id)
	}
	return out
}

func requestCompanyID(entity governance.Governed) uuid.UUID {
	type companyScoped interface{ GetCompanyID() uuid.UUID }
	if c, ok := entity.(companyScoped); ok {
		return c.GetCompanyID()
	}
	return uuid.Nil
}
