package approval

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/approval"
	"github.com/opsmatrix/governance/internal/domain/audit"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"go.uber.org/zap"
)

// Service resolves approval requests: grant, reject, cancel, and workflow
// step advancement.
type Service struct {
	requests  approval.RequestRepository
	workflows approval.WorkflowRepository
	directory authority.Directory
	access    *matrix.AccessResolver
	records   RecordGateway
	auditor   audit.Sink
	logger    *zap.Logger
}

// NewService wires the approval resolution service
func NewService(
	requests approval.RequestRepository,
	workflows approval.WorkflowRepository,
	directory authority.Directory,
	access *matrix.AccessResolver,
	records RecordGateway,
	auditor audit.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{
		requests:  requests,
		workflows: workflows,
		directory: directory,
		access:    access,
		records:   records,
		auditor:   auditor,
		logger:    logger,
	}
}

// PendingFor lists the requests awaiting the principal's decision
func (s *Service) PendingFor(ctx context.Context, principal authority.Principal) ([]*approval.Request, error) {
	return s.requests.FindPendingForApprover(ctx, principal.PrincipalID())
}

// Get loads one request by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	return s.requests.FindByID(ctx, id)
}

// Approve records the principal's approval. Single-approver requests resolve
// immediately; workflow requests advance step by step and resolve when the
// final step's quorum is met.
func (s *Service) Approve(ctx context.Context, principal authority.Principal, requestID uuid.UUID, note string) (*approval.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdministrator() && !request.CanBeResolvedBy(principal.PrincipalID()) {
		return nil, shared.ErrForbidden
	}

	if request.WorkflowID == nil {
		if err := request.Approve(principal.PrincipalID(), note); err != nil {
			return nil, err
		}
		return request, s.finalize(ctx, principal, request, audit.KindApprovalGranted)
	}

	workflow, err := s.workflows.FindByID(ctx, *request.WorkflowID)
	if err != nil {
		return nil, err
	}
	if err := request.RecordStepApproval(principal.PrincipalID()); err != nil {
		return nil, err
	}
	step := workflow.StepAt(request.CurrentStep)
	if step == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Request step is out of workflow range")
	}
	if !step.IsSatisfied(len(request.StepApprovals), len(request.ApproverIDs)) {
		return request, s.requests.Save(ctx, request)
	}

	if workflow.IsFinalStep(request.CurrentStep) {
		if err := request.Approve(principal.PrincipalID(), note); err != nil {
			return nil, err
		}
		return request, s.finalize(ctx, principal, request, audit.KindApprovalGranted)
	}

	next := workflow.StepAt(request.CurrentStep + 1)
	approvers, err := s.resolveStepApprovers(ctx, request, next)
	if err != nil {
		return nil, err
	}
	if err := request.AdvanceStep(approvers); err != nil {
		return nil, err
	}
	s.logger.Info("approval request advanced",
		zap.String("reference", request.Reference),
		zap.Int("step", request.CurrentStep))
	return request, s.requests.Save(ctx, request)
}

// Reject resolves the request against the intercepted operation
func (s *Service) Reject(ctx context.Context, principal authority.Principal, requestID uuid.UUID, reason string) (*approval.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdministrator() && !request.CanBeResolvedBy(principal.PrincipalID()) {
		return nil, shared.ErrForbidden
	}
	if err := request.Reject(principal.PrincipalID(), reason); err != nil {
		return nil, err
	}
	return request, s.finalize(ctx, principal, request, audit.KindApprovalRejected)
}

// Cancel withdraws a pending request. Only the requester or an administrator
// may cancel.
func (s *Service) Cancel(ctx context.Context, principal authority.Principal, requestID uuid.UUID, reason string) (*approval.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdministrator() && principal.PrincipalID() != request.RequestedBy {
		return nil, shared.ErrForbidden
	}
	if err := request.Cancel(principal.PrincipalID(), reason); err != nil {
		return nil, err
	}
	return request, s.finalize(ctx, principal, request, audit.KindApprovalCancelled)
}

// finalize persists a resolved request, unlocks the entity when no other
// pending request still holds it, and records the audit entry.
func (s *Service) finalize(ctx context.Context, principal authority.Principal, request *approval.Request, kind audit.Kind) error {
	if err := s.requests.Save(ctx, request); err != nil {
		return err
	}

	if request.LocksEntity {
		remaining, err := s.requests.FindPendingForEntity(ctx, request.EntityType, request.EntityID)
		if err != nil {
			return err
		}
		stillLocked := false
		for _, other := range remaining {
			if other.LocksEntity {
				stillLocked = true
				break
			}
		}
		if !stillLocked {
			if err := s.records.Unlock(ctx, request.EntityType, request.EntityID); err != nil {
				return err
			}
		}
	}

	if err := s.auditor.Record(ctx, audit.NewEvent(kind,
		request.EntityType, request.EntityID,
		principal.PrincipalID(), principal.PrincipalName(),
		map[string]any{"reference": request.Reference, "state": string(request.State)})); err != nil {
		return err
	}
	s.logger.Info("approval request resolved",
		zap.String("reference", request.Reference),
		zap.String("state", string(request.State)))
	return nil
}

func (s *Service) resolveStepApprovers(ctx context.Context, request *approval.Request, step *approval.WorkflowStep) ([]uuid.UUID, error) {
	var candidates []authority.Principal
	for _, personaID := range step.ApproverPersonaIDs {
		found, err := s.directory.PrincipalsWithPersona(ctx, personaID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	for _, group := range step.ApproverGroupCodes {
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
		if id == request.RequestedBy {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		approvers = append(approvers, id)
	}
	return approvers, nil
}
